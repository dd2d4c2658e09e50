package domain

// Account holds the balances of one client.
// Total may go negative after a chargeback. The ledger is the only writer;
// Account itself enforces no rules.
type Account struct {
	Total  Amount
	Held   Amount
	Locked bool
}

// Available returns the spendable funds (Total - Held)
func (a *Account) Available() Amount {
	return a.Total - a.Held
}

// AccountSnapshot is a read-only export row of an account
type AccountSnapshot struct {
	Client    ClientID
	Available Amount
	Held      Amount
	Total     Amount
	Locked    bool
}

// Snapshot returns the export representation of the account
func (a *Account) Snapshot(client ClientID) AccountSnapshot {
	return AccountSnapshot{
		Client:    client,
		Available: a.Available(),
		Held:      a.Held,
		Total:     a.Total,
		Locked:    a.Locked,
	}
}
