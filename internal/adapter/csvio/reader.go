package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/simaogato/ledger-replay/internal/domain"
)

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

// ParseError reports a record that could not be decoded into an operation.
// It wraps domain.ErrMalformedOperation.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader decodes operations from CSV input with a
// `type,client,tx,amount` header. Column order is taken from the header.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
}

// NewReader reads the header from in and returns a Reader positioned on the
// first record
func NewReader(in io.Reader) (*Reader, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read header: empty input")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnType, columnClient, columnTx} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("header is missing the %q column", required)
		}
	}

	return &Reader{csv: r, columns: columns}, nil
}

// Next returns the next operation.
// Returns io.EOF once the input is exhausted and a *ParseError for a record
// that is malformed; reading may continue after a *ParseError.
func (r *Reader) Next() (domain.Operation, error) {
	record, err := r.csv.Read()
	if err != nil {
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			return domain.Operation{}, &ParseError{
				Line: csvErr.Line,
				Err:  fmt.Errorf("%w: %v", domain.ErrMalformedOperation, csvErr.Err),
			}
		}
		return domain.Operation{}, err
	}

	line, _ := r.csv.FieldPos(0)
	op, err := r.decode(record)
	if err != nil {
		return domain.Operation{}, &ParseError{Line: line, Err: err}
	}
	return op, nil
}

func (r *Reader) decode(record []string) (domain.Operation, error) {
	var op domain.Operation

	opType, err := domain.ParseOpType(r.field(record, columnType))
	if err != nil {
		return op, err
	}
	op.Type = opType

	client, err := strconv.ParseUint(r.field(record, columnClient), 10, 16)
	if err != nil {
		return op, fmt.Errorf("%w: invalid client %q", domain.ErrMalformedOperation, r.field(record, columnClient))
	}
	op.Client = domain.ClientID(client)

	tx, err := strconv.ParseUint(r.field(record, columnTx), 10, 32)
	if err != nil {
		return op, fmt.Errorf("%w: invalid tx %q", domain.ErrMalformedOperation, r.field(record, columnTx))
	}
	op.Tx = domain.TxID(tx)

	// Dispute-family rows reference an earlier transaction; any amount is ignored
	if opType.CarriesAmount() {
		raw := r.field(record, columnAmount)
		if raw == "" {
			return op, fmt.Errorf("%w: %s tx %d is missing an amount", domain.ErrMalformedOperation, opType, op.Tx)
		}
		amount, err := domain.ParseAmount(raw)
		if err != nil {
			return op, err
		}
		op.Amount = amount
		op.HasAmount = true
	}

	return op, nil
}

// field returns the trimmed value of column, or "" when the record is too short
func (r *Reader) field(record []string, column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
