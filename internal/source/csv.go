package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cleared-dev/payengine/internal/model"
)

const (
	colType   = "type"
	colClient = "client"
	colTx     = "tx"
	colAmount = "amount"

	byteOrderMark = "\ufeff"
)

// CSV streams records from a CSV file with a header row. Columns are matched
// by header name, so their order does not matter; the amount column may be
// omitted. Rows may have fewer fields than the header.
type CSV struct {
	cr      *csv.Reader
	columns map[string]int
	done    bool
}

// NewCSV reads the header from r. An empty input yields an empty source.
func NewCSV(r io.Reader) (*CSV, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &CSV{cr: cr, done: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	// Spreadsheet exports often start with a byte order mark.
	header[0] = strings.TrimPrefix(header[0], byteOrderMark)

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range []string{colType, colClient, colTx} {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("CSV header missing columns: %s", strings.Join(missing, ", "))
	}

	return &CSV{cr: cr, columns: columns}, nil
}

// Next returns the next row. Rows the CSV reader cannot decode are reported
// as *model.MalformedRecordError; other read failures are fatal.
func (c *CSV) Next() (model.RawRecord, error) {
	if c.done {
		return model.RawRecord{}, io.EOF
	}

	rec, err := c.cr.Read()
	if errors.Is(err, io.EOF) {
		c.done = true
		return model.RawRecord{}, io.EOF
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return model.RawRecord{}, &model.MalformedRecordError{Line: perr.StartLine, Reason: "undecodable CSV row", Err: perr.Err}
	}
	if err != nil {
		c.done = true
		return model.RawRecord{}, fmt.Errorf("reading CSV: %w", err)
	}

	line, _ := c.cr.FieldPos(0)
	return model.RawRecord{
		Line:   line,
		Kind:   c.field(rec, colType),
		Client: c.field(rec, colClient),
		Tx:     c.field(rec, colTx),
		Amount: c.field(rec, colAmount),
	}, nil
}

// field copies the named column out of rec, which is reused between reads.
func (c *CSV) field(rec []string, name string) string {
	i, ok := c.columns[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.Clone(strings.TrimSpace(rec[i]))
}
