package warnlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cleared-dev/payengine/internal/ledger"
	"github.com/cleared-dev/payengine/internal/model"
)

// Entry is one row in the warnings log.
type Entry struct {
	Line   int
	Kind   ledger.WarningKind
	Client model.ClientID
	Tx     model.TxID
	Detail string
}

// Header is the CSV header for the warnings log.
const Header = "line,kind,client,tx,detail"

const (
	numFields = 5
	colLine   = 0
	colKind   = 1
	colClient = 2
	colTx     = 3
	colDetail = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colLine] = strconv.Itoa(e.Line)
	row[colKind] = string(e.Kind)
	row[colClient] = strconv.FormatUint(uint64(e.Client), 10)
	row[colTx] = strconv.FormatUint(uint64(e.Tx), 10)
	row[colDetail] = e.Detail
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	line, err := strconv.Atoi(record[colLine])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing line %q: %w", record[colLine], err)
	}
	client, err := strconv.ParseUint(record[colClient], 10, 16)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing client %q: %w", record[colClient], err)
	}
	tx, err := strconv.ParseUint(record[colTx], 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing tx %q: %w", record[colTx], err)
	}

	return Entry{
		Line:   line,
		Kind:   ledger.WarningKind(record[colKind]),
		Client: model.ClientID(client),
		Tx:     model.TxID(tx),
		Detail: record[colDetail],
	}, nil
}

// Writer streams entries to a CSV sink, writing the header before the first row.
type Writer struct {
	cw     *csv.Writer
	closer io.Closer
}

// NewWriter writes the header to w and returns a Writer.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &Writer{cw: cw}, nil
}

// Create truncates or creates the file at path and returns a Writer for it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating warnings log: %w", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Write appends one entry.
func (w *Writer) Write(e Entry) error {
	if err := w.cw.Write(MarshalEntry(e)); err != nil {
		return fmt.Errorf("writing warning for line %d: %w", e.Line, err)
	}
	return nil
}

// Close flushes buffered rows and closes the file if Create opened it.
func (w *Writer) Close() error {
	w.cw.Flush()
	err := w.cw.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("closing warnings log: %w", err)
	}
	return nil
}

// Read returns all entries from a warnings log.
func Read(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading warnings log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
