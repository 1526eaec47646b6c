package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/cleared-dev/payengine/internal/model"
)

// Header is the CSV header for account snapshots.
const Header = "client,available,held,total,locked"

// DefaultPrecision is the number of decimal places written for amounts.
const DefaultPrecision = model.MaxAmountScale

const (
	numFields    = 5
	colClient    = 0
	colAvailable = 1
	colHeld      = 2
	colTotal     = 3
	colLocked    = 4
)

// Emitter writes a final account snapshot to a sink.
type Emitter interface {
	Emit(accounts []model.Account) error
}

// Formats lists the supported output formats.
var Formats = []string{"csv", "json"}

// New returns the emitter for format writing to w.
func New(format string, w io.Writer, precision int32) (Emitter, error) {
	switch strings.ToLower(format) {
	case "csv":
		return &CSVEmitter{w: w, precision: precision}, nil
	case "json":
		return &JSONEmitter{w: w, precision: precision}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (known: %s)", format, strings.Join(Formats, ", "))
}

// sorted returns accounts ordered by client ID without touching the input.
func sorted(accounts []model.Account) []model.Account {
	out := slices.Clone(accounts)
	slices.SortStableFunc(out, func(a, b model.Account) int {
		return int(a.Client) - int(b.Client)
	})
	return out
}

// CSVEmitter writes one row per account with a header.
type CSVEmitter struct {
	w         io.Writer
	precision int32
}

// Emit writes the header and all accounts sorted by client ID.
func (e *CSVEmitter) Emit(accounts []model.Account) error {
	cw := csv.NewWriter(e.w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, acct := range sorted(accounts) {
		if err := cw.Write(MarshalAccount(acct, e.precision)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account, precision int32) []string {
	row := make([]string, numFields)
	row[colClient] = strconv.FormatUint(uint64(acct.Client), 10)
	row[colAvailable] = acct.Available.StringFixed(precision)
	row[colHeld] = acct.Held.StringFixed(precision)
	row[colTotal] = acct.Total().StringFixed(precision)
	row[colLocked] = strconv.FormatBool(acct.Locked)
	return row
}

// JSONEmitter writes a JSON array of accounts. Amounts are strings so no
// precision is lost to floating point.
type JSONEmitter struct {
	w         io.Writer
	precision int32
}

type jsonAccount struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// Emit writes all accounts sorted by client ID.
func (e *JSONEmitter) Emit(accounts []model.Account) error {
	rows := make([]jsonAccount, 0, len(accounts))
	for _, acct := range sorted(accounts) {
		rows = append(rows, jsonAccount{
			Client:    uint16(acct.Client),
			Available: acct.Available.StringFixed(e.precision),
			Held:      acct.Held.StringFixed(e.precision),
			Total:     acct.Total().StringFixed(e.precision),
			Locked:    acct.Locked,
		})
	}

	enc := json.NewEncoder(e.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}
	return nil
}
