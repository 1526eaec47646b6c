package runner

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleared-dev/payengine/internal/ledger"
	"github.com/cleared-dev/payengine/internal/model"
	"github.com/cleared-dev/payengine/internal/source"
)

// Stats summarizes one run.
type Stats struct {
	Records  int // rows read from the source, including malformed ones
	Applied  int
	Warnings map[ledger.WarningKind]int
}

// Skipped returns the number of records that produced a warning.
func (s Stats) Skipped() int {
	n := 0
	for _, c := range s.Warnings {
		n += c
	}
	return n
}

// Event describes one skipped record.
type Event struct {
	Line    int
	Warning *ledger.Warning
}

// Observer receives every skipped record. A non-nil error aborts the run.
type Observer func(Event) error

// Runner folds a Source into an Engine.
type Runner struct {
	engine   *ledger.Engine
	logger   *zap.Logger
	observer Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithObserver registers a callback for skipped records.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// New creates a Runner that applies records to engine.
func New(engine *ledger.Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes src to the end in order. Malformed rows and ledger warnings
// are counted and logged; only a fatal source error or an observer error
// stops the run early.
func (r *Runner) Run(src source.Source) (Stats, error) {
	stats := Stats{Warnings: make(map[ledger.WarningKind]int)}

	for raw, err := range source.Records(src) {
		if err != nil && !errors.Is(err, model.ErrMalformedRecord) {
			return stats, fmt.Errorf("reading records: %w", err)
		}
		stats.Records++

		if err == nil {
			var tx model.Transaction
			tx, err = model.ParseRecord(raw)
			if err == nil {
				err = r.engine.Apply(tx)
			}
		}
		if err == nil {
			stats.Applied++
			continue
		}

		w := toWarning(err)
		stats.Warnings[w.Kind]++
		r.logger.Warn("record skipped",
			zap.Int("line", lineOf(raw, err)),
			zap.String("kind", string(w.Kind)),
			zap.Uint16("client", uint16(w.Client)),
			zap.Uint32("tx", uint32(w.Tx)),
			zap.String("detail", w.Detail),
		)
		if r.observer != nil {
			if oerr := r.observer(Event{Line: lineOf(raw, err), Warning: w}); oerr != nil {
				return stats, fmt.Errorf("recording warning: %w", oerr)
			}
		}
	}

	r.logger.Info("run complete",
		zap.Int("records", stats.Records),
		zap.Int("applied", stats.Applied),
		zap.Int("skipped", stats.Skipped()),
		zap.Int("accounts", r.engine.Len()),
	)
	return stats, nil
}

func toWarning(err error) *ledger.Warning {
	var w *ledger.Warning
	if errors.As(err, &w) {
		return w
	}
	return &ledger.Warning{Kind: ledger.KindMalformedRecord, Detail: err.Error()}
}

func lineOf(raw model.RawRecord, err error) int {
	var merr *model.MalformedRecordError
	if errors.As(err, &merr) && merr.Line > 0 {
		return merr.Line
	}
	return raw.Line
}
