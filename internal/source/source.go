package source

import (
	"errors"
	"io"
	"iter"

	"github.com/cleared-dev/payengine/internal/model"
)

// Source yields raw records one at a time. It is single-pass: once Next
// returns io.EOF the source is exhausted and cannot be rewound.
//
// An error matching model.ErrMalformedRecord affects only the current row
// and the caller may keep calling Next. Any other error is fatal.
type Source interface {
	Next() (model.RawRecord, error)
}

// Records adapts src to a range-over-func sequence. Iteration stops after
// io.EOF or the first fatal error, which is yielded once.
func Records(src Source) iter.Seq2[model.RawRecord, error] {
	return func(yield func(model.RawRecord, error) bool) {
		for {
			rec, err := src.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) {
				return
			}
			if err != nil && !errors.Is(err, model.ErrMalformedRecord) {
				return
			}
		}
	}
}

// Slice is an in-memory Source, mostly useful in tests.
type Slice struct {
	records []model.RawRecord
	pos     int
}

// NewSlice returns a Source over records.
func NewSlice(records ...model.RawRecord) *Slice {
	return &Slice{records: records}
}

// Next returns the next record or io.EOF.
func (s *Slice) Next() (model.RawRecord, error) {
	if s.pos >= len(s.records) {
		return model.RawRecord{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}
