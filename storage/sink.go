package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rent_scrooper/metrics"
	"rent_scrooper/models"
)

// Batch is the set of records one page of one location produced.
type Batch struct {
	RunID   int64
	RunKey  string
	SiteID  string
	Records []models.ListingRecord
}

// RecordSink persists listing records. Write returns how many records were stored.
type RecordSink interface {
	Name() string
	Write(ctx context.Context, b Batch) (int, error)
}

// MultiSink fans a batch out to every sink. One failing sink does not stop the others.
type MultiSink struct {
	sinks []RecordSink
	log   zerolog.Logger
}

func NewMultiSink(log zerolog.Logger, sinks ...RecordSink) *MultiSink {
	return &MultiSink{sinks: sinks, log: log}
}

func (m *MultiSink) Add(s RecordSink) {
	m.sinks = append(m.sinks, s)
}

func (m *MultiSink) Name() string {
	return "multi"
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Write returns the largest count any sink reported and every sink error joined.
func (m *MultiSink) Write(ctx context.Context, b Batch) (int, error) {
	if len(b.Records) == 0 {
		return 0, nil
	}
	var (
		written int
		errs    []error
	)
	for _, s := range m.sinks {
		n, err := s.Write(ctx, b)
		if err != nil {
			m.log.Error().Err(err).Str("sink", s.Name()).Int("records", len(b.Records)).Msg("sink write failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		metrics.RecordsWritten.WithLabelValues(s.Name()).Add(float64(n))
		if n > written {
			written = n
		}
	}
	return written, errors.Join(errs...)
}
