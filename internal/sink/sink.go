// Package sink publishes run summaries to secondary stores after the payload
// is written. Sinks are best-effort: the object store stays the source of truth.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btc-data/internal/model"
)

// Record describes one written payload.
type Record struct {
	InvocationID string
	RunID        string
	Mode         string
	Key          string
	Location     string
	First        time.Time
	Last         time.Time
	Summary      model.SeriesSummary
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, r Record) error
}

// Multi fans a record out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Name() string { return "multi" }

func (m Multi) Publish(ctx context.Context, r Record) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
