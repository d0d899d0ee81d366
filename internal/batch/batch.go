package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stadtwerke-wuelfrath/epilot-provisioner/internal/logger"
)

// ErrSkipped marks an item that was intentionally not processed (e.g. already provisioned).
var ErrSkipped = errors.New("skipped")

// Item is one unit of sequential work.
type Item struct {
	Key string
	Run func(ctx context.Context) error
}

// Summary reports the outcome of a batch.
type Summary struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Cancelled bool
}

// Runner executes items in program order, pausing Delay between calls.
// A failing item is logged and recorded; it never aborts the batch.
type Runner struct {
	Delay time.Duration
	Log   logger.Logger
}

// NewRunner builds a runner with the given politeness delay.
func NewRunner(delay time.Duration, log logger.Logger) *Runner {
	return &Runner{Delay: delay, Log: logger.Ensure(log)}
}

// Run processes items and returns a summary plus the joined item errors.
func (r *Runner) Run(ctx context.Context, name string, items []Item) (Summary, error) {
	if r == nil {
		return Summary{}, fmt.Errorf("batch runner is not initialized")
	}
	log := logger.Ensure(r.Log)
	sum := Summary{Total: len(items)}
	errs := make([]error, 0)

	for i, item := range items {
		select {
		case <-ctx.Done():
			sum.Cancelled = true
			log.WarnObj("batch cancelled", "batch_state", map[string]any{
				"batch":     name,
				"processed": i,
				"total":     len(items),
			})
			return sum, errors.Join(append(errs, ctx.Err())...)
		default:
		}

		err := item.Run(ctx)
		switch {
		case err == nil:
			sum.Succeeded++
		case errors.Is(err, ErrSkipped):
			sum.Skipped++
			// skipped items made no call, so there is nothing to pace
			continue
		default:
			sum.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", item.Key, err))
			log.ErrorObj("batch item failed", "batch_error", map[string]any{
				"batch": name,
				"item":  item.Key,
				"error": err.Error(),
			})
		}

		if r.Delay > 0 && i < len(items)-1 {
			timer := time.NewTimer(r.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				sum.Cancelled = true
				return sum, errors.Join(append(errs, ctx.Err())...)
			case <-timer.C:
			}
		}
	}

	log.InfoObj("batch completed", "batch_summary", map[string]any{
		"batch":     name,
		"total":     sum.Total,
		"succeeded": sum.Succeeded,
		"skipped":   sum.Skipped,
		"failed":    sum.Failed,
	})
	return sum, errors.Join(errs...)
}
