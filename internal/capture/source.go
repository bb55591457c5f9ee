package capture

import (
	"context"

	"github.com/vipertrack/vipertrack/internal/core/event"
)

// Source feeds raw events into the pipeline. Run blocks until the source is
// exhausted or ctx is cancelled; submit must be safe to call from the
// source's own goroutine.
type Source interface {
	Run(ctx context.Context, submit func(event.RawEvent)) error
}
