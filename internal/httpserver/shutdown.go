package httpserver

import (
	"context"
	"time"
)

// ShutdownTimeout controls how long to wait for graceful shutdowns.
var ShutdownTimeout = 10 * time.Second

// Stopper is anything with a graceful shutdown.
type Stopper interface {
	Shutdown(ctx context.Context) error
}

// ShutdownAll stops each component in order within one shared deadline and
// returns the first error.
func ShutdownAll(ctx context.Context, timeout time.Duration, stoppers ...Stopper) error {
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var first error
	for _, s := range stoppers {
		if s == nil {
			continue
		}
		if err := s.Shutdown(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
