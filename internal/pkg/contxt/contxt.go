package contxt

import (
	"context"
	"time"
)

// NewContext returns a context derived from parent that is cancelled after
// timeout. The cancel func is released once the context is done, so
// fire-and-forget jobs need not hold on to it. A non-positive timeout
// returns parent unchanged.
func NewContext(parent context.Context, timeout time.Duration) context.Context {
	if timeout <= 0 {
		return parent
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
