package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/conneroisu/switchboard/internal/logging"
)

// SignalError is the cancellation cause recorded when a signal requests a drain.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("received %s", signalName(e.Signal))
}

// SignalContext returns a context that is cancelled by the first of signals.
// Every delivery is logged; only the first one cancels, so a second SIGINT
// during a drain changes nothing. The returned stop function unregisters the
// handler and releases the context.
func SignalContext(parent context.Context, logger logging.Logger, signals ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)

	ch := make(chan os.Signal, len(signals)+1)
	signal.Notify(ch, signals...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				if ctx.Err() == nil {
					logger.Info(ctx, "termination signal received", "signal", signalName(sig))
				} else {
					logger.Info(ctx, "termination signal ignored, drain already requested", "signal", signalName(sig))
				}
				cancel(&SignalError{Signal: sig})
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
			cancel(context.Canceled)
		})
	}
	return ctx, stop
}
