package ro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// GracefulShutdown creates an Observable that emits the first shutdown
// signal received and then completes. Cancellation comes from the
// subscription context.
func GracefulShutdown() ro.Observable[os.Signal] {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, ShutdownSignals...)

	return ro.NewObservableWithContext(func(subCtx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(subCtx, sig)
				observer.CompleteWithContext(subCtx)
			case <-subCtx.Done():
				observer.ErrorWithContext(subCtx, subCtx.Err())
			}
		}()

		return func() {
			signal.Stop(ch)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal arrives or ctx is canceled.
func WaitForShutdown(ctx context.Context) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, GracefulShutdown())
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}
