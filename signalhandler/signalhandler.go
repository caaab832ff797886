package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"imagefingerprint/logging"
)

// exit is replaced in tests
var exit = os.Exit

// SetupHandler returns a context that is cancelled on the first SIGINT or
// SIGTERM so running batches can wind down. A second signal exits immediately.
// The returned stop function releases the handler.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %v, cancelling (repeat to force exit)", sig)
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigChan:
			logging.LogError("Received %v again, exiting", sig)
			exit(130)
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
		})
		cancel()
	}
	return ctx, stop
}

// GetOptimalProcs returns the optimal number of worker goroutines for the system
func GetOptimalProcs() int {
	numCPU := runtime.NumCPU()

	// For image processing with CGo, using too many goroutines can cause issues
	maxProcs := (numCPU * 3) / 4
	if maxProcs < 1 {
		maxProcs = 1
	}

	return maxProcs
}
