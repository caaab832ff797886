package scanner

import (
	"context"
	"fmt"
	"sync"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"
	"imagefingerprint/signalhandler"
	"imagefingerprint/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives one event per item accounted for. It runs on the
// goroutine that called Run, never concurrently with itself.
type ProgressFunc func(types.Progress)

// BatchOptions configures a batch
type BatchOptions struct {
	// Workers bounds concurrency. Zero or less uses signalhandler.GetOptimalProcs().
	Workers int
}

// Batch fingerprints a fixed list of items on a bounded worker pool.
// A Batch runs once: Idle -> Running -> Completed or Cancelled.
type Batch struct {
	id     string
	items  []types.WorkItem
	engine Engine
	opts   BatchOptions

	mu     sync.Mutex
	state  types.BatchState
	cancel context.CancelFunc
	// set by Cancel before Run starts
	cancelRequested bool
}

// NewBatch creates an idle batch
func NewBatch(items []types.WorkItem, engine Engine, opts BatchOptions) *Batch {
	if opts.Workers <= 0 {
		opts.Workers = signalhandler.GetOptimalProcs()
	}
	copied := make([]types.WorkItem, len(items))
	copy(copied, items)

	return &Batch{
		id:     uuid.NewString(),
		items:  copied,
		engine: engine,
		opts:   opts,
		state:  types.BatchIdle,
	}
}

// ID returns the batch identifier
func (b *Batch) ID() string {
	return b.id
}

// State returns the current lifecycle state
func (b *Batch) State() types.BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Cancel stops dispatching new items. Results still in flight are discarded
// and no progress event starts after Cancel has returned.
func (b *Batch) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelRequested = true
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Batch) setState(s types.BatchState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Run processes every item and blocks until the batch reaches a terminal
// state. Item failures never abort the batch; they are counted, logged and
// left out of the fingerprints. The only error returned is ErrBatchStarted.
func (b *Batch) Run(ctx context.Context, onProgress ProgressFunc) (types.BatchResult, error) {
	b.mu.Lock()
	if b.state != types.BatchIdle {
		b.mu.Unlock()
		return types.BatchResult{}, apperrors.ErrBatchStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.cancel = cancel
	if b.cancelRequested {
		cancel()
	}
	b.state = types.BatchRunning
	b.mu.Unlock()

	log := logging.WithFields(logrus.Fields{"batch": b.id, "total": len(b.items), "workers": b.opts.Workers})
	log.Info("Batch started")

	jobs := make(chan Request)
	results := make(chan Response)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(jobs)
		for i, item := range b.items {
			if gctx.Err() != nil {
				return nil
			}
			select {
			case <-gctx.Done():
				return nil
			case jobs <- Request{ID: i, Task: ProcessImageTask{Item: item}}:
			}
		}
		return nil
	})

	for i := 0; i < b.opts.Workers; i++ {
		worker := NewWorker(i, b.engine)
		group.Go(func() error {
			for req := range jobs {
				resp := worker.Handle(gctx, req)
				select {
				case results <- resp:
				case <-gctx.Done():
					// the coordinator may have stopped reading
				}
			}
			return nil
		})
	}

	go func() {
		group.Wait()
		close(results)
	}()

	// Everything below runs on this goroutine only: it is the single writer
	// of the counters and the accumulator.
	result := types.BatchResult{
		BatchID:      b.id,
		Total:        len(b.items),
		Fingerprints: make([]types.ImageFingerprint, 0, len(b.items)),
	}

	for resp := range results {
		if ctx.Err() != nil {
			continue
		}

		result.Completed++
		item := b.items[resp.ID]
		event := types.Progress{
			Current: result.Completed,
			Total:   result.Total,
			Item:    item,
		}

		if resp.Success && resp.Fingerprint != nil {
			result.Fingerprints = append(result.Fingerprints, *resp.Fingerprint)
			event.Result = resp.Fingerprint
			event.Message = fmt.Sprintf("Processed %s", item.Path)
			logging.LogImageProcessed(item.Path, true, "")
		} else {
			errMsg := "no result"
			if resp.Err != nil {
				errMsg = resp.Err.Error()
			}
			result.Failures = append(result.Failures, types.ItemFailure{Path: item.Path, Error: errMsg})
			event.Message = fmt.Sprintf("Failed %s: %s", item.Path, errMsg)
			logging.LogImageProcessed(item.Path, false, errMsg)
		}

		if onProgress != nil && ctx.Err() == nil {
			onProgress(event)
		}
	}

	if result.Completed == result.Total {
		result.State = types.BatchCompleted
	} else {
		result.State = types.BatchCancelled
	}
	b.setState(result.State)

	log.WithFields(logrus.Fields{
		"state":     result.State,
		"completed": result.Completed,
		"succeeded": result.Succeeded(),
		"failed":    len(result.Failures),
	}).Info("Batch finished")

	return result, nil
}

// ProcessBatch runs items as a new batch and returns its result
func ProcessBatch(ctx context.Context, items []types.WorkItem, engine Engine, opts BatchOptions, onProgress ProgressFunc) (types.BatchResult, error) {
	return NewBatch(items, engine, opts).Run(ctx, onProgress)
}
