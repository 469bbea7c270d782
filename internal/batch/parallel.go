// Package batch builds profiles for many samples concurrently.
package batch

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-mv/internal/pileup"
	"github.com/inodb/vibe-mv/internal/variant"
)

// WorkItem is one sample input waiting to be profiled.
type WorkItem struct {
	Seq  int
	Path string
}

// WorkResult holds the profile built for a single sample.
type WorkResult struct {
	Seq     int
	Path    string
	Profile *variant.Profile
	Err     error
}

// Runner builds profiles from records or alignments.
type Runner struct {
	provider pileup.Provider
	params   variant.RunParameters
	workers  int
	logger   *zap.Logger
}

// NewRunner creates a runner. provider and params are used for alignment
// inputs only.
func NewRunner(provider pileup.Provider, params variant.RunParameters) *Runner {
	return &Runner{
		provider: provider,
		params:   params,
		logger:   zap.NewNop(),
	}
}

// SetWorkers sets the worker count. If n is 0, runtime.NumCPU() is used.
func (r *Runner) SetWorkers(n int) {
	r.workers = n
}

// SetLogger sets the logger for per-sample progress and failures.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// IsRecordPath reports whether path names a persisted record rather than an
// alignment.
func IsRecordPath(path string) bool {
	for _, ext := range []string{".json", ".json.gz", ".json.zst"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// SourceFor picks the profile source for path.
func (r *Runner) SourceFor(path string) variant.Source {
	if IsRecordPath(path) {
		return variant.FromRecord(path)
	}
	return variant.FromAlignment(path, r.provider, r.params)
}

// Items feeds paths to a channel, numbering them in order.
func Items(paths []string) <-chan WorkItem {
	ch := make(chan WorkItem, len(paths))
	for i, p := range paths {
		ch <- WorkItem{Seq: i, Path: p}
	}
	close(ch)
	return ch
}

// Run profiles work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// Once ctx is done, remaining items are answered with ctx.Err().
func (r *Runner) Run(ctx context.Context, items <-chan WorkItem) <-chan WorkResult {
	workers := r.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				res := WorkResult{Seq: item.Seq, Path: item.Path}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Profile, res.Err = variant.New(ctx, r.SourceFor(item.Path))
				}
				if res.Err != nil {
					r.logger.Debug("sample failed", zap.String("path", item.Path), zap.Error(res.Err))
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
