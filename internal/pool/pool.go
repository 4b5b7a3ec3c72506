// Package pool implements the parallel map/reduce executor: a fixed
// worker pool that splits a slice into chunks and fans each chunk out to a
// goroutine, fanning results back in order.
//
// The sizing policy picks chunk size as min(10000, ceil(n/cpus)) and
// worker count as min(ceil(cpus*1.5), ceil(n/chunkSize)), below a 1000
// item floor under which a single worker runs the whole input as one
// chunk. Chunks are distributed over a buffered job channel to a fixed
// pool of worker goroutines and reassembled in original order; a
// cancelled context stops workers from picking up further chunks.
package pool

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mimecast/logrok/internal/errs"
)

// Options tunes the pool's chunking and worker count. A zero Options
// selects the sizing policy automatically.
type Options struct {
	// ChunkSize overrides the automatic chunk size. Zero means automatic.
	ChunkSize int
	// Workers overrides the automatic worker count. Zero means automatic.
	Workers int
	// OnProgress, if set, is called after each chunk completes with the
	// number of items processed so far and the dataset total.
	OnProgress func(done, total int)
	// OnSizing, if set, is called once per stage with the chunk size and
	// worker count the sizing policy picked, so a caller (the debug
	// /debug/pool endpoint) can publish the decision without this package
	// knowing anything about metricsserver.
	OnSizing func(chunkSize, workers, items int)
}

// sizing implements the chunk-size/worker-count policy: below 1000 items
// there is no parallelism benefit, so a single worker and one chunk are
// used; otherwise chunk size is min(10000, ceil(n/cpus)) and worker count
// is min(ceil(cpus*1.5), ceil(n/chunkSize)).
func sizing(n int, opts Options) (chunkSize, workers int) {
	if n == 0 {
		return 1, 1
	}
	if n < 1000 {
		return n, 1
	}

	cpus := runtime.NumCPU()
	if cpus < 1 {
		cpus = 1
	}

	chunkSize = opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = int(math.Ceil(float64(n) / float64(cpus)))
		if chunkSize > 10000 {
			chunkSize = 10000
		}
		if chunkSize < 1 {
			chunkSize = 1
		}
	}

	workers = opts.Workers
	if workers <= 0 {
		byCPU := int(math.Ceil(float64(cpus) * 1.5))
		byChunks := int(math.Ceil(float64(n) / float64(chunkSize)))
		workers = byCPU
		if byChunks < workers {
			workers = byChunks
		}
		if workers < 1 {
			workers = 1
		}
	}
	return chunkSize, workers
}

var (
	chunksProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "logrok",
		Subsystem: "pool",
		Name:      "chunks_processed_total",
		Help:      "Total number of map/reduce chunks processed.",
	})
	workersInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "logrok",
		Subsystem: "pool",
		Name:      "workers_in_use",
		Help:      "Number of worker goroutines currently executing a chunk.",
	})
)

func init() {
	prometheus.MustRegister(chunksProcessed, workersInUse)
}

type indexedChunk[T any] struct {
	index int
	items []T
}

type indexedResult[O any] struct {
	index int
	items []O
}

// Map runs f over chunks of items concurrently and returns the
// concatenation of each chunk's output, preserving input order. f must
// not mutate items shared across chunks.
func Map[T, O any](ctx context.Context, items []T, f func([]T) []O, opts Options) ([]O, error) {
	results, err := runChunked(ctx, items, opts, func(chunk []T) []O {
		return f(chunk)
	})
	if err != nil {
		return nil, err
	}
	var out []O
	for _, r := range results {
		out = append(out, r)
	}
	return out, nil
}

// Reduce runs f over chunks of items concurrently, collapsing each chunk
// to a single value; the caller combines the per-chunk partials.
func Reduce[T, O any](ctx context.Context, items []T, f func([]T) O, opts Options) ([]O, error) {
	return runChunked(ctx, items, opts, func(chunk []T) []O {
		return []O{f(chunk)}
	})
}

// runChunked is the shared fan-out/fan-in engine behind Map and Reduce: it
// splits items into chunks per the sizing policy, runs a fixed pool of
// worker goroutines pulling chunks off a buffered job channel, and
// reassembles results in original chunk order before returning.
func runChunked[T, O any](ctx context.Context, items []T, opts Options, f func([]T) []O) ([]O, error) {
	n := len(items)
	if n == 0 {
		return nil, nil
	}

	chunkSize, workers := sizing(n, opts)
	if opts.OnSizing != nil {
		opts.OnSizing(chunkSize, workers, n)
	}

	var chunks []indexedChunk[T]
	for start, idx := 0, 0; start < n; start, idx = start+chunkSize, idx+1 {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, indexedChunk[T]{index: idx, items: items[start:end]})
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	jobs := make(chan indexedChunk[T], len(chunks))
	results := make(chan indexedResult[O], len(chunks))

	for _, c := range chunks {
		jobs <- c
	}
	close(jobs)

	var wg sync.WaitGroup
	done := 0
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workersInUse.Inc()
			defer workersInUse.Dec()
			for chunk := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				out := f(chunk.items)
				results <- indexedResult[O]{index: chunk.index, items: out}
				chunksProcessed.Inc()

				if opts.OnProgress != nil {
					mu.Lock()
					done += len(chunk.items)
					opts.OnProgress(done, n)
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []indexedResult[O]
	for r := range results {
		collected = append(collected, r)
	}

	if err := ctx.Err(); err != nil {
		return nil, errs.NewUserCancelError(err)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	var out []O
	for _, r := range collected {
		out = append(out, r.items...)
	}
	return out, nil
}
