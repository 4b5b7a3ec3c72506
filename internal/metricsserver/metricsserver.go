// Package metricsserver serves the optional debug HTTP endpoint
// (-metricsAddr): /metrics for Prometheus scraping and /debug/pool for a
// human-readable snapshot of the pool sizing most recently published to
// it (cmd/logrok publishes the log-ingestion stage's sizing), routed through
// gorilla/mux in a background goroutine alongside the main CLI flow.
package metricsserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PoolStats is a snapshot of the most recently published map/reduce
// sizing, fed from a pool.Options.OnSizing callback, for /debug/pool to
// read.
type PoolStats struct {
	mu        sync.RWMutex
	chunkSize int
	workers   int
	rows      int
}

// Set records the sizing of the most recent pool stage it was wired to.
func (p *PoolStats) Set(chunkSize, workers, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunkSize, p.workers, p.rows = chunkSize, workers, rows
}

func (p *PoolStats) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprintf("rows=%d chunk_size=%d workers=%d\n", p.rows, p.chunkSize, p.workers)
}

// Start launches the debug HTTP server in a background goroutine, bound
// until ctx is cancelled. A blank addr means do nothing.
func Start(ctx context.Context, addr string, stats *PoolStats, log *logrus.Logger) {
	if addr == "" {
		return
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/debug/pool", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, stats.String())
	})

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
}
