// Command logrok parses Apache-style access logs via a compiled
// LogFormat template, then queries the resulting dataset with a
// restricted SQL-like language, one-shot or interactively: flags into a
// config.Args, a context for cancellation, then dispatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mimecast/logrok/internal/config"
	"github.com/mimecast/logrok/internal/errs"
	"github.com/mimecast/logrok/internal/ingest"
	"github.com/mimecast/logrok/internal/logformat"
	"github.com/mimecast/logrok/internal/logging"
	"github.com/mimecast/logrok/internal/metricsserver"
	"github.com/mimecast/logrok/internal/pool"
	"github.com/mimecast/logrok/internal/query/exec"
	"github.com/mimecast/logrok/internal/query/parser"
	"github.com/mimecast/logrok/internal/render"
	"github.com/mimecast/logrok/internal/shell"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("logrok", flag.ContinueOnError)
	args, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if len(args.LogFiles) == 0 {
		fmt.Fprintln(os.Stderr, "at least one log file is required")
		return 2
	}

	log := logging.New(args.LogLevel, args.Debug)

	ctx := context.Background()

	// One interrupt cancels only the stage that is currently running;
	// the base context stays live so an interactive shell survives it.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	presets, err := config.LoadPresets(args.PresetsFile)
	if err != nil {
		log.WithError(err).Error("failed to load custom presets")
		return 1
	}

	format := args.Format
	if format == "" {
		resolved, ok := logformat.ResolvePreset(args.Type, presets)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown log type %q\n", args.Type)
			return 2
		}
		format = resolved
	}

	pattern, err := logformat.Compile(format)
	if err != nil {
		log.WithError(err).Error("failed to compile log format")
		return 1
	}

	log.Infof("reading %d log file(s)", len(args.LogFiles))
	lines, err := ingest.ReadLines(args.LogFiles, args.Lines)
	if err != nil {
		log.WithError(err).Error("failed to read log files")
		return 1
	}

	stats := &metricsserver.PoolStats{}
	metricsserver.Start(ctx, args.MetricsAddr, stats, log)

	start := time.Now()
	lastPct := -1
	ictx, istop := withInterrupt(ctx, sigCh)
	dataset, err := ingest.Extract(ictx, pattern, lines, pool.Options{
		Workers: args.Processes,
		OnProgress: func(done, total int) {
			if pct := done * 100 / total; pct > lastPct {
				lastPct = pct
				log.Debugf("processed %d%% (%d/%d lines)", pct, done, total)
			}
		},
		OnSizing: func(chunkSize, workers, items int) {
			stats.Set(chunkSize, workers, items)
		},
	})
	istop()
	if err != nil {
		log.WithError(err).Error("failed to extract records")
		return 1
	}
	log.Infof("%d lines crunched in %0.3fs", len(lines), time.Since(start).Seconds())

	sh := &shell.Shell{Dataset: dataset, Debug: args.Debug, Workers: args.Processes, In: os.Stdin, Out: os.Stdout, Interrupts: sigCh}
	if home, err := os.UserHomeDir(); err == nil {
		sh.HistoryFile = home + "/.logrok_history.yaml"
	}

	switch {
	case args.Interactive:
		if err := sh.Run(ctx); err != nil {
			log.WithError(err).Error("shell exited with error")
			return 1
		}
		return 0
	case args.Query != "":
		qctx, qstop := withInterrupt(ctx, sigCh)
		err := runQuery(qctx, args.Query, sh)
		qstop()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	default:
		fmt.Fprintln(os.Stderr, "one of -i/--interactive or -q/--query is required")
		return 1
	}
}

// withInterrupt derives a context cancelled by the next signal on sigCh;
// the returned stop function releases the watcher without consuming any
// later signal.
func withInterrupt(ctx context.Context, sigCh <-chan os.Signal) (context.Context, context.CancelFunc) {
	qctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-qctx.Done():
		}
	}()
	return qctx, cancel
}

// runQuery parses and executes a single query, rendering its result to
// stdout: the one-shot (-q) path.
func runQuery(ctx context.Context, q string, sh *shell.Shell) error {
	stmt, err := parser.Parse(q)
	if err != nil {
		return err
	}
	ectx := exec.NewExecCtx(sh.Debug, nil)
	ectx.Workers = sh.Workers
	start := time.Now()
	res, err := exec.Execute(ctx, sh.Dataset, stmt, ectx)
	if err != nil {
		return errs.Wrap(err, "query failed")
	}
	render.Table(sh.Out, res, time.Since(start))
	return nil
}
