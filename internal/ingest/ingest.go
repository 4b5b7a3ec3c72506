// Package ingest reads one or more log files and extracts them into a
// record.Dataset, chunked through the parallel executor: read every log
// file fully into memory, compile the format pattern once, then fan the
// extraction of each line out across worker goroutines via package pool.
package ingest

import (
	"bufio"
	"context"
	"os"

	"github.com/mimecast/logrok/internal/errs"
	iopool "github.com/mimecast/logrok/internal/io/pool"
	"github.com/mimecast/logrok/internal/logformat"
	"github.com/mimecast/logrok/internal/pool"
	"github.com/mimecast/logrok/internal/record"
)

// ReadLines reads every line of every named file, in order, optionally
// truncated to the first maxLines lines overall.
func ReadLines(paths []string, maxLines int) ([]string, error) {
	var lines []string
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.NewIOError(err)
		}
		buf := iopool.GetScannerBuffer()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(*buf, cap(*buf))
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
			if maxLines > 0 && len(lines) >= maxLines {
				break
			}
		}
		scanErr := scanner.Err()
		f.Close()
		iopool.PutScannerBuffer(buf)
		if scanErr != nil {
			return nil, errs.NewIOError(scanErr)
		}
		if maxLines > 0 && len(lines) >= maxLines {
			break
		}
	}
	return lines, nil
}

// Extract runs pattern.Extract over every line in parallel, dropping
// lines that fail to match, and assembles the resulting record.Dataset.
// OnProgress, if set on opts, is forwarded to the pool so callers can
// report percent-complete.
func Extract(ctx context.Context, pattern *logformat.Pattern, lines []string, opts pool.Options) (*record.Dataset, error) {
	records, err := pool.Map(ctx, lines, func(chunk []string) []record.Record {
		out := make([]record.Record, 0, len(chunk))
		for _, line := range chunk {
			rec, ok, extractErr := pattern.Extract(line)
			if extractErr != nil || !ok {
				continue
			}
			out = append(out, rec)
		}
		return out
	}, opts)
	if err != nil {
		return nil, errs.NewWorkerError(err)
	}
	return &record.Dataset{Schema: pattern.Schema, Records: records}, nil
}
