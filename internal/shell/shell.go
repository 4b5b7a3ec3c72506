// Package shell implements the interactive line-based query shell: a
// `logrok> ` prompt, multi-line input continued with `> ` until a
// trailing semicolon, `quit`/`bye`/`exit` to leave, `help`/`?` for a
// usage blurb, and `show fields`/`show headers` to list the dataset's
// schema. Input is read line by line with bufio.Scanner; there is no
// readline-style history recall or tab completion.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mimecast/logrok/internal/query/exec"
	"github.com/mimecast/logrok/internal/query/parser"
	"github.com/mimecast/logrok/internal/record"
	"github.com/mimecast/logrok/internal/render"
)

const helpText = `Use sql syntax against your log; 'from' clauses are ignored.
Queries can span multiple lines and must end in a semicolon ';'.
Try: 'show fields;' to see available field names.`

// Shell reads queries from in and writes results/errors to out, against a
// fixed dataset, until the user quits.
type Shell struct {
	Dataset *record.Dataset
	Debug   bool
	// Workers overrides the executor's automatic worker count
	// (-j/--processes). Zero or negative means automatic.
	Workers int
	In      io.Reader
	Out     io.Writer
	// Interrupts, if set, delivers user interrupt signals. Each query runs
	// under its own sub-context cancelled by the next signal, so an
	// interrupt aborts only the in-flight query and the prompt stays
	// usable afterwards.
	Interrupts <-chan os.Signal
	// HistoryFile, if set, persists every successfully parsed query across
	// runs as YAML.
	HistoryFile string

	hist *history
}

// Run drives the read-eval-print loop until EOF or a quit command.
func (s *Shell) Run(ctx context.Context) error {
	h, err := loadHistory(s.HistoryFile)
	if err != nil {
		return err
	}
	s.hist = h
	defer saveHistory(s.HistoryFile, s.hist)

	scanner := bufio.NewScanner(s.In)
	prompt := "logrok> "

	for {
		fmt.Fprint(s.Out, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())

		for !strings.HasSuffix(query, ";") && !isControlCommand(query) {
			fmt.Fprint(s.Out, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			query += " " + strings.TrimSpace(scanner.Text())
		}

		if shouldQuit, err := s.handleOne(ctx, query); shouldQuit {
			return err
		}
		prompt = "logrok> "
	}
}

func isControlCommand(q string) bool {
	switch strings.ToLower(strings.TrimSpace(q)) {
	case "quit", "bye", "exit", "help", "?", "show fields", "show headers":
		return true
	}
	return false
}

// handleOne runs one query (or control command) and reports whether the
// shell should exit.
func (s *Shell) handleOne(ctx context.Context, query string) (bool, error) {
	query = strings.TrimSuffix(query, ";")
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "quit", "bye", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.Out, helpText)
		return false, nil
	case "show fields", "show headers":
		fmt.Fprintln(s.Out, strings.Join(s.Dataset.Schema.Names(), ", "))
		return false, nil
	case "":
		return false, nil
	}

	stmt, err := parser.Parse(trimmed)
	if err != nil {
		fmt.Fprintln(s.Out, err.Error())
		return false, nil
	}
	if s.hist != nil {
		s.hist.record(trimmed)
	}

	start := time.Now()
	ectx := exec.NewExecCtx(s.Debug, nil)
	ectx.Workers = s.Workers

	qctx, cancel := context.WithCancel(ctx)
	if s.Interrupts != nil {
		// Discard any interrupt delivered while idle at the prompt so a
		// stale signal cannot abort the query that follows it.
		select {
		case <-s.Interrupts:
		default:
		}
		go func() {
			select {
			case <-s.Interrupts:
				cancel()
			case <-qctx.Done():
			}
		}()
	}
	res, err := exec.Execute(qctx, s.Dataset, stmt, ectx)
	cancel()
	if err != nil {
		fmt.Fprintln(s.Out, err.Error())
		return false, nil
	}

	render.Table(s.Out, res, time.Since(start))
	return false, nil
}
