package shell

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/mimecast/logrok/internal/errs"
)

// history is the YAML-persisted state written alongside the interactive
// shell, capped to the most recent maxHistoryQueries entries.
type history struct {
	Queries []string `yaml:"queries"`
}

func loadHistory(path string) (*history, error) {
	if path == "" {
		return &history{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &history{}, nil
	}
	if err != nil {
		return nil, errs.NewIOError(err)
	}
	var h history
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, errs.NewIOError(err)
	}
	return &h, nil
}

func saveHistory(path string, h *history) error {
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(h)
	if err != nil {
		return errs.NewIOError(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errs.NewIOError(err)
	}
	return nil
}

const maxHistoryQueries = 1000

func (h *history) record(query string) {
	h.Queries = append(h.Queries, query)
	if len(h.Queries) > maxHistoryQueries {
		h.Queries = h.Queries[len(h.Queries)-maxHistoryQueries:]
	}
}
