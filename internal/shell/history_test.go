package shell

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.yaml")

	h, err := loadHistory(path)
	require.NoError(t, err)
	assert.Empty(t, h.Queries)

	h.record("select * where status_code = 200;")
	require.NoError(t, saveHistory(path, h))

	reloaded, err := loadHistory(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"select * where status_code = 200;"}, reloaded.Queries)
}

func TestHistoryCapsAtMaxEntries(t *testing.T) {
	h := &history{}
	for i := 0; i < maxHistoryQueries+10; i++ {
		h.record("select *;")
	}
	assert.Len(t, h.Queries, maxHistoryQueries)
}
