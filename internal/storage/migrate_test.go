package storage

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestPendingMigrationsSortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"002_attempts.sql":   {Data: []byte("SELECT 1")},
		"001_initial.sql":    {Data: []byte("SELECT 1")},
		"README.md":          {Data: []byte("notes")},
		"archive/000_x.sql":  {Data: []byte("SELECT 1")},
		"003_api_keys.sql":   {Data: []byte("SELECT 1")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"002_attempts.sql": true})
	require.NoError(t, err)
	require.Equal(t, []string{"001_initial.sql", "003_api_keys.sql"}, pending)
}

func TestBundledMigrationsPending(t *testing.T) {
	pending, err := pendingMigrations(os.DirFS(filepath.Join("..", "..", "migrations")), nil)
	require.NoError(t, err)
	require.Equal(t, "001_initial.sql", pending[0])
}
