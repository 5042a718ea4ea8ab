package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingFilesOrdersSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_ledger.sql", "0001_init.sql", "README.md", "0010_indexes.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755))

	names, err := PendingFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_ledger.sql", "0010_indexes.sql"}, names)

	_, err = PendingFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestMigrationsDirectoryIsWellFormed(t *testing.T) {
	names, err := PendingFiles(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
}
