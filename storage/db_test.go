package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "state.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
}

func TestDatabaseMissingKey(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestBatchAppliesAllWrites(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("a"), []byte("old")))

			batch := db.NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			require.Equal(t, 2, batch.Len())

			value, err := db.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, "old", string(value), "batch must not be visible before Write")

			require.NoError(t, batch.Write())
			for key, want := range map[string]string{"a": "1", "b": "2"} {
				got, err := db.Get([]byte(key))
				require.NoError(t, err)
				require.Equal(t, want, string(got))
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open("cassandra", "")
	require.Error(t, err)

	db, err := Open("memory", "")
	require.NoError(t, err)
	db.Close()
}
