package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStore_LoadMissing(t *testing.T) {
	store := NewRecordStore(filepath.Join(t.TempDir(), RecordsFile))

	entries, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), RecordsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	entries, err := NewRecordStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Empty(t, entries)
}

func TestRecordStore_SkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), RecordsFile)
	content := `[{"message":"a"}, {}, 3, "x", null, {"message":"b"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := NewRecordStore(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0]["message"])
	assert.Equal(t, "b", entries[1]["message"])
}

func TestRecordStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(filepath.Join(t.TempDir(), "nested", RecordsFile))

	in := []map[string]any{
		{"recordID": 1001, "message": "first"},
		{"recordID": 1002, "message": "second"},
	}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, json.Number("1001"), out[0]["recordID"])
	assert.Equal(t, "second", out[1]["message"])

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestRecordStore_SaveEmptyOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(filepath.Join(t.TempDir(), RecordsFile))

	require.NoError(t, store.Save(ctx, []map[string]any{{"message": "x"}}))
	require.NoError(t, store.Save(ctx, nil))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRecordStore_SaveIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(filepath.Join(t.TempDir(), RecordsFile))
	in := []map[string]any{{"z": 1, "a": "x", "m": 2.5}}

	require.NoError(t, store.Save(ctx, in))
	first, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, in))
	second, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecordStore_SaveFailsOnDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)

	err := store.Save(context.Background(), []map[string]any{{"a": 1}})
	assert.Error(t, err)
}
