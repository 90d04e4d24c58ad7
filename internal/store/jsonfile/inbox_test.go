package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_PutAndDrainInIDOrder(t *testing.T) {
	ctx := context.Background()
	inbox := NewInbox(filepath.Join(t.TempDir(), InboxDir))

	for _, id := range []int64{1003, 1001, 1002} {
		_, err := inbox.Put(ctx, id, map[string]any{"recordID": id})
		require.NoError(t, err)
	}

	var got []map[string]any
	n, err := inbox.Drain(ctx, func(entries []map[string]any) error {
		got = entries
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, got, 3)
	for i, want := range []string{"1001", "1002", "1003"} {
		assert.Equal(t, json.Number(want), got[i]["recordID"])
	}

	names, err := inbox.List()
	require.NoError(t, err)
	assert.Empty(t, names, "drained files are removed")
}

func TestInbox_DrainKeepsFilesOnIngestError(t *testing.T) {
	ctx := context.Background()
	inbox := NewInbox(t.TempDir())

	_, err := inbox.Put(ctx, 1001, map[string]any{"message": "keep"})
	require.NoError(t, err)

	boom := errors.New("boom")
	n, err := inbox.Drain(ctx, func([]map[string]any) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Zero(t, n)

	names, err := inbox.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestInbox_DrainQuarantinesCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inbox := NewInbox(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "00000000000000000001-bad.json"), []byte("{nope"), 0o644))
	_, err := inbox.Put(ctx, 1001, map[string]any{"message": "ok"})
	require.NoError(t, err)

	n, err := inbox.Drain(ctx, func([]map[string]any) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(dir, "00000000000000000001-bad.json.bad"))
	assert.NoError(t, err)
}

func TestInbox_DrainEmpty(t *testing.T) {
	inbox := NewInbox(filepath.Join(t.TempDir(), "missing"))

	called := false
	n, err := inbox.Drain(context.Background(), func([]map[string]any) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, called)
}

func TestInbox_EntriesDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	inbox := NewInbox(t.TempDir())

	_, err := inbox.Put(ctx, 1001, map[string]any{"message": "a"})
	require.NoError(t, err)

	entries, err := inbox.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0]["message"])

	names, err := inbox.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestInbox_PutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInbox(t.TempDir()).Put(ctx, 1, map[string]any{"a": 1})
	assert.ErrorIs(t, err, context.Canceled)
}
