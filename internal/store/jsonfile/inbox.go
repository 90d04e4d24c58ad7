package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// InboxDir is the spool directory name inside the cache dir.
const InboxDir = "inbox"

const (
	inboxPattern  = "*.json"
	corruptSuffix = ".bad"
)

// Inbox spools entries as one file each so that processes other than the
// queue owner can hand records over without touching the queue file.
type Inbox struct {
	dir string
	mu  sync.Mutex
}

// NewInbox creates an inbox rooted at dir.
func NewInbox(dir string) *Inbox {
	return &Inbox{dir: dir}
}

// Dir returns the spool directory.
func (b *Inbox) Dir() string { return b.dir }

// Put writes entry to its own file and returns the file name. Names sort by
// id, so entries drain in id order.
func (b *Inbox) Put(ctx context.Context, id int64, entry map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode entry: %w", err)
	}

	name := fmt.Sprintf("%020d-%s.json", id, uuid.NewString()[:8])
	if err := writeAtomic(filepath.Join(b.dir, name), data); err != nil {
		return "", err
	}
	return name, nil
}

// List returns the spooled file names in drain order.
func (b *Inbox) List() ([]string, error) {
	if _, err := os.Stat(b.dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	names, err := doublestar.Glob(os.DirFS(b.dir), inboxPattern)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// Entries reads every spooled entry without consuming it. Unreadable files
// are skipped.
func (b *Inbox) Entries() ([]map[string]any, error) {
	names, err := b.List()
	if err != nil {
		return nil, err
	}

	entries := make([]map[string]any, 0, len(names))
	for _, name := range names {
		m, err := b.read(name)
		if err != nil || len(m) == 0 {
			continue
		}
		entries = append(entries, m)
	}
	return entries, nil
}

// Drain hands every spooled entry to ingest in drain order and removes the
// files once ingest returns nil. Files that do not decode are renamed with a
// .bad suffix and skipped. It returns the number of entries ingested.
func (b *Inbox) Drain(ctx context.Context, ingest func([]map[string]any) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names, err := b.List()
	if err != nil {
		return 0, err
	}

	var (
		entries  []map[string]any
		consumed []string
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			break
		}

		m, err := b.read(name)
		if err != nil {
			path := filepath.Join(b.dir, name)
			_ = os.Rename(path, path+corruptSuffix)
			continue
		}

		consumed = append(consumed, name)
		if len(m) > 0 {
			entries = append(entries, m)
		}
	}

	if len(entries) > 0 {
		if err := ingest(entries); err != nil {
			return 0, fmt.Errorf("ingest inbox: %w", err)
		}
	}

	for _, name := range consumed {
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return len(entries), fmt.Errorf("remove %s: %w", name, err)
		}
	}

	return len(entries), nil
}

func (b *Inbox) read(name string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		return nil, err
	}

	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return m, nil
}
