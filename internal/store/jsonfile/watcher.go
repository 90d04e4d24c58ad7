package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const debounceDelay = 50 * time.Millisecond

// InboxWatcher signals when files land in an inbox directory.
type InboxWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	changes chan struct{}

	mu       sync.Mutex
	debounce *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInboxWatcher creates a watcher for dir.
// The directory is created if it doesn't exist.
func NewInboxWatcher(dir string) (*InboxWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	iw := &InboxWatcher{
		dir:     dir,
		watcher: watcher,
		changes: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	iw.wg.Add(1)
	go iw.run()

	return iw, nil
}

// Changes receives a value after one or more inbox files were written.
// Bursts are coalesced; a pending signal is never duplicated.
func (iw *InboxWatcher) Changes() <-chan struct{} {
	return iw.changes
}

// Close stops watching.
func (iw *InboxWatcher) Close() error {
	iw.cancel()

	iw.mu.Lock()
	if iw.debounce != nil {
		iw.debounce.Stop()
	}
	iw.mu.Unlock()

	err := iw.watcher.Close()
	iw.wg.Wait()
	return err
}

// run processes filesystem events from fsnotify.
func (iw *InboxWatcher) run() {
	defer iw.wg.Done()

	for {
		select {
		case <-iw.ctx.Done():
			return
		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			iw.handleEvent(event)
		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("dir", iw.dir).Msg("inbox watcher error")
		}
	}
}

// handleEvent processes a single filesystem event.
func (iw *InboxWatcher) handleEvent(event fsnotify.Event) {
	// Entries are written to a temp file then renamed, which surfaces as
	// Create on the final name.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if ok, _ := doublestar.Match(inboxPattern, filepath.Base(event.Name)); !ok {
		return
	}

	iw.mu.Lock()
	defer iw.mu.Unlock()
	if iw.debounce != nil {
		iw.debounce.Stop()
	}
	iw.debounce = time.AfterFunc(debounceDelay, iw.notify)
}

func (iw *InboxWatcher) notify() {
	select {
	case iw.changes <- struct{}{}:
	default:
		// a signal is already pending
	}
}
