package stores

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/errq/internal/core/record"
)

// RecordIDKey is the settings key holding the last allocated record id.
const RecordIDKey = "SPERROR_RECORD_ID_KEY"

const (
	incrTimeout  = 5 * time.Second
	busyAttempts = 3
)

// Counter allocates record ids from the settings store. Every allocation is
// persisted before it is returned. If the store fails, the counter falls
// back to its in-memory high-water mark so ids never repeat in-process, and
// the next successful allocation resumes above that mark.
type Counter struct {
	settings *SettingsStore
	logger   zerolog.Logger

	mu   sync.Mutex
	last int64
}

var _ record.IDAllocator = (*Counter)(nil)

// NewCounter creates a persisted id counter.
func NewCounter(settings *SettingsStore, logger zerolog.Logger) *Counter {
	return &Counter{settings: settings, logger: logger, last: record.FirstID}
}

// Next implements record.IDAllocator.
func (c *Counter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), incrTimeout)
	defer cancel()

	var (
		id  int64
		err error
	)
	for attempt := 1; attempt <= busyAttempts; attempt++ {
		id, err = c.settings.Incr(ctx, RecordIDKey, c.last)
		if err == nil || !IsBusyError(err) {
			break
		}
		time.Sleep(time.Duration(attempt) * 20 * time.Millisecond)
	}

	if err != nil {
		id = c.last + 1
		c.logger.Warn().Err(err).Int64("record_id", id).Msg("persist record id failed, using in-memory counter")
	}

	c.last = id
	return id
}

// Reserve marks id as used so Next never returns it or anything below it.
// Ids that came from elsewhere, such as imported records, go through here.
func (c *Counter) Reserve(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = max(c.last, id)
	if _, err := c.settings.Raise(ctx, RecordIDKey, id); err != nil {
		return fmt.Errorf("reserve record id %d: %w", id, err)
	}
	return nil
}

// Peek returns the last persisted id without allocating.
func (c *Counter) Peek(ctx context.Context) (int64, error) {
	n, err := c.settings.GetInt(ctx, RecordIDKey)
	if err != nil {
		return 0, err
	}
	return max(n, record.FirstID), nil
}
