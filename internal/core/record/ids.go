package record

import "sync/atomic"

// FirstID is the counter value before the first allocation; the first id
// handed out is FirstID+1.
const FirstID = 1000

// MemoryCounter is an in-process IDAllocator. It does not survive restarts.
type MemoryCounter struct {
	last atomic.Int64
}

// NewMemoryCounter returns a counter whose next id is start+1. A start below
// FirstID is raised to FirstID.
func NewMemoryCounter(start int64) *MemoryCounter {
	c := &MemoryCounter{}
	c.last.Store(max(start, FirstID))
	return c
}

// Next implements IDAllocator.
func (c *MemoryCounter) Next() int64 {
	return c.last.Add(1)
}
