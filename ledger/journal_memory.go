package ledger

import (
	"context"
	"sync"

	"github.com/jathurchan/namereg/types"
)

// MemoryJournal keeps entries in memory. It is lost on restart and is
// meant for tests and ephemeral deployments.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []Entry
	closed  bool
}

// NewMemoryJournal returns an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := checkContiguous(types.Index(len(j.entries)), entry.Index); err != nil {
		return err
	}
	entry.Command = append([]byte(nil), entry.Command...)
	j.entries = append(j.entries, entry)
	return nil
}

func (j *MemoryJournal) ForEach(ctx context.Context, fn func(Entry) error) error {
	j.mu.RLock()
	entries := j.entries[:len(j.entries):len(j.entries)]
	j.mu.RUnlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (j *MemoryJournal) LastIndex() types.Index {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return types.Index(len(j.entries))
}

func (j *MemoryJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}
