package ledger

import (
	"context"
	"fmt"

	"github.com/jathurchan/namereg/types"
)

// Journal is the ledger's append-only, totally ordered log of transactions.
// Implementations must be safe for concurrent use.
type Journal interface {
	// Append durably persists entry. entry.Index must be LastIndex()+1.
	//
	// Returns:
	//   - ErrNonContiguousEntry if the index does not follow the last one.
	//   - ErrJournalIO on persistence failure.
	//   - context.Canceled or context.DeadlineExceeded if ctx is done.
	Append(ctx context.Context, entry Entry) error

	// ForEach calls fn for every entry in index order. Iteration stops at
	// the first error returned by fn, which ForEach returns.
	ForEach(ctx context.Context, fn func(Entry) error) error

	// LastIndex returns the index of the last appended entry, or 0 if empty.
	LastIndex() types.Index

	// Close releases the journal's resources.
	Close() error
}

func checkContiguous(last, next types.Index) error {
	if next != last+1 {
		return fmt.Errorf("%w: expected index %d, got %d", ErrNonContiguousEntry, last+1, next)
	}
	return nil
}
