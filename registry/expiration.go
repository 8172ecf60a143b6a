package registry

import (
	"time"

	"github.com/jathurchan/namereg/types"
)

// expirationItem schedules a record for lapse accounting at expiresAt.
// Renewals push a fresh item; stale items are discarded when popped.
type expirationItem struct {
	name      types.Name
	expiresAt time.Time
	index     int
}

// expirationHeap is a min-heap of expirationItems, sorted by their expiresAt time.
// Implements `heap.Interface`
type expirationHeap []*expirationItem

func (h expirationHeap) Len() int { return len(h) }

func (h expirationHeap) Less(i, j int) bool {
	return h[i].expiresAt.Before(h[j].expiresAt)
}

func (h expirationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expirationHeap) Push(x any) {
	item := x.(*expirationItem)
	item.index = len(*h)
	*h = append(*h, item)
}

// Pop removes and returns the last item; container/heap moves the minimum there first.
func (h *expirationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak.
	item.index = -1 // Mark as removed.
	*h = old[0 : n-1]
	return item
}

// peek returns the earliest item without removing it.
func (h expirationHeap) peek() *expirationItem {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
