// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

import (
	"container/list"
	"sync"
)

// evictionQueue is an LRU ordering over MessageIdentifier, guarded by
// its own mutex independent of the cache index's lock. It never
// enforces a capacity itself: per spec.md §4.4, logical capacity is
// enforced by performEviction popping from this queue, not by the
// queue refusing inserts. It may therefore contain identifiers that
// are no longer present in the index; popping one is simply a no-op
// for the caller to skip.
//
// Adapted from the teacher's generic node cache in
// dag/witness/cache.go (container/list + map[K]*list.Element), pared
// down to presence-only tracking and given the PopOldest operation
// performEviction needs that the witness cache never required.
type evictionQueue struct {
	mu      sync.Mutex
	order   *list.List
	entries map[MessageIdentifier]*list.Element
}

func newEvictionQueue() *evictionQueue {
	return &evictionQueue{
		order:   list.New(),
		entries: make(map[MessageIdentifier]*list.Element),
	}
}

// Promote marks id as most-recently-used, inserting it if absent.
func (q *evictionQueue) Promote(id MessageIdentifier) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if el, ok := q.entries[id]; ok {
		q.order.MoveToFront(el)
		return
	}
	q.entries[id] = q.order.PushFront(id)
}

// PopOldest removes and returns the least-recently-used identifier.
// Returns (zero, false) if the queue is empty.
func (q *evictionQueue) PopOldest() (MessageIdentifier, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	el := q.order.Back()
	if el == nil {
		var zero MessageIdentifier
		return zero, false
	}
	id := el.Value.(MessageIdentifier)
	q.order.Remove(el)
	delete(q.entries, id)
	return id, true
}

// Len reports the number of tracked identifiers, stale or not.
func (q *evictionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.order.Len()
}
