// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/luxfi/log"
)

// DefaultCacheLen is the cache bound used when no explicit capacity is
// configured.
const DefaultCacheLen = 100_000

// cacheThresholdFactor is the eviction watermark: a pass evicts down
// to (1 - cacheThresholdFactor) * maxLen resident vertices.
const cacheThresholdFactor = 0.1

// Config bundles the constructor arguments for a Tangle, mirroring
// the plain config-struct constructors the rest of this ecosystem
// favors (e.g. engine/dag/state.SerializerConfig) over functional
// options.
type Config[T Cloner[T]] struct {
	Hooks    Hooks[T]
	Logger   log.Logger
	Metrics  *Metrics
	Capacity int // 0 means DefaultCacheLen
}

// Tangle is a concurrent, bounded, write-through cache over a DAG of
// messages. The zero value is not usable; construct with New,
// NewDefault, or NewWithConfig.
type Tangle[T Cloner[T]] struct {
	mu       sync.RWMutex
	vertices map[MessageIdentifier]*Vertex[T]

	queue  *evictionQueue
	maxLen atomic.Int64

	hooks   Hooks[T]
	logger  log.Logger
	metrics *Metrics
}

// NewDefault returns a Tangle with NullHooks and no logging or
// metrics, at DefaultCacheLen capacity.
func NewDefault[T Cloner[T]]() *Tangle[T] {
	return New[T](NullHooks[T]{})
}

// New returns a Tangle backed by hooks, at DefaultCacheLen capacity.
func New[T Cloner[T]](hooks Hooks[T]) *Tangle[T] {
	return NewWithConfig(Config[T]{Hooks: hooks})
}

// NewWithConfig returns a Tangle configured per cfg. A nil cfg.Hooks
// is replaced with NullHooks, and a nil cfg.Logger defaults to
// log.NewNoOpLogger(), exactly as the teacher's own zero-value
// constructors do (see log/noop.go in the teacher repo).
func NewWithConfig[T Cloner[T]](cfg Config[T]) *Tangle[T] {
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NullHooks[T]{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCacheLen
	}

	t := &Tangle[T]{
		vertices: make(map[MessageIdentifier]*Vertex[T]),
		queue:    newEvictionQueue(),
		hooks:    hooks,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
	t.maxLen.Store(int64(capacity))
	return t
}

// WithCapacity sets the cache bound and returns the receiver, mirroring
// the original's consuming `with_capacity` builder.
func (t *Tangle[T]) WithCapacity(capacity int) *Tangle[T] {
	t.maxLen.Store(int64(capacity))
	return t
}

// Resize changes the maximum number of resident entries. It does not
// itself trigger eviction; the new bound takes effect at the next
// eviction pass (spec.md §9, "global configuration").
func (t *Tangle[T]) Resize(newMax int) {
	t.maxLen.Store(int64(newMax))
}

// Hooks returns the storage hooks this Tangle was constructed with.
func (t *Tangle[T]) Hooks() Hooks[T] {
	return t.hooks
}

// Len returns the number of index entries.
func (t *Tangle[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vertices)
}

// IsEmpty reports whether the index has no entries.
func (t *Tangle[T]) IsEmpty() bool {
	return t.Len() == 0
}

// ClearForTest wipes the vertex index directly. It exists only for
// this package's own tests (mirroring the Rust original's
// #[cfg(test)] clear()) and bypasses eviction and hooks entirely.
func (t *Tangle[T]) ClearForTest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vertices = make(map[MessageIdentifier]*Vertex[T])
}

// insertInner creates or locates id's vertex, optionally pins it,
// installs message+metadata if absent, wires parent->child edges, and
// promotes every touched identifier in the eviction queue. It returns
// the installed message and true only the first time a message body
// is installed for id. performEviction runs after the index lock is
// released.
func (t *Tangle[T]) insertInner(id MessageIdentifier, message Message, metadata T, pinIfFresh bool) (Message, bool) {
	t.mu.Lock()

	v, ok := t.vertices[id]
	if !ok {
		v = newVertex[T]()
		t.vertices[id] = v
	}
	if pinIfFresh {
		v.PreventEviction()
		t.metrics.pin(1)
	}

	var (
		installedMessage Message
		installed        bool
	)
	if v.Message() == nil {
		parents := message.Parents()
		v.Install(message, metadata)
		installedMessage = v.Message()
		installed = true

		for _, parent := range parents {
			pv, ok := t.vertices[parent]
			if !ok {
				pv = newVertex[T]()
				t.vertices[parent] = pv
			}
			pv.AddChild(id)
			t.queue.Promote(parent)
		}
		t.queue.Promote(id)
	}

	n := len(t.vertices)
	t.mu.Unlock()
	t.metrics.setVertices(n)

	t.performEviction()

	return installedMessage, installed
}

// Insert inserts a message and returns a reference to it, but only if
// it did not already exist: a second Insert for the same id returns
// (nil, false) and leaves the stored message untouched.
//
// Per spec.md §9's Open Question, Insert pulls the message first
// (which may materialize it from the backing store even though the
// caller supplied a fresh copy) purely to pin it for the duration of
// the insert; this is preserved unchanged from the original rather
// than "fixed", since removing it would change pinning semantics.
func (t *Tangle[T]) Insert(ctx context.Context, id MessageIdentifier, message Message, metadata T) (MessageReference, bool) {
	existed := t.pullMessage(ctx, id, true)

	msg, installed := t.insertInner(id, message, metadata, !existed)

	t.mu.Lock()
	if v, ok := t.vertices[id]; ok {
		v.AllowEviction()
		t.metrics.pin(-1)
	}
	t.mu.Unlock()

	if installed {
		for _, parent := range message.Parents() {
			if err := t.hooks.InsertApprover(ctx, parent, id); err != nil {
				t.logger.Info("failed to record approver edge", "parent", parent, "child", id, "error", err)
			}
		}
		if err := t.hooks.Insert(ctx, id, message, metadata); err != nil {
			t.logger.Info("failed to write message through to hooks", "message_id", id, "error", err)
		}
		return msg, true
	}
	return nil, false
}

// containsInner reports whether id is resident with an installed
// message, without consulting hooks.
func (t *Tangle[T]) containsInner(id MessageIdentifier) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vertices[id]
	return ok && v.Message() != nil
}

// Contains reports whether id is known to the Tangle, pulling it from
// the backing store if necessary. A successful pull populates the
// cache as a side effect.
func (t *Tangle[T]) Contains(ctx context.Context, id MessageIdentifier) bool {
	if t.containsInner(id) {
		return true
	}
	return t.pullMessage(ctx, id, false)
}

// getWith is the shared primitive behind Get, GetMetadata, and
// GetVertex: pull with a pin, locate the vertex under the index lock,
// release the pin if one was taken, and extract a snapshot via f
// before the lock is dropped. It needs a result type independent of
// the Tangle's own metadata type parameter, which Go methods cannot
// introduce — hence a free function rather than a method.
func getWith[T Cloner[T], R any](ctx context.Context, t *Tangle[T], id MessageIdentifier, f func(*Vertex[T]) (R, bool)) (R, bool) {
	pulled := t.pullMessage(ctx, id, true)

	t.mu.Lock()
	defer t.mu.Unlock()

	var zero R
	v, ok := t.vertices[id]
	if !ok {
		return zero, false
	}
	t.queue.Promote(id)
	if pulled {
		v.AllowEviction()
		t.metrics.pin(-1)
	}
	return f(v)
}

// Get returns the message stored under id, if any.
func (t *Tangle[T]) Get(ctx context.Context, id MessageIdentifier) (MessageReference, bool) {
	msg, ok := getWith(ctx, t, id, func(v *Vertex[T]) (Message, bool) {
		m := v.Message()
		return m, m != nil
	})
	if ok {
		t.metrics.hit()
	} else {
		t.metrics.miss()
	}
	return msg, ok
}

// GetMetadata returns the metadata stored under id, if any, pulling
// from the backing store if necessary.
func (t *Tangle[T]) GetMetadata(ctx context.Context, id MessageIdentifier) (T, bool) {
	return getWith(ctx, t, id, func(v *Vertex[T]) (T, bool) {
		return v.Metadata()
	})
}

// GetMetadataMaybe returns the metadata stored under id, if any,
// without attempting to pull it from the backing store.
func (t *Tangle[T]) GetMetadataMaybe(id MessageIdentifier) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vertices[id]
	if !ok {
		var zero T
		return zero, false
	}
	t.queue.Promote(id)
	return v.Metadata()
}

// VertexView is a point-in-time snapshot of a Vertex, safe to use
// after the Tangle's internal lock has been released.
type VertexView[T Cloner[T]] struct {
	Message            Message
	Metadata           T
	HasMetadata        bool
	Children           []MessageIdentifier
	ChildrenExhaustive bool
}

// GetVertex returns a snapshot of the vertex stored under id, if any.
// Unlike Get, this may return a placeholder vertex (no Message) when
// id is only known as somebody else's parent.
func (t *Tangle[T]) GetVertex(ctx context.Context, id MessageIdentifier) (VertexView[T], bool) {
	return getWith(ctx, t, id, func(v *Vertex[T]) (VertexView[T], bool) {
		meta, hasMeta := v.Metadata()
		return VertexView[T]{
			Message:            v.Message(),
			Metadata:           meta,
			HasMetadata:        hasMeta,
			Children:           v.Children(),
			ChildrenExhaustive: v.ChildrenExhaustive(),
		}, true
	})
}

// UpdateMetadata applies update to id's metadata in place and writes
// the resulting (message, metadata) pair through to hooks. It is a
// free function rather than a method because its result type R is
// independent of the Tangle's own metadata type parameter.
func UpdateMetadata[T Cloner[T], R any](ctx context.Context, t *Tangle[T], id MessageIdentifier, update func(*T) R) (R, bool) {
	pulled := t.pullMessage(ctx, id, true)

	t.mu.Lock()
	var zero R
	v, ok := t.vertices[id]
	if !ok {
		t.mu.Unlock()
		return zero, false
	}
	if pulled {
		v.AllowEviction()
		t.metrics.pin(-1)
	}

	mm := v.MetadataMut()
	if mm == nil {
		t.mu.Unlock()
		return zero, false
	}
	result := update(mm)

	msg, meta, hasBoth := v.messageAndMetadata()
	if hasBoth {
		t.queue.Promote(id)
	}
	t.mu.Unlock()

	if hasBoth {
		if err := t.hooks.Insert(ctx, id, msg, meta); err != nil {
			t.logger.Info("failed to write updated metadata through to hooks", "message_id", id, "error", err)
		}
	}
	return result, true
}

// SetMetadata replaces id's metadata wholesale.
func (t *Tangle[T]) SetMetadata(ctx context.Context, id MessageIdentifier, metadata T) bool {
	_, ok := UpdateMetadata(ctx, t, id, func(m *T) struct{} {
		*m = metadata
		return struct{}{}
	})
	return ok
}

// childrenInner returns id's children, materializing them from hooks
// and merging (never replacing) if the vertex is not yet exhaustive.
func (t *Tangle[T]) childrenInner(ctx context.Context, id MessageIdentifier) []MessageIdentifier {
	t.mu.RLock()
	if v, ok := t.vertices[id]; ok && v.ChildrenExhaustive() {
		children := v.Children()
		t.mu.RUnlock()
		t.queue.Promote(id)
		return children
	}
	t.mu.RUnlock()
	t.queue.Promote(id)

	fetched, found, err := t.hooks.FetchApprovers(ctx, id)
	if err != nil {
		t.logger.Info("failed to fetch approvers", "message_id", id, "error", err)
		return nil
	}
	if !found {
		fetched = nil
	}

	t.mu.Lock()
	v, ok := t.vertices[id]
	if !ok {
		v = newVertex[T]()
		t.vertices[id] = v
	}
	// We've just consulted the backing store, so we now hold
	// everything we know: the list becomes exhaustive. Runtime-
	// discovered edges already on the vertex are kept, not replaced.
	v.SetExhaustive()
	for _, child := range fetched {
		v.AddChild(child)
	}
	children := v.Children()
	n := len(t.vertices)
	t.mu.Unlock()
	t.metrics.setVertices(n)

	return children
}

// GetChildren returns id's known children, fetching from the backing
// store if the vertex is not yet exhaustive.
func (t *Tangle[T]) GetChildren(ctx context.Context, id MessageIdentifier) []MessageIdentifier {
	return t.childrenInner(ctx, id)
}

// NumChildren returns the number of id's known children.
func (t *Tangle[T]) NumChildren(ctx context.Context, id MessageIdentifier) int {
	return len(t.childrenInner(ctx, id))
}

// pullMessage is the shared primitive guaranteeing "the referenced
// vertex, if it can exist anywhere, exists in cache after this call,
// optionally pinned". Cancellation safety: every pin this function
// takes is released by its caller's explicit AllowEviction call (in
// getWith/UpdateMetadata/Insert) before that caller returns, so a
// context cancellation racing with those callers cannot leak a
// permanent pin — the pin always outlives pullMessage itself and is
// owned by its caller, never left dangling inside this function.
func (t *Tangle[T]) pullMessage(ctx context.Context, id MessageIdentifier, pin bool) bool {
	var containsNow bool
	if pin {
		t.mu.Lock()
		if v, ok := t.vertices[id]; ok && v.Message() != nil {
			v.PreventEviction()
			t.metrics.pin(1)
			containsNow = true
		}
		t.mu.Unlock()
	} else {
		containsNow = t.containsInner(id)
	}

	if containsNow {
		t.queue.Promote(id)
		return true
	}

	message, metadata, found, err := t.hooks.Get(ctx, id)
	if err != nil {
		t.logger.Info("hook get failed", "message_id", id, "error", err)
		return false
	}
	if !found {
		return false
	}

	t.queue.Promote(id)
	t.insertInner(id, message, metadata, pin)
	return true
}

// performEviction is triggered only from insertInner. If the index
// exceeds maxLen it pops LRU victims until the index drops to
// (1 - cacheThresholdFactor) * maxLen or the queue empties. A popped
// identifier that turns out to be pinned is reinserted with fresh
// recency instead of evicted, which guarantees liveness: pinned
// vertices cannot block progress on evictable ones indefinitely, and
// once more pinned pops have been seen than the queue holds, only
// pinned identifiers remain and the loop stops without evicting them.
func (t *Tangle[T]) performEviction() {
	maxLen := int(t.maxLen.Load())

	t.mu.RLock()
	length := len(t.vertices)
	t.mu.RUnlock()
	if length <= maxLen {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	threshold := int((1.0 - cacheThresholdFactor) * float64(maxLen))
	evicted := 0
	pinnedPops := 0
	for len(t.vertices) > threshold {
		id, ok := t.queue.PopOldest()
		if !ok {
			break
		}
		v, ok := t.vertices[id]
		if !ok {
			continue
		}
		if !v.CanEvict() {
			t.queue.Promote(id)
			pinnedPops++
			if pinnedPops > t.queue.Len() {
				break
			}
			continue
		}
		delete(t.vertices, id)
		evicted++
	}

	t.metrics.evicted(evicted)
	t.metrics.setVertices(len(t.vertices))
}
