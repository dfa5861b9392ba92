// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

// Vertex holds a message, its metadata, and the set of children we
// know about. It is pure data: none of its methods take a lock.
// Synchronization is entirely the owning Tangle's responsibility: its
// index lock is the only lock that may touch a Vertex.
type Vertex[T Cloner[T]] struct {
	message  Message
	metadata *T

	children map[MessageIdentifier]struct{}
	// exhaustive is true iff children is known to contain every
	// approver the backing store knows about. It may only ever
	// transition false -> true.
	exhaustive bool

	// pins blocks eviction while > 0. Mutated only while the index's
	// write lock is held, so a plain int suffices.
	pins int
}

// newVertex returns a placeholder vertex: no message, no children,
// not exhaustive, unpinned.
func newVertex[T Cloner[T]]() *Vertex[T] {
	return &Vertex[T]{
		children: make(map[MessageIdentifier]struct{}),
	}
}

// Message returns the installed message, or nil if this vertex is
// still a placeholder.
func (v *Vertex[T]) Message() Message {
	return v.message
}

// Metadata returns a clone of the installed metadata and whether it is
// present. It is present iff Message() is non-nil. Cloned rather than
// dereferenced so a caller holding a snapshot can never observe a
// later UpdateMetadata mutation through an aliased reference field.
func (v *Vertex[T]) Metadata() (T, bool) {
	if v.metadata == nil {
		var zero T
		return zero, false
	}
	return v.metadata.Clone(), true
}

// MetadataMut returns a mutable pointer to the metadata, or nil if
// none is installed yet.
func (v *Vertex[T]) MetadataMut() *T {
	return v.metadata
}

// messageAndMetadata is the pair accessor used by write-through paths
// that need to hand both values to the hooks in one shot. The
// metadata is cloned for the same aliasing reason as Metadata.
func (v *Vertex[T]) messageAndMetadata() (Message, T, bool) {
	if v.message == nil || v.metadata == nil {
		var zero T
		return nil, zero, false
	}
	return v.message, v.metadata.Clone(), true
}

// Install sets the message and metadata pair. Precondition: the
// vertex has no message yet; installing twice is a caller error and
// is not defensively checked (spec.md §7, "contract violation").
func (v *Vertex[T]) Install(message Message, metadata T) {
	v.message = message
	v.metadata = &metadata
}

// AddChild records id as a known approver. Idempotent: adding the
// same id twice never produces a duplicate.
func (v *Vertex[T]) AddChild(id MessageIdentifier) {
	v.children[id] = struct{}{}
}

// Children returns a snapshot of known children. Order is not
// meaningful.
func (v *Vertex[T]) Children() []MessageIdentifier {
	out := make([]MessageIdentifier, 0, len(v.children))
	for id := range v.children {
		out = append(out, id)
	}
	return out
}

// ChildrenExhaustive reports whether the children list is known to be
// complete.
func (v *Vertex[T]) ChildrenExhaustive() bool {
	return v.exhaustive
}

// SetExhaustive marks the children list complete. Monotonic: calling
// it again is a no-op.
func (v *Vertex[T]) SetExhaustive() {
	v.exhaustive = true
}

// PreventEviction increments the pin counter. Every call must be
// matched by a later AllowEviction.
func (v *Vertex[T]) PreventEviction() {
	v.pins++
}

// AllowEviction decrements the pin counter. Must be paired with a
// prior PreventEviction.
func (v *Vertex[T]) AllowEviction() {
	v.pins--
}

// CanEvict reports whether nothing currently holds a pin on this
// vertex.
func (v *Vertex[T]) CanEvict() bool {
	return v.pins == 0
}
