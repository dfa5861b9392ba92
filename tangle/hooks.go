// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

import "context"

// Hooks is the bridge a Tangle uses to extend its effective volume
// into a slower, authoritative backing store. When a vertex isn't
// resident, or when one is inserted or mutated, the Tangle calls out
// to Hooks to fulfil the corresponding read or write-through.
//
// Every operation is fallible. Per spec.md §7, a Hooks failure is
// never propagated to a Tangle caller: the Tangle logs it and
// continues operating purely in-memory.
type Hooks[T Cloner[T]] interface {
	// Get returns the stored message and metadata for id, or
	// (nil, zero, false, nil) if nothing is stored.
	Get(ctx context.Context, id MessageIdentifier) (Message, T, bool, error)

	// Insert writes a message and its metadata through to the
	// backing store. May overwrite existing metadata for id.
	Insert(ctx context.Context, id MessageIdentifier, message Message, metadata T) error

	// FetchApprovers returns the authoritative children list for id,
	// or (nil, false, nil) if the backing store has no opinion.
	FetchApprovers(ctx context.Context, id MessageIdentifier) ([]MessageIdentifier, bool, error)

	// InsertApprover appends a single parent -> child edge.
	InsertApprover(ctx context.Context, id MessageIdentifier, child MessageIdentifier) error

	// UpdateApprovers replaces the full children list for id.
	// Reserved: no core Tangle flow calls this today (see DESIGN.md
	// for the Open Question this preserves from the original).
	UpdateApprovers(ctx context.Context, id MessageIdentifier, children []MessageIdentifier) error
}

// NullHooks is the "do nothing" Hooks implementation. It is always a
// valid Hooks: every read reports absence, every write succeeds.
type NullHooks[T Cloner[T]] struct{}

var _ Hooks[cloneableInt] = NullHooks[cloneableInt]{}

func (NullHooks[T]) Get(context.Context, MessageIdentifier) (Message, T, bool, error) {
	var zero T
	return nil, zero, false, nil
}

func (NullHooks[T]) Insert(context.Context, MessageIdentifier, Message, T) error {
	return nil
}

func (NullHooks[T]) FetchApprovers(context.Context, MessageIdentifier) ([]MessageIdentifier, bool, error) {
	return nil, false, nil
}

func (NullHooks[T]) InsertApprover(context.Context, MessageIdentifier, MessageIdentifier) error {
	return nil
}

func (NullHooks[T]) UpdateApprovers(context.Context, MessageIdentifier, []MessageIdentifier) error {
	return nil
}

// cloneableInt is a throwaway type used only to type-check NullHooks
// against the Hooks interface above.
type cloneableInt int

func (c cloneableInt) Clone() cloneableInt { return c }
