// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tanglehooks provides a non-null tangle.Hooks implementation
// layered over github.com/luxfi/database, the byte-oriented key/value
// store interface the rest of this ecosystem already speaks (see
// engine/dag/state.SerializerConfig.DB in the teacher repo, which
// wires the same database.Database into its own vertex manager).
package tanglehooks

import (
	"context"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/tangle/tangle"
)

// Codec (de)serializes messages and metadata to and from bytes. The
// Tangle cache itself never needs a wire format (spec.md §1 keeps the
// message payload out of scope), so KVHooks takes one as a parameter
// instead of assuming one.
type Codec[T tangle.Cloner[T]] interface {
	EncodeMessage(tangle.Message) ([]byte, error)
	DecodeMessage([]byte) (tangle.Message, error)
	EncodeMetadata(T) ([]byte, error)
	DecodeMetadata([]byte) (T, error)
}

// idLen is the on-disk width of a tangle.MessageIdentifier, used to
// pack approver lists as flat byte slices.
var idLen = len(tangle.MessageIdentifier{})

// KVHooks adapts the five tangle.Hooks operations onto a
// database.Database. Messages and metadata are stored under separate
// keys per id; approver lists are stored as a flat concatenation of
// fixed-width identifiers under a third key.
type KVHooks[T tangle.Cloner[T]] struct {
	db    database.Database
	codec Codec[T]
}

var _ tangle.Hooks[cloneableBytes] = (*KVHooks[cloneableBytes])(nil)

// New returns a Hooks implementation that persists through db using
// codec for message/metadata (de)serialization.
func New[T tangle.Cloner[T]](db database.Database, codec Codec[T]) *KVHooks[T] {
	return &KVHooks[T]{db: db, codec: codec}
}

func messageKey(id tangle.MessageIdentifier) []byte {
	return append([]byte("m/"), id[:]...)
}

func metadataKey(id tangle.MessageIdentifier) []byte {
	return append([]byte("d/"), id[:]...)
}

func approversKey(id tangle.MessageIdentifier) []byte {
	return append([]byte("a/"), id[:]...)
}

func encodeApprovers(ids []tangle.MessageIdentifier) []byte {
	buf := make([]byte, 0, len(ids)*idLen)
	for _, id := range ids {
		buf = append(buf, id[:]...)
	}
	return buf
}

func decodeApprovers(raw []byte) []tangle.MessageIdentifier {
	out := make([]tangle.MessageIdentifier, 0, len(raw)/idLen)
	for i := 0; i+idLen <= len(raw); i += idLen {
		var id tangle.MessageIdentifier
		copy(id[:], raw[i:i+idLen])
		out = append(out, id)
	}
	return out
}

// Get implements tangle.Hooks.
func (h *KVHooks[T]) Get(_ context.Context, id tangle.MessageIdentifier) (tangle.Message, T, bool, error) {
	var zero T

	has, err := h.db.Has(messageKey(id))
	if err != nil {
		return nil, zero, false, err
	}
	if !has {
		return nil, zero, false, nil
	}

	msgBytes, err := h.db.Get(messageKey(id))
	if err != nil {
		return nil, zero, false, err
	}
	metaBytes, err := h.db.Get(metadataKey(id))
	if err != nil {
		return nil, zero, false, err
	}

	msg, err := h.codec.DecodeMessage(msgBytes)
	if err != nil {
		return nil, zero, false, fmt.Errorf("tanglehooks: decode message %v: %w", id, err)
	}
	meta, err := h.codec.DecodeMetadata(metaBytes)
	if err != nil {
		return nil, zero, false, fmt.Errorf("tanglehooks: decode metadata %v: %w", id, err)
	}
	return msg, meta, true, nil
}

// Insert implements tangle.Hooks.
func (h *KVHooks[T]) Insert(_ context.Context, id tangle.MessageIdentifier, message tangle.Message, metadata T) error {
	msgBytes, err := h.codec.EncodeMessage(message)
	if err != nil {
		return fmt.Errorf("tanglehooks: encode message %v: %w", id, err)
	}
	metaBytes, err := h.codec.EncodeMetadata(metadata)
	if err != nil {
		return fmt.Errorf("tanglehooks: encode metadata %v: %w", id, err)
	}
	if err := h.db.Put(messageKey(id), msgBytes); err != nil {
		return err
	}
	return h.db.Put(metadataKey(id), metaBytes)
}

// FetchApprovers implements tangle.Hooks.
func (h *KVHooks[T]) FetchApprovers(_ context.Context, id tangle.MessageIdentifier) ([]tangle.MessageIdentifier, bool, error) {
	has, err := h.db.Has(approversKey(id))
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, nil
	}
	raw, err := h.db.Get(approversKey(id))
	if err != nil {
		return nil, false, err
	}
	return decodeApprovers(raw), true, nil
}

// InsertApprover implements tangle.Hooks.
func (h *KVHooks[T]) InsertApprover(_ context.Context, id tangle.MessageIdentifier, child tangle.MessageIdentifier) error {
	var approvers []tangle.MessageIdentifier
	has, err := h.db.Has(approversKey(id))
	if err != nil {
		return err
	}
	if has {
		raw, err := h.db.Get(approversKey(id))
		if err != nil {
			return err
		}
		approvers = decodeApprovers(raw)
	}
	for _, existing := range approvers {
		if existing == child {
			return nil
		}
	}
	approvers = append(approvers, child)
	return h.db.Put(approversKey(id), encodeApprovers(approvers))
}

// UpdateApprovers implements tangle.Hooks.
func (h *KVHooks[T]) UpdateApprovers(_ context.Context, id tangle.MessageIdentifier, children []tangle.MessageIdentifier) error {
	return h.db.Put(approversKey(id), encodeApprovers(children))
}

// cloneableBytes is a throwaway type used only to type-check KVHooks
// against the tangle.Hooks interface above.
type cloneableBytes struct{}

func (cloneableBytes) Clone() cloneableBytes { return cloneableBytes{} }
