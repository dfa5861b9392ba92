// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

import (
	"context"
	"sync"
)

// recordingHooks is a hand-written Hooks double that records every
// write-through call it receives, grounded on the teacher's
// lightweight test-fake convention (e.g. consensustest, enginetest)
// rather than a go.uber.org/mock-generated mock — the Hooks surface
// here is five methods, too small to justify a mocking framework.
type recordingHooks struct {
	mu sync.Mutex

	approverCalls []approverCall
	insertCalls   []insertCall

	// stored backs Get with whatever the most recent Insert for an id
	// wrote, so a double can be used both to assert write-through calls
	// (S5) and to exercise the evict-then-refetch round trip (the
	// write-through round-trip universal invariant).
	stored map[MessageIdentifier]insertCall

	// fetchApprovers, if set, is returned by FetchApprovers for any id.
	fetchApprovers []MessageIdentifier
	fetchFound     bool
}

type approverCall struct {
	id, child MessageIdentifier
}

type insertCall struct {
	id   MessageIdentifier
	msg  Message
	meta testMeta
}

func (h *recordingHooks) Get(_ context.Context, id MessageIdentifier) (Message, testMeta, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	call, ok := h.stored[id]
	if !ok {
		return nil, testMeta{}, false, nil
	}
	return call.msg, call.meta, true, nil
}

func (h *recordingHooks) Insert(_ context.Context, id MessageIdentifier, msg Message, meta testMeta) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	call := insertCall{id: id, msg: msg, meta: meta}
	h.insertCalls = append(h.insertCalls, call)
	if h.stored == nil {
		h.stored = make(map[MessageIdentifier]insertCall)
	}
	h.stored[id] = call
	return nil
}

func (h *recordingHooks) FetchApprovers(context.Context, MessageIdentifier) ([]MessageIdentifier, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fetchApprovers, h.fetchFound, nil
}

func (h *recordingHooks) InsertApprover(_ context.Context, id MessageIdentifier, child MessageIdentifier) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.approverCalls = append(h.approverCalls, approverCall{id: id, child: child})
	return nil
}

func (h *recordingHooks) UpdateApprovers(context.Context, MessageIdentifier, []MessageIdentifier) error {
	return nil
}

var _ Hooks[testMeta] = (*recordingHooks)(nil)
