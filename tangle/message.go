// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tangle implements a concurrent, bounded, write-through cache
// over a directed acyclic graph of messages.
package tangle

import "github.com/luxfi/ids"

// MessageIdentifier is the fixed-width, comparable identifier of a
// Message. It is shared with the rest of the consensus stack on
// purpose: a Tangle is usually built over the same DAG that the
// engine itself votes on.
type MessageIdentifier = ids.ID

// Message is an opaque, immutable payload. The Tangle never inspects
// anything about a message beyond its parents: wire format, payload
// validation, and signature checks all live outside this package.
type Message interface {
	// Parents returns the message's parent identifiers in whatever
	// order the payload defines, zero or more, no duplicates implied.
	Parents() []MessageIdentifier
}

// MessageReference is the handle returned by Insert/Get. It remains
// valid and immutable for as long as the caller holds it, regardless
// of whether the underlying vertex is later evicted from the cache:
// in Go this falls out of the garbage collector keeping any live
// Message value reachable, so MessageReference is simply Message
// itself rather than a separate ref-counted wrapper.
type MessageReference = Message

// Cloner is the cheap-copy contract every Metadata type parameter
// must satisfy. The cache clones metadata freely (e.g. when handing a
// snapshot back to a caller), so Clone is expected to be shallow and
// inexpensive.
type Cloner[T any] interface {
	Clone() T
}
