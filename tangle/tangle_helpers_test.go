// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

// testMessage is the minimal Message implementation used across this
// package's tests.
type testMessage struct {
	parents []MessageIdentifier
}

func (m testMessage) Parents() []MessageIdentifier { return m.parents }

// testMeta is the minimal Cloner[T] metadata used across this
// package's tests.
type testMeta struct {
	count int
}

func (m testMeta) Clone() testMeta { return m }

// idFor builds a distinct, deterministic MessageIdentifier for tests
// from a small integer, avoiding any dependency on the real
// github.com/luxfi/ids random-id generator.
func idFor(n byte) MessageIdentifier {
	var id MessageIdentifier
	id[0] = n
	id[1] = 0xFF // keep ids visually distinct from the zero ID
	return id
}
