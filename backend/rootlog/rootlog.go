// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rootlog

//go:generate mockgen -source rootlog.go -destination rootlog_mocks.go -package rootlog

import (
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/Fantom-foundation/accountsdb/common/amount"
)

// Log is the durable record of rooted slots and of the hashes computed for
// slots. Roots are never removed.
type Log interface {
	// AddRoot records the given slot as rooted.
	AddRoot(slot common.Slot) error

	// Roots returns all rooted slots in ascending order.
	Roots() ([]common.Slot, error)

	// SetDeltaHash records the delta hash of a flushed slot.
	SetDeltaHash(slot common.Slot, hash common.Hash) error

	// GetDeltaHash returns the recorded delta hash of a slot.
	GetDeltaHash(slot common.Slot) (common.Hash, bool, error)

	// SetFullHash records the full state hash and capitalization of a root.
	SetFullHash(slot common.Slot, hash FullHash) error

	// GetFullHash returns the recorded full state hash of a root.
	GetFullHash(slot common.Slot) (FullHash, bool, error)

	// LastFullHash returns the recorded full hash of the highest slot.
	LastFullHash() (common.Slot, FullHash, bool, error)

	// logs need to be flushed and closed
	common.FlushAndCloser
}

// FullHash is the state hash of a root together with its capitalization.
type FullHash struct {
	Hash           common.Hash
	Capitalization amount.Amount
}

// TableSpace divides the log into spaces by prefixing keys.
type TableSpace byte

const (
	// RootKey is the table space of rooted slots
	RootKey TableSpace = 'R'
	// DeltaHashKey is the table space of per-slot delta hashes
	DeltaHashKey TableSpace = 'D'
	// FullHashKey is the table space of per-root full hashes
	FullHashKey TableSpace = 'F'
)

// DbKey is the key of an entry: a table space followed by a big endian slot,
// so that iteration order matches slot order.
type DbKey [9]byte

// ToDbKey builds the key of a slot in a table space.
func ToDbKey(space TableSpace, slot common.Slot) DbKey {
	var res DbKey
	res[0] = byte(space)
	for i := 0; i < 8; i++ {
		res[8-i] = byte(slot >> (8 * i))
	}
	return res
}

// SlotOf extracts the slot of a key.
func SlotOf(key []byte) common.Slot {
	var res common.Slot
	for _, b := range key[1:9] {
		res = res<<8 | common.Slot(b)
	}
	return res
}

// EncodeFullHash converts a full hash to its 64-byte representation.
func EncodeFullHash(hash FullHash) []byte {
	res := make([]byte, 0, 64)
	res = append(res, hash.Hash[:]...)
	capitalization := hash.Capitalization.Bytes32()
	return append(res, capitalization[:]...)
}

// DecodeFullHash parses the representation produced by EncodeFullHash.
func DecodeFullHash(data []byte) (FullHash, bool) {
	if len(data) != 64 {
		return FullHash{}, false
	}
	res := FullHash{Capitalization: amount.NewFromBytes(data[32:]...)}
	copy(res.Hash[:], data[:32])
	return res, true
}
