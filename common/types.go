// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Key is the 32-byte identifier of an account.
type Key [32]byte

// Hash is a 32-byte digest.
type Hash [32]byte

// Slot is a logical block height. Slots are monotonically increasing along
// every fork and each slot belongs to at most one fork.
type Slot uint64

// SegmentId identifies a single append-only storage segment.
type SegmentId uint32

// StorageLocation is an opaque handle to a record stored in a segment. It is
// resolved through the segment table of the owning store, never through a
// pointer, so segments can be recycled without dangling references.
type StorageLocation struct {
	Segment SegmentId
	Offset  uint64
}

func (l StorageLocation) String() string {
	return fmt.Sprintf("%d:%d", l.Segment, l.Offset)
}

// AccountInfo is the per-version payload retained by the account index. Besides
// the location of the record it caches the information the cleaner needs to
// account for reclaimed space without touching the storage.
type AccountInfo struct {
	Location   StorageLocation
	StoredSize uint32 // < size of the record in the segment, including padding
	Tombstone  bool   // < set if the stored account has a zero balance
}

// KeyFromBytes creates a key from the given bytes. Shorter inputs are left
// padded with zeros, longer inputs are truncated.
func KeyFromBytes(data []byte) Key {
	var res Key
	if len(data) > len(res) {
		data = data[len(data)-len(res):]
	}
	copy(res[len(res)-len(data):], data)
	return res
}

// ParseKey parses a hex encoded key, with or without 0x prefix.
func ParseKey(str string) (Key, error) {
	var res Key
	if len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X') {
		str = str[2:]
	}
	data, err := hex.DecodeString(str)
	if err != nil {
		return res, fmt.Errorf("invalid key %q: %w", str, err)
	}
	if len(data) != len(res) {
		return res, fmt.Errorf("invalid key length, wanted %d bytes, got %d", len(res), len(data))
	}
	copy(res[:], data)
	return res, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%x", k[:])
}

// Compare orders keys lexicographically, returning -1, 0, or 1.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}
