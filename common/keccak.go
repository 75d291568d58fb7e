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
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

// KeccakHasher is a Keccak-256 hasher that may be fed incrementally. Instances
// are pooled; obtain one with GetKeccakHasher and return it using
// ReleaseKeccakHasher.
type KeccakHasher interface {
	hash.Hash
	// Read is provided by the sponge construction of sha3 and extracts the
	// digest without the allocation of Sum.
	Read(out []byte) (int, error)
}

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

// GetKeccakHasher obtains a reset hasher from the pool.
func GetKeccakHasher() KeccakHasher {
	hasher := keccakHasherPool.Get().(KeccakHasher)
	hasher.Reset()
	return hasher
}

// ReleaseKeccakHasher returns a hasher to the pool.
func ReleaseKeccakHasher(hasher KeccakHasher) {
	keccakHasherPool.Put(hasher)
}

// Keccak256 computes the Keccak-256 hash of the given data.
func Keccak256(data []byte) Hash {
	hasher := GetKeccakHasher()
	hasher.Write(data)
	res := FinishKeccak(hasher)
	ReleaseKeccakHasher(hasher)
	return res
}

// FinishKeccak extracts the digest of the data written to the given hasher.
func FinishKeccak(hasher KeccakHasher) Hash {
	var res Hash
	hasher.Read(res[:])
	return res
}

// Keccak256ForKey hashes a single key.
func Keccak256ForKey(key Key) Hash {
	return Keccak256(key[:])
}
