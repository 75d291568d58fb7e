// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package hashing

import (
	"encoding/binary"
	"sort"

	"github.com/Fantom-foundation/accountsdb/common"
)

// FanOut is the number of children combined into one inner node of the
// Merkle tree computed over account hashes.
const FanOut = 16

// ErrHashMismatch is reported if a recomputed hash differs from the expected
// one. Mismatches are never corrected automatically.
const ErrHashMismatch = common.ConstError("hash mismatch")

// AccountHash computes the hash of a single account version. Deleted accounts
// hash to the zero digest.
func AccountHash(key common.Key, account *common.Account) common.Hash {
	if account.IsTombstone() {
		return common.Hash{}
	}
	var buffer [8]byte
	hasher := common.GetKeccakHasher()
	defer common.ReleaseKeccakHasher(hasher)
	hasher.Write(key[:])
	binary.LittleEndian.PutUint64(buffer[:], account.Balance)
	hasher.Write(buffer[:])
	hasher.Write(account.Owner[:])
	binary.LittleEndian.PutUint64(buffer[:], uint64(len(account.Data)))
	hasher.Write(buffer[:])
	hasher.Write(account.Data)
	binary.LittleEndian.PutUint64(buffer[:], account.RentEpoch)
	hasher.Write(buffer[:])
	if account.Executable {
		hasher.Write([]byte{1})
	} else {
		hasher.Write([]byte{0})
	}
	return common.FinishKeccak(hasher)
}

// EmptyRoot is the root of a Merkle tree without leaves.
var EmptyRoot = common.Keccak256(nil)

// MerkleRoot reduces the given sequence of hashes to a single root by
// repeatedly hashing groups of FanOut consecutive hashes. Every leaf is
// hashed at least once, so a single leaf does not become the root itself.
func MerkleRoot(hashes []common.Hash) common.Hash {
	if len(hashes) == 0 {
		return EmptyRoot
	}
	level := hashes
	for {
		next := make([]common.Hash, 0, (len(level)+FanOut-1)/FanOut)
		for start := 0; start < len(level); start += FanOut {
			end := min(start+FanOut, len(level))
			hasher := common.GetKeccakHasher()
			for _, hash := range level[start:end] {
				hasher.Write(hash[:])
			}
			next = append(next, common.FinishKeccak(hasher))
			common.ReleaseKeccakHasher(hasher)
		}
		if len(next) == 1 {
			return next[0]
		}
		level = next
	}
}

// KeyedHash is the hash of an account together with its key.
type KeyedHash struct {
	Key  common.Key
	Hash common.Hash
}

// RootOfKeyedHashes sorts the given hashes by key and reduces them to their
// Merkle root. The input is sorted in place.
func RootOfKeyedHashes(hashes []KeyedHash) common.Hash {
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Key.Compare(hashes[j].Key) < 0
	})
	leaves := make([]common.Hash, len(hashes))
	for i := range hashes {
		leaves[i] = hashes[i].Hash
	}
	return MerkleRoot(leaves)
}

// DeltaHash computes the hash of the accounts written in a single slot. The
// result does not depend on the order of the input, which must not contain
// more than one account per key.
func DeltaHash(accounts []common.KeyedAccount) common.Hash {
	hashes := make([]KeyedHash, len(accounts))
	for i := range accounts {
		hashes[i] = KeyedHash{
			Key:  accounts[i].Key,
			Hash: AccountHash(accounts[i].Key, &accounts[i].Account),
		}
	}
	return RootOfKeyedHashes(hashes)
}
