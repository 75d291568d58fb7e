// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package index

//go:generate mockgen -source index.go -destination index_mocks.go -package index

import (
	"context"

	"github.com/Fantom-foundation/accountsdb/common"
)

// Index maps account keys to the list of stored versions of the account, one
// entry per slot. Implementations must support concurrent use. Entry lists
// handed out by an index are immutable snapshots and must not be modified.
type Index interface {
	// Upsert registers the version of the given key stored for the given slot.
	// If there was already an entry for the slot it is replaced and returned.
	Upsert(key common.Key, slot common.Slot, info common.AccountInfo) (previous common.AccountInfo, replaced bool)

	// Relocate updates the location of an existing entry, provided it still
	// refers to the expected location. It returns false if the entry was
	// removed or replaced in the meantime.
	Relocate(key common.Key, slot common.Slot, expected common.StorageLocation, info common.AccountInfo) bool

	// Remove deletes the entry of the given key for the given slot.
	Remove(key common.Key, slot common.Slot) (common.AccountInfo, bool)

	// Get returns the entry of the given key for the given slot.
	Get(key common.Key, slot common.Slot) (common.AccountInfo, bool)

	// GetAll returns all entries of the given key ordered by slot.
	GetAll(key common.Key) []Entry

	// Scan iterates lazily over all entries accepted by the filter. Each
	// shard is visited as a point-in-time snapshot; updates to shards not
	// yet visited may or may not be observed.
	Scan(filter func(common.Key, Entry) bool) common.Iterator[KeyedEntry]

	// ForEachShard visits all keys in parallel using the given number of
	// workers. The visitor is invoked concurrently for different shards but
	// sequentially within one shard. The first error aborts the iteration.
	ForEachShard(ctx context.Context, workers int, visit func(shard int, key common.Key, entries []Entry) error) error

	// Len returns the number of entries in the index.
	Len() int

	// NumKeys returns the number of keys with at least one entry.
	NumKeys() int

	// NumShards returns the number of independently locked shards.
	NumShards() int

	// provides the size of the index in memory in bytes
	common.MemoryFootprintProvider
}

// Entry is one version of an account retained by the index.
type Entry struct {
	Slot common.Slot
	Info common.AccountInfo
}

// KeyedEntry is an entry together with the key it belongs to.
type KeyedEntry struct {
	Key common.Key
	Entry
}
