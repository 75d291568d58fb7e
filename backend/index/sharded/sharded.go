// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sharded

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultNumShards is the number of shards used if none is configured.
const DefaultNumShards = 1 << 12

// Index is an index distributing keys over a fixed number of shards, each
// guarded by its own lock. Entry lists are copy-on-write: a list is never
// modified once published, so readers only hold a shard lock while fetching
// the list reference.
type Index struct {
	shards     []shard
	mask       uint64
	numEntries atomic.Int64
	numKeys    atomic.Int64
}

type shard struct {
	mu   sync.RWMutex
	data map[common.Key][]index.Entry
}

// NewIndex creates an empty index with the given number of shards, rounded
// up to the next power of two.
func NewIndex(numShards int) *Index {
	if numShards < 1 {
		numShards = 1
	}
	numShards = 1 << bits.Len(uint(numShards-1))
	res := &Index{
		shards: make([]shard, numShards),
		mask:   uint64(numShards - 1),
	}
	for i := range res.shards {
		res.shards[i].data = map[common.Key][]index.Entry{}
	}
	return res
}

// ShardOf returns the shard responsible for the given key.
func (i *Index) ShardOf(key common.Key) int {
	return int(xxhash.Sum64(key[:]) & i.mask)
}

func (i *Index) getShard(key common.Key) *shard {
	return &i.shards[i.ShardOf(key)]
}

// find locates the position of the given slot in a sorted entry list.
func find(entries []index.Entry, slot common.Slot) (int, bool) {
	pos := sort.Search(len(entries), func(i int) bool { return entries[i].Slot >= slot })
	return pos, pos < len(entries) && entries[pos].Slot == slot
}

func (i *Index) Upsert(key common.Key, slot common.Slot, info common.AccountInfo) (common.AccountInfo, bool) {
	s := i.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.data[key]
	pos, found := find(entries, slot)
	if found {
		previous := entries[pos].Info
		updated := make([]index.Entry, len(entries))
		copy(updated, entries)
		updated[pos].Info = info
		s.data[key] = updated
		return previous, true
	}
	updated := make([]index.Entry, 0, len(entries)+1)
	updated = append(updated, entries[:pos]...)
	updated = append(updated, index.Entry{Slot: slot, Info: info})
	updated = append(updated, entries[pos:]...)
	s.data[key] = updated
	if len(entries) == 0 {
		i.numKeys.Add(1)
	}
	i.numEntries.Add(1)
	return common.AccountInfo{}, false
}

func (i *Index) Relocate(key common.Key, slot common.Slot, expected common.StorageLocation, info common.AccountInfo) bool {
	s := i.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.data[key]
	pos, found := find(entries, slot)
	if !found || entries[pos].Info.Location != expected {
		return false
	}
	updated := make([]index.Entry, len(entries))
	copy(updated, entries)
	updated[pos].Info = info
	s.data[key] = updated
	return true
}

func (i *Index) Remove(key common.Key, slot common.Slot) (common.AccountInfo, bool) {
	s := i.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.data[key]
	pos, found := find(entries, slot)
	if !found {
		return common.AccountInfo{}, false
	}
	removed := entries[pos].Info
	i.numEntries.Add(-1)
	if len(entries) == 1 {
		delete(s.data, key)
		i.numKeys.Add(-1)
		return removed, true
	}
	updated := make([]index.Entry, 0, len(entries)-1)
	updated = append(updated, entries[:pos]...)
	updated = append(updated, entries[pos+1:]...)
	s.data[key] = updated
	return removed, true
}

func (i *Index) Get(key common.Key, slot common.Slot) (common.AccountInfo, bool) {
	entries := i.GetAll(key)
	pos, found := find(entries, slot)
	if !found {
		return common.AccountInfo{}, false
	}
	return entries[pos].Info, true
}

func (i *Index) GetAll(key common.Key) []index.Entry {
	s := i.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

func (i *Index) Scan(filter func(common.Key, index.Entry) bool) common.Iterator[index.KeyedEntry] {
	return &iterator{index: i, filter: filter}
}

// snapshot collects the key lists of a shard while holding its read lock.
func (i *Index) snapshot(shard int) ([]common.Key, [][]index.Entry) {
	s := &i.shards[shard]
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]common.Key, 0, len(s.data))
	lists := make([][]index.Entry, 0, len(s.data))
	for key, entries := range s.data {
		keys = append(keys, key)
		lists = append(lists, entries)
	}
	return keys, lists
}

func (i *Index) ForEachShard(parent context.Context, workers int, visit func(shard int, key common.Key, entries []index.Entry) error) error {
	if workers < 1 {
		workers = 1
	}
	group, ctx := errgroup.WithContext(parent)
	group.SetLimit(workers)
	for shard := range i.shards {
		if ctx.Err() != nil {
			break
		}
		shard := shard
		group.Go(func() error {
			keys, lists := i.snapshot(shard)
			for j, key := range keys {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := visit(shard, key, lists[j]); err != nil {
					return fmt.Errorf("failed to visit key %v: %w", key, err)
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return parent.Err()
}

func (i *Index) Len() int {
	return int(i.numEntries.Load())
}

func (i *Index) NumKeys() int {
	return int(i.numKeys.Load())
}

func (i *Index) NumShards() int {
	return len(i.shards)
}

func (i *Index) GetMemoryFootprint() *common.MemoryFootprint {
	const mapOverhead = 48 // per map entry, approximated
	keys := uintptr(i.NumKeys())
	entries := uintptr(i.Len())
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*i))
	mf.AddChild("shards", common.NewMemoryFootprint(uintptr(len(i.shards))*unsafe.Sizeof(shard{})))
	mf.AddChild("keys", common.NewMemoryFootprint(keys*(unsafe.Sizeof(common.Key{})+mapOverhead)))
	mf.AddChild("entries", common.NewMemoryFootprint(entries*unsafe.Sizeof(index.Entry{})))
	return mf
}

type iterator struct {
	index   *Index
	filter  func(common.Key, index.Entry) bool
	shard   int
	pending []index.KeyedEntry
}

func (it *iterator) HasNext() bool {
	for len(it.pending) == 0 && it.shard < len(it.index.shards) {
		keys, lists := it.index.snapshot(it.shard)
		it.shard++
		for j, key := range keys {
			for _, entry := range lists[j] {
				if it.filter == nil || it.filter(key, entry) {
					it.pending = append(it.pending, index.KeyedEntry{Key: key, Entry: entry})
				}
			}
		}
	}
	return len(it.pending) > 0
}

func (it *iterator) Next() index.KeyedEntry {
	if !it.HasNext() {
		return index.KeyedEntry{}
	}
	res := it.pending[0]
	it.pending = it.pending[1:]
	return res
}

var _ index.Index = (*Index)(nil)
