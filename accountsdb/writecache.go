// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package accountsdb

import (
	"sort"
	"sync"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
)

// cachedWrite is an account written to a slot that has not been flushed yet.
type cachedWrite struct {
	key     common.Key
	account common.Account
	version uint64 // < store-wide write order
}

func keyOfWrite(w *cachedWrite) common.Key {
	return w.key
}

// slotCache collects the writes of a single unflushed slot. Once frozen for
// flushing, no more writes are accepted.
type slotCache struct {
	mu      sync.RWMutex
	policy  index.DedupPolicy
	writes  []cachedWrite
	current map[common.Key]int // < position of the write visible for a key
	frozen  bool
	dropped bool // < discarded as part of an abandoned fork, never unfrozen
}

func newSlotCache(policy index.DedupPolicy) *slotCache {
	return &slotCache{policy: policy, current: map[common.Key]int{}}
}

func (c *slotCache) add(writes []cachedWrite) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen || c.dropped {
		return ErrSlotFrozen
	}
	for _, write := range writes {
		c.writes = append(c.writes, write)
		if pos, exists := c.current[write.key]; exists && !c.supersedes(&write, &c.writes[pos]) {
			continue
		}
		c.current[write.key] = len(c.writes) - 1
	}
	return nil
}

// supersedes reports whether a write replaces an existing write of the same
// key. Concurrent batches may reach the cache out of version order, so the
// decision is based on versions, not on arrival.
func (c *slotCache) supersedes(write, existing *cachedWrite) bool {
	if c.policy == index.DedupKeepFirst {
		return write.version < existing.version
	}
	return write.version > existing.version
}

func (c *slotCache) get(key common.Key) (common.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, found := c.current[key]
	if !found {
		return common.Account{}, false
	}
	return c.writes[pos].account, true
}

// visible returns the current write of every key, ordered by key.
func (c *slotCache) visible() []cachedWrite {
	c.mu.RLock()
	writes := make([]cachedWrite, len(c.writes))
	copy(writes, c.writes)
	c.mu.RUnlock()
	sort.Slice(writes, func(i, j int) bool {
		return writes[i].version < writes[j].version
	})
	return index.SortAndRemoveDups(writes, keyOfWrite, c.policy)
}

// freeze stops accepting writes and returns the current write of every key.
func (c *slotCache) freeze() ([]cachedWrite, error) {
	c.mu.Lock()
	if c.frozen {
		c.mu.Unlock()
		return nil, ErrSlotFrozen
	}
	c.frozen = true
	c.mu.Unlock()
	return c.visible(), nil
}

// drop permanently rejects further writes. Batches added before are lost
// together with the cache.
func (c *slotCache) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped = true
}

// unfreeze re-enables writes after a failed flush.
func (c *slotCache) unfreeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = false
}

func (c *slotCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.writes)
}

func (c *slotCache) keys() []common.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make([]common.Key, 0, len(c.current))
	for key := range c.current {
		res = append(res, key)
	}
	return res
}

func (c *slotCache) memoryUsage() uintptr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	const perWrite = 160 // < key, account header and map entry, approximated
	res := uintptr(0)
	for _, w := range c.writes {
		res += perWrite + uintptr(len(w.account.Data))
	}
	return res
}
