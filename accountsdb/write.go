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
	"fmt"
	"time"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
)

// Store adds the given accounts to the write cache of a slot. Accounts are
// copied; the caller may reuse the batch. If a key is written more than once
// in a slot, the configured dedup policy decides which write survives.
func (s *Store) Store(slot common.Slot, accounts []common.KeyedAccount) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if len(accounts) == 0 {
		return nil
	}
	for _, account := range accounts {
		if uint64(len(account.Account.Data)) > s.config.MaxDataLength.Bytes() {
			return fmt.Errorf("%w: %d bytes for key %v", ErrDataTooLarge, len(account.Account.Data), account.Key)
		}
	}

	n := uint64(len(accounts))
	first := s.writeVersion.Add(n) - n + 1
	writes := make([]cachedWrite, len(accounts))
	for i := range accounts {
		writes[i] = cachedWrite{
			key:     accounts[i].Key,
			account: accounts[i].Account.Clone(),
			version: first + uint64(i),
		}
	}

	s.cacheMu.Lock()
	if s.hasRoot && slot <= s.latestRoot {
		s.cacheMu.Unlock()
		return fmt.Errorf("%w: slot %d is not above root %d", ErrSlotFrozen, slot, s.latestRoot)
	}
	if s.flushed.Contains(uint64(slot)) {
		s.cacheMu.Unlock()
		return fmt.Errorf("%w: slot %d already flushed", ErrSlotFrozen, slot)
	}
	cache, found := s.caches[slot]
	if !found {
		cache = newSlotCache(s.config.DedupPolicy)
		s.caches[slot] = cache
	}
	s.cacheMu.Unlock()

	// keys need to be in the filter before they become visible
	for i := range writes {
		s.filter.Add(writes[i].key)
	}
	if err := cache.add(writes); err != nil {
		return fmt.Errorf("%w: slot %d no longer accepts writes", err, slot)
	}
	mxWrites.Add(len(writes))
	return nil
}

// Flush moves the write cache of a slot into the segments and the index and
// records the delta hash of the slot. Afterwards the slot is frozen. Flushing
// a slot twice has no effect.
func (s *Store) Flush(slot common.Slot) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.cacheMu.Lock()
	if s.flushed.Contains(uint64(slot)) {
		s.cacheMu.Unlock()
		return nil
	}
	if s.hasRoot && slot <= s.latestRoot {
		s.cacheMu.Unlock()
		return fmt.Errorf("%w: slot %d is not above root %d", ErrSlotFrozen, slot, s.latestRoot)
	}
	cache, found := s.caches[slot]
	if !found {
		cache = newSlotCache(s.config.DedupPolicy)
		s.caches[slot] = cache
	}
	s.cacheMu.Unlock()

	start := time.Now()
	writes, err := cache.freeze()
	if err != nil {
		return err
	}
	if err := s.flush(slot, writes); err != nil {
		cache.unfreeze()
		return s.check(err)
	}

	s.cacheMu.Lock()
	s.flushed.Add(uint64(slot))
	delete(s.caches, slot)
	s.cacheMu.Unlock()
	mxFlushTook.UpdateDuration(start)
	s.log.Trace("Flushed slot", "slot", slot, "accounts", len(writes), "elapsed", time.Since(start))
	return nil
}

func (s *Store) flush(slot common.Slot, writes []cachedWrite) error {
	accounts := make([]common.KeyedAccount, len(writes))
	storables := make([]appendstore.StorableAccount, len(writes))
	for i := range writes {
		accounts[i] = common.KeyedAccount{Key: writes[i].key, Account: writes[i].account}
		storables[i] = appendstore.StorableAccount{
			Key:          writes[i].key,
			Account:      &writes[i].account,
			WriteVersion: writes[i].version,
		}
	}
	delta := s.engine.DeltaHash(accounts)

	infos, err := s.segments.append(slot, storables)
	if err != nil {
		return fmt.Errorf("failed to store slot %d: %w", slot, err)
	}
	var replaced []index.KeyedEntry
	for i, info := range infos {
		mxFlushedBytes.Add(int(info.StoredSize))
		if previous, found := s.index.Upsert(writes[i].key, slot, info); found {
			replaced = append(replaced, index.KeyedEntry{Key: writes[i].key, Entry: index.Entry{Slot: slot, Info: previous}})
		}
	}
	if len(replaced) > 0 {
		// left behind by an earlier failed attempt to flush the slot
		s.segments.free(replaced)
	}
	if err := s.rootLog.SetDeltaHash(slot, delta); err != nil {
		return fmt.Errorf("failed to record delta hash of slot %d: %w", slot, err)
	}
	return nil
}

// AddRoot marks the given slot as rooted. The slot is flushed first. Roots
// must be added in increasing order; adding the latest root again has no
// effect. Write caches of slots below the new root are discarded since they
// belong to abandoned forks.
func (s *Store) AddRoot(slot common.Slot) error {
	if err := s.addRoot(slot); err != nil {
		return err
	}
	if s.config.HashOnRoot {
		if _, _, err := s.CalculateFullHash(s.ctx, slot); err != nil {
			return fmt.Errorf("failed to hash root %d: %w", slot, err)
		}
	}
	if s.config.CleanOnRoot {
		if _, err := s.Clean(slot); err != nil {
			return fmt.Errorf("failed to clean up to root %d: %w", slot, err)
		}
	}
	return nil
}

func (s *Store) addRoot(slot common.Slot) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	s.rootMu.Lock()
	defer s.rootMu.Unlock()
	if latest, found := s.roots.max(); found {
		if slot == latest {
			return nil
		}
		if slot < latest {
			return fmt.Errorf("%w: %d is below root %d", ErrRootNotMonotonic, slot, latest)
		}
	}
	if err := s.Flush(slot); err != nil {
		return err
	}
	if err := s.rootLog.AddRoot(slot); err != nil {
		return fmt.Errorf("failed to record root %d: %w", slot, err)
	}
	s.roots.add(slot)

	s.cacheMu.Lock()
	s.latestRoot, s.hasRoot = slot, true
	discarded := 0
	for cached, cache := range s.caches {
		if cached < slot {
			// a Store that fetched the cache before may still be adding to it
			cache.drop()
			delete(s.caches, cached)
			discarded++
		}
	}
	s.flushed.RemoveRange(0, uint64(slot)+1)
	s.cacheMu.Unlock()

	mxRoots.Inc()
	s.log.Debug("Added root", "slot", slot, "discardedSlots", discarded)
	return nil
}

// CalculateDeltaHash returns the hash of the accounts written in the given
// slot. For flushed slots the hash recorded during the flush is returned.
func (s *Store) CalculateDeltaHash(slot common.Slot) (common.Hash, error) {
	if err := s.checkOpen(); err != nil {
		return common.Hash{}, err
	}
	start := time.Now()
	defer mxDeltaHashTook.UpdateDuration(start)

	s.cacheMu.RLock()
	cache, found := s.caches[slot]
	s.cacheMu.RUnlock()
	if found {
		writes := cache.visible()
		accounts := make([]common.KeyedAccount, len(writes))
		for i := range writes {
			accounts[i] = common.KeyedAccount{Key: writes[i].key, Account: writes[i].account}
		}
		return s.engine.DeltaHash(accounts), nil
	}
	hash, found, err := s.rootLog.GetDeltaHash(slot)
	if err != nil {
		return common.Hash{}, err
	}
	if !found {
		return common.Hash{}, fmt.Errorf("%w: %d", ErrUnknownSlot, slot)
	}
	return hash, nil
}
