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
	"sort"
	"time"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/hashing"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
)

// Load returns the version of the given account visible on the fork with the
// given ancestors. Deleted and unknown accounts are reported as not found.
func (s *Store) Load(key common.Key, ancestors Ancestors) (common.Account, bool, error) {
	account, _, found, err := s.LoadWithSlot(key, ancestors)
	return account, found, err
}

// LoadWithSlot is like Load but also returns the slot the visible version was
// written in.
func (s *Store) LoadWithSlot(key common.Key, ancestors Ancestors) (common.Account, common.Slot, bool, error) {
	if err := s.checkOpen(); err != nil {
		return common.Account{}, 0, false, err
	}
	start := time.Now()
	defer mxLoadTook.UpdateDuration(start)
	mxLoads.Inc()

	account, slot, found, err := s.loadVisible(key, ancestors)
	if err != nil || !found || account.IsTombstone() {
		mxLoadMisses.Inc()
		return common.Account{}, 0, false, err
	}
	return account, slot, true, nil
}

// loadVisible selects the visible version of a key, including deleted ones.
func (s *Store) loadVisible(key common.Key, ancestors Ancestors) (common.Account, common.Slot, bool, error) {
	if !s.filter.Contains(key) {
		mxFilterSkips.Inc()
		return common.Account{}, 0, false, nil
	}

	// write caches are consulted before the index since a flush publishes
	// index entries before it drops the cache
	cached, cachedSlot, inCache := s.loadCached(key, ancestors)

	s.segments.gate.RLock()
	defer s.segments.gate.RUnlock()
	entry, inIndex := visibleEntry(s.index.GetAll(key), ancestors, s.roots.IsRooted)
	if inCache && (!inIndex || cachedSlot >= entry.Slot) {
		return cached.Clone(), cachedSlot, true, nil
	}
	if !inIndex {
		return common.Account{}, 0, false, nil
	}
	account, err := s.loadEntry(key, entry)
	if err != nil {
		return common.Account{}, 0, false, err
	}
	return account, entry.Slot, true, nil
}

// loadCached looks up the newest unflushed version of a key on the fork.
func (s *Store) loadCached(key common.Key, ancestors Ancestors) (common.Account, common.Slot, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	var res common.Account
	var resSlot common.Slot
	found := false
	for slot, cache := range s.caches {
		if (found && slot <= resSlot) || !ancestors.Contains(slot) {
			continue
		}
		if account, exists := cache.get(key); exists {
			res, resSlot, found = account, slot, true
		}
	}
	return res, resSlot, found
}

// loadEntry reads the record referenced by an index entry. The caller must
// hold the reclaim gate.
func (s *Store) loadEntry(key common.Key, entry index.Entry) (common.Account, error) {
	id := versionKey{key: key, slot: entry.Slot}
	if account, found := s.readCache.Get(id); found {
		mxReadCacheHits.Inc()
		return account.Clone(), nil
	}
	account, err := s.readRecord(key, entry.Slot, entry.Info)
	if err != nil {
		return common.Account{}, err
	}
	s.readCache.Add(id, account)
	return account.Clone(), nil
}

// readRecord reads a record and checks that it is the expected one. The
// caller must hold the reclaim gate.
func (s *Store) readRecord(key common.Key, slot common.Slot, info common.AccountInfo) (common.Account, error) {
	stored, account, err := s.segments.readAccount(info.Location)
	if err == nil && (stored.Key != key || stored.Slot != slot) {
		err = fmt.Errorf("%w: found key %v of slot %d", ErrCorruptSegment, stored.Key, stored.Slot)
	}
	if err != nil {
		return common.Account{}, s.check(fmt.Errorf("failed to read key %v of slot %d at %v: %w", key, slot, info.Location, err))
	}
	return account, nil
}

// recordSource resolves index entries for hash computations. The caller of
// the hash computation holds the reclaim gate.
type recordSource struct {
	store *Store
}

func (r recordSource) LoadStored(key common.Key, info common.AccountInfo) (common.Account, error) {
	stored, account, err := r.store.segments.readAccount(info.Location)
	if err == nil && stored.Key != key {
		err = fmt.Errorf("%w: found key %v", ErrCorruptSegment, stored.Key)
	}
	return account, err
}

var _ hashing.RecordSource = recordSource{}

// StoredVersion is a raw record of an account found in the segments.
type StoredVersion struct {
	Slot         common.Slot
	WriteVersion uint64
	Location     common.StorageLocation
	Account      common.Account
	Indexed      bool // < set if the index still references the record
}

// FindStoredVersions lists all records of the given key still present in the
// segments, including versions superseded or removed from the index but not
// reclaimed yet. Results are ordered by slot and write version.
func (s *Store) FindStoredVersions(key common.Key) ([]StoredVersion, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.segments.gate.RLock()
	defer s.segments.gate.RUnlock()

	indexed := map[common.StorageLocation]bool{}
	for _, entry := range s.index.GetAll(key) {
		indexed[entry.Info.Location] = true
	}
	var res []StoredVersion
	for _, seg := range s.segments.candidatesFor(key) {
		_, err := seg.store.Scan(func(offset uint64, stored appendstore.StoredAccount) error {
			if stored.Key != key {
				return nil
			}
			location := common.StorageLocation{Segment: seg.id, Offset: offset}
			res = append(res, StoredVersion{
				Slot:         stored.Slot,
				WriteVersion: stored.WriteVersion,
				Location:     location,
				Account:      stored.ToAccount(),
				Indexed:      indexed[location],
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment %d: %w", seg.id, err)
		}
	}
	sortVersions(res)
	return res, nil
}

func sortVersions(versions []StoredVersion) {
	sort.Slice(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.WriteVersion < b.WriteVersion
	})
}
