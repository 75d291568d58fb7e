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
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/Fantom-foundation/accountsdb/common/heap"
)

// Visitor is called for every account produced by a scan. Calls are
// serialized but not ordered. Returning an error aborts the scan. Matching
// accounts are collected before the first call, so a visitor may use the
// store, including loading accounts, without blocking compaction.
type Visitor func(key common.Key, account common.Account) error

func visitAll(accounts []common.KeyedAccount, visit Visitor) error {
	for i := range accounts {
		if err := visit(accounts[i].Key, accounts[i].Account); err != nil {
			return err
		}
	}
	return nil
}

// ScanByOwner visits all accounts owned by the given program that are
// visible on the fork with the given ancestors. Each index shard is observed
// at a single point in time; writes concurrent to the scan may be missed.
func (s *Store) ScanByOwner(owner common.Key, ancestors Ancestors, visit Visitor) error {
	start := time.Now()
	var matches []common.KeyedAccount
	err := s.scanVisible(ancestors, func(key common.Key, account *common.Account) error {
		if account.Owner == owner {
			matches = append(matches, common.KeyedAccount{Key: key, Account: *account})
		}
		return nil
	})
	mxScanTook.UpdateDuration(start)
	if err != nil {
		return err
	}
	return visitAll(matches, visit)
}

// ScanRooted visits all accounts visible at the given root.
func (s *Store) ScanRooted(ctx context.Context, root common.Slot, visit Visitor) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.roots.IsRooted(root) {
		return fmt.Errorf("%w: %d", ErrNotRooted, root)
	}
	start := time.Now()
	accounts, err := s.collectRooted(ctx, root)
	mxScanTook.UpdateDuration(start)
	if err != nil {
		return err
	}
	return visitAll(accounts, visit)
}

func (s *Store) collectRooted(ctx context.Context, root common.Slot) ([]common.KeyedAccount, error) {
	s.maintMu.Lock()
	defer s.maintMu.Unlock()
	if s.cleaned && root < s.cleanHorizon {
		return nil, fmt.Errorf("%w: root %d is below cleaning horizon %d", ErrStateUnavailable, root, s.cleanHorizon)
	}
	s.segments.gate.RLock()
	defer s.segments.gate.RUnlock()
	var mu sync.Mutex
	var res []common.KeyedAccount
	err := s.index.ForEachShard(ctx, s.config.Workers, func(_ int, key common.Key, entries []index.Entry) error {
		entry, found := rootedEntryAtMost(entries, root, s.roots.IsRooted)
		if !found || entry.Info.Tombstone {
			return nil
		}
		account, err := s.readRecord(key, entry.Slot, entry.Info)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		res = append(res, common.KeyedAccount{Key: key, Account: account})
		return nil
	})
	return res, err
}

type cachedVersion struct {
	slot    common.Slot
	account common.Account
}

// cachedVisible collects the newest unflushed version of every key written
// on the fork with the given ancestors.
func (s *Store) cachedVisible(ancestors Ancestors) map[common.Key]cachedVersion {
	s.cacheMu.RLock()
	caches := map[common.Slot]*slotCache{}
	for slot, cache := range s.caches {
		if ancestors.Contains(slot) {
			caches[slot] = cache
		}
	}
	s.cacheMu.RUnlock()

	res := map[common.Key]cachedVersion{}
	for slot, cache := range caches {
		for _, key := range cache.keys() {
			if cur, found := res[key]; found && cur.slot > slot {
				continue
			}
			if account, found := cache.get(key); found {
				res[key] = cachedVersion{slot: slot, account: account}
			}
		}
	}
	return res
}

// scanVisible visits every non-deleted account visible on the given fork.
func (s *Store) scanVisible(ancestors Ancestors, visit func(common.Key, *common.Account) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	cached := s.cachedVisible(ancestors)

	s.segments.gate.RLock()
	defer s.segments.gate.RUnlock()
	var mu sync.Mutex
	superseded := map[common.Key]struct{}{} // < cached versions older than indexed ones
	err := s.index.ForEachShard(s.ctx, s.config.Workers, func(_ int, key common.Key, entries []index.Entry) error {
		entry, found := visibleEntry(entries, ancestors, s.roots.IsRooted)
		if !found {
			return nil
		}
		version, inCache := cached[key]
		if inCache && version.slot >= entry.Slot {
			return nil
		}
		if inCache {
			mu.Lock()
			superseded[key] = struct{}{}
			mu.Unlock()
		}
		if entry.Info.Tombstone {
			return nil
		}
		account, err := s.readRecord(key, entry.Slot, entry.Info)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return visit(key, &account)
	})
	if err != nil {
		return err
	}

	for key, version := range cached {
		if _, skip := superseded[key]; skip || version.account.IsTombstone() {
			continue
		}
		account := version.account.Clone()
		if err := visit(key, &account); err != nil {
			return err
		}
	}
	return nil
}

// KeyedBalance is an account key together with its balance.
type KeyedBalance struct {
	Key     common.Key
	Balance uint64
}

// AccountFilterMode determines how the key set passed to LoadLargestAccounts
// is applied.
type AccountFilterMode int

const (
	// ExcludeAccounts considers all accounts except the listed ones.
	ExcludeAccounts AccountFilterMode = iota
	// IncludeAccounts considers only the listed accounts.
	IncludeAccounts
)

// LoadLargestAccounts returns the n accounts with the highest balances
// visible on the fork with the given ancestors, ordered by decreasing
// balance. Accounts with equal balances are ordered by key.
func (s *Store) LoadLargestAccounts(ancestors Ancestors, n int, keys []common.Key, mode AccountFilterMode) ([]KeyedBalance, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	start := time.Now()
	defer mxLargestTook.UpdateDuration(start)

	// the weakest candidate is on top so it can be evicted
	top := heap.New(func(a, b KeyedBalance) int {
		if ranksBelow(a, b) {
			return 1
		}
		if ranksBelow(b, a) {
			return -1
		}
		return 0
	})
	offer := func(candidate KeyedBalance) {
		top.Add(candidate)
		if top.Size() > n {
			top.Pop()
		}
	}

	if mode == IncludeAccounts {
		seen := make(map[common.Key]struct{}, len(keys))
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			account, found, err := s.Load(key, ancestors)
			if err != nil {
				return nil, err
			}
			if found {
				offer(KeyedBalance{Key: key, Balance: account.Balance})
			}
		}
	} else {
		excluded := make(map[common.Key]struct{}, len(keys))
		for _, key := range keys {
			excluded[key] = struct{}{}
		}
		err := s.scanVisible(ancestors, func(key common.Key, account *common.Account) error {
			if _, skip := excluded[key]; !skip {
				offer(KeyedBalance{Key: key, Balance: account.Balance})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	res := top.Elements()
	sort.Slice(res, func(i, j int) bool {
		return ranksBelow(res[j], res[i])
	})
	return res, nil
}

// ranksBelow orders balances decreasingly with ties broken by increasing key.
func ranksBelow(a, b KeyedBalance) bool {
	if a.Balance != b.Balance {
		return a.Balance < b.Balance
	}
	return a.Key.Compare(b.Key) > 0
}
