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
	"errors"
	"testing"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
)

func write(key byte, balance uint64, version uint64) cachedWrite {
	return cachedWrite{
		key:     common.Key{key},
		account: common.Account{Balance: balance},
		version: version,
	}
}

func TestSlotCache_LastWriteWinsByDefault(t *testing.T) {
	cache := newSlotCache(index.DedupKeepLast)
	if err := cache.add([]cachedWrite{write(1, 10, 1), write(2, 20, 2), write(1, 11, 3)}); err != nil {
		t.Fatal(err)
	}
	if account, found := cache.get(common.Key{1}); !found || account.Balance != 11 {
		t.Errorf("unexpected account %v, %t", account, found)
	}
	visible := cache.visible()
	if len(visible) != 2 {
		t.Fatalf("unexpected number of visible writes: %d", len(visible))
	}
	if visible[0].key != (common.Key{1}) || visible[0].account.Balance != 11 {
		t.Errorf("unexpected first write %v", visible[0])
	}
	if visible[1].key != (common.Key{2}) || visible[1].account.Balance != 20 {
		t.Errorf("unexpected second write %v", visible[1])
	}
	if cache.len() != 3 {
		t.Errorf("all writes should be retained until flushed, got %d", cache.len())
	}
}

func TestSlotCache_FirstWriteWinsIfConfigured(t *testing.T) {
	cache := newSlotCache(index.DedupKeepFirst)
	if err := cache.add([]cachedWrite{write(1, 10, 1), write(1, 11, 2)}); err != nil {
		t.Fatal(err)
	}
	if err := cache.add([]cachedWrite{write(1, 12, 3)}); err != nil {
		t.Fatal(err)
	}
	if account, found := cache.get(common.Key{1}); !found || account.Balance != 10 {
		t.Errorf("unexpected account %v, %t", account, found)
	}
	visible := cache.visible()
	if len(visible) != 1 || visible[0].account.Balance != 10 {
		t.Errorf("unexpected visible writes %v", visible)
	}
}

func TestSlotCache_FrozenCacheRejectsWrites(t *testing.T) {
	cache := newSlotCache(index.DedupKeepLast)
	if err := cache.add([]cachedWrite{write(1, 10, 1)}); err != nil {
		t.Fatal(err)
	}
	writes, err := cache.freeze()
	if err != nil {
		t.Fatal(err)
	}
	if len(writes) != 1 {
		t.Errorf("unexpected writes %v", writes)
	}
	if err := cache.add([]cachedWrite{write(2, 10, 2)}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := cache.freeze(); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
	if _, found := cache.get(common.Key{1}); !found {
		t.Errorf("frozen cache should still be readable")
	}

	cache.unfreeze()
	if err := cache.add([]cachedWrite{write(2, 10, 2)}); err != nil {
		t.Errorf("unfrozen cache should accept writes: %v", err)
	}
}

func TestSlotCache_KeysAndMemoryUsage(t *testing.T) {
	cache := newSlotCache(index.DedupKeepLast)
	if cache.memoryUsage() != 0 {
		t.Errorf("empty cache should not use memory")
	}
	w := write(1, 10, 1)
	w.account.Data = make([]byte, 1000)
	if err := cache.add([]cachedWrite{w, write(2, 1, 2), write(1, 2, 3)}); err != nil {
		t.Fatal(err)
	}
	if keys := cache.keys(); len(keys) != 2 {
		t.Errorf("unexpected keys %v", keys)
	}
	if cache.memoryUsage() < 1000 {
		t.Errorf("memory usage should cover payloads, got %d", cache.memoryUsage())
	}
}

func TestSlotCache_WritesArrivingOutOfVersionOrderAreResolvedByVersion(t *testing.T) {
	tests := map[index.DedupPolicy]uint64{
		index.DedupKeepLast:  11,
		index.DedupKeepFirst: 10,
	}
	for policy, want := range tests {
		t.Run(policy.String(), func(t *testing.T) {
			cache := newSlotCache(policy)
			// the batch with the higher version is added first
			if err := cache.add([]cachedWrite{write(1, 11, 5), write(2, 20, 6)}); err != nil {
				t.Fatal(err)
			}
			if err := cache.add([]cachedWrite{write(1, 10, 3)}); err != nil {
				t.Fatal(err)
			}
			if account, found := cache.get(common.Key{1}); !found || account.Balance != want {
				t.Errorf("unexpected account %v, %t", account, found)
			}
			visible := cache.visible()
			if len(visible) != 2 || visible[0].account.Balance != want {
				t.Errorf("unexpected visible writes %v", visible)
			}
		})
	}
}

func TestSlotCache_DroppedCacheRejectsWritesEvenAfterUnfreeze(t *testing.T) {
	cache := newSlotCache(index.DedupKeepLast)
	cache.drop()
	if err := cache.add([]cachedWrite{write(1, 10, 1)}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
	cache.unfreeze()
	if err := cache.add([]cachedWrite{write(1, 10, 1)}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
}
