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
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/backend/rootlog"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/c2h5oh/datasize"
	"github.com/ledgerwatch/log/v3"
	"go.uber.org/mock/gomock"
)

func testConfig(directory string) Config {
	return Config{
		Directory:     directory,
		SegmentSize:   testSegmentSize * datasize.B,
		MaxDataLength: 8 * datasize.KB,
		NumShards:     16,
		ExpectedKeys:  1 << 12,
		ReadCacheSize: 64,
		Workers:       4,
		Logger:        log.New(),
	}
}

func openTestStore(t *testing.T, config Config) *Store {
	t.Helper()
	store, err := Open(config)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func key(i int) common.Key {
	return common.KeyFromBytes([]byte{byte(i >> 8), byte(i)})
}

func balance(key common.Key, value uint64) common.KeyedAccount {
	return common.KeyedAccount{Key: key, Account: common.Account{Balance: value}}
}

func owned(key common.Key, owner common.Key, value uint64) common.KeyedAccount {
	return common.KeyedAccount{Key: key, Account: common.Account{Owner: owner, Balance: value}}
}

func mustStore(t *testing.T, store *Store, slot common.Slot, accounts ...common.KeyedAccount) {
	t.Helper()
	if err := store.Store(slot, accounts); err != nil {
		t.Fatalf("failed to store accounts in slot %d: %v", slot, err)
	}
}

func mustRoot(t *testing.T, store *Store, slots ...common.Slot) {
	t.Helper()
	for _, slot := range slots {
		if err := store.AddRoot(slot); err != nil {
			t.Fatalf("failed to root slot %d: %v", slot, err)
		}
	}
}

func expectBalance(t *testing.T, store *Store, key common.Key, ancestors Ancestors, want uint64) {
	t.Helper()
	account, found, err := store.Load(key, ancestors)
	if err != nil {
		t.Fatalf("failed to load %v: %v", key, err)
	}
	if !found {
		t.Fatalf("account %v not found on fork %v", key, ancestors.Slots())
	}
	if account.Balance != want {
		t.Errorf("unexpected balance of %v on fork %v, wanted %d, got %d", key, ancestors.Slots(), want, account.Balance)
	}
}

func expectAbsent(t *testing.T, store *Store, key common.Key, ancestors Ancestors) {
	t.Helper()
	account, found, err := store.Load(key, ancestors)
	if err != nil {
		t.Fatalf("failed to load %v: %v", key, err)
	}
	if found {
		t.Errorf("account %v should be absent on fork %v, got %v", key, ancestors.Slots(), account)
	}
}

func TestStore_UnknownAccountsAreNotFound(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	expectAbsent(t, store, key(1), NewAncestors())
	expectAbsent(t, store, key(1), NewAncestors(1, 2))
}

func TestStore_WritesAreVisibleOnTheirForkBeforeAndAfterFlush(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	data := []byte{1, 2, 3}
	mustStore(t, store, 1, common.KeyedAccount{Key: key(1), Account: common.Account{
		Owner: key(9), Balance: 5, Executable: true, RentEpoch: 7, Data: data,
	}})
	data[0] = 42 // < the store must not alias the caller's buffer

	check := func() {
		account, found, err := store.Load(key(1), NewAncestors(1))
		if err != nil || !found {
			t.Fatalf("failed to load account: %v, %t", err, found)
		}
		want := common.Account{Owner: key(9), Balance: 5, Executable: true, RentEpoch: 7, Data: []byte{1, 2, 3}}
		if !account.Equal(&want) {
			t.Errorf("unexpected account, wanted %v, got %v", want, account)
		}
	}
	check()
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	check()
	expectAbsent(t, store, key(1), NewAncestors(2))
}

func TestStore_ForksSeeOnlyTheirOwnWrites(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	mustRoot(t, store, 1)

	// two forks on top of root 1
	mustStore(t, store, 2, balance(key(1), 2))
	mustStore(t, store, 3, balance(key(1), 3))
	if err := store.Flush(3); err != nil {
		t.Fatal(err)
	}

	expectBalance(t, store, key(1), NewAncestors(2), 2)
	expectBalance(t, store, key(1), NewAncestors(3), 3)
	expectBalance(t, store, key(1), NewAncestors(4), 1)
	expectBalance(t, store, key(1), NewAncestors(), 1)
}

func TestStore_NewestAncestorWins(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	mustStore(t, store, 2, balance(key(1), 2))
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	mustStore(t, store, 3, balance(key(2), 3))
	expectBalance(t, store, key(1), NewAncestors(1, 2, 3), 2)
	expectBalance(t, store, key(1), NewAncestors(1, 3), 1)
	expectAbsent(t, store, key(1), NewAncestors(3))
}

func TestStore_RootedVersionsBelowOldestAncestorAreVisible(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	mustStore(t, store, 4, balance(key(1), 4))
	mustRoot(t, store, 1, 4)
	expectBalance(t, store, key(1), NewAncestors(6, 5), 4)
	expectBalance(t, store, key(1), NewAncestors(3), 1)
	expectAbsent(t, store, key(1), NewAncestors(0))
}

func TestStore_DeletedAccountsAreAbsent(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	mustStore(t, store, 2, balance(key(1), 0))
	expectAbsent(t, store, key(1), NewAncestors(1, 2))
	expectBalance(t, store, key(1), NewAncestors(1), 1)
	mustRoot(t, store, 1, 2)
	expectAbsent(t, store, key(1), NewAncestors())
}

func TestStore_LastWriteInSlotWinsByDefault(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1), balance(key(1), 2))
	mustStore(t, store, 1, balance(key(1), 3))
	expectBalance(t, store, key(1), NewAncestors(1), 3)
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	expectBalance(t, store, key(1), NewAncestors(1), 3)
	if got := len(store.index.GetAll(key(1))); got != 1 {
		t.Errorf("slot should be indexed once, got %d entries", got)
	}
}

func TestStore_FirstWriteInSlotWinsIfConfigured(t *testing.T) {
	config := testConfig("")
	config.DedupPolicy = index.DedupKeepFirst
	store := openTestStore(t, config)
	mustStore(t, store, 1, balance(key(1), 1), balance(key(1), 2))
	expectBalance(t, store, key(1), NewAncestors(1), 1)
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	expectBalance(t, store, key(1), NewAncestors(1), 1)
}

func TestStore_FlushedSlotsAreFrozen(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	if err := store.Store(1, []common.KeyedAccount{balance(key(2), 2)}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := store.Flush(1); err != nil {
		t.Errorf("repeated flush should be a no-op: %v", err)
	}
	expectAbsent(t, store, key(2), NewAncestors(1))
}

func TestStore_SlotsNotAboveLatestRootAreFrozen(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 5, balance(key(1), 1))
	mustRoot(t, store, 5)
	for _, slot := range []common.Slot{3, 5} {
		if err := store.Store(slot, []common.KeyedAccount{balance(key(2), 2)}); !errors.Is(err, ErrSlotFrozen) {
			t.Errorf("unexpected error for slot %d: %v", slot, err)
		}
	}
	if err := store.Flush(4); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
	mustStore(t, store, 6, balance(key(2), 2))
}

func TestStore_OversizedDataIsRejected(t *testing.T) {
	config := testConfig("")
	config.MaxDataLength = datasize.KB
	store := openTestStore(t, config)
	err := store.Store(1, []common.KeyedAccount{{Key: key(1), Account: common.Account{Balance: 1, Data: make([]byte, 1025)}}})
	if !errors.Is(err, ErrDataTooLarge) {
		t.Errorf("unexpected error: %v", err)
	}
	expectAbsent(t, store, key(1), NewAncestors(1))
}

func TestStore_RecordsLargerThanSegmentsAreSupported(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	data := make([]byte, 3000)
	data[2999] = 7
	mustStore(t, store, 1, common.KeyedAccount{Key: key(1), Account: common.Account{Balance: 1, Data: data}}, balance(key(2), 2))
	mustRoot(t, store, 1)

	account, found, err := store.Load(key(1), NewAncestors())
	if err != nil || !found {
		t.Fatalf("failed to load account: %v, %t", err, found)
	}
	if len(account.Data) != 3000 || account.Data[2999] != 7 {
		t.Errorf("unexpected data of oversized account")
	}
	expectBalance(t, store, key(2), NewAncestors(), 2)
}

func TestStore_RootsMustBeMonotonic(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustRoot(t, store, 3)
	if err := store.AddRoot(3); err != nil {
		t.Errorf("re-adding the latest root should be a no-op: %v", err)
	}
	if err := store.AddRoot(2); !errors.Is(err, ErrRootNotMonotonic) {
		t.Errorf("unexpected error: %v", err)
	}
	mustRoot(t, store, 4)
	if info := store.Info(); info.Roots != 2 || info.LatestRoot != 4 || !info.HasRoot {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestStore_RootingDiscardsAbandonedForks(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 2, balance(key(1), 2))
	mustStore(t, store, 3, balance(key(1), 3))
	mustStore(t, store, 5, balance(key(1), 5))
	mustRoot(t, store, 3)

	info := store.Info()
	if info.CachedSlots != 1 || info.CachedWrites != 1 {
		t.Errorf("only the cache of slot 5 should remain, got %+v", info)
	}
	expectAbsent(t, store, key(1), NewAncestors(2))
	expectBalance(t, store, key(1), NewAncestors(5), 5)
	expectBalance(t, store, key(1), NewAncestors(), 3)
}

func TestStore_WritesRacingWithRootingAreRejected(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 2, balance(key(1), 2))

	// a writer that fetched the cache of slot 2 before the root was added
	store.cacheMu.RLock()
	cache := store.caches[2]
	store.cacheMu.RUnlock()
	mustRoot(t, store, 3)

	if err := cache.add([]cachedWrite{{key: key(2), account: common.Account{Balance: 2}, version: 100}}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("writes into a discarded cache should fail, got %v", err)
	}
	if err := store.Store(2, []common.KeyedAccount{balance(key(2), 2)}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStore_ConcurrentWritesOfTheSameKeyKeepTheNewestVersion(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	const writers = 8
	const rounds = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if err := store.Store(1, []common.KeyedAccount{balance(key(1), uint64(w*rounds+r+1))}); err != nil {
					t.Errorf("failed to store: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	store.cacheMu.RLock()
	cache := store.caches[1]
	store.cacheMu.RUnlock()
	newest := cachedWrite{}
	for _, write := range cache.writes {
		if write.version > newest.version {
			newest = write
		}
	}
	expectBalance(t, store, key(1), NewAncestors(1), newest.account.Balance)
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	expectBalance(t, store, key(1), NewAncestors(1), newest.account.Balance)
}

func TestStore_UnflushedSlotsAreDiscardedOnClose(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	mustStore(t, store, 1, balance(key(1), 1))
	mustStore(t, store, 2, balance(key(2), 2))
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store = openTestStore(t, testConfig(dir))
	expectBalance(t, store, key(1), NewAncestors(1), 1)
	expectAbsent(t, store, key(2), NewAncestors(2))
	if err := store.Store(1, []common.KeyedAccount{balance(key(3), 3)}); !errors.Is(err, ErrSlotFrozen) {
		t.Errorf("flushed slot should stay frozen after reopening: %v", err)
	}
}

func TestStore_ClosedStoreRejectsOperations(t *testing.T) {
	store, err := Open(testConfig(""))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("closing twice should be fine: %v", err)
	}
	if _, _, err := store.Load(key(1), NewAncestors()); !errors.Is(err, ErrClosed) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := store.Store(1, []common.KeyedAccount{balance(key(1), 1)}); !errors.Is(err, ErrClosed) {
		t.Errorf("unexpected error: %v", err)
	}
	if err := store.AddRoot(1); !errors.Is(err, ErrClosed) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStore_DirectoryIsLockedWhileOpen(t *testing.T) {
	dir := t.TempDir()
	store := openTestStore(t, testConfig(dir))
	if _, err := Open(testConfig(dir)); err == nil {
		t.Errorf("opening a store twice should fail")
	}
	if dirty, err := isDirty(dir); err != nil || !dirty {
		t.Errorf("open store should mark its directory dirty: %t, %v", dirty, err)
	}
	_ = store
}

func TestStore_CleanCloseMarksDirectoryCleanAndWritesMetadata(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(testConfig(dir))
	if err != nil {
		t.Fatal(err)
	}
	mustStore(t, store, 1, balance(key(1), 1))
	mustRoot(t, store, 1)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if dirty, err := isDirty(dir); err != nil || dirty {
		t.Errorf("closed store should mark its directory clean: %t, %v", dirty, err)
	}
	meta, found, err := readMetadata(dir)
	if err != nil || !found {
		t.Fatalf("failed to read metadata: %v, %t", err, found)
	}
	if meta.LatestRoot == nil || *meta.LatestRoot != 1 || meta.SegmentSize != testSegmentSize {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if _, err := os.Stat(filepath.Join(dir, segmentsDirName, "0.seg")); err != nil {
		t.Errorf("segment file missing: %v", err)
	}
}

func TestStore_InvalidConfigurationIsRejected(t *testing.T) {
	config := testConfig("")
	config.SegmentSize = 100
	if _, err := Open(config); err == nil {
		t.Errorf("too small segments should be rejected")
	}
	config = testConfig("")
	config.ShrinkRatio = 2
	if _, err := Open(config); err == nil {
		t.Errorf("invalid shrink ratio should be rejected")
	}
}

func TestStore_ConcurrentReadersObserveMonotonicRoots(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	mustRoot(t, store, 1)

	const slots = 50
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := uint64(0)
			for i := 0; i < 200; i++ {
				account, found, err := store.Load(key(1), NewAncestors())
				if err != nil {
					errs <- err
					return
				}
				if !found || account.Balance < last {
					errs <- errors.New("observed rooted state going backwards")
					return
				}
				last = account.Balance
			}
		}()
	}
	for slot := common.Slot(2); slot <= slots; slot++ {
		mustStore(t, store, slot, balance(key(1), uint64(slot)), balance(key(int(slot)), uint64(slot)))
		mustRoot(t, store, slot)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	expectBalance(t, store, key(1), NewAncestors(), slots)
}

func TestStore_ConcurrentWritesToDistinctSlots(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	const slots, keys = 8, 50
	var wg sync.WaitGroup
	for s := 1; s <= slots; s++ {
		wg.Add(1)
		go func(slot common.Slot) {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				if err := store.Store(slot, []common.KeyedAccount{balance(key(i), uint64(slot))}); err != nil {
					t.Errorf("failed to store: %v", err)
					return
				}
			}
			if err := store.Flush(slot); err != nil {
				t.Errorf("failed to flush: %v", err)
			}
		}(common.Slot(s))
	}
	wg.Wait()
	for s := 1; s <= slots; s++ {
		for i := 0; i < keys; i++ {
			expectBalance(t, store, key(i), NewAncestors(common.Slot(s)), uint64(s))
		}
	}
	if got, want := store.index.Len(), slots*keys; got != want {
		t.Errorf("unexpected number of index entries, wanted %d, got %d", want, got)
	}
}

func TestStore_MemoryFootprintCoversComponents(t *testing.T) {
	store := openTestStore(t, testConfig(""))
	mustStore(t, store, 1, balance(key(1), 1))
	mustStore(t, store, 2, balance(key(2), 2))
	if err := store.Flush(1); err != nil {
		t.Fatal(err)
	}
	expectBalance(t, store, key(1), NewAncestors(1), 1)
	mf := store.GetMemoryFootprint()
	for _, name := range []string{"index", "segments", "filter", "readCache", "writeCache"} {
		if mf.GetChild(name) == nil {
			t.Errorf("missing footprint of %s", name)
		}
	}
	if mf.Total() == 0 {
		t.Errorf("footprint should not be empty")
	}
}

func TestStore_FailedFlushCanBeRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	roots := rootlog.NewMockLog(ctrl)
	injected := errors.New("injected")
	gomock.InOrder(
		roots.EXPECT().SetDeltaHash(common.Slot(1), gomock.Any()).Return(injected),
		roots.EXPECT().SetDeltaHash(common.Slot(1), gomock.Any()).Return(nil),
	)
	roots.EXPECT().Flush().Return(nil)
	roots.EXPECT().Close().Return(nil)

	store := openTestStore(t, testConfig(""))
	store.rootLog = roots

	mustStore(t, store, 1, balance(key(1), 1), balance(key(2), 2))
	if err := store.Flush(1); !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if err := store.Halted(); err != nil {
		t.Errorf("recoverable errors should not halt the store, got %v", err)
	}
	expectBalance(t, store, key(1), NewAncestors(1), 1)

	// the slot is still open for writes and the flush can be repeated
	mustStore(t, store, 1, balance(key(3), 3))
	if err := store.Flush(1); err != nil {
		t.Fatalf("failed to repeat flush: %v", err)
	}
	if got := store.Info().Entries; got != 3 {
		t.Errorf("repeated flush should replace earlier entries, wanted 3, got %d", got)
	}
	for i := 1; i <= 3; i++ {
		expectBalance(t, store, key(i), NewAncestors(1), uint64(i))
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}
