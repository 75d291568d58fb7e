// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cleaner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/backend/index/sharded"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/RoaringBitmap/roaring"
	"go.uber.org/mock/gomock"
)

type rootSet map[common.Slot]bool

func (r rootSet) IsRooted(slot common.Slot) bool {
	return r[slot]
}

func entry(slot common.Slot, segment common.SegmentId, tombstone bool) index.Entry {
	return index.Entry{Slot: slot, Info: common.AccountInfo{
		Location:   common.StorageLocation{Segment: segment, Offset: uint64(slot) * 8},
		StoredSize: 136,
		Tombstone:  tombstone,
	}}
}

func slotsOf(entries []index.Entry) string {
	res := []common.Slot{}
	for _, e := range entries {
		res = append(res, e.Slot)
	}
	return fmt.Sprint(res)
}

func TestDeadEntries_Scenarios(t *testing.T) {
	roots := rootSet{1: true, 3: true, 5: true}
	tests := map[string]struct {
		entries []index.Entry
		horizon common.Slot
		dead    string
		purged  bool
	}{
		"single rooted version survives": {
			entries: []index.Entry{entry(1, 0, false)},
			horizon: 5,
			dead:    "[]",
		},
		"older rooted versions are superseded": {
			entries: []index.Entry{entry(1, 0, false), entry(3, 0, false), entry(5, 0, false)},
			horizon: 5,
			dead:    "[1 3]",
		},
		"versions newer than the horizon are kept": {
			entries: []index.Entry{entry(1, 0, false), entry(3, 0, false), entry(6, 0, false)},
			horizon: 3,
			dead:    "[1]",
		},
		"orphaned fork below horizon is dead": {
			entries: []index.Entry{entry(1, 0, false), entry(2, 0, false), entry(4, 0, false)},
			horizon: 5,
			dead:    "[2 4]",
		},
		"orphaned fork without any rooted version": {
			entries: []index.Entry{entry(2, 0, false), entry(6, 0, false)},
			horizon: 5,
			dead:    "[2]",
		},
		"rooted tombstone is purged with its history": {
			entries: []index.Entry{entry(1, 0, false), entry(3, 0, true)},
			horizon: 5,
			dead:    "[1 3]",
			purged:  true,
		},
		"rooted tombstone above horizon is kept": {
			entries: []index.Entry{entry(1, 0, false), entry(5, 0, true)},
			horizon: 3,
			dead:    "[]",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dead, purged := DeadEntries(test.entries, test.horizon, roots.IsRooted)
			if got := slotsOf(dead); got != test.dead {
				t.Errorf("unexpected dead set, wanted %s, got %s", test.dead, got)
			}
			if purged != test.purged {
				t.Errorf("unexpected purge flag, wanted %t, got %t", test.purged, purged)
			}
			if err := CheckDeadSet(test.entries, dead, test.horizon, roots.IsRooted); err != nil {
				t.Errorf("computed dead set should pass the check: %v", err)
			}
		})
	}
}

func TestCheckDeadSet_DetectsRemovalOfVisibleVersion(t *testing.T) {
	roots := rootSet{1: true, 3: true}
	entries := []index.Entry{entry(1, 0, false), entry(3, 0, false)}
	err := CheckDeadSet(entries, entries, 3, roots.IsRooted)
	if !errors.Is(err, ErrLastVisibleVersion) {
		t.Errorf("expected visibility violation, got %v", err)
	}
}

func fill(idx index.Index, key common.Key, entries ...index.Entry) {
	for _, e := range entries {
		idx.Upsert(key, e.Slot, e.Info)
	}
}

func TestCleaner_RemovesDeadEntriesAndFreesSpace(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	roots := rootSet{1: true, 3: true}
	idx := sharded.NewIndex(4)

	fill(idx, common.Key{1}, entry(1, 0, false), entry(3, 1, false))
	fill(idx, common.Key{2}, entry(1, 0, false), entry(2, 1, false), entry(4, 1, false))
	fill(idx, common.Key{3}, entry(1, 0, false), entry(3, 1, true))

	storage.EXPECT().Free(gomock.Any()).DoAndReturn(func(removed []index.KeyedEntry) error {
		if len(removed) != 4 {
			t.Errorf("unexpected number of freed records: %d", len(removed))
		}
		return nil
	})
	storage.EXPECT().Retain(gomock.Any()).DoAndReturn(func(purged []index.KeyedEntry) error {
		if len(purged) != 1 || purged[0].Key != (common.Key{3}) || purged[0].Slot != 3 || !purged[0].Info.Tombstone {
			t.Errorf("unexpected purged deletions: %v", purged)
		}
		return nil
	})

	stats, err := NewCleaner(idx, storage, roots, 2).Clean(context.Background(), 3)
	if err != nil {
		t.Fatalf("failed to clean: %v", err)
	}
	want := Stats{KeysVisited: 3, EntriesRemoved: 4, TombstonesPurged: 1, BytesFreed: 4 * 136, SegmentsTouched: 2}
	if stats != want {
		t.Errorf("unexpected stats, wanted %+v, got %+v", want, stats)
	}
	if got := slotsOf(idx.GetAll(common.Key{1})); got != "[3]" {
		t.Errorf("unexpected remaining entries of key 1: %s", got)
	}
	if got := slotsOf(idx.GetAll(common.Key{2})); got != "[1 4]" {
		t.Errorf("unexpected remaining entries of key 2: %s", got)
	}
	if got := slotsOf(idx.GetAll(common.Key{3})); got != "[]" {
		t.Errorf("unexpected remaining entries of key 3: %s", got)
	}
}

func TestCleaner_UnrootedHorizonIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := NewCleaner(sharded.NewIndex(1), NewMockStorage(ctrl), rootSet{}, 1).Clean(context.Background(), 3)
	if err == nil {
		t.Errorf("cleaning with unrooted horizon should fail")
	}
}

func TestCleaner_NothingToCleanDoesNotTouchStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	idx := sharded.NewIndex(4)
	fill(idx, common.Key{1}, entry(1, 0, false))

	stats, err := NewCleaner(idx, storage, rootSet{1: true}, 1).Clean(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to clean: %v", err)
	}
	if stats.EntriesRemoved != 0 || stats.KeysVisited != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCleaner_FreeErrorsAreReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	idx := sharded.NewIndex(4)
	fill(idx, common.Key{1}, entry(1, 0, false), entry(2, 0, false))
	injected := errors.New("injected")
	storage.EXPECT().Free(gomock.Any()).Return(injected)

	if _, err := NewCleaner(idx, storage, rootSet{1: true, 2: true}, 1).Clean(context.Background(), 2); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestCleaner_PurgedDeletionsAreHandedToStorage(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	idx := sharded.NewIndex(4)
	// the deletion in slot 3 is visible at the horizon, the unrooted slot 4
	// below the horizon is dead as well
	fill(idx, common.Key{1}, entry(1, 0, false), entry(3, 1, true), entry(4, 2, false))
	injected := errors.New("injected")
	storage.EXPECT().Free(gomock.Any())
	storage.EXPECT().Retain([]index.KeyedEntry{{Key: common.Key{1}, Entry: entry(3, 1, true)}}).Return(injected)

	stats, err := NewCleaner(idx, storage, rootSet{1: true, 3: true, 5: true}, 1).Clean(context.Background(), 5)
	if !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
	if stats.EntriesRemoved != 3 || stats.TombstonesPurged != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCleaner_ShrinkCopiesLiveRecordsAndRecyclesSegments(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	idx := sharded.NewIndex(4)
	fill(idx, common.Key{1}, entry(1, 0, false))
	fill(idx, common.Key{2}, entry(1, 1, false))
	fill(idx, common.Key{3}, entry(2, 2, false))

	candidates := roaring.BitmapOf(0, 2, 7)
	moved := common.AccountInfo{Location: common.StorageLocation{Segment: 9, Offset: 0}, StoredSize: 136}
	gomock.InOrder(
		storage.EXPECT().ShrinkCandidates(0.8).Return(candidates),
		storage.EXPECT().CopyForward(gomock.Any()).DoAndReturn(func(entries []index.KeyedEntry) ([]common.AccountInfo, error) {
			if len(entries) != 2 {
				t.Errorf("unexpected number of copied records: %d", len(entries))
			}
			res := make([]common.AccountInfo, len(entries))
			for i := range res {
				res[i] = moved
				res[i].Location.Offset = uint64(i) * 136
			}
			return res, nil
		}),
		storage.EXPECT().Recycle(candidates),
	)

	stats, err := NewCleaner(idx, storage, rootSet{}, 2).Shrink(context.Background(), 0.8)
	if err != nil {
		t.Fatalf("failed to shrink: %v", err)
	}
	if stats.SegmentsRecycled != 3 || stats.RecordsCopied != 2 || stats.BytesCopied != 2*136 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	for _, key := range []common.Key{{1}, {3}} {
		for _, e := range idx.GetAll(key) {
			if e.Info.Location.Segment != 9 {
				t.Errorf("entry of key %v not relocated: %v", key, e)
			}
		}
	}
	if got := idx.GetAll(common.Key{2}); got[0].Info.Location.Segment != 1 {
		t.Errorf("entry outside of candidates should not be moved")
	}
}

func TestCleaner_ShrinkWithoutCandidatesIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	storage.EXPECT().ShrinkCandidates(gomock.Any()).Return(roaring.New())

	stats, err := NewCleaner(sharded.NewIndex(1), storage, rootSet{}, 1).Shrink(context.Background(), 0.5)
	if err != nil || stats != (ShrinkStats{}) {
		t.Errorf("unexpected result %+v, %v", stats, err)
	}
}

func TestCleaner_ShrinkOfDeadSegmentsRecyclesWithoutCopying(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	idx := sharded.NewIndex(4)
	fill(idx, common.Key{1}, entry(1, 0, false))
	candidates := roaring.BitmapOf(3)
	storage.EXPECT().ShrinkCandidates(gomock.Any()).Return(candidates)
	storage.EXPECT().Recycle(candidates)

	stats, err := NewCleaner(idx, storage, rootSet{}, 1).Shrink(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("failed to shrink: %v", err)
	}
	if stats.SegmentsRecycled != 1 || stats.RecordsCopied != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
