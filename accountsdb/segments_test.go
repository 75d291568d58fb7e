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
	"testing"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/RoaringBitmap/roaring"
	"github.com/ledgerwatch/log/v3"
	"go.uber.org/mock/gomock"
)

const testSegmentSize = 1024 // < fits 7 records without data

func newTestSegmentTable(t *testing.T, directory string) *segmentTable {
	t.Helper()
	table := newSegmentTable(directory, testSegmentSize, 0.01, log.New())
	t.Cleanup(func() {
		if err := table.close(); err != nil {
			t.Errorf("failed to close segments: %v", err)
		}
	})
	return table
}

func storables(n int, dataSize int) []appendstore.StorableAccount {
	res := make([]appendstore.StorableAccount, n)
	for i := range res {
		res[i] = appendstore.StorableAccount{
			Key:          common.Key{byte(i + 1)},
			Account:      &common.Account{Balance: uint64(i + 1), Data: make([]byte, dataSize)},
			WriteVersion: uint64(i + 1),
		}
	}
	return res
}

func segmentsUsed(infos []common.AccountInfo) map[common.SegmentId]int {
	res := map[common.SegmentId]int{}
	for _, info := range infos {
		res[info.Location.Segment]++
	}
	return res
}

func TestSegmentTable_AppendedRecordsCanBeRead(t *testing.T) {
	table := newTestSegmentTable(t, "")
	accounts := storables(3, 10)
	infos, err := table.append(4, accounts)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 3 {
		t.Fatalf("unexpected number of infos: %d", len(infos))
	}
	for i, info := range infos {
		stored, account, err := table.readAccount(info.Location)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Slot != 4 || stored.Key != accounts[i].Key || stored.WriteVersion != accounts[i].WriteVersion {
			t.Errorf("unexpected record %v", stored)
		}
		if !account.Equal(accounts[i].Account) {
			t.Errorf("unexpected account, wanted %v, got %v", accounts[i].Account, account)
		}
		if info.StoredSize != uint32(appendstore.RecordSize(10)) {
			t.Errorf("unexpected stored size %d", info.StoredSize)
		}
	}
}

func TestSegmentTable_EmptyBatchDoesNotCreateSegments(t *testing.T) {
	table := newTestSegmentTable(t, "")
	infos, err := table.append(1, nil)
	if err != nil || len(infos) != 0 {
		t.Fatalf("unexpected result %v, %v", infos, err)
	}
	if len(table.infos()) != 0 {
		t.Errorf("no segment should have been created")
	}
}

func TestSegmentTable_BatchNotFittingActiveSegmentMovesToFreshSegment(t *testing.T) {
	table := newTestSegmentTable(t, "")
	first, err := table.append(1, storables(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	second, err := table.append(2, storables(5, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(segmentsUsed(first)) != 1 || len(segmentsUsed(second)) != 1 {
		t.Fatalf("batches fitting a segment should not be split")
	}
	if first[0].Location.Segment == second[0].Location.Segment {
		t.Errorf("second batch should have been moved to a fresh segment")
	}
	sealed := 0
	for _, info := range table.infos() {
		if info.Sealed {
			sealed++
		}
	}
	if sealed != 1 {
		t.Errorf("the rotated segment should be sealed, got %d sealed segments", sealed)
	}
}

func TestSegmentTable_BatchesLargerThanSegmentAreSplit(t *testing.T) {
	table := newTestSegmentTable(t, "")
	infos, err := table.append(1, storables(20, 0))
	if err != nil {
		t.Fatal(err)
	}
	used := segmentsUsed(infos)
	if len(used) != 3 {
		t.Errorf("unexpected distribution of records: %v", used)
	}
	for i, info := range infos {
		_, account, err := table.readAccount(info.Location)
		if err != nil {
			t.Fatal(err)
		}
		if account.Balance != uint64(i+1) {
			t.Errorf("unexpected balance of record %d: %d", i, account.Balance)
		}
	}
}

func TestSegmentTable_OversizedRecordsGetDedicatedSegments(t *testing.T) {
	table := newTestSegmentTable(t, "")
	accounts := storables(3, 0)
	accounts[1].Account.Data = make([]byte, 3000)
	infos, err := table.append(1, accounts)
	if err != nil {
		t.Fatal(err)
	}
	dedicated := infos[1].Location.Segment
	if infos[0].Location.Segment == dedicated || infos[2].Location.Segment == dedicated {
		t.Errorf("oversized record should be in a dedicated segment")
	}
	for _, info := range table.infos() {
		if info.Id == dedicated {
			if info.Capacity != appendstore.RecordSize(3000) || !info.Sealed {
				t.Errorf("unexpected dedicated segment %+v", info)
			}
		}
	}
	if _, account, err := table.readAccount(infos[1].Location); err != nil || len(account.Data) != 3000 {
		t.Errorf("failed to read oversized record: %v", err)
	}
}

func TestSegmentTable_FreedSpaceMakesSealedSegmentsCandidates(t *testing.T) {
	table := newTestSegmentTable(t, "")
	infos, err := table.append(1, storables(7, 0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.append(2, storables(1, 0)); err != nil {
		t.Fatal(err)
	}
	if !table.shrinkCandidates(0.8).IsEmpty() {
		t.Errorf("fully live segments should not be candidates")
	}

	var removed []index.KeyedEntry
	for _, info := range infos[:3] {
		removed = append(removed, index.KeyedEntry{Entry: index.Entry{Slot: 1, Info: info}})
	}
	table.free(removed)
	candidates := table.shrinkCandidates(0.8)
	if !candidates.Contains(uint32(infos[0].Location.Segment)) || candidates.GetCardinality() != 1 {
		t.Errorf("unexpected candidates %v", candidates.ToArray())
	}
	if !table.shrinkCandidates(0.5).IsEmpty() {
		t.Errorf("segment with more than half live bytes should not be a candidate at ratio 0.5")
	}
}

func TestSegmentTable_ActiveSegmentIsNeverACandidate(t *testing.T) {
	table := newTestSegmentTable(t, "")
	infos, err := table.append(1, storables(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	table.free([]index.KeyedEntry{
		{Entry: index.Entry{Slot: 1, Info: infos[0]}},
		{Entry: index.Entry{Slot: 1, Info: infos[1]}},
	})
	if !table.shrinkCandidates(1).IsEmpty() {
		t.Errorf("active segment must not be compacted")
	}
}

func TestSegmentTable_RecycledSegmentsAreReused(t *testing.T) {
	table := newTestSegmentTable(t, "")
	first, err := table.append(1, storables(7, 0))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.append(2, storables(1, 0)); err != nil {
		t.Fatal(err)
	}
	recycled := first[0].Location.Segment
	if err := table.recycle(roaring.BitmapOf(uint32(recycled))); err != nil {
		t.Fatal(err)
	}
	for _, info := range table.infos() {
		if info.Id == recycled && (info.Used != 0 || info.Sealed) {
			t.Errorf("recycled segment should be empty and writable: %+v", info)
		}
	}

	// fill the active segment so that the recycled one is taken next
	if _, err := table.append(3, storables(6, 0)); err != nil {
		t.Fatal(err)
	}
	infos, err := table.append(4, storables(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if infos[0].Location.Segment != recycled {
		t.Errorf("expected recycled segment %d to be reused, got %d", recycled, infos[0].Location.Segment)
	}
	if len(table.infos()) != 2 {
		t.Errorf("no additional segment should have been created, got %d", len(table.infos()))
	}
}

func TestSegmentTable_RecyclingDeletesDedicatedSegmentFiles(t *testing.T) {
	dir := t.TempDir()
	table := newTestSegmentTable(t, dir)
	accounts := storables(1, 3000)
	infos, err := table.append(1, accounts)
	if err != nil {
		t.Fatal(err)
	}
	id := infos[0].Location.Segment
	path := filepath.Join(dir, "0.seg")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("segment file should exist: %v", err)
	}
	if err := table.recycle(roaring.BitmapOf(uint32(id))); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("dedicated segment file should be deleted, got %v", err)
	}
	if len(table.infos()) != 0 {
		t.Errorf("dedicated segment should be dropped from the table")
	}
}

func TestSegmentTable_FiltersSelectSegmentsContainingKey(t *testing.T) {
	table := newTestSegmentTable(t, "")
	infos, err := table.append(1, storables(7, 0))
	if err != nil {
		t.Fatal(err)
	}
	other := []appendstore.StorableAccount{{
		Key:     common.Key{0xFF},
		Account: &common.Account{Balance: 1},
	}}
	if _, err := table.append(2, other); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, seg := range table.candidatesFor(common.Key{1}) {
		found = found || seg.id == infos[0].Location.Segment
	}
	if !found {
		t.Errorf("sealed segment holding the key must be a candidate")
	}
	if got := table.candidatesFor(common.Key{0xFF}); len(got) == 0 {
		t.Errorf("active segment holding the key must be a candidate")
	}
}

func TestSegmentTable_ListsSegmentFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"3.seg", "12.seg", "other.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{1}, 0600); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := listSegmentFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("unexpected ids %v", ids)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.seg"), []byte{1}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := listSegmentFiles(dir); err == nil {
		t.Errorf("invalid segment file names should be reported")
	}
}

func TestSegmentTable_AppendErrorsAreReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := appendstore.NewMockAppendStore(ctrl)
	injected := errors.New("injected")
	store.EXPECT().Remaining().Return(uint64(testSegmentSize))
	store.EXPECT().Append(common.Slot(1), gomock.Any()).Return(nil, injected)
	store.EXPECT().Close().Return(nil)

	table := newTestSegmentTable(t, "")
	seg := &segment{id: 7, store: store, standard: true}
	table.mu.Lock()
	table.segments[seg.id] = seg
	table.active = seg
	table.mu.Unlock()

	if _, err := table.append(1, storables(2, 0)); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}
