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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/appendstore/file"
	"github.com/Fantom-foundation/accountsdb/backend/appendstore/memory"
	"github.com/Fantom-foundation/accountsdb/backend/filter"
	"github.com/Fantom-foundation/accountsdb/backend/filter/bloom"
	"github.com/Fantom-foundation/accountsdb/backend/filter/xor"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/RoaringBitmap/roaring"
	"github.com/ledgerwatch/log/v3"
)

const segmentFileSuffix = ".seg"

// segment is one append store of the segment table together with its
// existence filter and space accounting.
type segment struct {
	id       common.SegmentId
	store    appendstore.AppendStore
	path     string // < empty for in-memory segments
	standard bool   // < has the configured capacity and can be recycled

	// guarded by the table lock
	filter filter.Filter
	bloom  *bloom.Filter // < set while the segment accepts appends
	keys   []common.Key  // < keys appended while not sealed
	sealed bool
	dead   uint64 // < bytes of records no longer referenced by the index
}

// SegmentInfo summarizes the state of a segment.
type SegmentInfo struct {
	Id       common.SegmentId
	Capacity uint64
	Used     uint64
	Dead     uint64
	Sealed   bool
}

// Live returns the number of bytes still referenced by the index.
func (i SegmentInfo) Live() uint64 {
	return i.Used - i.Dead
}

// segmentTable is the arena of all segments of a store. Segments are only
// referenced by their id, never by pointers kept outside of the table.
//
// Reads of records must hold the reclaim gate in shared mode from the index
// lookup until the record has been consumed. Segments are only reset while
// the gate is held exclusively, so no read can observe a recycled segment.
type segmentTable struct {
	gate sync.RWMutex

	mu       sync.RWMutex // < guards the table structure and segment fields
	segments map[common.SegmentId]*segment
	active   *segment
	recycled []*segment
	nextId   common.SegmentId

	appendMu sync.Mutex // < serializes appends including rotation

	directory    string // < empty for in-memory tables
	capacity     uint64
	expectedKeys uint64
	fpRate       float64
	log          log.Logger
}

func newSegmentTable(directory string, capacity uint64, fpRate float64, logger log.Logger) *segmentTable {
	return &segmentTable{
		segments:     map[common.SegmentId]*segment{},
		directory:    directory,
		capacity:     capacity,
		expectedKeys: max(capacity/appendstore.MinRecordSize, 1),
		fpRate:       fpRate,
		log:          logger,
	}
}

func (t *segmentTable) segmentPath(id common.SegmentId) string {
	return filepath.Join(t.directory, fmt.Sprintf("%d%s", id, segmentFileSuffix))
}

// listSegmentFiles returns the ids of all segment files in the directory.
func listSegmentFiles(directory string) ([]common.SegmentId, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}
	var res []common.SegmentId
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, segmentFileSuffix) {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, segmentFileSuffix), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid segment file name %s", name)
		}
		res = append(res, common.SegmentId(id))
	}
	return res, nil
}

// openSegment opens an existing segment file during recovery.
func (t *segmentTable) openSegment(id common.SegmentId) (*segment, appendstore.ScanResult, error) {
	store, err := file.Open(t.segmentPath(id), true, t.capacity)
	if err != nil {
		return nil, appendstore.ScanResult{}, err
	}
	seg := &segment{
		id:       id,
		store:    store,
		path:     store.Path(),
		standard: store.Capacity() == t.capacity,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments[id] = seg
	if id >= t.nextId {
		t.nextId = id + 1
	}
	return seg, store.Recovered(), nil
}

// adoptRecovered registers a segment reopened during recovery. Segments with
// content are sealed with a filter over the given keys, empty ones are made
// available for reuse or deleted if they are not of the standard size.
func (t *segmentTable) adoptRecovered(seg *segment, keys []common.Key) error {
	if seg.store.Len() > 0 {
		seg.keys = keys
		t.mu.Lock()
		t.seal(seg)
		t.mu.Unlock()
		return nil
	}
	if !seg.standard {
		t.mu.Lock()
		delete(t.segments, seg.id)
		t.mu.Unlock()
		return errors.Join(seg.store.Close(), os.Remove(seg.path))
	}
	if err := t.makeWritable(seg); err != nil {
		return err
	}
	t.mu.Lock()
	t.recycled = append(t.recycled, seg)
	t.mu.Unlock()
	return nil
}

// createSegment allocates a new segment of the given capacity.
func (t *segmentTable) createSegment(capacity uint64) (*segment, error) {
	t.mu.Lock()
	id := t.nextId
	t.nextId++
	t.mu.Unlock()

	seg := &segment{id: id, standard: capacity == t.capacity}
	if t.directory == "" {
		seg.store = memory.New(capacity)
	} else {
		store, err := file.Open(t.segmentPath(id), true, capacity)
		if err != nil {
			return nil, err
		}
		seg.store = store
		seg.path = store.Path()
	}
	if err := t.makeWritable(seg); err != nil {
		return nil, errors.Join(err, seg.store.Close())
	}
	t.mu.Lock()
	t.segments[id] = seg
	t.mu.Unlock()
	return seg, nil
}

func (t *segmentTable) makeWritable(seg *segment) error {
	f, err := bloom.NewFilter(t.expectedKeys, t.fpRate)
	if err != nil {
		return err
	}
	seg.bloom = f
	seg.filter = f
	seg.keys = nil
	seg.sealed = false
	seg.dead = 0
	return nil
}

// seal stops appends to a segment and replaces its filter by a compact one.
// Must be called with the table lock held.
func (t *segmentTable) seal(seg *segment) {
	if seg.sealed {
		return
	}
	seg.sealed = true
	if f, err := xor.Build(seg.keys); err == nil {
		seg.filter = f
	} else {
		t.log.Warn("Failed to build sealed segment filter, keeping bloom filter", "segment", seg.id, "err", err)
	}
	seg.bloom = nil
	seg.keys = nil
	if err := seg.store.Flush(); err != nil {
		t.log.Warn("Failed to flush sealed segment", "segment", seg.id, "err", err)
	}
}

// rotate seals the active segment and installs a fresh one.
func (t *segmentTable) rotate() (*segment, error) {
	t.mu.Lock()
	if t.active != nil {
		t.seal(t.active)
		t.active = nil
	}
	if n := len(t.recycled); n > 0 {
		t.active = t.recycled[n-1]
		t.recycled = t.recycled[:n-1]
		t.mu.Unlock()
		return t.active, nil
	}
	t.mu.Unlock()

	seg, err := t.createSegment(t.capacity)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.active = seg
	t.mu.Unlock()
	return seg, nil
}

func (t *segmentTable) getActive() (*segment, error) {
	t.mu.RLock()
	active := t.active
	t.mu.RUnlock()
	if active != nil {
		return active, nil
	}
	return t.rotate()
}

// append stores the given accounts of a slot and returns their index infos.
// A batch not fitting into the active segment is retried on a fresh one;
// batches exceeding a whole segment are split, and records exceeding a
// segment on their own get a dedicated segment.
func (t *segmentTable) append(slot common.Slot, accounts []appendstore.StorableAccount) ([]common.AccountInfo, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	t.appendMu.Lock()
	defer t.appendMu.Unlock()

	res := make([]common.AccountInfo, 0, len(accounts))
	total := uint64(0)
	for _, account := range accounts {
		total += appendstore.RecordSize(len(account.Account.Data))
	}
	if total <= t.capacity {
		active, err := t.getActive()
		if err != nil {
			return nil, err
		}
		if total > active.store.Remaining() {
			if active, err = t.rotate(); err != nil {
				return nil, err
			}
		}
		return t.appendTo(active, slot, accounts, res)
	}

	for len(accounts) > 0 {
		size := appendstore.RecordSize(len(accounts[0].Account.Data))
		if size > t.capacity {
			seg, err := t.createSegment(size)
			if err != nil {
				return nil, err
			}
			if res, err = t.appendTo(seg, slot, accounts[:1], res); err != nil {
				return nil, err
			}
			t.mu.Lock()
			t.seal(seg)
			t.mu.Unlock()
			accounts = accounts[1:]
			continue
		}

		active, err := t.getActive()
		if err != nil {
			return nil, err
		}
		remaining := active.store.Remaining()
		n, used := 0, uint64(0)
		for n < len(accounts) {
			next := appendstore.RecordSize(len(accounts[n].Account.Data))
			if next > t.capacity || used+next > remaining {
				break
			}
			used += next
			n++
		}
		if n == 0 {
			if _, err := t.rotate(); err != nil {
				return nil, err
			}
			continue
		}
		if res, err = t.appendTo(active, slot, accounts[:n], res); err != nil {
			return nil, err
		}
		accounts = accounts[n:]
	}
	return res, nil
}

func (t *segmentTable) appendTo(seg *segment, slot common.Slot, accounts []appendstore.StorableAccount, res []common.AccountInfo) ([]common.AccountInfo, error) {
	offsets, err := seg.store.Append(slot, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to append to segment %d: %w", seg.id, err)
	}
	t.mu.Lock()
	for _, account := range accounts {
		seg.bloom.Add(account.Key)
		seg.keys = append(seg.keys, account.Key)
	}
	t.mu.Unlock()
	for i, account := range accounts {
		res = append(res, common.AccountInfo{
			Location:   common.StorageLocation{Segment: seg.id, Offset: offsets[i]},
			StoredSize: uint32(appendstore.RecordSize(len(account.Account.Data))),
			Tombstone:  account.Account.IsTombstone(),
		})
	}
	return res, nil
}

// read resolves the given location. The caller must hold the reclaim gate.
func (t *segmentTable) read(location common.StorageLocation, visit func(appendstore.StoredAccount) error) error {
	t.mu.RLock()
	seg, found := t.segments[location.Segment]
	t.mu.RUnlock()
	if !found {
		return fmt.Errorf("unknown segment %d", location.Segment)
	}
	return seg.store.Read(location.Offset, visit)
}

// readAccount resolves the given location into an independent account. The
// caller must hold the reclaim gate.
func (t *segmentTable) readAccount(location common.StorageLocation) (appendstore.StoredAccount, common.Account, error) {
	var stored appendstore.StoredAccount
	var account common.Account
	err := t.read(location, func(s appendstore.StoredAccount) error {
		stored = s
		stored.Data = nil
		account = s.ToAccount()
		return nil
	})
	return stored, account, err
}

// free accounts the space of the given removed entries as dead.
func (t *segmentTable) free(removed []index.KeyedEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range removed {
		if seg, found := t.segments[entry.Info.Location.Segment]; found {
			seg.dead += uint64(entry.Info.StoredSize)
		}
	}
}

// shrinkCandidates lists the sealed segments worth compacting.
func (t *segmentTable) shrinkCandidates(ratio float64) *roaring.Bitmap {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := roaring.New()
	for id, seg := range t.segments {
		used := seg.store.Len()
		if !seg.sealed || seg == t.active || used == 0 {
			continue
		}
		live := used - min(seg.dead, used)
		if float64(live) < ratio*float64(used) {
			res.Add(uint32(id))
		}
	}
	return res
}

// recycle resets the given segments once all in-flight reads are finished.
// Standard sized segments are kept for reuse, dedicated ones are deleted.
func (t *segmentTable) recycle(ids *roaring.Bitmap) error {
	t.gate.Lock()
	defer t.gate.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	// copies made to drain the segments must be durable before the originals
	// are dropped
	if t.active != nil {
		if err := t.active.store.Flush(); err != nil {
			return fmt.Errorf("failed to flush active segment %d: %w", t.active.id, err)
		}
	}
	var errs []error
	for _, id := range ids.ToArray() {
		seg, found := t.segments[common.SegmentId(id)]
		if !found || seg == t.active {
			continue
		}
		if !seg.standard {
			delete(t.segments, seg.id)
			errs = append(errs, seg.store.Close())
			if seg.path != "" {
				errs = append(errs, os.Remove(seg.path))
			}
			continue
		}
		if err := seg.store.Reset(); err != nil {
			errs = append(errs, fmt.Errorf("failed to reset segment %d: %w", seg.id, err))
			continue
		}
		if err := t.makeWritable(seg); err != nil {
			errs = append(errs, err)
			continue
		}
		t.recycled = append(t.recycled, seg)
	}
	return errors.Join(errs...)
}

// candidatesFor lists segments that may contain records of the given key.
func (t *segmentTable) candidatesFor(key common.Key) []*segment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var res []*segment
	for _, seg := range t.segments {
		if seg.store.Len() > 0 && seg.filter != nil && seg.filter.Contains(key) {
			res = append(res, seg)
		}
	}
	return res
}

func (t *segmentTable) infos() []SegmentInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make([]SegmentInfo, 0, len(t.segments))
	for _, seg := range t.segments {
		res = append(res, SegmentInfo{
			Id:       seg.id,
			Capacity: seg.store.Capacity(),
			Used:     seg.store.Len(),
			Dead:     min(seg.dead, seg.store.Len()),
			Sealed:   seg.sealed,
		})
	}
	return res
}

func (t *segmentTable) flush() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var errs []error
	for _, seg := range t.segments {
		errs = append(errs, seg.store.Flush())
	}
	return errors.Join(errs...)
}

func (t *segmentTable) close() error {
	t.gate.Lock()
	defer t.gate.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, seg := range t.segments {
		errs = append(errs, seg.store.Close())
	}
	t.segments = map[common.SegmentId]*segment{}
	t.active = nil
	t.recycled = nil
	return errors.Join(errs...)
}

func (t *segmentTable) GetMemoryFootprint() *common.MemoryFootprint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*t))
	stores := common.NewMemoryFootprint(0)
	filters := common.NewMemoryFootprint(0)
	for _, seg := range t.segments {
		name := strconv.Itoa(int(seg.id))
		stores.AddChild(name, seg.store.GetMemoryFootprint())
		if seg.filter != nil {
			filters.AddChild(name, seg.filter.GetMemoryFootprint())
		}
	}
	mf.AddChild("stores", stores)
	mf.AddChild("filters", filters)
	return mf
}
