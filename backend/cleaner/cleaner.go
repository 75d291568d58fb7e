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

//go:generate mockgen -source cleaner.go -destination cleaner_mocks.go -package cleaner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/RoaringBitmap/roaring"
)

// ErrLastVisibleVersion is reported if cleaning would remove the version of
// an account visible at the cleaning horizon. The affected key is skipped.
const ErrLastVisibleVersion = common.ConstError("cleaning would remove last visible version")

// Roots provides the set of rooted slots.
type Roots interface {
	IsRooted(slot common.Slot) bool
}

// Storage is the record storage the cleaner releases space in.
type Storage interface {
	// Free releases the space of records no longer referenced by the index.
	// The space is only accounted as dead; the bytes remain readable until
	// their segment is recycled.
	Free(removed []index.KeyedEntry) error

	// ShrinkCandidates lists sealed segments whose fraction of live bytes is
	// below the given ratio.
	ShrinkCandidates(ratio float64) *roaring.Bitmap

	// CopyForward copies the referenced records into fresh storage and
	// returns their new infos in input order.
	CopyForward(entries []index.KeyedEntry) ([]common.AccountInfo, error)

	// Recycle resets the given segments once no reads are in flight and makes
	// them available for reuse.
	Recycle(segments *roaring.Bitmap) error

	// Retain registers purged deletion records. Older records of the same
	// keys may still be stored elsewhere; the deletion records must outlive
	// them, otherwise a restart would revive the deleted accounts.
	Retain(purged []index.KeyedEntry) error
}

// Stats summarizes a cleaning run.
type Stats struct {
	KeysVisited      int
	EntriesRemoved   int
	TombstonesPurged int
	BytesFreed       uint64
	KeysSkipped      int
	SegmentsTouched  uint64 // < number of segments records were freed in
}

// ShrinkStats summarizes a compaction run.
type ShrinkStats struct {
	SegmentsRecycled uint64
	RecordsCopied    int
	BytesCopied      uint64
}

// Cleaner removes superseded account versions from an index and reclaims the
// space of their records.
type Cleaner struct {
	index   index.Index
	storage Storage
	roots   Roots
	workers int
}

// NewCleaner creates a cleaner operating on the given components. A
// non-positive number of workers uses one worker per CPU.
func NewCleaner(idx index.Index, storage Storage, roots Roots, workers int) *Cleaner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Cleaner{index: idx, storage: storage, roots: roots, workers: workers}
}

// Clean removes all versions that can no longer become visible once the
// given horizon is rooted. The horizon must be a rooted slot. Keys whose
// computed dead set would violate the visibility of the horizon are skipped
// and reported as ErrLastVisibleVersion alongside the stats of the
// successfully cleaned keys.
func (c *Cleaner) Clean(ctx context.Context, horizon common.Slot) (Stats, error) {
	if !c.roots.IsRooted(horizon) {
		return Stats{}, fmt.Errorf("cleaning horizon %d is not rooted", horizon)
	}

	type shardResult struct {
		removed    []index.KeyedEntry
		tombstones []index.KeyedEntry
		visited    int
		errs       []error
	}
	results := make([]shardResult, c.index.NumShards())
	err := c.index.ForEachShard(ctx, c.workers, func(shard int, key common.Key, entries []index.Entry) error {
		res := &results[shard]
		res.visited++
		dead, purged := DeadEntries(entries, horizon, c.roots.IsRooted)
		if len(dead) == 0 {
			return nil
		}
		if err := CheckDeadSet(entries, dead, horizon, c.roots.IsRooted); err != nil {
			res.errs = append(res.errs, fmt.Errorf("key %v: %w", key, err))
			return nil
		}
		tombstone := common.Slot(0)
		if purged {
			tombstone = purgedSlot(dead, horizon, c.roots.IsRooted)
		}
		for _, entry := range dead {
			if removed, found := c.index.Remove(key, entry.Slot); found {
				keyed := index.KeyedEntry{Key: key, Entry: index.Entry{Slot: entry.Slot, Info: removed}}
				res.removed = append(res.removed, keyed)
				if purged && entry.Slot == tombstone {
					res.tombstones = append(res.tombstones, keyed)
				}
			}
		}
		return nil
	})

	stats := Stats{}
	var removed, tombstones []index.KeyedEntry
	var errs []error
	segments := roaring.New()
	for _, res := range results {
		stats.KeysVisited += res.visited
		stats.TombstonesPurged += len(res.tombstones)
		tombstones = append(tombstones, res.tombstones...)
		stats.KeysSkipped += len(res.errs)
		errs = append(errs, res.errs...)
		removed = append(removed, res.removed...)
	}
	for _, entry := range removed {
		stats.BytesFreed += uint64(entry.Info.StoredSize)
		segments.Add(uint32(entry.Info.Location.Segment))
	}
	stats.EntriesRemoved = len(removed)
	stats.SegmentsTouched = segments.GetCardinality()

	// index entries are gone, the space may be released now
	if len(removed) > 0 {
		if freeErr := c.storage.Free(removed); freeErr != nil {
			errs = append(errs, fmt.Errorf("failed to free removed records: %w", freeErr))
		}
	}
	if len(tombstones) > 0 {
		if retainErr := c.storage.Retain(tombstones); retainErr != nil {
			errs = append(errs, fmt.Errorf("failed to retain purged deletions: %w", retainErr))
		}
	}
	if err != nil {
		errs = append(errs, err)
	}
	return stats, errors.Join(errs...)
}

// Shrink compacts segments whose fraction of live bytes is below the given
// ratio. Live records are copied into fresh storage, the index is redirected
// to the copies, and the drained segments are recycled.
func (c *Cleaner) Shrink(ctx context.Context, ratio float64) (ShrinkStats, error) {
	candidates := c.storage.ShrinkCandidates(ratio)
	if candidates.IsEmpty() {
		return ShrinkStats{}, nil
	}

	// collect live entries referencing candidates
	var mu sync.Mutex
	var live []index.KeyedEntry
	err := c.index.ForEachShard(ctx, c.workers, func(_ int, key common.Key, entries []index.Entry) error {
		for _, entry := range entries {
			if candidates.Contains(uint32(entry.Info.Location.Segment)) {
				mu.Lock()
				live = append(live, index.KeyedEntry{Key: key, Entry: entry})
				mu.Unlock()
			}
		}
		return nil
	})
	if err != nil {
		return ShrinkStats{}, err
	}

	stats := ShrinkStats{}
	if len(live) > 0 {
		infos, err := c.storage.CopyForward(live)
		if err != nil {
			return stats, fmt.Errorf("failed to copy live records: %w", err)
		}
		var stale []index.KeyedEntry
		for i, entry := range live {
			if c.index.Relocate(entry.Key, entry.Slot, entry.Info.Location, infos[i]) {
				stats.RecordsCopied++
				stats.BytesCopied += uint64(infos[i].StoredSize)
			} else {
				// removed while copying, the copy is dead right away
				stale = append(stale, index.KeyedEntry{Key: entry.Key, Entry: index.Entry{Slot: entry.Slot, Info: infos[i]}})
			}
		}
		if len(stale) > 0 {
			if err := c.storage.Free(stale); err != nil {
				return stats, err
			}
		}
	}

	if err := c.storage.Recycle(candidates); err != nil {
		return stats, fmt.Errorf("failed to recycle segments: %w", err)
	}
	stats.SegmentsRecycled = candidates.GetCardinality()
	return stats, nil
}

// DeadEntries computes the entries of a key that can never become visible
// again once the horizon is rooted. Let R be the newest rooted entry not
// newer than the horizon: all entries older than R are dead, as are all
// unrooted entries older than the horizon. If R is a deleted account with
// nothing older surviving, R itself is dead and purged is set.
func DeadEntries(entries []index.Entry, horizon common.Slot, isRooted func(common.Slot) bool) (dead []index.Entry, purged bool) {
	visible := -1
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Slot <= horizon && isRooted(entries[i].Slot) {
			visible = i
			break
		}
	}
	for i, entry := range entries {
		switch {
		case i == visible:
			if entry.Info.Tombstone {
				dead = append(dead, entry)
				purged = true
			}
		case visible >= 0 && i < visible:
			dead = append(dead, entry)
		case entry.Slot < horizon && !isRooted(entry.Slot):
			dead = append(dead, entry)
		}
	}
	return dead, purged
}

// purgedSlot returns the slot of the purged deletion within a dead set, which
// is the newest rooted entry not newer than the horizon.
func purgedSlot(dead []index.Entry, horizon common.Slot, isRooted func(common.Slot) bool) common.Slot {
	res := common.Slot(0)
	for _, entry := range dead {
		if entry.Info.Tombstone && entry.Slot <= horizon && isRooted(entry.Slot) && entry.Slot >= res {
			res = entry.Slot
		}
	}
	return res
}

// CheckDeadSet verifies that a dead set does not contain the entry visible
// at the horizon unless that entry is a deleted account.
func CheckDeadSet(entries, dead []index.Entry, horizon common.Slot, isRooted func(common.Slot) bool) error {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Slot > horizon || !isRooted(entry.Slot) {
			continue
		}
		if entry.Info.Tombstone {
			return nil
		}
		for _, cur := range dead {
			if cur.Slot == entry.Slot {
				return fmt.Errorf("%w: slot %d", ErrLastVisibleVersion, entry.Slot)
			}
		}
		return nil
	}
	return nil
}
