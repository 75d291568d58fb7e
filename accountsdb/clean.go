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
	"time"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/cleaner"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/RoaringBitmap/roaring"
)

// CleanStats summarizes a cleaning pass including the compaction following it.
type CleanStats struct {
	cleaner.Stats
	Shrink  cleaner.ShrinkStats
	Horizon common.Slot
}

// Clean removes all account versions that can no longer be visible on any
// fork descending from the greatest of the given roots, or from the latest
// root if none are given, and compacts sparsely used segments afterwards.
// Keys for which cleaning would remove the last visible version are skipped
// and reported with ErrLastVisibleVersion, which halts the store.
func (s *Store) Clean(roots ...common.Slot) (CleanStats, error) {
	if err := s.checkWritable(); err != nil {
		return CleanStats{}, err
	}
	horizon, found := s.roots.max()
	if len(roots) > 0 {
		horizon, found = roots[0], true
		for _, root := range roots {
			if !s.roots.IsRooted(root) {
				return CleanStats{}, fmt.Errorf("%w: %d", ErrNotRooted, root)
			}
			horizon = max(horizon, root)
		}
	}
	if !found {
		return CleanStats{}, nil
	}

	s.maintMu.Lock()
	defer s.maintMu.Unlock()
	if err := s.checkOpen(); err != nil {
		return CleanStats{}, err
	}

	start := time.Now()
	stats, err := s.cleaner.Clean(s.ctx, horizon)
	res := CleanStats{Stats: stats, Horizon: horizon}
	mxCleanedEntries.Add(stats.EntriesRemoved)
	mxCleanTook.UpdateDuration(start)
	if !s.cleaned || horizon > s.cleanHorizon {
		s.cleanHorizon, s.cleaned = horizon, true
	}
	if err != nil {
		return res, s.check(err)
	}

	start = time.Now()
	res.Shrink, err = s.cleaner.Shrink(s.ctx, s.config.ShrinkRatio)
	mxShrinkTook.UpdateDuration(start)
	if err != nil {
		return res, s.check(fmt.Errorf("failed to compact segments: %w", err))
	}
	s.log.Debug("Cleaned store", "horizon", horizon, "keys", stats.KeysVisited,
		"removed", stats.EntriesRemoved, "purged", stats.TombstonesPurged, "freed", stats.BytesFreed,
		"recycled", res.Shrink.SegmentsRecycled, "copied", res.Shrink.RecordsCopied, "retained", len(s.retained))
	return res, nil
}

func (s *Store) startBackgroundCleaning(interval time.Duration) {
	t := s.newTicker(interval)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer t.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-t.C():
				s.cleanInBackground()
			}
		}
	}()
}

func (s *Store) cleanInBackground() {
	root, found := s.roots.max()
	if !found {
		return
	}
	s.maintMu.Lock()
	done := s.cleaned && s.cleanHorizon >= root
	s.maintMu.Unlock()
	if done {
		return
	}
	stats, err := s.Clean(root)
	if err != nil {
		if !errors.Is(err, ErrClosed) && s.ctx.Err() == nil {
			s.log.Error("Background cleaning failed", "horizon", root, "err", err)
		}
		return
	}
	s.log.Debug("Background cleaning finished", "horizon", root, "removed", stats.EntriesRemoved)
}

// cleanerStorage exposes the segments of a store to the cleaner.
type cleanerStorage Store

func (c *cleanerStorage) Free(removed []index.KeyedEntry) error {
	s := (*Store)(c)
	s.segments.free(removed)
	for _, entry := range removed {
		s.readCache.Remove(versionKey{key: entry.Key, slot: entry.Slot})
	}
	return nil
}

func (c *cleanerStorage) ShrinkCandidates(ratio float64) *roaring.Bitmap {
	return c.segments.shrinkCandidates(ratio)
}

// CopyForward appends copies of the given records, keeping their slots and
// write versions, so a replay restores the same index.
func (c *cleanerStorage) CopyForward(entries []index.KeyedEntry) ([]common.AccountInfo, error) {
	s := (*Store)(c)
	type copied struct {
		pos     int
		storage appendstore.StorableAccount
	}
	bySlot := map[common.Slot][]copied{}
	var order []common.Slot

	s.segments.gate.RLock()
	for i, entry := range entries {
		stored, account, err := s.segments.readAccount(entry.Info.Location)
		if err == nil && (stored.Key != entry.Key || stored.Slot != entry.Slot) {
			err = fmt.Errorf("%w: found key %v of slot %d", ErrCorruptSegment, stored.Key, stored.Slot)
		}
		if err != nil {
			s.segments.gate.RUnlock()
			return nil, fmt.Errorf("failed to read %v at %v: %w", entry.Key, entry.Info.Location, err)
		}
		if _, found := bySlot[entry.Slot]; !found {
			order = append(order, entry.Slot)
		}
		bySlot[entry.Slot] = append(bySlot[entry.Slot], copied{
			pos: i,
			storage: appendstore.StorableAccount{
				Key:          entry.Key,
				Account:      &account,
				WriteVersion: stored.WriteVersion,
			},
		})
	}
	s.segments.gate.RUnlock()

	res := make([]common.AccountInfo, len(entries))
	for _, slot := range order {
		group := bySlot[slot]
		storables := make([]appendstore.StorableAccount, len(group))
		for i := range group {
			storables[i] = group[i].storage
		}
		infos, err := s.segments.append(slot, storables)
		if err != nil {
			return nil, err
		}
		for i := range group {
			res[group[i].pos] = infos[i]
		}
	}
	return res, nil
}

// retainedDeletion is a purged deletion record that still shadows older
// records of its key in other segments.
type retainedDeletion struct {
	key          common.Key
	slot         common.Slot
	info         common.AccountInfo
	dependencies *roaring.Bitmap // < segments possibly holding older records of the key
}

// Retain tracks purged deletions as long as the filters of other segments
// report their keys. Tracking is in memory only; after a restart the replay
// indexes the deletions again and the next cleaning pass re-registers them.
func (c *cleanerStorage) Retain(purged []index.KeyedEntry) error {
	s := (*Store)(c)
	for _, entry := range purged {
		dependencies := roaring.New()
		for _, seg := range s.segments.candidatesFor(entry.Key) {
			if seg.id != entry.Info.Location.Segment {
				dependencies.Add(uint32(seg.id))
			}
		}
		if dependencies.IsEmpty() {
			continue
		}
		s.retained[versionKey{key: entry.Key, slot: entry.Slot}] = &retainedDeletion{
			key:          entry.Key,
			slot:         entry.Slot,
			info:         entry.Info,
			dependencies: dependencies,
		}
	}
	return nil
}

func (c *cleanerStorage) Recycle(segments *roaring.Bitmap) error {
	s := (*Store)(c)
	if err := c.carryRetained(segments); err != nil {
		return err
	}
	err := s.segments.recycle(segments)
	mxRecycledSegments.Add(int(segments.GetCardinality()))
	if err != nil {
		return err
	}
	for id, deletion := range s.retained {
		deletion.dependencies.AndNot(segments)
		if deletion.dependencies.IsEmpty() {
			delete(s.retained, id)
		}
	}
	return nil
}

// carryRetained copies retained deletions out of segments about to be
// recycled. The copies are dead from the start but keep shadowing the older
// records of their keys when the segments are replayed.
func (c *cleanerStorage) carryRetained(segments *roaring.Bitmap) error {
	s := (*Store)(c)
	var moving []*retainedDeletion
	var entries []index.KeyedEntry
	for _, deletion := range s.retained {
		if segments.Contains(uint32(deletion.info.Location.Segment)) {
			moving = append(moving, deletion)
			entries = append(entries, index.KeyedEntry{Key: deletion.key, Entry: index.Entry{Slot: deletion.slot, Info: deletion.info}})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	infos, err := c.CopyForward(entries)
	if err != nil {
		return fmt.Errorf("failed to carry purged deletions: %w", err)
	}
	copies := make([]index.KeyedEntry, len(entries))
	for i, deletion := range moving {
		deletion.info = infos[i]
		copies[i] = index.KeyedEntry{Key: deletion.key, Entry: index.Entry{Slot: deletion.slot, Info: infos[i]}}
	}
	s.segments.free(copies)
	return nil
}

var _ cleaner.Storage = (*cleanerStorage)(nil)
