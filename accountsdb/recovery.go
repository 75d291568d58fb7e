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
	"golang.org/x/exp/slices"
)

// replay rebuilds the index and the filters from the segment files. If a key
// was stored twice for the same slot, which happens if a flush was repeated
// after a failure, the version with the higher write version is kept.
func (s *Store) replay() error {
	start := time.Now()
	ids, err := listSegmentFiles(s.segments.directory)
	if err != nil {
		return err
	}
	slices.Sort(ids)

	records, discarded := 0, 0
	maxVersion := uint64(0)
	for _, id := range ids {
		seg, recovered, err := s.segments.openSegment(id)
		if err != nil {
			return err
		}
		if recovered.DiscardedTail {
			discarded++
			s.log.Warn("Discarded invalid tail of segment", "segment", id, "valid", recovered.ValidLength)
		}

		var keys []common.Key
		_, err = seg.store.Scan(func(offset uint64, stored appendstore.StoredAccount) error {
			records++
			maxVersion = max(maxVersion, stored.WriteVersion)
			keys = append(keys, stored.Key)
			s.filter.Add(stored.Key)
			info := common.AccountInfo{
				Location:   common.StorageLocation{Segment: id, Offset: offset},
				StoredSize: stored.Size,
				Tombstone:  stored.Balance == 0,
			}
			return s.replayRecord(stored.Key, stored.Slot, stored.WriteVersion, info)
		})
		if err != nil {
			return s.check(fmt.Errorf("failed to replay segment %d: %w", id, err))
		}
		if err := s.segments.adoptRecovered(seg, keys); err != nil {
			return err
		}
	}
	s.writeVersion.Store(maxVersion)
	mxReplayTook.UpdateDuration(start)
	s.log.Info("Replayed segments", "segments", len(ids), "records", records,
		"discardedTails", discarded, "elapsed", time.Since(start))
	return nil
}

func (s *Store) replayRecord(key common.Key, slot common.Slot, version uint64, info common.AccountInfo) error {
	if !s.hasRoot || slot > s.latestRoot {
		s.flushed.Add(uint64(slot))
	}
	previous, replaced := s.index.Upsert(key, slot, info)
	if !replaced {
		return nil
	}
	var stored appendstore.StoredAccount
	err := s.segments.read(previous.Location, func(account appendstore.StoredAccount) error {
		stored = account
		return nil
	})
	if err != nil {
		return err
	}
	dead := previous
	if stored.WriteVersion > version {
		s.index.Upsert(key, slot, previous)
		dead = info
	}
	s.segments.free([]index.KeyedEntry{{Key: key, Entry: index.Entry{Slot: slot, Info: dead}}})
	return nil
}
