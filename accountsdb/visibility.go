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
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
)

// visibleEntry selects the version of an account visible on the fork given
// by the ancestors: the newest entry of an ancestor slot, or if there is
// none, the newest rooted entry not above the oldest ancestor. Without
// ancestors the newest rooted entry is visible.
func visibleEntry(entries []index.Entry, ancestors Ancestors, isRooted func(common.Slot) bool) (index.Entry, bool) {
	if entry, found := newestInAncestors(entries, ancestors); found {
		return entry, true
	}
	limit, hasLimit := ancestors.Min()
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if (!hasLimit || entry.Slot <= limit) && isRooted(entry.Slot) {
			return entry, true
		}
	}
	return index.Entry{}, false
}

func newestInAncestors(entries []index.Entry, ancestors Ancestors) (index.Entry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if ancestors.Contains(entries[i].Slot) {
			return entries[i], true
		}
	}
	return index.Entry{}, false
}

// rootedEntryAtMost selects the version visible in the state of the given root.
func rootedEntryAtMost(entries []index.Entry, root common.Slot, isRooted func(common.Slot) bool) (index.Entry, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Slot <= root && isRooted(entries[i].Slot) {
			return entries[i], true
		}
	}
	return index.Entry{}, false
}
