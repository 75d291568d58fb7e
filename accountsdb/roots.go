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
	"sync"

	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/google/btree"
)

// rootSet is the ordered set of rooted slots.
type rootSet struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[common.Slot]
}

func newRootSet(slots ...common.Slot) *rootSet {
	res := &rootSet{tree: btree.NewOrderedG[common.Slot](32)}
	for _, slot := range slots {
		res.tree.ReplaceOrInsert(slot)
	}
	return res
}

func (r *rootSet) add(slot common.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.ReplaceOrInsert(slot)
}

func (r *rootSet) IsRooted(slot common.Slot) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Has(slot)
}

func (r *rootSet) max() (common.Slot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Max()
}

func (r *rootSet) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}
