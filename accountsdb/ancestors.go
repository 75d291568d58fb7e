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
	"github.com/Fantom-foundation/accountsdb/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Ancestors is the set of slots forming the fork a read is performed on,
// typically the slot being processed and its unrooted parents.
type Ancestors struct {
	slots map[common.Slot]struct{}
	min   common.Slot
}

// NewAncestors creates the ancestor set of the given slots.
func NewAncestors(slots ...common.Slot) Ancestors {
	res := Ancestors{slots: make(map[common.Slot]struct{}, len(slots))}
	for i, slot := range slots {
		res.slots[slot] = struct{}{}
		if i == 0 || slot < res.min {
			res.min = slot
		}
	}
	return res
}

// Contains tests whether the given slot is part of the ancestors.
func (a Ancestors) Contains(slot common.Slot) bool {
	_, found := a.slots[slot]
	return found
}

// Min returns the lowest slot of the ancestors, false if there is none.
func (a Ancestors) Min() (common.Slot, bool) {
	return a.min, len(a.slots) > 0
}

func (a Ancestors) Len() int {
	return len(a.slots)
}

// Slots returns the ancestor slots in ascending order.
func (a Ancestors) Slots() []common.Slot {
	res := maps.Keys(a.slots)
	slices.Sort(res)
	return res
}
