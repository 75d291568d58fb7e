// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package index

import (
	"sort"

	"github.com/Fantom-foundation/accountsdb/common"
)

// DedupPolicy decides which of several writes of the same key within one
// slot survives.
type DedupPolicy int

const (
	// DedupKeepLast retains the most recent write of a key.
	DedupKeepLast DedupPolicy = iota
	// DedupKeepFirst retains the earliest write of a key.
	DedupKeepFirst
)

func (p DedupPolicy) String() string {
	switch p {
	case DedupKeepLast:
		return "keep-last"
	case DedupKeepFirst:
		return "keep-first"
	}
	return "unknown"
}

// SortAndRemoveDups orders the given writes by key and reduces them to one
// write per key according to the policy. The input must be in write order;
// it is sorted in place and a prefix of it is returned.
func SortAndRemoveDups[T any](writes []T, keyOf func(*T) common.Key, policy DedupPolicy) []T {
	if len(writes) < 2 {
		return writes
	}
	sort.SliceStable(writes, func(i, j int) bool {
		return keyOf(&writes[i]).Compare(keyOf(&writes[j])) < 0
	})
	res := writes[:0]
	for i := 0; i < len(writes); {
		key := keyOf(&writes[i])
		j := i + 1
		for j < len(writes) && keyOf(&writes[j]) == key {
			j++
		}
		if policy == DedupKeepFirst {
			res = append(res, writes[i])
		} else {
			res = append(res, writes[j-1])
		}
		i = j
	}
	return res
}
