// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package filter

import (
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/cespare/xxhash/v2"
)

// Filter is a probabilistic membership test over account keys. Filters have
// a one-sided error: Contains never returns false for a key that was added,
// but may return true for keys that never were.
type Filter interface {
	Contains(key common.Key) bool

	// provides the size of the filter in memory in bytes
	common.MemoryFootprintProvider
}

// MutableFilter is a filter that can be extended. Filters never shrink, an
// outdated filter is discarded as a whole.
type MutableFilter interface {
	Filter
	Add(key common.Key)
}

// KeyHash is the 64-bit hash of a key all filters are built on.
func KeyHash(key common.Key) uint64 {
	return xxhash.Sum64(key[:])
}
