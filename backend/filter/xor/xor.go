// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package xor

import (
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/filter"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/FastFilter/xorfilter"
	"golang.org/x/exp/slices"
)

// Filter is an immutable xor filter over a fixed set of keys. Compared to a
// bloom filter it is smaller and has a lower false positive rate, but it can
// not be extended. It is used for sealed scopes like full segments.
type Filter struct {
	filter *xorfilter.Xor8 // < nil for an empty key set
}

// Build creates a filter containing exactly the given keys. Duplicates are
// permitted.
func Build(keys []common.Key) (*Filter, error) {
	hashes := make([]uint64, 0, len(keys))
	for _, key := range keys {
		hashes = append(hashes, filter.KeyHash(key))
	}
	slices.Sort(hashes)
	hashes = slices.Compact(hashes)
	if len(hashes) == 0 {
		return &Filter{}, nil
	}
	f, err := xorfilter.Populate(hashes)
	if err != nil {
		return nil, fmt.Errorf("failed to build xor filter for %d keys: %w", len(hashes), err)
	}
	return &Filter{filter: f}, nil
}

func (f *Filter) Contains(key common.Key) bool {
	if f.filter == nil {
		return false
	}
	return f.filter.Contains(filter.KeyHash(key))
}

func (f *Filter) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*f))
	if f.filter != nil {
		mf.AddChild("fingerprints", common.NewMemoryFootprint(uintptr(len(f.filter.Fingerprints))))
	}
	return mf
}

var _ filter.Filter = (*Filter)(nil)
