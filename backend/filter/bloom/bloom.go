// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package bloom

import (
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/filter"
	"github.com/Fantom-foundation/accountsdb/common"
	bloomfilter "github.com/holiman/bloomfilter/v2"
)

// Filter is a bloom filter over account keys. It may be accessed concurrently.
type Filter struct {
	filter *bloomfilter.Filter
}

// NewFilter creates a bloom filter sized for the given number of keys at the
// given false positive rate. Exceeding the expected number of keys increases
// the false positive rate but never causes false negatives.
func NewFilter(expectedItems uint64, falsePositiveRate float64) (*Filter, error) {
	if expectedItems == 0 {
		expectedItems = 1
	}
	f, err := bloomfilter.NewOptimal(expectedItems, falsePositiveRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create bloom filter: %w", err)
	}
	return &Filter{filter: f}, nil
}

func (f *Filter) Add(key common.Key) {
	f.filter.AddHash(filter.KeyHash(key))
}

func (f *Filter) Contains(key common.Key) bool {
	return f.filter.ContainsHash(filter.KeyHash(key))
}

// Count returns the number of keys added to the filter.
func (f *Filter) Count() uint64 {
	return f.filter.N()
}

func (f *Filter) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*f))
	mf.AddChild("bits", common.NewMemoryFootprint(uintptr(f.filter.M()/8)))
	return mf
}

var _ filter.MutableFilter = (*Filter)(nil)
