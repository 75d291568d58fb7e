// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"bytes"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/common"
)

// AppendStore is an in-memory append store using the same record encoding
// as the file based version. It is mainly intended for tests.
type AppendStore struct {
	*appendstore.Region
	data []byte
}

// New creates an empty in-memory append store of the given capacity.
func New(capacity uint64) *AppendStore {
	data := make([]byte, capacity)
	return &AppendStore{appendstore.NewRegion(data, 0, false), data}
}

// FromBytes creates a store replaying the records contained in the given
// buffer, as if the buffer would have been read from a file.
func FromBytes(data []byte) (*AppendStore, appendstore.ScanResult, error) {
	res := &AppendStore{appendstore.NewRegion(data, 0, false), data}
	scan, err := appendstore.Recover(res.Region)
	return res, scan, err
}

// Bytes returns a copy of the raw content of the store.
func (s *AppendStore) Bytes() []byte {
	return bytes.Clone(s.data)
}

func (s *AppendStore) Flush() error {
	return nil
}

func (s *AppendStore) Close() error {
	return nil
}

func (s *AppendStore) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s) + uintptr(s.Capacity()))
	mf.AddChild("region", s.Region.GetMemoryFootprint())
	return mf
}

var _ appendstore.AppendStore = (*AppendStore)(nil)
