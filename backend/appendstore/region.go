// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package appendstore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/common"
)

// Region implements the record management of an append store on top of a
// fixed-size byte slice. It is shared by the in-memory and the memory-mapped
// implementations, which only differ in how the slice is obtained.
type Region struct {
	data     []byte
	length   atomic.Uint64 // < published length, all records below are complete
	mu       sync.Mutex    // < serializes appends and resets
	readOnly bool
}

// NewRegion wraps the given buffer. The buffer must be zeroed beyond the given
// length, which must be the end of the last valid record.
func NewRegion(data []byte, length uint64, readOnly bool) *Region {
	res := &Region{data: data, readOnly: readOnly}
	res.length.Store(length)
	return res
}

func (r *Region) Append(slot common.Slot, accounts []StorableAccount) ([]uint64, error) {
	if r.readOnly {
		return nil, ErrReadOnly
	}
	total := uint64(0)
	for _, account := range accounts {
		total += RecordSize(len(account.Account.Data))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	start := r.length.Load()
	if start+total > uint64(len(r.data)) {
		return nil, ErrNoSpace
	}
	offsets := make([]uint64, len(accounts))
	position := start
	for i, account := range accounts {
		size := RecordSize(len(account.Account.Data))
		encodeRecord(r.data[position:position+size], slot, account)
		offsets[i] = position
		position += size
	}
	// publish only after all bytes are in place
	r.length.Store(position)
	return offsets, nil
}

func (r *Region) Read(offset uint64, visit func(StoredAccount) error) error {
	length := r.length.Load()
	if offset%Alignment != 0 || offset+MinRecordSize > length {
		return fmt.Errorf("%w: %d (length %d)", ErrInvalidOffset, offset, length)
	}
	record, err := decodeRecord(r.data[offset:length])
	if err != nil {
		return fmt.Errorf("failed to read record at offset %d: %w", offset, err)
	}
	if record.Size == 0 {
		return fmt.Errorf("%w: no record at %d", ErrInvalidOffset, offset)
	}
	return visit(record)
}

func (r *Region) Scan(visit func(offset uint64, account StoredAccount) error) (ScanResult, error) {
	return scan(r.data[:r.length.Load()], visit)
}

// scan replays the records in the given buffer until the first invalid one.
func scan(data []byte, visit func(offset uint64, account StoredAccount) error) (ScanResult, error) {
	res := ScanResult{}
	position := uint64(0)
	for position < uint64(len(data)) {
		record, err := decodeRecord(data[position:])
		if err != nil || record.Size == 0 {
			res.DiscardedTail = err != nil || !isZero(data[position:])
			break
		}
		if visit != nil {
			if err := visit(position, record); err != nil {
				return res, err
			}
		}
		res.Records++
		position += uint64(record.Size)
		res.ValidLength = position
	}
	return res, nil
}

// Reset zeroes the used part of the region and rewinds it.
func (r *Region) Reset() error {
	if r.readOnly {
		return ErrReadOnly
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.data[:r.length.Load()])
	r.length.Store(0)
	return nil
}

// truncate discards everything beyond the given length.
func (r *Region) truncate(length uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.data[length:])
	r.length.Store(length)
}

func (r *Region) Len() uint64 {
	return r.length.Load()
}

func (r *Region) Capacity() uint64 {
	return uint64(len(r.data))
}

func (r *Region) Remaining() uint64 {
	return r.Capacity() - r.Len()
}

func (r *Region) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*r))
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Recover validates the records of the region, discarding a corrupted tail.
// It is intended to be used by implementations when reopening a store.
func Recover(region *Region) (ScanResult, error) {
	res, err := scan(region.data, nil)
	if err != nil {
		return res, err
	}
	if res.DiscardedTail && !region.readOnly {
		region.truncate(res.ValidLength)
	} else {
		region.length.Store(res.ValidLength)
	}
	return res, nil
}
