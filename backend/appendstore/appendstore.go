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

//go:generate mockgen -source appendstore.go -destination appendstore_mocks.go -package appendstore

import (
	"github.com/Fantom-foundation/accountsdb/common"
)

const (
	// ErrNoSpace is returned by Append if the batch does not fit into the
	// remaining capacity. No bytes are written in this case.
	ErrNoSpace = common.ConstError("insufficient space in append store")
	// ErrCorrupted is returned if a record fails its consistency checks.
	ErrCorrupted = common.ConstError("corrupted record")
	// ErrInvalidOffset is returned for reads of offsets never handed out.
	ErrInvalidOffset = common.ConstError("invalid record offset")
	// ErrReadOnly is returned for mutations of stores opened read-only.
	ErrReadOnly = common.ConstError("append store is read-only")
)

// AppendStore is a fixed-capacity region holding immutable account records
// written once and read many times. Records are addressed by the offset
// returned when they were appended. Appends are serialized internally and may
// run concurrently with reads of previously returned offsets.
type AppendStore interface {
	// Append writes all accounts as one unit. Either all records are written
	// and their offsets returned in input order, or ErrNoSpace is returned and
	// the store is unchanged.
	Append(slot common.Slot, accounts []StorableAccount) ([]uint64, error)

	// Read decodes the record at the given offset and passes a view of it to
	// the visitor. The Data of the view references the underlying storage and
	// must not be retained beyond the visitor call.
	Read(offset uint64, visit func(StoredAccount) error) error

	// Scan visits all valid records in offset order. It stops at the first
	// invalid record and reports how much of the store is valid.
	Scan(visit func(offset uint64, account StoredAccount) error) (ScanResult, error)

	// Reset discards all records and rewinds the store to empty so that it
	// can be recycled. Callers must ensure no reads are in flight.
	Reset() error

	// Len returns the number of bytes occupied by records.
	Len() uint64

	// Capacity returns the total number of bytes the store may hold.
	Capacity() uint64

	// Remaining returns the number of bytes still available for appends.
	Remaining() uint64

	// provides the size of the store in memory in bytes
	common.MemoryFootprintProvider

	// append stores need to be flushed and closed
	common.FlushAndCloser
}

// StorableAccount is an account to be appended together with the facade
// assigned write version tagging it.
type StorableAccount struct {
	Key          common.Key
	Account      *common.Account
	WriteVersion uint64
}

// StoredAccount is a decoded view of a record.
type StoredAccount struct {
	Slot         common.Slot
	WriteVersion uint64
	Key          common.Key
	Owner        common.Key
	Balance      uint64
	RentEpoch    uint64
	Executable   bool
	Data         []byte // < view into the store, only valid during the visit
	Size         uint32 // < bytes occupied by the record including padding
}

// ToAccount converts the view into an independent account.
func (s *StoredAccount) ToAccount() common.Account {
	res := common.Account{
		Owner:      s.Owner,
		Balance:    s.Balance,
		Executable: s.Executable,
		RentEpoch:  s.RentEpoch,
	}
	if len(s.Data) > 0 {
		res.Data = make([]byte, len(s.Data))
		copy(res.Data, s.Data)
	}
	return res
}

// ScanResult summarizes a replay of an append store.
type ScanResult struct {
	Records       int    // < number of valid records
	ValidLength   uint64 // < bytes covered by valid records
	DiscardedTail bool   // < set if non-empty bytes followed the last valid record
}

// ReadValue reads the record at the given offset and returns the result
// produced from it by the given function.
func ReadValue[T any](store AppendStore, offset uint64, get func(StoredAccount) (T, error)) (T, error) {
	var res T
	err := store.Read(offset, func(account StoredAccount) error {
		var err error
		res, err = get(account)
		return err
	})
	return res, err
}

// ReadAccount reads the record at the given offset as an independent account.
func ReadAccount(store AppendStore, offset uint64) (common.Slot, common.Account, error) {
	type result struct {
		slot    common.Slot
		account common.Account
	}
	res, err := ReadValue(store, offset, func(stored StoredAccount) (result, error) {
		return result{stored.Slot, stored.ToAccount()}, nil
	})
	return res.slot, res.account, err
}
