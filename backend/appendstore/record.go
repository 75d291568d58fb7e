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
	"encoding/binary"
	"fmt"

	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/cespare/xxhash/v2"
)

// Record layout, all integers little endian, records aligned to 8 bytes:
//
//	0   size of the record including trailer
//	8   slot
//	16  write version
//	24  key
//	56  owner
//	88  balance
//	96  rent epoch
//	104 flags (bit 0 = executable)
//	112 data length
//	120 data, zero padded to 8 bytes
//	-16 xxhash64 of bytes [8, size-16)
//	-8  size of the record, repeated
const (
	Alignment   = 8
	HeaderSize  = 120
	TrailerSize = 16
	// MinRecordSize is the size of a record without data.
	MinRecordSize = HeaderSize + TrailerSize

	offSize         = 0
	offSlot         = 8
	offWriteVersion = 16
	offKey          = 24
	offOwner        = 56
	offBalance      = 88
	offRentEpoch    = 96
	offFlags        = 104
	offDataLength   = 112

	flagExecutable = 1
)

// RecordSize returns the number of bytes a record with the given payload
// length occupies.
func RecordSize(dataLength int) uint64 {
	return HeaderSize + align(uint64(dataLength)) + TrailerSize
}

func align(size uint64) uint64 {
	return (size + Alignment - 1) &^ (Alignment - 1)
}

// encodeRecord writes the record into the given buffer, which must be exactly
// RecordSize bytes long and zeroed.
func encodeRecord(buffer []byte, slot common.Slot, account StorableAccount) {
	size := uint64(len(buffer))
	binary.LittleEndian.PutUint64(buffer[offSize:], size)
	binary.LittleEndian.PutUint64(buffer[offSlot:], uint64(slot))
	binary.LittleEndian.PutUint64(buffer[offWriteVersion:], account.WriteVersion)
	copy(buffer[offKey:], account.Key[:])
	copy(buffer[offOwner:], account.Account.Owner[:])
	binary.LittleEndian.PutUint64(buffer[offBalance:], account.Account.Balance)
	binary.LittleEndian.PutUint64(buffer[offRentEpoch:], account.Account.RentEpoch)
	var flags uint64
	if account.Account.Executable {
		flags |= flagExecutable
	}
	binary.LittleEndian.PutUint64(buffer[offFlags:], flags)
	binary.LittleEndian.PutUint64(buffer[offDataLength:], uint64(len(account.Account.Data)))
	copy(buffer[HeaderSize:], account.Account.Data)
	checksum := xxhash.Sum64(buffer[offSlot : size-TrailerSize])
	binary.LittleEndian.PutUint64(buffer[size-TrailerSize:], checksum)
	binary.LittleEndian.PutUint64(buffer[size-8:], size)
}

// decodeRecord validates and decodes the record starting at the beginning of
// the given region. A zero size field marks the clean end of the records and
// is reported with a zero-sized result and no error.
func decodeRecord(region []byte) (StoredAccount, error) {
	if len(region) < 8 {
		return StoredAccount{}, nil
	}
	size := binary.LittleEndian.Uint64(region[offSize:])
	if size == 0 {
		return StoredAccount{}, nil
	}
	if size < MinRecordSize || size%Alignment != 0 || size > uint64(len(region)) {
		return StoredAccount{}, fmt.Errorf("%w: invalid record size %d", ErrCorrupted, size)
	}
	if trailing := binary.LittleEndian.Uint64(region[size-8:]); trailing != size {
		return StoredAccount{}, fmt.Errorf("%w: leading size %d does not match trailing size %d", ErrCorrupted, size, trailing)
	}
	dataLength := binary.LittleEndian.Uint64(region[offDataLength:])
	if dataLength > size || RecordSize(int(dataLength)) != size {
		return StoredAccount{}, fmt.Errorf("%w: data length %d inconsistent with record size %d", ErrCorrupted, dataLength, size)
	}
	checksum := binary.LittleEndian.Uint64(region[size-TrailerSize:])
	if want := xxhash.Sum64(region[offSlot : size-TrailerSize]); want != checksum {
		return StoredAccount{}, fmt.Errorf("%w: checksum mismatch", ErrCorrupted)
	}

	res := StoredAccount{
		Slot:         common.Slot(binary.LittleEndian.Uint64(region[offSlot:])),
		WriteVersion: binary.LittleEndian.Uint64(region[offWriteVersion:]),
		Balance:      binary.LittleEndian.Uint64(region[offBalance:]),
		RentEpoch:    binary.LittleEndian.Uint64(region[offRentEpoch:]),
		Executable:   binary.LittleEndian.Uint64(region[offFlags:])&flagExecutable != 0,
		Data:         region[HeaderSize : HeaderSize+dataLength : HeaderSize+dataLength],
		Size:         uint32(size),
	}
	copy(res.Key[:], region[offKey:])
	copy(res.Owner[:], region[offOwner:])
	return res, nil
}
