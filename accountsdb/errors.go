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
	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/cleaner"
	"github.com/Fantom-foundation/accountsdb/backend/hashing"
	"github.com/Fantom-foundation/accountsdb/common"
)

const (
	// ErrHalted is returned by mutating operations after a consistency or
	// corruption error was detected, until Resolve is called.
	ErrHalted = common.ConstError("store halted")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = common.ConstError("store closed")
	// ErrSlotFrozen is returned for writes to slots already flushed or below
	// the latest root.
	ErrSlotFrozen = common.ConstError("slot frozen")
	// ErrRootNotMonotonic is returned when rooting a slot below the latest root.
	ErrRootNotMonotonic = common.ConstError("roots must be added in increasing order")
	// ErrNotRooted is returned for operations requiring a rooted slot.
	ErrNotRooted = common.ConstError("slot not rooted")
	// ErrUnknownSlot is returned if no information on a slot is available.
	ErrUnknownSlot = common.ConstError("unknown slot")
	// ErrStateUnavailable is returned for state of roots already cleaned up.
	ErrStateUnavailable = common.ConstError("state no longer available")
	// ErrDataTooLarge is returned for accounts exceeding the data limit.
	ErrDataTooLarge = common.ConstError("account data too large")
	// ErrIncompatibleLayout is returned when opening a directory written
	// with a different segment size.
	ErrIncompatibleLayout = common.ConstError("incompatible store layout")

	// ErrCorruptSegment reports a record failing its consistency checks.
	ErrCorruptSegment = appendstore.ErrCorrupted
	// ErrHashMismatch reports a recomputed hash differing from the expected.
	ErrHashMismatch = hashing.ErrHashMismatch
	// ErrLastVisibleVersion reports cleaning that would break visibility.
	ErrLastVisibleVersion = cleaner.ErrLastVisibleVersion
)
