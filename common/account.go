// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"fmt"
)

// Account is one versioned snapshot of an account's state. Accounts are
// written once and never modified; an update of an account is a new Account
// stored for a newer slot.
type Account struct {
	Owner      Key    // the program owning this account
	Balance    uint64 // zero marks the account as deleted (tombstone)
	Executable bool
	RentEpoch  uint64 // staleness counter
	Data       []byte
}

// IsTombstone returns true if this account represents a deleted account.
func (a *Account) IsTombstone() bool {
	return a.Balance == 0
}

// Equal compares two accounts field by field.
func (a *Account) Equal(b *Account) bool {
	return a.Owner == b.Owner &&
		a.Balance == b.Balance &&
		a.Executable == b.Executable &&
		a.RentEpoch == b.RentEpoch &&
		bytes.Equal(a.Data, b.Data)
}

// Clone creates a deep copy of the account not sharing its payload.
func (a *Account) Clone() Account {
	res := *a
	if a.Data != nil {
		res.Data = bytes.Clone(a.Data)
	}
	return res
}

func (a Account) String() string {
	return fmt.Sprintf("Account{owner: %v, balance: %d, executable: %t, rentEpoch: %d, data: %d bytes}",
		a.Owner, a.Balance, a.Executable, a.RentEpoch, len(a.Data))
}

// KeyedAccount is an account paired with its key.
type KeyedAccount struct {
	Key     Key
	Account Account
}
