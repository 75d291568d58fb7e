// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package amount

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Amount is a 256-bit unsigned integer used for aggregated token values like
// the capitalization of a ledger state. Individual balances fit into 64 bits,
// their sum over all accounts does not.
type Amount struct {
	internal uint256.Int
}

// New creates a new Amount from up to 4 uint64 words given in big endian
// order. No argument results in a value of zero. The constructor panics if
// more than 4 arguments are given.
func New(words ...uint64) Amount {
	if len(words) > 4 {
		panic("too many arguments")
	}
	result := Amount{}
	offset := 4 - len(words)
	for i := range words {
		result.internal[3-i-offset] = words[i]
	}
	return result
}

// NewFromBytes creates an Amount from up to 32 bytes in big endian order.
// The constructor panics if more than 32 bytes are given.
func NewFromBytes(bytes ...byte) Amount {
	if len(bytes) > 32 {
		panic("too many arguments")
	}
	result := Amount{}
	result.internal.SetBytes(bytes)
	return result
}

// NewFromBigInt creates a new Amount instance from a big.Int.
func NewFromBigInt(b *big.Int) (Amount, error) {
	if b == nil {
		return New(), nil
	}
	if b.Sign() < 0 {
		return Amount{}, fmt.Errorf("cannot construct Amount from negative big.Int")
	}
	result := Amount{}
	if overflow := result.internal.SetFromBig(b); overflow {
		return Amount{}, fmt.Errorf("big.Int has more than 256 bits")
	}
	return result, nil
}

// Parse reads a decimal representation of an amount.
func Parse(str string) (Amount, error) {
	result := Amount{}
	if err := result.internal.SetFromDecimal(str); err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", str, err)
	}
	return result, nil
}

// AddUint64 adds a single balance to the amount.
func (a Amount) AddUint64(value uint64) Amount {
	result := Amount{}
	result.internal.AddUint64(&a.internal, value)
	return result
}

// Uint64 returns the amount as an uint64. The result is only valid if
// IsUint64 returns true.
func (a Amount) Uint64() uint64 {
	return a.internal.Uint64()
}

// IsUint64 returns true if the amount is representable as an uint64.
func (a Amount) IsUint64() bool {
	return a.internal.IsUint64()
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.internal.IsZero()
}

// Cmp compares two amounts, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int {
	return a.internal.Cmp(&b.internal)
}

// ToBig returns a big.Int version of the amount.
func (a Amount) ToBig() *big.Int {
	return a.internal.ToBig()
}

// Bytes32 returns the amount as a 32 byte big endian array.
func (a Amount) Bytes32() [32]byte {
	return a.internal.Bytes32()
}

func (a Amount) String() string {
	return a.internal.Dec()
}

// Add returns the sum of two amounts.
func Add(a, b Amount) Amount {
	result := Amount{}
	result.internal.Add(&a.internal, &b.internal)
	return result
}

// Sum adds up the given balances without any risk of overflow.
func Sum(balances ...uint64) Amount {
	result := Amount{}
	for _, balance := range balances {
		result.internal.AddUint64(&result.internal, balance)
	}
	return result
}
