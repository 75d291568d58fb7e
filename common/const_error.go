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

// ConstError is a string-based error usable in constant declarations, so that
// sentinel errors of a package cannot be reassigned. Callers match them with
// errors.Is; context is added by wrapping with %w.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}
