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
	"errors"
	"fmt"
	"testing"
)

const (
	errSegmentFull = ConstError("segment full")
	errBadChecksum = ConstError("bad checksum")
)

func TestConstError_MessageIsTheConstant(t *testing.T) {
	if got := errSegmentFull.Error(); got != "segment full" {
		t.Errorf("unexpected message %q", got)
	}
	wrapped := fmt.Errorf("segment %d: %w", 7, errBadChecksum)
	if got, want := wrapped.Error(), "segment 7: bad checksum"; got != want {
		t.Errorf("unexpected message of wrapped error, wanted %q, got %q", want, got)
	}
}

func TestConstError_EqualConstantsMatch(t *testing.T) {
	// values are compared, a second constant with the same text matches
	if !errors.Is(ConstError("segment full"), errSegmentFull) {
		t.Errorf("errors with equal messages should match")
	}
	if errors.Is(errBadChecksum, errSegmentFull) {
		t.Errorf("errors with different messages should not match")
	}
}

func TestConstError_IsFoundThroughWrappingAndJoining(t *testing.T) {
	replay := fmt.Errorf("failed to replay segment 3: %w", errBadChecksum)
	tests := map[string]struct {
		err  error
		want bool
	}{
		"nil":              {nil, false},
		"plain":            {errBadChecksum, true},
		"other constant":   {errSegmentFull, false},
		"wrapped":          {replay, true},
		"wrapped twice":    {fmt.Errorf("failed to open store: %w", replay), true},
		"joined":           {errors.Join(errSegmentFull, replay), true},
		"joined unrelated": {errors.Join(errSegmentFull, errors.New("bad checksum")), false},
		"empty join":       {errors.Join(), false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := errors.Is(test.err, errBadChecksum); got != test.want {
				t.Errorf("unexpected result for %v, wanted %t, got %t", test.err, test.want, got)
			}
		})
	}
}
