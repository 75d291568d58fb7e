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
	"strings"
	"testing"
)

// storeFootprint builds a tree shaped like the one reported by a store.
func storeFootprint() *MemoryFootprint {
	res := NewMemoryFootprint(64)
	segments := NewMemoryFootprint(512)
	segments.AddChild("0", NewMemoryFootprint(4*1024))
	segments.AddChild("1", NewMemoryFootprint(2*1024))
	res.AddChild("segments", segments)
	res.AddChild("index", NewMemoryFootprint(3*1024*1024))
	res.AddChild("readCache", NewMemoryFootprint(0))
	return res
}

func TestMemoryFootprint_TotalSumsAllComponents(t *testing.T) {
	fp := storeFootprint()
	if got, want := fp.Value(), uintptr(64); got != want {
		t.Errorf("unexpected own value, wanted %d, got %d", want, got)
	}
	segments := fp.GetChild("segments")
	if segments == nil {
		t.Fatalf("segments should be registered")
	}
	if got, want := segments.Total(), uintptr(512+6*1024); got != want {
		t.Errorf("unexpected total of segments, wanted %d, got %d", want, got)
	}
	if got, want := fp.Total(), uintptr(64+512+6*1024+3*1024*1024); got != want {
		t.Errorf("unexpected total, wanted %d, got %d", want, got)
	}
	if fp.GetChild("unknown") != nil {
		t.Errorf("unknown components should not be found")
	}
}

func TestMemoryFootprint_SharedComponentsAreCountedOnce(t *testing.T) {
	shared := NewMemoryFootprint(100)
	fp := NewMemoryFootprint(10)
	fp.AddChild("filter", shared)
	fp.AddChild("segments", NewMemoryFootprint(20))
	fp.GetChild("segments").AddChild("filter", shared)
	fp.AddChild("self", fp)
	fp.AddChild("missing", nil)

	if got, want := fp.Total(), uintptr(130); got != want {
		t.Errorf("unexpected total, wanted %d, got %d", want, got)
	}
	if fp.GetChild("missing") != nil {
		t.Errorf("nil components should be ignored")
	}
	if got := strings.Count(fp.String(), "/filter"); got != 1 {
		t.Errorf("shared component should be printed once, got %d times:\n%v", got, fp)
	}
}

func TestMemoryFootprint_StringListsComponentsBeforeTheirParent(t *testing.T) {
	fp := storeFootprint()
	fp.GetChild("segments").SetNote("2 segments")

	lines := strings.Split(strings.TrimSpace(fp.String()), "\n")
	want := []string{
		"   3.0 MB ./index",
		"   0.0  B ./readCache",
		"   4.0 KB ./segments/0",
		"   2.0 KB ./segments/1",
		"   6.5 KB ./segments (2 segments)",
		"   3.0 MB .",
	}
	if len(lines) != len(want) {
		t.Fatalf("unexpected output:\n%v", fp)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("unexpected line %d, wanted %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestMemoryFootprint_AmountsUseBinaryUnits(t *testing.T) {
	tests := map[uintptr]string{
		0:               "   0.0  B",
		1023:            "1023.0  B",
		1024:            "   1.0 KB",
		1536:            "   1.5 KB",
		5 * 1024 * 1024: "   5.0 MB",
		3 << 30:         "   3.0 GB",
		1<<40 + 512<<30: "   1.5 TB",
	}
	for bytes, want := range tests {
		if got := memoryAmountToString(bytes); got != want {
			t.Errorf("unexpected rendering of %d bytes, wanted %q, got %q", bytes, want, got)
		}
	}
}
