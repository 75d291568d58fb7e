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
	"sync"

	"github.com/Fantom-foundation/accountsdb/backend/rootlog"
	"github.com/Fantom-foundation/accountsdb/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Log is an in-memory root log for tests and ephemeral stores.
type Log struct {
	mu     sync.Mutex
	roots  map[common.Slot]struct{}
	deltas map[common.Slot]common.Hash
	fulls  map[common.Slot]rootlog.FullHash
}

func New() *Log {
	return &Log{
		roots:  map[common.Slot]struct{}{},
		deltas: map[common.Slot]common.Hash{},
		fulls:  map[common.Slot]rootlog.FullHash{},
	}
}

func (l *Log) AddRoot(slot common.Slot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roots[slot] = struct{}{}
	return nil
}

func (l *Log) Roots() ([]common.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := maps.Keys(l.roots)
	slices.Sort(res)
	return res, nil
}

func (l *Log) SetDeltaHash(slot common.Slot, hash common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deltas[slot] = hash
	return nil
}

func (l *Log) GetDeltaHash(slot common.Slot) (common.Hash, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, found := l.deltas[slot]
	return res, found, nil
}

func (l *Log) SetFullHash(slot common.Slot, hash rootlog.FullHash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fulls[slot] = hash
	return nil
}

func (l *Log) GetFullHash(slot common.Slot) (rootlog.FullHash, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, found := l.fulls[slot]
	return res, found, nil
}

func (l *Log) LastFullHash() (common.Slot, rootlog.FullHash, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	found := false
	var last common.Slot
	for slot := range l.fulls {
		if !found || slot > last {
			last, found = slot, true
		}
	}
	return last, l.fulls[last], found, nil
}

func (l *Log) Flush() error {
	return nil
}

func (l *Log) Close() error {
	return nil
}

var _ rootlog.Log = (*Log)(nil)
