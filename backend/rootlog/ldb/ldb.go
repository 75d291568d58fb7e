// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/accountsdb/backend/rootlog"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Log is a root log persisted in a LevelDB instance.
type Log struct {
	db *leveldb.DB
}

// Open opens or creates the log in the given directory.
func Open(path string) (*Log, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open root log %s: %w", path, err)
	}
	return &Log{db: db}, nil
}

func (l *Log) AddRoot(slot common.Slot) error {
	key := rootlog.ToDbKey(rootlog.RootKey, slot)
	return l.db.Put(key[:], nil, &opt.WriteOptions{Sync: true})
}

func (l *Log) Roots() ([]common.Slot, error) {
	var res []common.Slot
	iter := l.db.NewIterator(util.BytesPrefix([]byte{byte(rootlog.RootKey)}), nil)
	defer iter.Release()
	for iter.Next() {
		res = append(res, rootlog.SlotOf(iter.Key()))
	}
	return res, iter.Error()
}

func (l *Log) SetDeltaHash(slot common.Slot, hash common.Hash) error {
	key := rootlog.ToDbKey(rootlog.DeltaHashKey, slot)
	return l.db.Put(key[:], hash[:], nil)
}

func (l *Log) GetDeltaHash(slot common.Slot) (common.Hash, bool, error) {
	key := rootlog.ToDbKey(rootlog.DeltaHashKey, slot)
	data, err := l.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return common.Hash{}, false, nil
	}
	if err != nil {
		return common.Hash{}, false, err
	}
	var res common.Hash
	if len(data) != len(res) {
		return res, false, fmt.Errorf("invalid delta hash of slot %d with %d bytes", slot, len(data))
	}
	copy(res[:], data)
	return res, true, nil
}

func (l *Log) SetFullHash(slot common.Slot, hash rootlog.FullHash) error {
	key := rootlog.ToDbKey(rootlog.FullHashKey, slot)
	return l.db.Put(key[:], rootlog.EncodeFullHash(hash), nil)
}

func (l *Log) GetFullHash(slot common.Slot) (rootlog.FullHash, bool, error) {
	key := rootlog.ToDbKey(rootlog.FullHashKey, slot)
	data, err := l.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return rootlog.FullHash{}, false, nil
	}
	if err != nil {
		return rootlog.FullHash{}, false, err
	}
	res, ok := rootlog.DecodeFullHash(data)
	if !ok {
		return res, false, fmt.Errorf("invalid full hash of slot %d with %d bytes", slot, len(data))
	}
	return res, true, nil
}

func (l *Log) LastFullHash() (common.Slot, rootlog.FullHash, bool, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte{byte(rootlog.FullHashKey)}), nil)
	defer iter.Release()
	if !iter.Last() {
		return 0, rootlog.FullHash{}, false, iter.Error()
	}
	res, ok := rootlog.DecodeFullHash(iter.Value())
	if !ok {
		return 0, res, false, fmt.Errorf("invalid full hash with %d bytes", len(iter.Value()))
	}
	return rootlog.SlotOf(iter.Key()), res, true, nil
}

func (l *Log) Flush() error {
	// all writes are passed to LevelDB directly, roots synchronously
	return nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

var _ rootlog.Log = (*Log)(nil)
