// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package hashing

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/Fantom-foundation/accountsdb/common/amount"
)

//go:generate mockgen -source engine.go -destination engine_mocks.go -package hashing

// RecordSource provides the stored content of index entries.
type RecordSource interface {
	// LoadStored reads the account version referenced by the given entry.
	LoadStored(key common.Key, info common.AccountInfo) (common.Account, error)
}

// VisibleEntryFunc selects the entry of a key visible in the hashed state.
// It returns false if no entry is visible.
type VisibleEntryFunc func(key common.Key, entries []index.Entry) (index.Entry, bool)

// View describes the state to be hashed by a full hash computation.
type View struct {
	Index   index.Index
	Visible VisibleEntryFunc
	Source  RecordSource
}

// Result summarizes a full state hash computation.
type Result struct {
	Hash           common.Hash
	Capitalization amount.Amount // < sum of all visible balances
	Accounts       int           // < number of visible non-deleted accounts
}

// Engine computes state hashes over an index.
type Engine struct {
	workers int
}

// NewEngine creates an engine scanning the index with the given number of
// parallel workers. A non-positive value uses one worker per CPU.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Engine{workers: workers}
}

// DeltaHash computes the hash of the accounts written in a single slot.
func (e *Engine) DeltaHash(accounts []common.KeyedAccount) common.Hash {
	return DeltaHash(accounts)
}

// FullHash computes the hash of all accounts visible in the given view.
// Deleted accounts are excluded.
func (e *Engine) FullHash(ctx context.Context, view View) (Result, error) {
	type shardResult struct {
		hashes  []KeyedHash
		balance amount.Amount
	}
	results := make([]shardResult, view.Index.NumShards())
	err := view.Index.ForEachShard(ctx, e.workers, func(shard int, key common.Key, entries []index.Entry) error {
		entry, found := view.Visible(key, entries)
		if !found || entry.Info.Tombstone {
			return nil
		}
		account, err := view.Source.LoadStored(key, entry.Info)
		if err != nil {
			return fmt.Errorf("failed to load version of slot %d: %w", entry.Slot, err)
		}
		if account.IsTombstone() {
			return nil
		}
		res := &results[shard]
		res.hashes = append(res.hashes, KeyedHash{Key: key, Hash: AccountHash(key, &account)})
		res.balance = res.balance.AddUint64(account.Balance)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	total := 0
	for _, res := range results {
		total += len(res.hashes)
	}
	hashes := make([]KeyedHash, 0, total)
	capitalization := amount.New()
	for _, res := range results {
		hashes = append(hashes, res.hashes...)
		capitalization = amount.Add(capitalization, res.balance)
	}
	return Result{
		Hash:           RootOfKeyedHashes(hashes),
		Capitalization: capitalization,
		Accounts:       total,
	}, nil
}

// Verify recomputes the full hash of the given view and compares it with the
// expected hash. A difference is reported as ErrHashMismatch.
func (e *Engine) Verify(ctx context.Context, view View, expected common.Hash) (Result, error) {
	res, err := e.FullHash(ctx, view)
	if err != nil {
		return res, err
	}
	if res.Hash != expected {
		return res, fmt.Errorf("%w: expected %v, computed %v", ErrHashMismatch, expected, res.Hash)
	}
	return res, nil
}
