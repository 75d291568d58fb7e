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
	"context"
	"fmt"
	"time"

	"github.com/Fantom-foundation/accountsdb/backend/hashing"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/backend/rootlog"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/Fantom-foundation/accountsdb/common/amount"
)

// CalculateFullHash computes the hash over all accounts visible at the given
// root together with the sum of their balances, and records both.
func (s *Store) CalculateFullHash(ctx context.Context, root common.Slot) (common.Hash, amount.Amount, error) {
	res, err := s.fullHash(ctx, root)
	if err != nil {
		return common.Hash{}, amount.New(), err
	}
	record := rootlog.FullHash{Hash: res.Hash, Capitalization: res.Capitalization}
	if err := s.rootLog.SetFullHash(root, record); err != nil {
		return common.Hash{}, amount.New(), fmt.Errorf("failed to record hash of root %d: %w", root, err)
	}
	return res.Hash, res.Capitalization, nil
}

// GetFullHash returns the hash recorded for the given root.
func (s *Store) GetFullHash(root common.Slot) (common.Hash, amount.Amount, bool, error) {
	if err := s.checkOpen(); err != nil {
		return common.Hash{}, amount.New(), false, err
	}
	hash, found, err := s.rootLog.GetFullHash(root)
	return hash.Hash, hash.Capitalization, found, err
}

// VerifyHash recomputes the hash of the given root and compares it with the
// expected one. A mismatch is reported as ErrHashMismatch and halts the store.
func (s *Store) VerifyHash(ctx context.Context, root common.Slot, expected common.Hash) (bool, error) {
	return s.verify(ctx, root, expected, nil)
}

// VerifyHashAndCapitalization is like VerifyHash but also checks the sum of
// all balances visible at the root.
func (s *Store) VerifyHashAndCapitalization(ctx context.Context, root common.Slot, expected common.Hash, capitalization amount.Amount) (bool, error) {
	return s.verify(ctx, root, expected, &capitalization)
}

func (s *Store) verify(ctx context.Context, root common.Slot, expected common.Hash, capitalization *amount.Amount) (bool, error) {
	res, err := s.hashRoot(ctx, root, func(view hashing.View) (hashing.Result, error) {
		return s.engine.Verify(ctx, view, expected)
	})
	if err != nil {
		return false, err
	}
	if capitalization != nil && res.Capitalization.Cmp(*capitalization) != 0 {
		return false, s.check(fmt.Errorf("%w: root %d, expected capitalization %v, computed %v", ErrHashMismatch, root, *capitalization, res.Capitalization))
	}
	return true, nil
}

func (s *Store) fullHash(ctx context.Context, root common.Slot) (hashing.Result, error) {
	return s.hashRoot(ctx, root, func(view hashing.View) (hashing.Result, error) {
		return s.engine.FullHash(ctx, view)
	})
}

// hashRoot runs the given hashing operation on the state visible at a root.
func (s *Store) hashRoot(ctx context.Context, root common.Slot, hash func(hashing.View) (hashing.Result, error)) (hashing.Result, error) {
	if err := s.checkOpen(); err != nil {
		return hashing.Result{}, err
	}
	if !s.roots.IsRooted(root) {
		return hashing.Result{}, fmt.Errorf("%w: %d", ErrNotRooted, root)
	}
	s.maintMu.Lock()
	defer s.maintMu.Unlock()
	if s.cleaned && root < s.cleanHorizon {
		return hashing.Result{}, fmt.Errorf("%w: root %d is below cleaning horizon %d", ErrStateUnavailable, root, s.cleanHorizon)
	}

	start := time.Now()
	s.segments.gate.RLock()
	defer s.segments.gate.RUnlock()
	res, err := hash(hashing.View{
		Index: s.index,
		Visible: func(_ common.Key, entries []index.Entry) (index.Entry, bool) {
			return rootedEntryAtMost(entries, root, s.roots.IsRooted)
		},
		Source: recordSource{store: s},
	})
	if err != nil {
		return hashing.Result{}, s.check(fmt.Errorf("failed to hash root %d: %w", root, err))
	}
	mxFullHashTook.UpdateDuration(start)
	s.log.Debug("Computed full hash", "root", root, "hash", res.Hash, "accounts", res.Accounts,
		"capitalization", res.Capitalization, "elapsed", time.Since(start))
	return res, nil
}
