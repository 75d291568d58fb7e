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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/cleaner"
	"github.com/Fantom-foundation/accountsdb/backend/filter/bloom"
	"github.com/Fantom-foundation/accountsdb/backend/hashing"
	"github.com/Fantom-foundation/accountsdb/backend/index/sharded"
	"github.com/Fantom-foundation/accountsdb/backend/rootlog"
	"github.com/Fantom-foundation/accountsdb/backend/rootlog/ldb"
	rootlogmem "github.com/Fantom-foundation/accountsdb/backend/rootlog/memory"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/Fantom-foundation/accountsdb/common/ticker"
	"github.com/RoaringBitmap/roaring/roaring64"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ledgerwatch/log/v3"
)

// Store is the account state store. It keeps every version of every account
// written on any live fork, answers reads against ancestor chains, and
// computes state hashes. All methods are safe for concurrent use.
type Store struct {
	config    Config
	log       log.Logger
	directory string
	lock      common.LockFile

	index     *sharded.Index
	segments  *segmentTable
	roots     *rootSet
	rootLog   rootlog.Log
	filter    *bloom.Filter // < store-wide, contains every key ever written
	engine    *hashing.Engine
	cleaner   *cleaner.Cleaner
	readCache *lru.Cache[versionKey, common.Account]

	cacheMu    sync.RWMutex
	caches     map[common.Slot]*slotCache // < write caches of unflushed slots
	flushed    *roaring64.Bitmap          // < flushed slots above the latest root
	latestRoot common.Slot
	hasRoot    bool

	writeVersion atomic.Uint64
	flushMu      sync.Mutex // < serializes flushes
	rootMu       sync.Mutex // < serializes root additions
	maintMu      sync.Mutex // < serializes hashing and cleaning passes
	cleanHorizon common.Slot
	cleaned      bool
	retained     map[versionKey]*retainedDeletion // < guarded by maintMu

	haltMu  sync.RWMutex
	haltErr error
	closed  atomic.Bool

	ctx        context.Context // < cancelled on close
	cancel     context.CancelFunc
	newTicker  func(time.Duration) ticker.Ticker
	background sync.WaitGroup
}

type versionKey struct {
	key  common.Key
	slot common.Slot
}

// Open opens the store described by the given configuration. Directories
// are created as needed; existing segments are replayed to rebuild the index
// and the filters.
func Open(config Config) (*Store, error) {
	return open(config, func(d time.Duration) ticker.Ticker {
		return ticker.NewTimeTicker(d)
	})
}

func open(config Config, newTicker func(time.Duration) ticker.Ticker) (res *Store, err error) {
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	filter, err := bloom.NewFilter(config.ExpectedKeys, config.FilterFalsePositiveRate)
	if err != nil {
		return nil, err
	}
	readCache, err := lru.New[versionKey, common.Account](max(config.ReadCacheSize, 1))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		config:    config,
		log:       config.Logger,
		directory: config.Directory,
		index:     sharded.NewIndex(config.NumShards),
		filter:    filter,
		engine:    hashing.NewEngine(config.Workers),
		readCache: readCache,
		caches:    map[common.Slot]*slotCache{},
		flushed:   roaring64.New(),
		retained:  map[versionKey]*retainedDeletion{},
		ctx:       ctx,
		cancel:    cancel,
		newTicker: newTicker,
	}

	defer func() {
		if err != nil {
			cancel()
			err = errors.Join(err, s.release())
		}
	}()

	segmentDir := ""
	if s.directory != "" {
		if s.lock, err = lockDirectory(s.directory); err != nil {
			return nil, err
		}
		dirty, err := isDirty(s.directory)
		if err != nil {
			return nil, err
		}
		if dirty {
			s.log.Warn("Store was not closed cleanly, validating all segments", "dir", s.directory)
		}
		meta, found, err := readMetadata(s.directory)
		if err != nil {
			return nil, err
		}
		if found && meta.SegmentSize != config.SegmentSize.Bytes() {
			return nil, fmt.Errorf("%w: directory uses segments of %d bytes, configured %d",
				ErrIncompatibleLayout, meta.SegmentSize, config.SegmentSize.Bytes())
		}
		if found && meta.CleanHorizon != nil {
			s.cleanHorizon, s.cleaned = common.Slot(*meta.CleanHorizon), true
		}
		segmentDir = filepath.Join(s.directory, segmentsDirName)
		if err := os.MkdirAll(segmentDir, 0700); err != nil {
			return nil, err
		}
		if s.rootLog, err = ldb.Open(filepath.Join(s.directory, rootLogDirName)); err != nil {
			return nil, err
		}
		if err := markDirty(s.directory); err != nil {
			return nil, err
		}
	} else {
		s.rootLog = rootlogmem.New()
	}
	s.segments = newSegmentTable(segmentDir, config.SegmentSize.Bytes(), config.FilterFalsePositiveRate, s.log)

	roots, err := s.rootLog.Roots()
	if err != nil {
		return nil, fmt.Errorf("failed to load roots: %w", err)
	}
	s.roots = newRootSet(roots...)
	s.cleaner = cleaner.NewCleaner(s.index, (*cleanerStorage)(s), s.roots, config.Workers)
	if latest, found := s.roots.max(); found {
		s.latestRoot, s.hasRoot = latest, true
	}

	if segmentDir != "" {
		if err := s.replay(); err != nil {
			return nil, err
		}
	}

	if config.CleanInterval > 0 {
		s.startBackgroundCleaning(config.CleanInterval)
	}
	s.log.Info("Opened account store", "dir", s.directory, "roots", len(roots),
		"keys", s.index.NumKeys(), "entries", s.index.Len())
	return s, nil
}

// release frees the resources held by the store without persisting state.
func (s *Store) release() error {
	var errs []error
	if s.segments != nil {
		errs = append(errs, s.segments.close())
	}
	if s.rootLog != nil {
		errs = append(errs, s.rootLog.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Release())
	}
	return errors.Join(errs...)
}

// Close persists all flushed state and releases the store. Writes of slots
// not flushed yet are discarded.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	s.background.Wait()

	// wait for running maintenance passes to observe the cancellation
	s.maintMu.Lock()
	defer s.maintMu.Unlock()

	s.cacheMu.Lock()
	if len(s.caches) > 0 {
		s.log.Debug("Discarding unflushed slots", "slots", len(s.caches))
	}
	for _, cache := range s.caches {
		cache.drop()
	}
	s.caches = map[common.Slot]*slotCache{}
	s.cacheMu.Unlock()

	var errs []error
	errs = append(errs, s.segments.flush(), s.rootLog.Flush())
	if s.directory != "" {
		errs = append(errs, writeMetadata(s.directory, s.metadata()))
	}
	closeErr := errors.Join(errs...)
	if closeErr == nil && s.directory != "" {
		if s.Halted() != nil {
			s.log.Warn("Closing halted store, keeping directory marked dirty", "err", s.Halted())
		} else {
			closeErr = markClean(s.directory)
		}
	}
	return errors.Join(closeErr, s.release())
}

func (s *Store) metadata() metadata {
	meta := metadata{
		Version:     formatVersion,
		SegmentSize: s.config.SegmentSize.Bytes(),
		NumShards:   s.index.NumShards(),
	}
	if root, found := s.roots.max(); found {
		latest := uint64(root)
		meta.LatestRoot = &latest
	}
	if s.cleaned {
		horizon := uint64(s.cleanHorizon)
		meta.CleanHorizon = &horizon
	}
	return meta
}

// isFatal reports whether an error means the store state can no longer be
// trusted.
func isFatal(err error) bool {
	return errors.Is(err, ErrCorruptSegment) ||
		errors.Is(err, ErrHashMismatch) ||
		errors.Is(err, ErrLastVisibleVersion)
}

// check halts the store if the given error is fatal and returns it.
func (s *Store) check(err error) error {
	if err == nil || !isFatal(err) {
		return err
	}
	s.haltMu.Lock()
	defer s.haltMu.Unlock()
	if s.haltErr == nil {
		s.haltErr = err
		mxHalts.Inc()
		s.log.Error("Store halted, mutations are rejected until resolved", "err", err)
	}
	return err
}

// Halted returns the error the store was halted for, nil if it is not halted.
func (s *Store) Halted() error {
	s.haltMu.RLock()
	defer s.haltMu.RUnlock()
	return s.haltErr
}

// Resolve lifts a halt after the cause was investigated by an operator.
func (s *Store) Resolve() {
	s.haltMu.Lock()
	defer s.haltMu.Unlock()
	if s.haltErr != nil {
		s.log.Warn("Store halt resolved", "err", s.haltErr)
		s.haltErr = nil
	}
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *Store) checkWritable() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.Halted(); err != nil {
		return fmt.Errorf("%w: %w", ErrHalted, err)
	}
	return nil
}

// Info summarizes the state of a store.
type Info struct {
	Keys         int
	Entries      int
	Roots        int
	LatestRoot   common.Slot
	HasRoot      bool
	CachedSlots  int
	CachedWrites int
	Segments     []SegmentInfo
	Halted       error
}

// Info returns a summary of the current state of the store.
func (s *Store) Info() Info {
	res := Info{
		Keys:     s.index.NumKeys(),
		Entries:  s.index.Len(),
		Roots:    s.roots.len(),
		Segments: s.segments.infos(),
		Halted:   s.Halted(),
	}
	res.LatestRoot, res.HasRoot = s.roots.max()
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	res.CachedSlots = len(s.caches)
	for _, cache := range s.caches {
		res.CachedWrites += cache.len()
	}
	return res
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("index", s.index.GetMemoryFootprint())
	mf.AddChild("segments", s.segments.GetMemoryFootprint())
	mf.AddChild("filter", s.filter.GetMemoryFootprint())

	const readCacheEntrySize = 128 // < key, slot, account header and list links
	cached := uintptr(0)
	for _, key := range s.readCache.Keys() {
		if account, found := s.readCache.Peek(key); found {
			cached += readCacheEntrySize + uintptr(len(account.Data))
		}
	}
	mf.AddChild("readCache", common.NewMemoryFootprint(cached))

	writeCache := common.NewMemoryFootprint(0)
	s.cacheMu.RLock()
	for slot, cache := range s.caches {
		writeCache.AddChild(fmt.Sprintf("%d", slot), common.NewMemoryFootprint(cache.memoryUsage()))
	}
	s.cacheMu.RUnlock()
	mf.AddChild("writeCache", writeCache)
	return mf
}
