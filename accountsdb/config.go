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
	"fmt"
	"runtime"
	"time"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/backend/index"
	"github.com/Fantom-foundation/accountsdb/backend/index/sharded"
	"github.com/c2h5oh/datasize"
	"github.com/ledgerwatch/log/v3"
	"github.com/pbnjay/memory"
)

// Config defines the set of options for customizing a store. Zero values of
// individual fields are replaced by the defaults listed for them.
type Config struct {
	// The directory holding the store. If empty, the store is kept in memory
	// and lost when closed.
	Directory string

	// The capacity of individual segments. Records exceeding this size are
	// kept in dedicated segments. Default: 16 MB.
	SegmentSize datasize.ByteSize

	// The maximum size of the data of a single account. Default: 10 MB.
	MaxDataLength datasize.ByteSize

	// The number of independently locked index shards. Default: 4096.
	NumShards int

	// The number of keys the store-wide existence filter is sized for. The
	// filter keeps working beyond this number at a higher false positive
	// rate. Default: 1M.
	ExpectedKeys uint64

	// The false positive rate of existence filters. Default: 1%.
	FilterFalsePositiveRate float64

	// Decides which write survives if a key is written multiple times in one
	// slot. Default: the last write.
	DedupPolicy index.DedupPolicy

	// If set, the full state hash of every new root is computed and recorded.
	HashOnRoot bool

	// If set, the store is cleaned up to every new root.
	CleanOnRoot bool

	// If positive, the store is periodically cleaned up to its latest root in
	// the background.
	CleanInterval time.Duration

	// Segments whose fraction of live bytes is below this ratio are compacted
	// after cleaning. Default: 0.8.
	ShrinkRatio float64

	// The number of decoded accounts kept in the read cache. Default: derived
	// from the available memory of the machine.
	ReadCacheSize int

	// The number of parallel workers used for full scans. Default: number of
	// CPUs.
	Workers int

	// The logger used for reporting. Default: log with module=accountsdb.
	Logger log.Logger
}

const (
	DefaultSegmentSize             = 16 * datasize.MB
	DefaultMaxDataLength           = 10 * datasize.MB
	DefaultExpectedKeys            = 1 << 20
	DefaultFilterFalsePositiveRate = 0.01
	DefaultShrinkRatio             = 0.8
)

// DefaultConfig returns the default configuration of an in-memory store.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// defaultReadCacheSize scales the read cache with the memory of the machine,
// using roughly one entry per 64 KB of RAM.
func defaultReadCacheSize() int {
	const minSize, maxSize = 1 << 10, 1 << 20
	size := int(memory.TotalMemory() / (64 * 1024))
	return min(max(size, minSize), maxSize)
}

func (c Config) withDefaults() Config {
	if c.SegmentSize == 0 {
		c.SegmentSize = DefaultSegmentSize
	}
	if c.MaxDataLength == 0 {
		c.MaxDataLength = DefaultMaxDataLength
	}
	if c.NumShards == 0 {
		c.NumShards = sharded.DefaultNumShards
	}
	if c.ExpectedKeys == 0 {
		c.ExpectedKeys = DefaultExpectedKeys
	}
	if c.FilterFalsePositiveRate == 0 {
		c.FilterFalsePositiveRate = DefaultFilterFalsePositiveRate
	}
	if c.ShrinkRatio == 0 {
		c.ShrinkRatio = DefaultShrinkRatio
	}
	if c.ReadCacheSize == 0 {
		c.ReadCacheSize = defaultReadCacheSize()
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Logger == nil {
		c.Logger = log.New("module", "accountsdb")
	}
	return c
}

func (c Config) validate() error {
	if c.SegmentSize.Bytes() < appendstore.MinRecordSize {
		return fmt.Errorf("segment size %v too small, at least %d bytes required", c.SegmentSize.HumanReadable(), appendstore.MinRecordSize)
	}
	if c.FilterFalsePositiveRate <= 0 || c.FilterFalsePositiveRate >= 1 {
		return fmt.Errorf("invalid filter false positive rate %f", c.FilterFalsePositiveRate)
	}
	if c.ShrinkRatio < 0 || c.ShrinkRatio > 1 {
		return fmt.Errorf("invalid shrink ratio %f", c.ShrinkRatio)
	}
	if c.DedupPolicy != index.DedupKeepLast && c.DedupPolicy != index.DedupKeepFirst {
		return fmt.Errorf("unknown dedup policy %d", c.DedupPolicy)
	}
	if c.ReadCacheSize < 0 || c.Workers < 0 || c.NumShards < 0 {
		return fmt.Errorf("negative sizes are not supported")
	}
	return nil
}
