// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package file

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/Fantom-foundation/accountsdb/backend/appendstore"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/edsrzf/mmap-go"
)

// AppendStore is an append store backed by a memory-mapped file. The file is
// preallocated to the full capacity when created, so appends never grow it.
type AppendStore struct {
	*appendstore.Region
	path     string
	file     *os.File
	mapping  mmap.MMap
	writable bool
	scan     appendstore.ScanResult
}

// Open opens the segment file at the given path. If growable is set, the file
// is created with the given capacity if it does not exist yet and mapped
// writable; otherwise an existing file is mapped read-only and the capacity is
// ignored. Existing content is validated and a corrupted tail is discarded;
// the outcome of this validation is available through Recovered.
func Open(path string, growable bool, capacity uint64) (*AppendStore, error) {
	flags := os.O_RDONLY
	if growable {
		flags = os.O_RDWR | os.O_CREATE
	}
	file, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open append store %s: %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to stat append store %s: %w", path, err), file.Close())
	}
	size := uint64(stat.Size())
	if growable && size == 0 {
		if capacity < appendstore.MinRecordSize {
			return nil, errors.Join(fmt.Errorf("capacity %d too small for append store", capacity), file.Close())
		}
		if err := file.Truncate(int64(capacity)); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to allocate append store %s: %w", path, err), file.Close())
		}
		size = capacity
	}
	if size == 0 {
		return nil, errors.Join(fmt.Errorf("append store %s is empty", path), file.Close())
	}

	mode := mmap.RDONLY
	if growable {
		mode = mmap.RDWR
	}
	mapping, err := mmap.MapRegion(file, int(size), mode, 0, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to map append store %s: %w", path, err), file.Close())
	}

	res := &AppendStore{
		Region:   appendstore.NewRegion(mapping, 0, !growable),
		path:     path,
		file:     file,
		mapping:  mapping,
		writable: growable,
	}
	if res.scan, err = appendstore.Recover(res.Region); err != nil {
		return nil, errors.Join(err, res.Close())
	}
	return res, nil
}

// Recovered returns the result of the validation performed when opening.
func (s *AppendStore) Recovered() appendstore.ScanResult {
	return s.scan
}

// Path returns the location of the backing file.
func (s *AppendStore) Path() string {
	return s.path
}

func (s *AppendStore) Reset() error {
	if err := s.Region.Reset(); err != nil {
		return err
	}
	return s.Flush()
}

func (s *AppendStore) Flush() error {
	if s.mapping == nil || !s.writable {
		return nil
	}
	if err := s.mapping.Flush(); err != nil {
		return fmt.Errorf("failed to flush append store %s: %w", s.path, err)
	}
	return nil
}

func (s *AppendStore) Close() error {
	if s.mapping == nil {
		return nil
	}
	flushErr := s.Flush()
	err := errors.Join(flushErr, s.mapping.Unmap(), s.file.Close())
	s.mapping = nil
	return err
}

func (s *AppendStore) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("region", s.Region.GetMemoryFootprint())
	mf.SetNote(fmt.Sprintf("%d of %d bytes mapped in use", s.Len(), s.Capacity()))
	return mf
}

var _ appendstore.AppendStore = (*AppendStore)(nil)
