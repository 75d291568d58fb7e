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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Fantom-foundation/accountsdb/backend/utils"
	"github.com/Fantom-foundation/accountsdb/common"
	"github.com/c2h5oh/datasize"
)

const (
	lockFileName    = "~lock"
	dirtyFileName   = "~dirty"
	metaFileName    = "meta.json"
	segmentsDirName = "segments"
	rootLogDirName  = "roots"
	formatVersion   = 1
)

// metadata is the description of a store directory kept in meta.json.
type metadata struct {
	Version     int     `json:"version"`
	SegmentSize uint64  `json:"segmentSize"`
	NumShards   int     `json:"numShards"`
	LatestRoot  *uint64 `json:"latestRoot,omitempty"`
	// The horizon of the latest cleaning pass; the state of older roots is
	// no longer complete.
	CleanHorizon *uint64 `json:"cleanHorizon,omitempty"`
}

// lockDirectory acquires exclusive access to the given directory, creating it
// if needed. The lock has to be released explicitly.
func lockDirectory(directory string) (common.LockFile, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}
	lock, err := common.CreateLockFile(filepath.Join(directory, lockFileName))
	if err != nil {
		return nil, fmt.Errorf("unable to gain exclusive access to %s: %w", directory, err)
	}
	return lock, nil
}

// isDirty checks whether the given directory is marked as dirty, which is
// the case while a store is open and after it was not closed cleanly.
func isDirty(directory string) (bool, error) {
	info, err := os.Stat(directory)
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s is not a directory", directory)
	}
	stat, err := os.Stat(filepath.Join(directory, dirtyFileName))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !stat.IsDir(), nil
}

func markDirty(directory string) error {
	return os.WriteFile(filepath.Join(directory, dirtyFileName), []byte{}, 0600)
}

func markClean(directory string) error {
	return os.Remove(filepath.Join(directory, dirtyFileName))
}

// readMetadata loads the description of a store directory. A missing file
// is reported as not found.
func readMetadata(directory string) (metadata, bool, error) {
	path := filepath.Join(directory, metaFileName)
	meta, err := utils.ReadJsonFile[metadata](path)
	if errors.Is(err, os.ErrNotExist) {
		return metadata{}, false, nil
	}
	if err != nil {
		return metadata{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if meta.Version != formatVersion {
		return metadata{}, false, fmt.Errorf("unsupported store format version %d in %s", meta.Version, path)
	}
	return meta, true, nil
}

func writeMetadata(directory string, meta metadata) error {
	return utils.WriteJsonFile(filepath.Join(directory, metaFileName), meta)
}

// ConfigOf returns a default configuration for opening the store kept in the
// given directory, using the layout the directory was written with.
func ConfigOf(directory string) (Config, error) {
	meta, found, err := readMetadata(directory)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Config{}, fmt.Errorf("no account store found in %s", directory)
	}
	config := Config{
		Directory:   directory,
		SegmentSize: datasize.ByteSize(meta.SegmentSize),
		NumShards:   meta.NumShards,
	}
	return config.withDefaults(), nil
}
