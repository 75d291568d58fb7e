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
	"fmt"

	"github.com/gofrs/flock"
)

// LockFile is an inter-process synchronization primitive facilitating mutual
// exclusion of operations between processes. Internally, the lock holds an
// advisory lock on a file in the file system. The file remains in place after
// the lock is released so that concurrent acquirers always contend on the same
// inode.
//
// Locks held by a process are released by the operating system when the
// process terminates.
type LockFile interface {
	// Release releases the exclusive lock ownership provided by a valid
	// instance of this type. Each lock may only be released once. Subsequent
	// calls produce errors.
	Release() error
	// Valid checks whether this lock still owns the underlying resource
	// or whether it has already been released.
	Valid() bool
}

type lockFile struct {
	lock *flock.Flock
}

// CreateLockFile creates, if needed, a file with the given path and acquires an
// exclusive lock on it. The operation fails without blocking if the lock is
// held by any other owner, in this or any other process.
func CreateLockFile(path string) (LockFile, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire file lock: %s is locked by another owner", path)
	}
	return &lockFile{lock: lock}, nil
}

func (f *lockFile) Valid() bool {
	return f.lock != nil && f.lock.Locked()
}

func (f *lockFile) Release() error {
	if !f.Valid() {
		return fmt.Errorf("unable to release invalid lock")
	}
	if err := f.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release file lock: %w", err)
	}
	f.lock = nil
	return nil
}
