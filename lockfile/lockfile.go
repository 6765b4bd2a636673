// This file is part of fitbitd.
//
// fitbitd is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// fitbitd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with fitbitd.  If not, see <http://www.gnu.org/licenses/>.

// Package lockfile implements the daemon's single-instance guard (C10): an
// exclusive, non-blocking advisory lock held for the daemon's lifetime.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Lock is a held advisory lock. Close releases it.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if necessary, mode 0640) and flock(2)s path
// exclusively and non-blocking. A second daemon instance attempting this
// against the same path gets back an error instead of blocking.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("lockfile: create dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("lockfile: %s already locked: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// Release unlocks and closes the lock file.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("lockfile: unlock: %w", err)
	}
	return l.f.Close()
}
