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

// Package registry implements the device-state registry (C6): a
// thread-safe collection of DeviceRecord keyed by tracker serial, mutated
// and enumerated by the sync pump and read by the IPC surface.
//
// The original C implementation (devstate.c) kept this as a hand-rolled
// doubly linked list and had a bug in its clean() equivalent: unlinking the
// head element never updated the list head, leaving it dangling. Keeping
// records in a map sidesteps the whole class of bug; there is no list to
// get wrong.
package registry

import "sync"

// State bits for DeviceRecord.State.
const (
	StateSyncing uint32 = 1 << 0
)

// DeviceRecord mirrors one tracker's synced state.
type DeviceRecord struct {
	Serial       string
	LastSyncTime int64
	State        uint32
	TrackerID    string
	UserID       string
}

// Registry is the process-wide device-state table.
type Registry struct {
	mu   sync.Mutex
	devs map[string]*DeviceRecord
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{devs: make(map[string]*DeviceRecord)}
}

// Record looks up (or creates) the DeviceRecord for serial and invokes
// mutator on it while holding the lock. mutator must be O(1): no I/O, no
// blocking.
func (r *Registry) Record(serial string, mutator func(*DeviceRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devs[serial]
	if !ok {
		dev = &DeviceRecord{Serial: serial}
		r.devs[serial] = dev
	}
	if mutator != nil {
		mutator(dev)
	}
}

// Enum calls visitor once per record present at the time the lock is
// acquired. visitor receives a copy, not the live record.
func (r *Registry) Enum(visitor func(DeviceRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, dev := range r.devs {
		visitor(*dev)
	}
}

// Clean removes every record whose LastSyncTime is older than cutoff.
func (r *Registry) Clean(cutoff int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for serial, dev := range r.devs {
		if dev.LastSyncTime < cutoff {
			delete(r.devs, serial)
		}
	}
}
