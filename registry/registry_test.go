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

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCreatesRowOnFirstMutation(t *testing.T) {
	t.Parallel()
	r := New()

	r.Record("0102030405", func(d *DeviceRecord) {
		d.LastSyncTime = 100
		d.State |= StateSyncing
	})

	var found *DeviceRecord
	r.Enum(func(d DeviceRecord) {
		if d.Serial == "0102030405" {
			found = &d
		}
	})
	require.NotNil(t, found)
	assert.EqualValues(t, 100, found.LastSyncTime)
	assert.NotZero(t, found.State&StateSyncing)
}

func TestRecordReusesExistingRow(t *testing.T) {
	t.Parallel()
	r := New()
	r.Record("abc", func(d *DeviceRecord) { d.TrackerID = "T1" })
	r.Record("abc", func(d *DeviceRecord) { d.UserID = "U1" })

	var count int
	r.Enum(func(d DeviceRecord) {
		count++
		assert.Equal(t, "T1", d.TrackerID)
		assert.Equal(t, "U1", d.UserID)
	})
	assert.Equal(t, 1, count)
}

func TestCleanRemovesRowsOlderThanCutoff(t *testing.T) {
	t.Parallel()
	r := New()
	r.Record("old", func(d *DeviceRecord) { d.LastSyncTime = 10 })
	r.Record("new", func(d *DeviceRecord) { d.LastSyncTime = 1000 })

	r.Clean(500)

	var serials []string
	r.Enum(func(d DeviceRecord) {
		serials = append(serials, d.Serial)
		assert.GreaterOrEqual(t, d.LastSyncTime, int64(500))
	})
	assert.Equal(t, []string{"new"}, serials)
}

func TestCleanRemovesHeadRowWithoutLeavingItEnumerable(t *testing.T) {
	t.Parallel()
	// Regression guard for the original C registry's bug: removing the
	// first-inserted record must not leave it reachable afterwards.
	r := New()
	r.Record("first", func(d *DeviceRecord) { d.LastSyncTime = 1 })
	r.Record("second", func(d *DeviceRecord) { d.LastSyncTime = 1000 })

	r.Clean(500)

	r.Enum(func(d DeviceRecord) {
		assert.NotEqual(t, "first", d.Serial)
	})
}

func TestEnumObservesEveryRowPresentAtLockAcquisition(t *testing.T) {
	t.Parallel()
	r := New()
	for _, s := range []string{"a", "b", "c"} {
		r.Record(s, nil)
	}

	seen := make(map[string]bool)
	r.Enum(func(d DeviceRecord) { seen[d.Serial] = true })

	assert.Len(t, seen, 3)
	for _, s := range []string{"a", "b", "c"} {
		assert.True(t, seen[s])
	}
}
