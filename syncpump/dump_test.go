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

package syncpump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDumpWriterReturnsNilForEmptyDir(t *testing.T) {
	require.Nil(t, NewDumpWriter(""))
}

func TestNilDumpWriterOpIsNoop(t *testing.T) {
	var w *DumpWriter
	require.NoError(t, w.Op("abc", 1, 0, []byte{1}, []byte{2}, []byte{3}))
}

func TestDumpWriterOpWritesSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewDumpWriter(dir)

	err := w.Op("aabbcc", 12345, 3, []byte("op"), []byte("payload"), []byte("response"))
	require.NoError(t, err)

	sessionDir := filepath.Join(dir, "aabbcc-12345")
	op, err := os.ReadFile(filepath.Join(sessionDir, "3-op"))
	require.NoError(t, err)
	require.Equal(t, "op", string(op))

	payload, err := os.ReadFile(filepath.Join(sessionDir, "3-payload"))
	require.NoError(t, err)
	require.Equal(t, "payload", string(payload))

	response, err := os.ReadFile(filepath.Join(sessionDir, "3-response"))
	require.NoError(t, err)
	require.Equal(t, "response", string(response))
}

func TestDumpWriterOpSkipsNilFields(t *testing.T) {
	dir := t.TempDir()
	w := NewDumpWriter(dir)

	err := w.Op("aabbcc", 1, 0, []byte("op"), nil, nil)
	require.NoError(t, err)

	sessionDir := filepath.Join(dir, "aabbcc-1")
	require.FileExists(t, filepath.Join(sessionDir, "0-op"))
	require.NoFileExists(t, filepath.Join(sessionDir, "0-payload"))
	require.NoFileExists(t, filepath.Join(sessionDir, "0-response"))
}
