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
	"fmt"
	"os"
	"path/filepath"
)

// DumpWriter is the optional --dump DIR diagnostic sink (C12): every op run
// against a tracker during a sync is recorded as three raw-byte files under
// DIR/<hex-serial>-<sync_time>/<op_num>-{op,payload,response}.
type DumpWriter struct {
	dir string
}

// NewDumpWriter returns a DumpWriter rooted at dir, or a nil-safe no-op
// writer if dir is empty.
func NewDumpWriter(dir string) *DumpWriter {
	if dir == "" {
		return nil
	}
	return &DumpWriter{dir: dir}
}

// Op writes one op's op/payload/response bytes. A nil DumpWriter silently
// does nothing, so callers never need to guard on --dump being set.
func (w *DumpWriter) Op(serialHex string, syncTime int64, opNum int, op, payload, response []byte) error {
	if w == nil {
		return nil
	}
	dir := filepath.Join(w.dir, fmt.Sprintf("%s-%d", serialHex, syncTime))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	for name, data := range map[string][]byte{"op": op, "payload": payload, "response": response} {
		if data == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%d-%s", opNum, name))
		if err := os.WriteFile(path, data, 0o640); err != nil {
			return err
		}
	}
	return nil
}
