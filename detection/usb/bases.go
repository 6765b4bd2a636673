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

package usb

import (
	"github.com/paulburton/fitbitd/ant"
	"github.com/paulburton/fitbitd/fitbit"
)

// ScanBases is Scan wrapped in the shape the sync pump wants: a fresh
// fitbit.Base per newly discovered node.
func (d *Discoverer) ScanBases() ([]*fitbit.Base, error) {
	nodes, err := d.Scan()
	if err != nil {
		return nil, err
	}
	bases := make([]*fitbit.Base, 0, len(nodes))
	for _, node := range nodes {
		bases = append(bases, fitbit.NewBase(ant.NewHost(node)))
	}
	return bases, nil
}
