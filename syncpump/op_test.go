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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpQueueDrainReturnsInPushOrderAndEmpties(t *testing.T) {
	var q opQueue
	first := Op{Code: [7]byte{1}}
	second := Op{Code: [7]byte{2}}

	q.push(first)
	q.push(second)

	drained := q.drain()
	require.Equal(t, []Op{first, second}, drained)
	require.Empty(t, q.drain())
}

func TestOpQueueDrainOnEmptyQueueReturnsNil(t *testing.T) {
	var q opQueue
	require.Nil(t, q.drain())
}
