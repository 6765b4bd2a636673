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

package b64

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	cases := [][]byte{
		nil,
		{},
		{0x00},
		{0xAA, 0xBB},
		{0xAA, 0xBB, 0xCC},
		[]byte("fitbitd"),
		{0x24, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}
	for _, c := range cases {
		got := Decode(Encode(c))
		if len(c) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, c, got)
	}
}

func TestEncodePadsToMultipleOf4(t *testing.T) {
	t.Parallel()
	for n := 1; n <= 10; n++ {
		data := make([]byte, n)
		assert.Zero(t, len(Encode(data))%4)
	}
}

func TestDecodeIgnoresNonAlphabetBytes(t *testing.T) {
	t.Parallel()
	clean := Encode([]byte("hello world"))
	var noisy []byte
	for i := 0; i < len(clean); i++ {
		noisy = append(noisy, clean[i], '\n', ' ', '!')
	}
	assert.Equal(t, []byte("hello world"), Decode(string(noisy)))
}
