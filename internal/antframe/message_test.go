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

package antframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{ID: 0x4F, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{ID: 0x4A, Payload: nil},
		{ID: 0x00, Payload: []byte{0xFF}},
	}

	for _, msg := range msgs {
		buf := make([]byte, msg.EncodedLen())
		n, err := Encode(msg, buf)
		require.NoError(t, err)
		assert.Equal(t, msg.EncodedLen(), n)

		got, consumed := Decode(buf)
		require.NotNil(t, got)
		assert.Equal(t, n, consumed)
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, msg.Payload, got.Payload)
	}
}

func TestEncodeBufferTooSmall(t *testing.T) {
	t.Parallel()

	msg := Message{ID: 1, Payload: []byte{1, 2, 3}}
	_, err := Encode(msg, make([]byte, 2))
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestDecodeSkipsJunkPrefix(t *testing.T) {
	t.Parallel()

	msg := Message{ID: 0x4E, Payload: []byte{9, 9}}
	frame := make([]byte, msg.EncodedLen())
	_, err := Encode(msg, frame)
	require.NoError(t, err)

	junk := []byte{0x00, 0x11, 0x22}
	buf := append(append([]byte(nil), junk...), frame...)

	got, consumed := Decode(buf)
	require.NotNil(t, got)
	assert.Equal(t, len(junk)+len(frame), consumed)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, msg.Payload, got.Payload)
}

func TestDecodeWaitsForMoreData(t *testing.T) {
	t.Parallel()

	buf := []byte{Sync, 0x08, 0x4F, 1, 2, 3}
	got, consumed := Decode(buf)
	assert.Nil(t, got)
	assert.Equal(t, 0, consumed)
}

func TestDecodeBadChecksumConsumesFrame(t *testing.T) {
	t.Parallel()

	msg := Message{ID: 0x4F, Payload: []byte{1, 2}}
	frame := make([]byte, msg.EncodedLen())
	_, err := Encode(msg, frame)
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0xFF

	got, consumed := Decode(frame)
	assert.Nil(t, got)
	assert.Equal(t, len(frame), consumed)
}

func TestDecodeEmptyBuffer(t *testing.T) {
	t.Parallel()

	got, consumed := Decode(nil)
	assert.Nil(t, got)
	assert.Equal(t, 0, consumed)
}
