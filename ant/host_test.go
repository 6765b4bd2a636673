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

package ant

import (
	"context"
	"sync"
	"testing"

	"github.com/paulburton/fitbitd/internal/antframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport is a Transport double driven by a queue of canned
// inbound frames and a record of what was written to it.
type scriptedTransport struct {
	mu      sync.Mutex
	inbound [][]byte // raw bytes returned one read() at a time
	written [][]byte
	dead    bool
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{}
}

func (s *scriptedTransport) queueMessage(msg antframe.Message) {
	buf := make([]byte, msg.EncodedLen())
	_, _ = antframe.Encode(msg, buf)
	s.mu.Lock()
	s.inbound = append(s.inbound, buf)
	s.mu.Unlock()
}

func (s *scriptedTransport) Read(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbound) == 0 {
		return 0, ErrTimeout
	}
	next := s.inbound[0]
	s.inbound = s.inbound[1:]
	return copy(buf, next), nil
}

func (s *scriptedTransport) Write(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, append([]byte(nil), buf...))
	return len(buf), nil
}

func (s *scriptedTransport) Close() error { return nil }
func (s *scriptedTransport) Dead() bool   { return s.dead }

func TestHostResetClearsRecvBufferWithoutWaiting(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	host.node.recvBuf = append(host.node.recvBuf, 0xFF, 0xFF)

	require.NoError(t, host.Reset())
	assert.Empty(t, host.node.recvBuf)
	require.Len(t, tr.written, 1)
	assert.Equal(t, byte(msgReset), tr.written[0][2])
}

func TestHostRunCommandSucceedsOnZeroResponseCode(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgChannelEvent, Payload: []byte{0, msgOpenChannel, 0x00}})

	require.NoError(t, host.OpenChannel(context.Background(), 0))
}

func TestHostRunCommandFailsOnNonZeroResponseCode(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgChannelEvent, Payload: []byte{0, msgOpenChannel, 0x07}})

	err := host.OpenChannel(context.Background(), 0)
	require.ErrorIs(t, err, ErrCommandFailed)
}

func TestHostWaitForBeaconAbsent(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))

	found, err := host.WaitForBeacon(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHostWaitForBeaconPresent(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgBroadcastData, Payload: []byte{1, 2, 3}})

	found, err := host.WaitForBeacon(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestHostSendAckedDataCompleted(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgChannelEvent, Payload: []byte{0, eventTxAck, eventTxCompleted}})

	require.NoError(t, host.SendAckedData(context.Background(), 0, [8]byte{}))
}

func TestHostSendAckedDataFailed(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgChannelEvent, Payload: []byte{0, eventTxAck, eventTxFailed}})

	err := host.SendAckedData(context.Background(), 0, [8]byte{})
	require.ErrorIs(t, err, ErrCommandFailed)
}

func TestHostReceiveBurstEndedByAckedData(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgBurstData, Payload: append([]byte{0x00}, []byte{1, 2, 3, 4, 5, 6, 7, 8}...)})
	tr.queueMessage(antframe.Message{ID: msgAckedData, Payload: append([]byte{0x00}, []byte{9, 10}...)})

	data, err := host.ReceiveBurst(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, data)
}

func TestHostReceiveBurstEndedByLastFragmentBit(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgBurstData, Payload: append([]byte{0x80}, []byte{1, 2, 3, 4, 5, 6, 7, 8}...)})

	data, err := host.ReceiveBurst(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, data)
}

func TestHostReceiveBurstFailsOnTxFailedEvent(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))
	tr.queueMessage(antframe.Message{ID: msgChannelEvent, Payload: []byte{0, 0x01, eventTxFailed}})

	_, err := host.ReceiveBurst(context.Background(), 0)
	require.ErrorIs(t, err, ErrBurstFailed)
}

func TestHostSendBurstTransferChunking(t *testing.T) {
	t.Parallel()
	tr := newScriptedTransport()
	host := NewHost(NewNode("base", tr))

	payload := make([]byte, 20) // 3 chunks: 8, 8, 4(+padding)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, host.SendBurstTransfer(context.Background(), 3, payload))
	require.Len(t, tr.written, 3)

	var headers []byte
	for _, frame := range tr.written {
		msg, consumed := antframe.Decode(frame)
		require.NotNil(t, msg)
		require.Equal(t, len(frame), consumed)
		headers = append(headers, msg.Payload[0])
	}

	assert.Equal(t, byte(3), headers[0]&0x1F)
	assert.Equal(t, byte(0), (headers[0]>>5)&0x03)
	assert.Equal(t, byte(1), (headers[1]>>5)&0x03)
	assert.Equal(t, byte(2), (headers[2]>>5)&0x03)
	assert.NotZero(t, headers[2]&burstLastFragment)
	assert.Zero(t, headers[0]&burstLastFragment)
}
