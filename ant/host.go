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
	"errors"
	"fmt"
	"time"

	"github.com/paulburton/fitbitd/internal/antframe"
	"github.com/paulburton/fitbitd/internal/retry"
)

// Host is the ANT host controller (C3): it turns the command table and the
// acked-data/burst state machines into calls on a framed Node.
type Host struct {
	node *Node
}

// NewHost builds a host controller over an already-opened node.
func NewHost(node *Node) *Host {
	return &Host{node: node}
}

// Node returns the underlying node, mainly so callers can poll Dead().
func (h *Host) Node() *Node {
	return h.node
}

func interval() time.Duration { return attemptInterval * time.Millisecond }

func burstInterval() time.Duration { return burstFragmentInterval * time.Millisecond }

// send encodes and writes a single command message.
func (h *Host) send(id byte, payload []byte) error {
	msg := antframe.Message{ID: id, Payload: payload}
	buf := make([]byte, msg.EncodedLen())
	n, err := antframe.Encode(msg, buf)
	if err != nil {
		return err
	}
	if _, err := h.node.Transport.Write(buf[:n]); err != nil {
		return fmt.Errorf("ant: write %#x: %w", id, err)
	}
	return nil
}

// recv performs one Transport.Read and decodes whatever complete frames
// that read's bytes (plus anything left over from before) contain.
func (h *Host) recv() ([]antframe.Message, error) {
	buf := make([]byte, 512)
	n, err := h.node.Transport.Read(buf)
	if err != nil {
		if err == ErrTimeout {
			return nil, nil
		}
		return nil, err
	}
	h.node.recvBuf = append(h.node.recvBuf, buf[:n]...)

	var msgs []antframe.Message
	for {
		msg, consumed := antframe.Decode(h.node.recvBuf)
		if consumed == 0 {
			break
		}
		h.node.recvBuf = h.node.recvBuf[consumed:]
		if msg != nil {
			msgs = append(msgs, *msg)
		}
	}
	return msgs, nil
}

// checkOK polls the receive path for the channel-event response to command
// id, returning its response code. Reset does not call this; it clears the
// receive buffer instead (see Reset).
func (h *Host) checkOK(ctx context.Context, id byte) (byte, error) {
	return retry.Poll(ctx, checkOKAttempts, interval(), func(int) (byte, bool, error) {
		msgs, err := h.recv()
		if err != nil {
			return 0, false, err
		}
		for _, m := range msgs {
			if m.ID == msgChannelEvent && len(m.Payload) >= 3 && m.Payload[1] == id {
				return m.Payload[2], true, nil
			}
		}
		return 0, false, nil
	})
}

// runCommand sends payload under id and waits for a zero response code.
func (h *Host) runCommand(ctx context.Context, id byte, payload []byte) error {
	if err := h.send(id, payload); err != nil {
		return err
	}
	code, err := h.checkOK(ctx, id)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%w: command %#x returned code %#x", ErrCommandFailed, id, code)
	}
	return nil
}

// Reset issues a system reset. Unlike other commands it does not wait for
// a channel-event response; it clears the receive buffer instead.
func (h *Host) Reset() error {
	h.node.recvBuf = h.node.recvBuf[:0]
	return h.send(msgReset, resetPayload())
}

// UnassignChannel, AssignChannel, ... implement the C3 command table.

func (h *Host) UnassignChannel(ctx context.Context, channel byte) error {
	return h.runCommand(ctx, msgUnassignChannel, unassignChannelPayload(channel))
}

func (h *Host) AssignChannel(ctx context.Context, channel, channelType, network byte) error {
	return h.runCommand(ctx, msgAssignChannel, assignChannelPayload(channel, channelType, network))
}

func (h *Host) SetChannelPeriod(ctx context.Context, channel byte, period uint16) error {
	return h.runCommand(ctx, msgSetChannelPeriod, setChannelPeriodPayload(channel, period))
}

func (h *Host) SetChannelSearchTimeout(ctx context.Context, channel, timeout byte) error {
	return h.runCommand(ctx, msgSetChannelSearchTimeout, setChannelSearchTimeoutPayload(channel, timeout))
}

func (h *Host) SetChannelFreq(ctx context.Context, channel, freq byte) error {
	return h.runCommand(ctx, msgSetChannelFreq, setChannelFreqPayload(channel, freq))
}

func (h *Host) SetNetworkKey(ctx context.Context, network byte, key [8]byte) error {
	return h.runCommand(ctx, msgSetNetworkKey, setNetworkKeyPayload(network, key))
}

func (h *Host) SetTxPower(ctx context.Context, power byte) error {
	return h.runCommand(ctx, msgSetTxPower, setTxPowerPayload(power))
}

func (h *Host) OpenChannel(ctx context.Context, channel byte) error {
	return h.runCommand(ctx, msgOpenChannel, openChannelPayload(channel))
}

func (h *Host) CloseChannel(ctx context.Context, channel byte) error {
	return h.runCommand(ctx, msgCloseChannel, closeChannelPayload(channel))
}

func (h *Host) SetChannelID(ctx context.Context, channel byte, id ChannelID) error {
	return h.runCommand(ctx, msgSetChannelID, setChannelIDPayload(channel, id))
}

// WaitForStartup polls for the 0x6F startup message, up to 10 attempts
// 100ms apart.
func (h *Host) WaitForStartup(ctx context.Context) error {
	_, err := retry.Poll(ctx, 10, interval(), func(int) (struct{}, bool, error) {
		msgs, err := h.recv()
		if err != nil {
			return struct{}{}, false, err
		}
		for _, m := range msgs {
			if m.ID == msgStartup {
				return struct{}{}, true, nil
			}
		}
		return struct{}{}, false, nil
	})
	return err
}

// WaitForBeacon polls for a broadcast (0x4E) message, up to 50 attempts
// 100ms apart. Its absence is the "no tracker present" signal.
func (h *Host) WaitForBeacon(ctx context.Context) (bool, error) {
	_, err := retry.Poll(ctx, 50, interval(), func(int) (struct{}, bool, error) {
		msgs, err := h.recv()
		if err != nil {
			return struct{}{}, false, err
		}
		for _, m := range msgs {
			if m.ID == msgBroadcastData {
				return struct{}{}, true, nil
			}
		}
		return struct{}{}, false, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SendAckedData sends an acked-data message on channel and waits for its
// TX-result event: completed (code 5, success) or failed (code 6).
func (h *Host) SendAckedData(ctx context.Context, channel byte, data [8]byte) error {
	if err := h.send(msgAckedData, ackedDataPayload(channel, data)); err != nil {
		return err
	}
	code, err := retry.Poll(ctx, ackedDataAttempts, interval(), func(int) (byte, bool, error) {
		msgs, err := h.recv()
		if err != nil {
			return 0, false, err
		}
		for _, m := range msgs {
			if m.ID == msgChannelEvent && len(m.Payload) >= 3 &&
				m.Payload[0] == channel && m.Payload[1] == eventTxAck {
				return m.Payload[2], true, nil
			}
		}
		return 0, false, nil
	})
	if err != nil {
		return err
	}
	switch code {
	case eventTxCompleted:
		return nil
	case eventTxFailed:
		return fmt.Errorf("%w: code %#x", ErrCommandFailed, code)
	default:
		return fmt.Errorf("%w: unexpected TX result code %#x", ErrCommandFailed, code)
	}
}

// ReceiveAckedResponse waits for an incoming acked-data message and returns
// its data bytes (the payload with the leading channel byte stripped),
// truncated to len(out).
func (h *Host) ReceiveAckedResponse(ctx context.Context, out []byte) (int, error) {
	payload, err := retry.Poll(ctx, ackedResponseAttempts, interval(), func(int) ([]byte, bool, error) {
		msgs, err := h.recv()
		if err != nil {
			return nil, false, err
		}
		for _, m := range msgs {
			if m.ID == msgAckedData && len(m.Payload) >= 1 {
				return m.Payload[1:], true, nil
			}
		}
		return nil, false, nil
	})
	if err != nil {
		return 0, err
	}
	n := copy(out, payload)
	return n, nil
}

// ReceiveBurst accumulates burst fragments for channel until either an
// acked-data message arrives (treated as the final fragment) or a
// burst-data message with the last-fragment bit set arrives. An RF event
// reporting code 6 on the channel fails the burst. Fragments addressed to
// other channels are silently skipped. Each fragment is waited for at the
// tight burstFragmentInterval/burstFragmentAttempts cadence rather than the
// coarser interval() used elsewhere, since fragments arrive back-to-back
// once a burst is underway.
func (h *Host) ReceiveBurst(ctx context.Context, channel byte) ([]byte, error) {
	var data []byte
	for {
		msgs, err := retry.Poll(ctx, burstFragmentAttempts, burstInterval(),
			func(int) ([]antframe.Message, bool, error) {
				msgs, err := h.recv()
				if err != nil {
					return nil, false, err
				}
				if len(msgs) > 0 {
					return msgs, true, nil
				}
				return nil, false, nil
			})
		if err != nil {
			return nil, err
		}

		for _, m := range msgs {
			switch m.ID {
			case msgChannelEvent:
				if len(m.Payload) >= 3 && m.Payload[0] == channel && m.Payload[2] == eventTxFailed {
					return nil, ErrBurstFailed
				}
			case msgAckedData:
				if len(m.Payload) >= 1 {
					data = append(data, m.Payload[1:]...)
					return data, nil
				}
			case msgBurstData:
				if len(m.Payload) < 1 {
					continue
				}
				header := m.Payload[0]
				if header&0x1F != channel {
					continue
				}
				data = append(data, m.Payload[1:]...)
				if header&burstLastFragment != 0 {
					return data, nil
				}
			}
		}
	}
}

// SendBurstTransfer chops payload into 8-byte chunks (right-padded with
// zeros) and sends them as burst-data messages on channel, with a 10ms
// pause between chunks. The sequence number in header bits [6:5] starts at
// 0 then advances 1,2,3,1,2,3...; the final chunk sets the last-fragment
// bit (7).
func (h *Host) SendBurstTransfer(ctx context.Context, channel byte, payload []byte) error {
	chunks := chunk8(payload)
	seq := 0
	for i, c := range chunks {
		header := channel & 0x1F
		if i == 0 {
			header |= byte(seq) << 5
		} else {
			seq++
			if seq > 3 {
				seq = 1
			}
			header |= byte(seq) << 5
		}
		if i == len(chunks)-1 {
			header |= burstLastFragment
		}
		if err := h.send(msgBurstData, append([]byte{header}, c...)); err != nil {
			return err
		}
		if i != len(chunks)-1 {
			if err := sleepCtx(ctx, 10*time.Millisecond); err != nil {
				return err
			}
		}
	}
	return nil
}

func chunk8(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{make([]byte, 8)}
	}
	var chunks [][]byte
	for off := 0; off < len(payload); off += 8 {
		end := off + 8
		if end > len(payload) {
			end = len(payload)
		}
		c := make([]byte, 8)
		copy(c, payload[off:end])
		chunks = append(chunks, c)
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

