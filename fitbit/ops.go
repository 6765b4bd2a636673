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

package fitbit

import "context"

// Op response dispatch codes, from the channel's acked-data response.
const (
	respShort  = 0x41
	respBanked = 0x42
	respNeedsPayload = 0x61
)

// RunOp executes a 7-byte op, retrying up to opAttempts times. If the
// tracker's response is a short response, up to 6 bytes land in out. If it
// is a banked response, the bank is fetched and its data lands in out. If
// the tracker requests a payload and payload is empty, RunOp fails
// immediately without retrying; otherwise the payload is burst-sent under
// its envelope and the follow-up acked response is treated as a short
// response.
func (b *Base) RunOp(ctx context.Context, op7 [7]byte, payload []byte, out []byte) (int, error) {
	for attempt := 0; attempt < opAttempts; attempt++ {
		id := b.packetID.Next()

		var data [8]byte
		data[0] = id
		copy(data[1:], op7[:])
		if err := b.host.SendAckedData(ctx, b.channel, data); err != nil {
			continue
		}

		resp := make([]byte, 8)
		n, err := b.host.ReceiveAckedResponse(ctx, resp)
		if err != nil || n < 8 || resp[0] != id {
			continue
		}

		switch resp[1] {
		case respShort:
			return copy(out, resp[2:8]), nil
		case respBanked:
			n, err := b.fetchBank(ctx, id, out)
			if err != nil {
				continue
			}
			return n, nil
		case respNeedsPayload:
			if len(payload) == 0 {
				return 0, ErrPayloadRequired
			}
			n, err := b.sendPayloadAndAwaitResult(ctx, id, payload, out)
			if err != nil {
				continue
			}
			return n, nil
		default:
			continue
		}
	}
	return 0, ErrOpFailed
}

// sendPayloadAndAwaitResult burst-sends payload under its envelope, then
// waits for the follow-up acked response (treated as a short response).
func (b *Base) sendPayloadAndAwaitResult(ctx context.Context, id byte, payload []byte, out []byte) (int, error) {
	envelope := burstEnvelope(id, payload)
	if err := b.host.SendBurstTransfer(ctx, b.channel, envelope); err != nil {
		return 0, err
	}

	resp := make([]byte, 8)
	n, err := b.host.ReceiveAckedResponse(ctx, resp)
	if err != nil || n < 8 || resp[0] != id {
		return 0, ErrOpFailed
	}
	return copy(out, resp[2:8]), nil
}

// burstEnvelope prepends the 8-byte header the tracker expects before a
// burst-sent payload: packet id, 0x80, little-endian length, three zero
// bytes, and the XOR of the payload.
func burstEnvelope(id byte, payload []byte) []byte {
	header := [8]byte{
		id,
		0x80,
		byte(len(payload)),
		byte(len(payload) >> 8),
		0, 0, 0,
		xorBytes(payload),
	}
	return append(header[:], payload...)
}

func xorBytes(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}

// fetchBank allocates a bank-id and retrieves it over a burst transfer.
func (b *Base) fetchBank(ctx context.Context, id byte, out []byte) (int, error) {
	bankID := b.bankID
	b.bankID++

	data := [8]byte{id, 0x70, 0x00, 0x02, bankID, 0, 0, 0}
	if err := b.host.SendAckedData(ctx, b.channel, data); err != nil {
		return 0, err
	}

	burst, err := b.host.ReceiveBurst(ctx, b.channel)
	if err != nil {
		return 0, err
	}
	if len(burst) < 8 || burst[1] != 0x81 {
		return 0, ErrBankResponseInvalid
	}

	total := int(burst[2]) | int(burst[3])<<8
	data2 := burst[8:]
	if total < len(data2) {
		data2 = data2[:total]
	}
	return copy(out, data2), nil
}

// Sleep tells the tracker to sleep for the given duration, in units of
// 15 seconds (truncated).
func (b *Base) Sleep(ctx context.Context, duration int) error {
	units := byte(duration / 15)
	data := [8]byte{0x7F, 0x03, 0, 0, 0, 0, 0, units}
	return b.host.SendAckedData(ctx, b.channel, data)
}
