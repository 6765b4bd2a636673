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

// chatterMagic is the fixed 10-byte prefix the tracker firmware expects at
// offset 4 of a set-chatter payload.
var chatterMagic = [10]byte{0xe2, 0x02, 0x9d, 0x03, 0x48, 0x2f, 0x52, 0x09, 0x5b, 0x3e}

const chatterSlotWidth = 10

// SetChatter configures the tracker's idle-display greeting and rotating
// messages. It is an identification-time-only op, never issued on the
// sync path. greeting and each entry of messages must be 8 bytes or
// shorter.
func (b *Base) SetChatter(ctx context.Context, greeting string, messages [3]string) error {
	if len(greeting) > 8 {
		return ErrStringTooLong
	}
	for _, m := range messages {
		if len(m) > 8 {
			return ErrStringTooLong
		}
	}

	payload := make([]byte, 0x40)
	copy(payload[4:14], chatterMagic[:])
	payload[21] = 0xFF
	copy(payload[24:24+chatterSlotWidth], greeting)
	copy(payload[34:34+chatterSlotWidth], messages[0])
	copy(payload[44:44+chatterSlotWidth], messages[1])
	copy(payload[54:54+chatterSlotWidth], messages[2])

	op := [7]byte{0x23, 0, 0x40, 0, 0, 0, 0}
	_, err := b.RunOp(ctx, op, payload, nil)
	return err
}
