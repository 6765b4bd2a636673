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

import (
	"context"
	"encoding/hex"
	"math/rand/v2"

	"github.com/paulburton/fitbitd/ant"
)

// opTrackerReset and opPing are the fixed, non-run_op acked administrative
// sends used during tracker sync (C4 steps 2 and 6; step 4 is
// opInformDeviceNumber). These are not packet-ID-carrying protocol ops;
// their first byte is the payload's own op selector. opIdentify is the
// 7-byte op run through RunOp to identify the tracker (step 7).
var (
	opTrackerReset      = [8]byte{0x78, 0x01, 0, 0, 0, 0, 0, 0}
	opPing              = [8]byte{0x78, 0x00, 0, 0, 0, 0, 0, 0}
	opIdentify          = [7]byte{0x24, 0, 0, 0, 0, 0, 0}
)

func opInformDeviceNumber(num uint16) [8]byte {
	return [8]byte{0x78, 0x02, byte(num), byte(num >> 8), 0, 0, 0, 0}
}

// TrackerInfo is the result of the identification op.
type TrackerInfo struct {
	Serial        [5]byte
	Firmware      byte
	BSLVersion    [2]byte
	AppVersion    [2]byte
	OnCharger     bool
}

// SerialHex renders Serial as 10 lowercase hex characters.
func (t TrackerInfo) SerialHex() string {
	return hex.EncodeToString(t.Serial[:])
}

func parseTrackerInfo(info []byte) TrackerInfo {
	var ti TrackerInfo
	copy(ti.Serial[:], info[0:5])
	ti.Firmware = info[5]
	copy(ti.BSLVersion[:], info[6:8])
	copy(ti.AppVersion[:], info[8:10])
	ti.OnCharger = info[11] != 0
	return ti
}

// randomDeviceNumber generates a fresh 2-byte device number, each byte
// independently random.
func randomDeviceNumber() uint16 {
	return uint16(rand.IntN(256)) | uint16(rand.IntN(256))<<8
}

// SyncTracker runs the single-tracker sync sequence (C4): reset the
// tracker, hand it a fresh device number, reopen the channel on that
// number, ping, and identify. The caller drives the server dialog once
// this returns; SyncTracker does not itself talk to the upload service.
func (b *Base) SyncTracker(ctx context.Context) (TrackerInfo, error) {
	b.packetID.Reset()

	if err := b.host.SendAckedData(ctx, b.channel, opTrackerReset); err != nil {
		return TrackerInfo{}, err
	}

	newDeviceNumber := randomDeviceNumber()
	if err := b.host.SendAckedData(ctx, b.channel, opInformDeviceNumber(newDeviceNumber)); err != nil {
		return TrackerInfo{}, err
	}

	if err := b.host.CloseChannel(ctx, b.channel); err != nil {
		return TrackerInfo{}, err
	}
	if err := b.InitChannel(ctx, newDeviceNumber); err != nil {
		return TrackerInfo{}, err
	}
	if found, err := b.WaitForBeacon(ctx); err != nil {
		return TrackerInfo{}, err
	} else if !found {
		return TrackerInfo{}, ant.ErrNoResponse
	}

	if err := b.host.SendAckedData(ctx, b.channel, opPing); err != nil {
		return TrackerInfo{}, err
	}

	info := make([]byte, 12)
	if _, err := b.RunOp(ctx, opIdentify, nil, info); err != nil {
		return TrackerInfo{}, err
	}
	return parseTrackerInfo(info), nil
}
