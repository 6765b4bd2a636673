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

// Package fitbit implements the Fitbit tracker session protocol layered on
// top of an ANT channel: channel lifecycle, packet-ID sequencing,
// data-bank retrieval, and the payload-bearing op dialog.
package fitbit

import (
	"context"
	"errors"
	"time"

	"github.com/paulburton/fitbitd/ant"
)

// Fixed channel parameters for Fitbit use (C4).
const (
	channelNumber    = 0
	networkNumber    = 0
	channelType      = 0
	period           = 0x1000 // wire bytes {0x00, 0x10}
	rfFreq           = 2
	txPower          = 3
	searchTimeout    = 0xFF
	deviceType       = 1
	transmissionType = 1

	// SearchDeviceNumber means "search for any tracker".
	SearchDeviceNumber uint16 = 0xFFFF

	opAttempts = 10
)

var networkKey = [8]byte{}

// Errors returned by op execution.
var (
	ErrPayloadRequired     = errors.New("fitbit: tracker requested a payload but none was given")
	ErrOpFailed            = errors.New("fitbit: op did not complete within its attempt budget")
	ErrBankResponseInvalid = errors.New("fitbit: malformed data-bank response")
	ErrStringTooLong       = errors.New("fitbit: chatter string longer than 8 bytes")
)

// Base is a FitbitBase: an ANT host controller dedicated to a single
// channel, with the device-number/packet-ID/bank-ID state the session
// protocol needs.
type Base struct {
	host    *ant.Host
	channel byte

	hasDeviceNumber bool
	deviceNumber    uint16
	skippedSetups   int

	// MaxSkippedSetups bounds how many consecutive InitChannel calls with
	// an unchanged device number may skip re-running the full setup.
	MaxSkippedSetups int

	packetID packetIDCounter
	bankID   byte
}

// NewBase wraps host as a FitbitBase on the fixed channel number.
func NewBase(host *ant.Host) *Base {
	return &Base{
		host:              host,
		channel:           channelNumber,
		MaxSkippedSetups:  10,
	}
}

// Node exposes the underlying ANT node so callers can check Dead().
func (b *Base) Node() *ant.Node { return b.host.Node() }

// packetIDCounter implements the packet-ID sequencing rule: ids walk
// 0x39, 0x3A, ..., 0x3F, 0x38, 0x39, ... After Reset the next id is 0x39;
// a zero-value counter that was never Reset starts at 0x38.
type packetIDCounter struct {
	counter byte
}

func (c *packetIDCounter) Reset() {
	c.counter = 1
}

func (c *packetIDCounter) Next() byte {
	id := 0x38 | c.counter
	c.counter = (c.counter + 1) & 0x07
	return id
}

// InitChannel (re)initializes the channel for deviceNumber. If it equals
// the current device number and fewer than MaxSkippedSetups consecutive
// skips have occurred, the setup is skipped. Otherwise it runs the full
// reset/assign/open sequence; any step failure clears the stored device
// number so the next call re-runs it in full.
func (b *Base) InitChannel(ctx context.Context, deviceNumber uint16) error {
	if b.hasDeviceNumber && b.deviceNumber == deviceNumber && b.skippedSetups < b.MaxSkippedSetups {
		b.skippedSetups++
		return nil
	}

	if err := b.fullChannelSetup(ctx, deviceNumber); err != nil {
		b.hasDeviceNumber = false
		return err
	}

	b.deviceNumber = deviceNumber
	b.hasDeviceNumber = true
	b.skippedSetups = 0
	return nil
}

func (b *Base) fullChannelSetup(ctx context.Context, deviceNumber uint16) error {
	if err := b.host.Reset(); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	if err := b.host.WaitForStartup(ctx); err != nil {
		return err
	}
	if err := b.host.SetNetworkKey(ctx, networkNumber, networkKey); err != nil {
		return err
	}
	if err := b.host.AssignChannel(ctx, b.channel, channelType, networkNumber); err != nil {
		return err
	}
	if err := b.host.SetChannelPeriod(ctx, b.channel, period); err != nil {
		return err
	}
	if err := b.host.SetChannelFreq(ctx, b.channel, rfFreq); err != nil {
		return err
	}
	if err := b.host.SetTxPower(ctx, txPower); err != nil {
		return err
	}
	if err := b.host.SetChannelSearchTimeout(ctx, b.channel, searchTimeout); err != nil {
		return err
	}
	id := ant.ChannelID{DeviceNumber: deviceNumber, DeviceType: deviceType, TransmissionType: transmissionType}
	if err := b.host.SetChannelID(ctx, b.channel, id); err != nil {
		return err
	}
	return b.host.OpenChannel(ctx, b.channel)
}

// WaitForBeacon waits for a tracker's broadcast beacon, up to the host
// controller's attempt budget. Its absence means no tracker is present.
func (b *Base) WaitForBeacon(ctx context.Context) (bool, error) {
	return b.host.WaitForBeacon(ctx)
}
