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

// ANT message ids this host controller sends.
const (
	msgUnassignChannel         = 0x41
	msgAssignChannel           = 0x42
	msgSetChannelPeriod        = 0x43
	msgSetChannelSearchTimeout = 0x44
	msgSetChannelFreq          = 0x45
	msgSetNetworkKey           = 0x46
	msgSetTxPower              = 0x47
	msgReset                   = 0x4A
	msgOpenChannel             = 0x4B
	msgCloseChannel            = 0x4C
	msgAckedData               = 0x4F
	msgBurstData               = 0x50
	msgSetChannelID            = 0x51
)

// ANT message ids this host controller receives.
const (
	msgChannelEvent  = 0x40 // RF event / channel response
	msgBroadcastData = 0x4E // beacon from a peer device
	// msgAckedData and msgBurstData are shared between directions.
	msgStartup = 0x6F
)

// Channel event values. A TX-result msgChannelEvent carries eventTxAck in
// its payload's second byte and eventTxCompleted or eventTxFailed in its
// third; burstLastFragment is the last-fragment bit of a burst header.
const (
	eventTxCompleted  = 0x05
	eventTxFailed     = 0x06
	eventTxAck        = 0x01 // the "kind" byte identifying a TX-result event
	burstLastFragment = 0x80
)

// Polling attempt budgets, all spaced attemptInterval apart. These mirror
// the fixed 100ms/10/20/50-attempt loops the wire protocol is built around.
const (
	attemptInterval       = 100 // milliseconds
	checkOKAttempts       = 20
	ackedDataAttempts     = 20
	ackedResponseAttempts = 20
)

// burstFragmentInterval/burstFragmentAttempts govern the per-message wait
// inside a burst transfer: 1ms apart, 20 attempts, much tighter than the
// other waits above since fragments arrive back-to-back once a burst
// starts.
const (
	burstFragmentInterval = 1 // milliseconds
	burstFragmentAttempts = 20
)

// ChannelID identifies an ANT channel's device pairing.
type ChannelID struct {
	DeviceNumber    uint16
	DeviceType      byte
	TransmissionType byte
}

func unassignChannelPayload(channel byte) []byte {
	return []byte{channel}
}

func assignChannelPayload(channel, channelType, network byte) []byte {
	return []byte{channel, channelType, network, 0x00}
}

func setChannelPeriodPayload(channel byte, period uint16) []byte {
	return []byte{channel, byte(period), byte(period >> 8)}
}

func setChannelSearchTimeoutPayload(channel, timeout byte) []byte {
	return []byte{channel, timeout}
}

func setChannelFreqPayload(channel, freq byte) []byte {
	return []byte{channel, freq}
}

func setNetworkKeyPayload(network byte, key [8]byte) []byte {
	return append([]byte{network}, key[:]...)
}

func setTxPowerPayload(power byte) []byte {
	return []byte{0x00, power}
}

func resetPayload() []byte {
	return []byte{0x00}
}

func openChannelPayload(channel byte) []byte {
	return []byte{channel}
}

func closeChannelPayload(channel byte) []byte {
	return []byte{channel}
}

func setChannelIDPayload(channel byte, id ChannelID) []byte {
	return []byte{
		channel,
		byte(id.DeviceNumber), byte(id.DeviceNumber >> 8),
		id.DeviceType, id.TransmissionType,
	}
}

func ackedDataPayload(channel byte, data [8]byte) []byte {
	return append([]byte{channel}, data[:]...)
}
