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

/*
Package ant implements the ANT wireless link layer and host-controller
protocol carried over the Fitbit base's USB dongle.

It is a three-layer stack rooted at this package:

  - Transport (this package) is the raw byte I/O contract a dongle
    implements; transport/usb provides the only real implementation today.
  - Host (this package) frames and sequences ANT commands over a Transport:
    channel assignment, acked data, and burst transfers.
  - fitbit layers the tracker session protocol — channel lifecycle, packet
    IDs, data banks, ops — on top of a Host.

Basic usage:

	node := ant.NewNode("base0", usbTransport)
	host := ant.NewHost(node)

	if err := host.Reset(); err != nil {
	    log.Fatal(err)
	}
	if err := host.WaitForStartup(ctx); err != nil {
	    log.Fatal(err)
	}

Error handling:

Transient conditions (read timeouts, missing beacons, bad checksums) are
swallowed and retried within each method's own attempt budget; see
internal/retry. A non-nil error returned from a Host method means the
budget was exhausted, the device answered with a failure code
(ErrCommandFailed, ErrBurstFailed), or the transport reported a permanent
failure — check Node.Dead() to recognize the last case.
*/
package ant
