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

// Transport is the I/O surface a Node is built on: read, write, close, and
// a dead flag the sync pump can poll without touching the read/write path.
// The USB dongle is the only implementation today (see transport/usb), but
// the protocol layers above never see gousb directly.
type Transport interface {
	// Read reads into buf, returning the number of bytes read. A read
	// timeout returns (0, ErrTimeout), which is not a failure. Any other
	// error marks the transport dead.
	Read(buf []byte) (int, error)

	// Write writes all of buf, looping internally until fully sent or an
	// error occurs.
	Write(buf []byte) (int, error)

	// Close releases the underlying device handle.
	Close() error

	// Dead reports whether a prior I/O error (other than a read timeout)
	// has marked this transport unusable.
	Dead() bool
}

// Node is a live, opened dongle: a named Transport plus the receive buffer
// the Host controller accumulates bytes into before framing.
type Node struct {
	Name      string
	Transport Transport

	recvBuf []byte
}

// NewNode wraps transport as a named AntNode with a receive buffer sized
// to the protocol's minimum (512 B, per the data model).
func NewNode(name string, transport Transport) *Node {
	return &Node{
		Name:      name,
		Transport: transport,
		recvBuf:   make([]byte, 0, 512),
	}
}

// Dead reports whether the node's transport has failed.
func (n *Node) Dead() bool {
	return n.Transport.Dead()
}

// Close destroys the node's transport.
func (n *Node) Close() error {
	return n.Transport.Close()
}
