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

// Package ipc implements the local control surface (C11): a D-Bus client
// would normally reach this as an external collaborator, but a standalone
// daemon needs a concrete local transport, so this exposes the same
// Exit/GetDevices contract plus a StateChanged notification over a Unix
// domain socket.
package ipc

import (
	"errors"
	"log"
	"net"
	"net/rpc"
	"os"
	"sync"

	"github.com/paulburton/fitbitd/registry"
)

// DeviceSummary is one GetDevices row.
type DeviceSummary struct {
	SerialHex        string
	StateMask        uint32
	SecondsSinceSync int64
	TrackerID        string
	UserID           string
}

// Control is the RPC-exposed control surface. ExitFunc is called by the
// Exit method; it should signal the daemon's main loop to stop and must
// not block.
type Control struct {
	reg      *registry.Registry
	nowUnix  func() int64
	ExitFunc func()

	mu        sync.Mutex
	listeners []chan struct{}
}

// NewControl builds a Control backed by reg. nowUnix supplies the current
// time as a Unix timestamp (injected so callers can avoid wall-clock reads
// outside production use).
func NewControl(reg *registry.Registry, nowUnix func() int64) *Control {
	return &Control{reg: reg, nowUnix: nowUnix}
}

// Exit asks the daemon to shut down. status is always 0 (ok); the method
// returns a status code so future failure modes have somewhere to report.
func (c *Control) Exit(_ struct{}, status *int) error {
	*status = 0
	if c.ExitFunc != nil {
		c.ExitFunc()
	}
	return nil
}

// GetDevices returns one summary row per known tracker.
func (c *Control) GetDevices(_ struct{}, out *[]DeviceSummary) error {
	now := c.nowUnix()
	var devices []DeviceSummary
	c.reg.Enum(func(d registry.DeviceRecord) {
		devices = append(devices, DeviceSummary{
			SerialHex:        d.Serial,
			StateMask:        d.State,
			SecondsSinceSync: now - d.LastSyncTime,
			TrackerID:        d.TrackerID,
			UserID:           d.UserID,
		})
	})
	*out = devices
	return nil
}

// NotifyStateChanged fires the StateChanged signal to every connected
// listener. Call this after every registry mutation.
func (c *Control) NotifyStateChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers a channel that receives a value every time
// NotifyStateChanged fires.
func (c *Control) Subscribe(ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, ch)
}

// Server listens on a Unix domain socket and serves Control over net/rpc.
type Server struct {
	path     string
	listener net.Listener
}

// Listen binds a control socket at path, removing any stale socket file
// left behind by a prior unclean shutdown.
func Listen(path string, control *Control) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Control", control); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	s := &Server{path: path, listener: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go rpcServer.ServeConn(conn)
		}
	}()
	return s, nil
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	if err := s.listener.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ipc: failed to remove socket %s: %v", s.path, err)
	}
	return nil
}
