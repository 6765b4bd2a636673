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

// Package usb implements ant.Transport over a USB-connected Fitbit base
// dongle, using gousb for enumeration, vendor control transfers, and bulk
// endpoint I/O.
package usb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
	"github.com/paulburton/fitbitd/ant"
)

// VendorID and ProductID identify the known Fitbit ANT dongle.
const (
	VendorID  = 0x10c4
	ProductID = 0x84c4
)

const (
	bulkEndpoint = 1
	readTimeout  = 100 * time.Millisecond
	writeTimeout = 1 * time.Second
)

// Transport is an ant.Transport backed by a gousb device handle.
type Transport struct {
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint

	dead bool
}

// Open claims dev, runs the vendor init sequence, and returns a ready
// Transport. dev must match VendorID/ProductID.
func Open(dev *gousb.Device) (*Transport, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("usb: set auto detach: %w", err)
	}

	cfg, err := dev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("usb: claim config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		_ = cfg.Close()
		return nil, fmt.Errorf("usb: claim interface: %w", err)
	}
	in, err := intf.InEndpoint(bulkEndpoint)
	if err != nil {
		intf.Close()
		_ = cfg.Close()
		return nil, fmt.Errorf("usb: open in endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(bulkEndpoint)
	if err != nil {
		intf.Close()
		_ = cfg.Close()
		return nil, fmt.Errorf("usb: open out endpoint: %w", err)
	}

	t := &Transport{dev: dev, cfg: cfg, intf: intf, in: in, out: out}
	if err := t.vendorInit(); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("usb: vendor init: %w", err)
	}
	return t, nil
}

// vendorInit performs the fixed control-transfer sequence the Fitbit
// dongle firmware expects before bulk I/O will work. Every value here is
// bit-exact; see the design's component 4.1.
func (t *Transport) vendorInit() error {
	const (
		reqTypeOut = 0x40
		reqTypeIn  = 0xC0
		reqTypeRMW = 0x41
	)

	if err := t.dev.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	step := func(reqType uint8, request uint8, value uint16, data []byte) error {
		_, err := t.dev.Control(reqType, request, value, 0, data)
		return err
	}
	checkByte := func(value uint16, want byte) error {
		buf := make([]byte, 1)
		if _, err := t.dev.Control(reqTypeIn, 255, value, 0, buf); err != nil {
			return err
		}
		if buf[0] != want {
			return fmt.Errorf("unexpected control read %#x at value %#x", buf[0], value)
		}
		return nil
	}

	if err := step(reqTypeOut, 0, 0xFFFF, nil); err != nil {
		return err
	}
	if err := step(reqTypeOut, 1, 0x2000, nil); err != nil {
		return err
	}
	if err := checkByte(0x370B, 0x02); err != nil {
		return err
	}

	if err := step(reqTypeOut, 0, 0x0000, nil); err != nil {
		return err
	}
	if err := step(reqTypeOut, 0, 0xFFFF, nil); err != nil {
		return err
	}
	if err := step(reqTypeOut, 1, 0x2000, nil); err != nil {
		return err
	}
	if err := checkByte(0x370B, 0x02); err != nil {
		return err
	}

	if err := step(reqTypeOut, 1, 0x004A, nil); err != nil {
		return err
	}
	if err := checkByte(0x370B, 0x02); err != nil {
		return err
	}

	if err := step(reqTypeOut, 3, 0x0800, nil); err != nil {
		return err
	}

	buf := make([]byte, 16)
	buf[0] = 0x08
	buf[4] = 0x40
	if err := step(reqTypeRMW, 19, 0x0000, buf); err != nil {
		return err
	}

	if err := step(reqTypeOut, 18, 0x000C, nil); err != nil {
		return err
	}

	t.drain()
	return nil
}

// drain discards whatever is sitting in the bulk IN endpoint after init.
func (t *Transport) drain() {
	buf := make([]byte, 64)
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	_, _ = t.in.ReadContext(ctx, buf)
}

// Read implements ant.Transport. A timeout is reported as ant.ErrTimeout,
// not a failure; any other error marks the transport dead.
func (t *Transport) Read(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	n, err := t.in.ReadContext(ctx, buf)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ant.ErrTimeout
		}
		t.dead = true
		return n, err
	}
	return n, nil
}

// Write implements ant.Transport, looping until all of buf has been sent.
func (t *Transport) Write(buf []byte) (int, error) {
	written := 0
	for written < len(buf) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		n, err := t.out.WriteContext(ctx, buf[written:])
		cancel()
		if err != nil {
			t.dead = true
			return written, err
		}
		written += n
	}
	return written, nil
}

// Dead implements ant.Transport.
func (t *Transport) Dead() bool { return t.dead }

// Close implements ant.Transport, releasing the interface, config, and
// device handle in order.
func (t *Transport) Close() error {
	if t.intf != nil {
		t.intf.Close()
	}
	var errs []error
	if t.cfg != nil {
		if err := t.cfg.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.dev != nil {
		if err := t.dev.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("usb: close: %v", errs)
	}
	return nil
}
