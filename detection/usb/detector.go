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

// Package usb discovers Fitbit base dongles on the USB bus and turns each
// one into an ant.Node. It owns the process-wide gousb.Context: the first
// Scan call creates it, and it is torn down once the last discovered node
// closes.
package usb

import (
	"fmt"
	"sync"

	"github.com/google/gousb"
	"github.com/paulburton/fitbitd/ant"
	usbtransport "github.com/paulburton/fitbitd/transport/usb"
)

// deviceEntry is one row of the vendor/product identification table.
type deviceEntry struct {
	vendorID, productID gousb.ID
}

// knownDevices is the table of dongles this daemon knows how to init.
// Only the one Fitbit base model is known today.
var knownDevices = []deviceEntry{
	{gousb.ID(usbtransport.VendorID), gousb.ID(usbtransport.ProductID)},
}

// Discoverer tracks which USB devices already have an open Node so that
// repeated scans do not double-open a dongle, and owns the shared gousb
// context's lifetime.
type Discoverer struct {
	mu   sync.Mutex
	ctx  *gousb.Context
	open map[string]bool
}

// NewDiscoverer returns a Discoverer with no context yet opened; the
// context is created lazily on the first Scan.
func NewDiscoverer() *Discoverer {
	return &Discoverer{open: make(map[string]bool)}
}

func deviceKey(desc *gousb.DeviceDesc) string {
	return fmt.Sprintf("%d:%d", desc.Bus, desc.Address)
}

func isKnown(desc *gousb.DeviceDesc) bool {
	for _, e := range knownDevices {
		if desc.Vendor == e.vendorID && desc.Product == e.productID {
			return true
		}
	}
	return false
}

// Scan produces a finite, non-restartable sequence of newly discovered
// bases: every matching, not-already-open device currently on the bus,
// each already vendor-initialized. Devices that fail to open or
// initialize are skipped rather than failing the whole scan.
func (d *Discoverer) Scan() ([]*ant.Node, error) {
	d.mu.Lock()
	if d.ctx == nil {
		d.ctx = gousb.NewContext()
	}
	ctx := d.ctx
	d.mu.Unlock()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return isKnown(desc) && !d.open[deviceKey(desc)]
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("usb discovery: %w", err)
	}

	var nodes []*ant.Node
	for _, dev := range devs {
		key := fmt.Sprintf("%d:%d", dev.Desc.Bus, dev.Desc.Address)
		transport, err := usbtransport.Open(dev)
		if err != nil {
			_ = dev.Close()
			continue
		}

		d.mu.Lock()
		d.open[key] = true
		d.mu.Unlock()

		tracked := &trackingTransport{Transport: transport, d: d, key: key}
		nodes = append(nodes, ant.NewNode(key, tracked))
	}
	return nodes, nil
}

// Close tears down the shared context immediately, regardless of any
// still-open nodes. Used on daemon shutdown.
func (d *Discoverer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		_ = d.ctx.Close()
		d.ctx = nil
	}
}

// trackingTransport wraps a usb.Transport so that closing the node removes
// it from the discoverer's open-list, tearing down the shared USB context
// once the list empties.
type trackingTransport struct {
	*usbtransport.Transport
	d   *Discoverer
	key string
}

func (t *trackingTransport) Close() error {
	err := t.Transport.Close()

	t.d.mu.Lock()
	delete(t.d.open, t.key)
	empty := len(t.d.open) == 0
	ctx := t.d.ctx
	if empty {
		t.d.ctx = nil
	}
	t.d.mu.Unlock()

	if empty && ctx != nil {
		_ = ctx.Close()
	}
	return err
}
