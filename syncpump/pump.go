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

// Package syncpump implements the sync pump (C5): the outer loop that
// discovers bases, drains each one's trackers against the ANT/Fitbit
// stack, and runs the upload server dialog for every tracker it syncs.
package syncpump

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulburton/fitbitd/fitbit"
	"github.com/paulburton/fitbitd/internal/backoff"
	"github.com/paulburton/fitbitd/registry"
)

// postBackoff bounds retries of a single upload-server POST: the server or
// the network hiccupping is transient, but RunOp's own attempt budget has
// already been spent getting here, so this doesn't retry forever.
func postBackoff() backoff.Config {
	cfg := backoff.Default()
	cfg.MaxAttempts = 5
	return cfg
}

// Config bundles the pump's tunables, all sourced from preferences.
type Config struct {
	ClientInfo ClientInfo
	UploadURL  string
	ScanDelay  time.Duration
	SyncDelay  time.Duration
}

// Logger is the narrow logging surface the pump needs; *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// Pump is the sync pump: one process-wide coordinator driving every base
// the discoverer hands it.
type Pump struct {
	cfg    Config
	reg    *registry.Registry
	dialog *Dialog
	dump   *DumpWriter
	log    Logger

	// OnStateChanged, if set, is called after every registry mutation this
	// pump makes — the hook the IPC control surface's StateChanged signal
	// is published through.
	OnStateChanged func()

	exit chan struct{}
}

// New builds a Pump that records device state in reg, writes op dumps
// through dump (nil disables dumping), and logs through log. The bases to
// sync are supplied to Run.
func New(cfg Config, reg *registry.Registry, dump *DumpWriter, log Logger) *Pump {
	p := &Pump{
		cfg:  cfg,
		reg:  reg,
		dump: dump,
		log:  log,
		exit: make(chan struct{}),
	}
	p.dialog = NewDialog(cfg.ClientInfo, func(format string, args ...any) {
		log.Printf("WARN: "+format, args...)
	})
	return p
}

// record mutates the registry row for serialHex and fires OnStateChanged,
// the single choke point every registry mutation in this package goes
// through.
func (p *Pump) record(serialHex string, mutator func(*registry.DeviceRecord)) {
	p.reg.Record(serialHex, mutator)
	if p.OnStateChanged != nil {
		p.OnStateChanged()
	}
}

// Stop requests the pump's Run loop exit at its next scan boundary.
func (p *Pump) Stop() {
	select {
	case <-p.exit:
	default:
		close(p.exit)
	}
}

func (p *Pump) stopping() bool {
	select {
	case <-p.exit:
		return true
	default:
		return false
	}
}

// Run scans for newly attached bases via discover each cycle, appends them
// to the set of bases already known, and drains every base in that set.
// A base whose drain aborts with a base-fatal error is destroyed and
// dropped; bases that simply found no tracker to sync stay in the set for
// the next scan. Run returns once the current scan completes after Stop is
// called.
func (p *Pump) Run(ctx context.Context, discover func() ([]*fitbit.Base, error)) error {
	var bases []*fitbit.Base

	for !p.stopping() {
		found, err := discover()
		if err != nil {
			p.log.Printf("sync: discovery failed: %v", err)
		}
		bases = append(bases, found...)

		var surviving []*fitbit.Base
		for _, base := range bases {
			if p.stopping() {
				surviving = append(surviving, base)
				continue
			}
			if err := p.drainBase(ctx, base); err != nil {
				if base.Node().Dead() {
					p.log.Printf("sync: base sync aborted, destroying base: %v", err)
					_ = base.Node().Close()
					continue
				}
				p.log.Printf("sync: tracker sync aborted: %v", err)
			}
			surviving = append(surviving, base)
		}
		bases = surviving

		p.reg.Clean(time.Now().Add(-p.cfg.SyncDelay * 3 / 2).Unix())

		if p.stopping() {
			break
		}
		if err := sleepCtx(ctx, p.cfg.ScanDelay); err != nil {
			return err
		}
	}
	return nil
}

// drainBase fully syncs every tracker base's dongle can reach, stopping
// when no tracker answers the beacon, the node goes dead, or a channel or
// tracker step fails.
func (p *Pump) drainBase(ctx context.Context, base *fitbit.Base) error {
	for {
		if base.Node().Dead() {
			return fmt.Errorf("sync: base node is dead")
		}

		if err := base.InitChannel(ctx, fitbit.SearchDeviceNumber); err != nil {
			return err
		}
		found, err := base.WaitForBeacon(ctx)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		info, err := base.SyncTracker(ctx)
		if err != nil {
			return err
		}

		if err := p.syncWithServer(ctx, base, info); err != nil {
			p.log.Printf("sync: server round-trip for %s failed: %v", info.SerialHex(), err)
		}
	}
}

// syncWithServer runs the full upload-server round-trip for one freshly
// identified tracker: POST, run any server-queued ops, follow redirects
// until the server stops issuing a new URL, then put the tracker to sleep.
func (p *Pump) syncWithServer(ctx context.Context, base *fitbit.Base, info fitbit.TrackerInfo) error {
	serialHex := info.SerialHex()
	syncTime := time.Now().Unix()

	p.record(serialHex, func(d *registry.DeviceRecord) {
		d.State |= registry.StateSyncing
	})
	defer p.record(serialHex, func(d *registry.DeviceRecord) {
		d.State &^= registry.StateSyncing
		d.LastSyncTime = syncTime
	})

	var queue opQueue
	targetURL := p.cfg.UploadURL
	replyBody := ""
	opNum := 0

	for targetURL != "" {
		pending := queue.drain()
		results := make([]opResult, len(pending))
		for i, op := range pending {
			out := make([]byte, 512)
			n, err := base.RunOp(ctx, op.Code, op.Payload, out)
			if err != nil {
				results[i] = opResult{ok: false}
			} else {
				results[i] = opResult{ok: true, response: out[:n]}
			}
			if err := p.dump.Op(serialHex, syncTime, opNum, op.Code[:], op.Payload, results[i].response); err != nil {
				p.log.Printf("sync: dump write failed: %v", err)
			}
			opNum++
		}

		var next, nextReplyBody string
		var newOps []Op
		postErr := backoff.Run(ctx, postBackoff(), func() (error, bool) {
			var err error
			next, nextReplyBody, newOps, err = p.dialog.Post(ctx, targetURL, replyBody, results)
			return err, true
		})
		if postErr != nil {
			return postErr
		}

		for _, op := range newOps {
			queue.push(op)
		}

		fields := parseFieldPairs(nextReplyBody)
		if trackerID, userID := fields["trackerPublicId"], fields["userPublicId"]; trackerID != "" || userID != "" {
			p.record(serialHex, func(d *registry.DeviceRecord) {
				if trackerID != "" {
					d.TrackerID = trackerID
				}
				if userID != "" {
					d.UserID = userID
				}
			})
		}

		targetURL = next
		replyBody = nextReplyBody
	}

	return base.Sleep(ctx, int(p.cfg.SyncDelay.Seconds()))
}

// parseFieldPairs splits an '&'-joined, '='-split reply body into a map,
// the same shape Dialog.Post echoes back as form fields.
func parseFieldPairs(body string) map[string]string {
	fields := make(map[string]string)
	if body == "" {
		return fields
	}
	for _, pair := range strings.Split(body, "&") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			fields[kv[0]] = kv[1]
		}
	}
	return fields
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
