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

// Package backoff provides jittered exponential backoff for operations
// that retry until they succeed, give up, exhaust an optional attempt cap
// (unlimited when Config.MaxAttempts is 0), or a caller context is
// cancelled — the upload POST, which caps it at 5 attempts — as opposed to
// the fixed-interval polling in internal/retry.
package backoff

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Config configures jittered exponential backoff.
type Config struct {
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            float64
	MaxAttempts       int // 0 = unlimited
}

// Default returns sane defaults: 10ms initial, 1s cap, doubling, 10% jitter.
func Default() Config {
	return Config{
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// Func is a retryable operation. A false second return means "give up
// without retrying" even if attempts remain.
type Func func() (err error, retryable bool)

// Run executes fn, backing off between attempts, until it succeeds, reports
// non-retryable, attempts are exhausted, or ctx is cancelled.
func Run(ctx context.Context, cfg Config, fn Func) error {
	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; cfg.MaxAttempts == 0 || attempt < cfg.MaxAttempts; attempt++ {
		err, retryable := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered(backoff, cfg.Jitter)):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return lastErr
}

func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return base
	}
	frac := float64(binary.LittleEndian.Uint64(buf[:])) / float64(1<<64)
	return base + time.Duration(frac*jitter*float64(base))
}
