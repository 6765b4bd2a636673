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

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSucceedsImmediately(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Run(context.Background(), Default(), func() (error, bool) {
		calls++
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.InitialBackoff = time.Millisecond
	calls := 0
	err := Run(context.Background(), cfg, func() (error, bool) {
		calls++
		if calls < 3 {
			return errors.New("transient"), true
		}
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunStopsOnNonRetryable(t *testing.T) {
	t.Parallel()
	calls := 0
	wantErr := errors.New("fatal")
	err := Run(context.Background(), Default(), func() (error, bool) {
		calls++
		return wantErr, false
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestRunExhaustsMaxAttempts(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxAttempts = 3
	calls := 0
	wantErr := errors.New("still failing")
	err := Run(context.Background(), cfg, func() (error, bool) {
		calls++
		return wantErr, true
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.InitialBackoff = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, cfg, func() (error, bool) {
		return errors.New("transient"), true
	})
	require.ErrorIs(t, err, context.Canceled)
}
