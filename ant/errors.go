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

import "errors"

// ErrTimeout is returned by a Transport.Read when no data arrived within
// its read timeout. It is not a failure: the caller is expected to retry
// within its own attempt budget.
var ErrTimeout = errors.New("ant: read timeout")

// ErrBufferTooSmall reports that an output buffer cannot hold an encoded
// frame. Host sizes its own encode buffers and does not return it; frame
// encoding itself reports antframe.ErrBufferTooSmall.
var ErrBufferTooSmall = errors.New("ant: buffer too small")

// ErrCommandFailed is returned when check_ok sees a non-zero response code
// for a command.
var ErrCommandFailed = errors.New("ant: command failed")

// ErrBurstFailed is returned when a burst transfer's RF event reports
// failure (code 6) instead of completion.
var ErrBurstFailed = errors.New("ant: burst transfer failed")

// ErrNoResponse is returned when an attempt budget is exhausted while
// waiting for an expected message.
var ErrNoResponse = errors.New("ant: no response within attempt budget")

// ErrNodeDead names the condition of a node whose transport has reported a
// fatal (non-timeout) I/O error. Host operations do not return it: they
// return the transport's own error, and Node.Dead() reports the condition.
var ErrNodeDead = errors.New("ant: node is dead")
