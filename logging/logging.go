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

// Package logging implements the daemon's logging surface (C8): a
// *log.Logger writing to stderr (or --log FILE), with a debug toggle
// mirroring the package-level SetDebugEnabled/debugf idiom used elsewhere
// in this codebase's lineage for optional verbose tracing.
package logging

import (
	"io"
	"log"
	"os"
)

var debugEnabled bool

// SetDebugEnabled turns Debugf output on or off; it is off by default.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// New builds a *log.Logger writing to w (os.Stderr for callers that don't
// pass --log) with a fitbitd-style prefix.
func New(w io.Writer) *log.Logger {
	return log.New(w, "fitbitd: ", log.LstdFlags)
}

// Open redirects logging to path, truncating it, matching --log FILE's
// freopen(stderr) behavior. The caller is responsible for closing the
// returned file at shutdown.
func Open(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
}

// Debugf logs via logger only when debugging is enabled.
func Debugf(logger *log.Logger, format string, args ...any) {
	if debugEnabled {
		logger.Printf(format, args...)
	}
}
