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

// Package config implements preferences (C7): the daemon's tunable
// defaults and the XDG-derived config directory every other component
// roots its own path in.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	defaultUploadURL     = "https://client.fitbit.com/device/tracker/uploadData"
	defaultClientID      = "2ea32002-a079-48f4-8020-0badd22939e3"
	defaultScanDelay     = 10 * time.Second
	defaultSyncDelay     = 15 * time.Minute
	configHomeFallback   = "/tmp/fitbitd"
)

// Version is the daemon's reported client version, set at build time via
// -ldflags; it defaults to "dev" for unreleased builds.
var Version = "dev"

// Prefs holds every daemon preference (C7). Zero Prefs is not valid; build
// one with Default.
type Prefs struct {
	ScanDelay     time.Duration
	SyncDelay     time.Duration
	UploadURL     string
	ClientID      string
	ClientVersion string
	OSName        string
	LockFilename  string
	DumpDirectory string
	LogFilename   string
}

// ConfigHome resolves the directory fitbitd roots its config, lock file,
// and any future state in: $XDG_CONFIG_HOME/fitbitd, then
// $HOME/.config/fitbitd, then /tmp/fitbitd.
func ConfigHome() string {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, "fitbitd")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "fitbitd")
	}
	return configHomeFallback
}

// Default returns the preference set fitbitd starts with absent any
// overrides: hardcoded upload endpoint and client id, this host's kernel
// name folded into the reported OS string, and the lock file under
// ConfigHome().
func Default() Prefs {
	cfgHome := ConfigHome()
	return Prefs{
		ScanDelay:     defaultScanDelay,
		SyncDelay:     defaultSyncDelay,
		UploadURL:     defaultUploadURL,
		ClientID:      defaultClientID,
		ClientVersion: Version,
		OSName:        fmt.Sprintf("fitbitd-%s", runtime.GOOS),
		LockFilename:  filepath.Join(cfgHome, "lock"),
	}
}
