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

// Command fitbitd is the Fitbit tracker sync daemon: it discovers ANT
// dongles over USB, drains every tracker they can reach, and uploads what
// it finds to the Fitbit server, following any remote ops the server
// queues in response.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/rpc"
	"os"
	"path/filepath"
	"time"

	"github.com/paulburton/fitbitd/config"
	"github.com/paulburton/fitbitd/detection/usb"
	"github.com/paulburton/fitbitd/ipc"
	"github.com/paulburton/fitbitd/lockfile"
	"github.com/paulburton/fitbitd/logging"
	"github.com/paulburton/fitbitd/registry"
	"github.com/paulburton/fitbitd/syncpump"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		showVersion = flag.Bool("version", false, "Output version and exit")
		noDaemon    = flag.Bool("no-daemon", false, "Don't detach into the background")
		noDBus      = flag.Bool("no-dbus", false, "Don't start the local control surface")
		doExit      = flag.Bool("exit", false, "Ask a running fitbitd to exit")
		dumpDir     = flag.String("dump", "", "Directory to dump raw op traffic into")
		logFile     = flag.String("log", "", "Redirect logging to FILE instead of stderr")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("fitbitd version %s\n", config.Version)
		return 0
	}

	prefs := config.Default()
	if *dumpDir != "" {
		prefs.DumpDirectory = *dumpDir
	}
	if *logFile != "" {
		prefs.LogFilename = *logFile
	}
	socketPath := filepath.Join(config.ConfigHome(), "control.sock")

	if *doExit {
		if err := callExit(socketPath); err != nil {
			fmt.Fprintf(os.Stderr, "fitbitd: exit failed: %v\n", err)
			return 1
		}
		return 0
	}

	out := os.Stderr
	if prefs.LogFilename != "" {
		f, err := logging.Open(prefs.LogFilename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fitbitd: failed to open log %s: %v\n", prefs.LogFilename, err)
			return 1
		}
		defer f.Close()
		out = f
	}
	logger := logging.New(out)

	lock, err := lockfile.Acquire(prefs.LockFilename)
	if err != nil {
		logger.Printf("failed to acquire lock file %s: %v", prefs.LockFilename, err)
		return 1
	}
	defer lock.Release()

	// --no-daemon is accepted but this implementation never forks; it is
	// always foreground, matching how a containerized/systemd deployment
	// runs it.
	_ = *noDaemon

	reg := registry.New()
	ctrl := ipc.NewControl(reg, func() int64 { return time.Now().Unix() })

	var ipcServer *ipc.Server
	if !*noDBus {
		ipcServer, err = ipc.Listen(socketPath, ctrl)
		if err != nil {
			logger.Printf("failed to start control surface: %v", err)
			return 1
		}
		defer ipcServer.Close()
	}

	pump := syncpump.New(syncpump.Config{
		ClientInfo: syncpump.ClientInfo{
			ClientVersion: prefs.ClientVersion,
			OS:            prefs.OSName,
			ClientID:      prefs.ClientID,
		},
		UploadURL: prefs.UploadURL,
		ScanDelay: prefs.ScanDelay,
		SyncDelay: prefs.SyncDelay,
	}, reg, syncpump.NewDumpWriter(prefs.DumpDirectory), logger)

	pump.OnStateChanged = ctrl.NotifyStateChanged
	ctrl.ExitFunc = pump.Stop

	discoverer := usb.NewDiscoverer()
	defer discoverer.Close()

	if err := pump.Run(context.Background(), discoverer.ScanBases); err != nil {
		logger.Printf("sync pump exited: %v", err)
		return 1
	}
	return 0
}

// callExit dials a running daemon's control socket and calls its Exit
// method, the --exit flag's entire job.
func callExit(socketPath string) error {
	client, err := rpc.Dial("unix", socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	var status int
	return client.Call("Control.Exit", struct{}{}, &status)
}
