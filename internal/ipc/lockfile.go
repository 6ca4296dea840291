package ipc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Lockfile enforces single-instance server startup with a PID file:
// write our PID, and on a pre-existing file, check liveness with a
// signal-0 probe before refusing to start.
type Lockfile struct {
	path string
}

// NewLockfile builds a Lockfile at path (caller picks, default from config
// is /tmp/shortlinker.pid).
func NewLockfile(path string) *Lockfile {
	return &Lockfile{path: path}
}

// Acquire writes the current PID to the lockfile, failing if a live
// process already holds it. A stale lockfile (process no longer exists,
// or it's our own PID surviving a container restart) is cleaned up and
// reacquired automatically.
func (l *Lockfile) Acquire() error {
	if pid, ok := l.readPID(); ok {
		if pid == os.Getpid() {
			return nil // reacquiring our own lock, e.g. after a config reload path
		}
		if processAlive(pid) {
			return fmt.Errorf("shortlinker: another instance is running (pid %d)", pid)
		}
		// stale: process is gone, clean up and proceed.
	}
	return os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the lockfile if it still names our own PID.
func (l *Lockfile) Release() error {
	pid, ok := l.readPID()
	if !ok || pid != os.Getpid() {
		return nil
	}
	return os.Remove(l.path)
}

func (l *Lockfile) readPID() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive sends signal 0, which performs no action but reports
// whether the target PID exists and is signalable by us.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
