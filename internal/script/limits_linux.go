//go:build linux

package script

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// applyLimits sets address-space and CPU-time ceilings on a started process.
func applyLimits(pid int, l Limits) error {
	if l.MaxMemoryBytes > 0 {
		rl := &unix.Rlimit{Cur: l.MaxMemoryBytes, Max: l.MaxMemoryBytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, rl, nil); err != nil {
			return fmt.Errorf("setting memory limit: %w", err)
		}
	}
	if l.MaxCPUSeconds > 0 {
		// The soft limit delivers SIGXCPU, the hard limit one second later SIGKILL.
		rl := &unix.Rlimit{Cur: l.MaxCPUSeconds, Max: l.MaxCPUSeconds + 1}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, rl, nil); err != nil {
			return fmt.Errorf("setting cpu limit: %w", err)
		}
	}
	return nil
}

// limitSignal reports whether the process was terminated for exceeding the
// CPU ceiling.
func limitSignal(state *os.ProcessState, l Limits) (string, bool) {
	if state == nil || l.MaxCPUSeconds == 0 {
		return "", false
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return "", false
	}
	if ws.Signal() == syscall.SIGXCPU {
		return "cpu", true
	}
	if ws.Signal() == syscall.SIGKILL && state.SystemTime()+state.UserTime() >= time.Duration(l.MaxCPUSeconds)*time.Second {
		return "cpu", true
	}
	return "", false
}
