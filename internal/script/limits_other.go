//go:build !linux

package script

import "os"

func applyLimits(pid int, l Limits) error { return nil }

func limitSignal(state *os.ProcessState, l Limits) (string, bool) { return "", false }
