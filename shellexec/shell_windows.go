//go:build windows

package shellexec

import "os/exec"

// setupProcessGroup is a no-op on Windows: process groups work differently
// there and cancellation falls back to killing the direct child.
func setupProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup on Windows has no process-group concept to target;
// ctx cancellation already tears down the direct child via
// exec.CommandContext.
func killProcessGroup(pid int) error { return nil }
