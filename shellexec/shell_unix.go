//go:build !windows

package shellexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setupProcessGroup puts the spawned shell in its own process group so
// killProcessGroup can terminate the whole subtree a script may have
// forked, not just the immediate child.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup signals the process group rooted at pid.
func killProcessGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}
