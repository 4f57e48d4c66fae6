//go:build unix

package adapters

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/kodflow/daemon/internal/kernel/ports"
)

// UnixProcessControl implements ProcessControl for Unix systems.
type UnixProcessControl struct{}

// NewUnixProcessControl creates a new ProcessControl.
func NewUnixProcessControl() *UnixProcessControl {
	return &UnixProcessControl{}
}

// SetProcessGroup configures a command to run in its own process group.
func (m *UnixProcessControl) SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// GetProcessGroup returns the process group ID for a process.
func (m *UnixProcessControl) GetProcessGroup(pid int) (int, error) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return 0, ports.WrapError("getpgid", err)
	}
	return pgid, nil
}

// SetMemoryLimit installs an address-space rlimit, in bytes, on the process
// identified by pid. It must be called immediately after cmd.Start(),
// before the child has done meaningful work, since Go's os/exec offers no
// pre-exec rlimit hook comparable to POSIX_SPAWN_SETRLIMIT.
func (m *UnixProcessControl) SetMemoryLimit(pid int, bytes uint64) error {
	limit := unix.Rlimit{Cur: bytes, Max: bytes}
	if err := unix.Prlimit(pid, unix.RLIMIT_AS, &limit, nil); err != nil {
		return ports.WrapError("prlimit", err)
	}
	return nil
}
