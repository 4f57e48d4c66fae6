package ports

import (
	"os"
	"os/exec"
	"syscall"
)

// ProcessControl groups process-group operations used by the native
// process supervisor.
type ProcessControl interface {
	SetProcessGroup(cmd *exec.Cmd)
	GetProcessGroup(pid int) (int, error)
	SetMemoryLimit(pid int, bytes uint64) error
}

// SignalManager groups signal notification and forwarding operations.
type SignalManager interface {
	Notify(signals ...os.Signal) <-chan os.Signal
	Stop(ch chan<- os.Signal)
	Forward(pid int, sig os.Signal) error
	ForwardToGroup(pgid int, sig syscall.Signal) error
	IsTermSignal(sig os.Signal) bool
	IsReloadSignal(sig os.Signal) bool
	SignalByName(name string) (os.Signal, bool)
	AddSignal(name string, sig os.Signal)
	SetSubreaper() error
	ClearSubreaper() error
	IsSubreaper() (bool, error)
}

// ZombieReaper groups the background SIGCHLD reaping loop used when the
// runner is PID 1.
type ZombieReaper interface {
	Start()
	Stop()
	ReapOnce() int
	IsPID1() bool
}
