// Package supervisor launches and owns every configured service's execution
// — native child processes or sandboxed Wasm modules — and guarantees they
// are reaped on runner shutdown. It wires each service's stdout/stderr into
// the log store and, in native mode, samples resident memory into the
// memory store.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kodflow/daemon/internal/config"
	"github.com/kodflow/daemon/internal/kernel"
	"github.com/kodflow/daemon/internal/logs"
	"github.com/kodflow/daemon/internal/memory"
	"github.com/kodflow/daemon/internal/process"
	"github.com/kodflow/daemon/internal/wasmrt"
)

// Mode selects how every service instance is executed.
type Mode int

const (
	// ModeNative launches each instance as a native child process.
	ModeNative Mode = iota
	// ModeWasm hosts each instance as an embedded Wasm module.
	ModeWasm
)

// nativeInstance pairs a running native process with its memory-probe
// cancellation, so Stop can halt sampling before tearing the process down.
type nativeInstance struct {
	proc      *process.Process
	stopProbe chan struct{}
	probeDone chan struct{}
}

// Supervisor owns every launched instance of every configured service.
type Supervisor struct {
	mode   Mode
	logs   *logs.Store
	memory *memory.Store
	wasm   *wasmrt.Runtime // nil in native mode

	mu          sync.Mutex
	natives     []*nativeInstance
	wasmHandles []*wasmrt.Handle
}

// New creates a Supervisor. In Wasm mode it boots an embedded wazero
// runtime immediately; the caller owns its lifetime via Stop.
func New(ctx context.Context, mode Mode, logStore *logs.Store, memStore *memory.Store) (*Supervisor, error) {
	s := &Supervisor{mode: mode, logs: logStore, memory: memStore}

	if mode == ModeWasm {
		rt, err := wasmrt.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("starting wasm runtime: %w", err)
		}
		s.wasm = rt
	}

	return s, nil
}

// Launch starts every instance (one per entry in svc.RunnerURLs) of one
// service, in whichever mode the supervisor was created with. On native
// startup failure the whole boot aborts, as spec'd; Wasm failures are
// logged per-instance and do not abort boot.
func (s *Supervisor) Launch(ctx context.Context, svc *config.Service) error {
	ring := s.logs.Register(svc.Name)
	s.memory.Register(svc.Name, int64(svc.MemoryLimitMB)<<20)

	switch s.mode {
	case ModeWasm:
		s.launchWasm(svc, ring)
		return nil
	default:
		return s.launchNative(ctx, svc, ring)
	}
}

func (s *Supervisor) launchNative(ctx context.Context, svc *config.Service, ring *logs.Ring) error {
	for i, url := range svc.RunnerURLs {
		stdout := logs.NewForwarder(svc.Name, "STDOUT", ring)
		stderr := logs.NewForwarder(svc.Name, "STDERR", ring)

		inst := process.Instance{
			ServiceName:   svc.Name,
			Dir:           svc.Dir,
			URL:           url,
			Index:         i,
			InstanceCount: len(svc.RunnerURLs),
			MemoryLimitMB: svc.MemoryLimitMB,
		}

		p := process.New(inst)
		p.SetOutput(stdout, stderr)

		if err := p.Start(ctx); err != nil {
			stdout.Flush()
			stderr.Flush()
			return fmt.Errorf("starting %s instance %d: %w", svc.Name, i, err)
		}

		ni := &nativeInstance{proc: p, stopProbe: make(chan struct{}), probeDone: make(chan struct{})}
		if svc.MemoryLimitMB > 0 {
			go s.probeMemory(svc.Name, p, ni.stopProbe, ni.probeDone)
		} else {
			close(ni.probeDone)
		}

		s.mu.Lock()
		s.natives = append(s.natives, ni)
		s.mu.Unlock()
	}
	return nil
}

func (s *Supervisor) launchWasm(svc *config.Service, ring *logs.Ring) {
	for i, url := range svc.RunnerURLs {
		stdout := logs.NewForwarder(svc.Name, "STDOUT", ring)
		stderr := logs.NewForwarder(svc.Name, "STDERR", ring)

		inst := wasmrt.Instance{
			ServiceName:   svc.Name,
			ServiceDir:    svc.Dir,
			URL:           url,
			Index:         i,
			InstanceCount: len(svc.RunnerURLs),
			MemoryLimitMB: svc.MemoryLimitMB,
		}

		h := s.wasm.Start(inst, stdout, stderr)

		s.mu.Lock()
		s.wasmHandles = append(s.wasmHandles, h)
		s.mu.Unlock()

		go func(name string, idx int, h *wasmrt.Handle) {
			if err := h.Wait(); err != nil {
				ring.Push(fmt.Sprintf("[svc:%s][ERROR] wasm instance %d: %v", name, idx, err))
			}
			stdout.Flush()
			stderr.Flush()
		}(svc.Name, i, h)
	}
}

// probeMemory refreshes svc's resident-set sample every SampleInterval
// until stop is closed or the process exits; it clears the usage sample on
// exit, per spec.
func (s *Supervisor) probeMemory(service string, p *process.Process, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(memory.SampleInterval * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			s.memory.Clear(service)
			return
		case <-p.Wait():
			s.memory.Clear(service)
			return
		case <-ticker.C:
			pid := p.PID()
			if pid == 0 {
				continue
			}
			rss, err := memory.ProbeRSS(pid)
			if err != nil {
				continue
			}
			s.memory.Update(service, rss, time.Now().Unix())
		}
	}
}

// Stop terminates every owned native process and waits for every Wasm
// instance's goroutine to finish, guaranteeing nothing outlives the
// runner. An already-exited native process is a no-op, per spec.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	natives := s.natives
	wasmHandles := s.wasmHandles
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, ni := range natives {
		wg.Add(1)
		go func(ni *nativeInstance) {
			defer wg.Done()
			close(ni.stopProbe)
			<-ni.probeDone
			ni.proc.Stop(5 * time.Second)
		}(ni)
	}
	wg.Wait()

	if s.wasm != nil {
		for _, h := range wasmHandles {
			h.Wait()
		}
		s.wasm.Close()
	}
}

// StartReaperIfPID1 starts the kernel's background zombie reaper whenever
// the runner is itself PID 1, reaping orphaned grandchildren regardless of
// execution mode. It also marks the runner as a child subreaper so orphans
// are reparented to it instead of to the host's real init. It returns a
// stop function safe to call unconditionally.
func StartReaperIfPID1() (stop func()) {
	if !kernel.Default.Reaper.IsPID1() {
		return func() {}
	}
	if err := kernel.Default.Signals.SetSubreaper(); err != nil && err != kernel.ErrNotSupported {
		log.Printf("[supervisor][WARN] setting child subreaper: %v", err)
	}
	kernel.Default.Reaper.Start()
	return func() {
		kernel.Default.Reaper.Stop()
		kernel.Default.Signals.ClearSubreaper()
	}
}
