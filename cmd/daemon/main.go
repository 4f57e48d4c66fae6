// Command daemon is the runner: it discovers the configured services
// directory, launches every service as a native process or a Wasm module,
// and serves the gateway that ties them together.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kodflow/daemon/internal/config"
	"github.com/kodflow/daemon/internal/gateway"
	"github.com/kodflow/daemon/internal/health"
	"github.com/kodflow/daemon/internal/kernel"
	"github.com/kodflow/daemon/internal/logging"
	"github.com/kodflow/daemon/internal/logs"
	"github.com/kodflow/daemon/internal/memory"
	"github.com/kodflow/daemon/internal/queue"
	"github.com/kodflow/daemon/internal/runnerconfig"
	"github.com/kodflow/daemon/internal/scheduler"
	"github.com/kodflow/daemon/internal/stats"
	"github.com/kodflow/daemon/internal/supervisor"
	"github.com/kodflow/daemon/internal/wasmrt"
)

const runnerConfigPath = "config/runner.yaml"

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
		os.Exit(1)
	}
}

// dispatch implements the CLI surface: no args runs the full runner,
// --runner is the explicit equivalent, and --module <name> (or a bare
// positional name) runs a single Wasm module to completion and exits. Any
// other combination of flags is an error.
func dispatch(args []string) error {
	switch {
	case len(args) == 0:
		return runRunner()
	case len(args) == 1 && args[0] == "--runner":
		return runRunner()
	case len(args) == 2 && args[0] == "--module":
		return runModule(args[1])
	case len(args) == 1 && len(args[0]) > 0 && args[0][0] != '-':
		return runModule(args[0])
	default:
		return fmt.Errorf("unrecognized arguments %v (expected no args, --runner, --module <name>, or a bare module name)", args)
	}
}

// runRunner boots the full control plane: config discovery, every shared
// store, the supervisor, health/scheduler monitors, and the gateway.
func runRunner() error {
	rcfg, err := runnerconfig.Load(runnerConfigPath)
	if err != nil {
		return fmt.Errorf("loading runner config: %w", err)
	}
	rcfg.ApplyEnv(os.Getenv("RUNNER_USE_WASM"))

	services, err := config.Load(rcfg.ServicesDir)
	if err != nil {
		return fmt.Errorf("loading services: %w", err)
	}
	log.Printf("[runner][INFO] loaded %d service(s) from %s", len(services), rcfg.ServicesDir)

	logStore := logs.NewStore()
	memStore := memory.NewStore()
	healthStore := health.NewStore()
	queues := queue.NewRegistry()
	schedules := scheduler.New()
	statsStore := stats.NewStore()

	accessWriter, err := newAccessWriter()
	if err != nil {
		return fmt.Errorf("opening access log: %w", err)
	}
	if accessWriter != nil {
		defer accessWriter.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mode := supervisor.ModeNative
	if rcfg.UseWasm {
		mode = supervisor.ModeWasm
	}

	sup, err := supervisor.New(ctx, mode, logStore, memStore)
	if err != nil {
		return fmt.Errorf("starting supervisor: %w", err)
	}

	var healthTargets []health.Target
	for _, svc := range services {
		healthStore.Register(svc.Name)
		healthTargets = append(healthTargets, health.Target{Service: svc.Name, BaseURL: svc.BaseURL})

		for _, l := range svc.QueueListeners {
			queues.Subscribe(l.Queue, queue.Subscriber{
				ServiceName: svc.Name,
				TargetURL:   svc.BaseURL + l.CallbackPath,
			})
		}

		if err := sup.Launch(ctx, svc); err != nil {
			sup.Stop()
			return fmt.Errorf("launching %s: %w", svc.Name, err)
		}

		for i, sch := range svc.Schedules {
			schedules.Register(svc.Name, i, sch.Endpoint, sch.IntervalSeconds, svc.BaseURL)
		}
	}

	stopReaper := supervisor.StartReaperIfPID1()
	defer stopReaper()

	monitor := health.NewMonitor(healthStore, healthTargets)
	monitorStop := make(chan struct{})
	go monitor.Run(monitorStop)

	_, handler, err := gateway.New(gateway.Deps{
		Services:  services,
		Health:    healthStore,
		Logs:      logStore,
		Memory:    memStore,
		Queues:    queues,
		Schedules: schedules,
		Stats:     statsStore,
		Access:    accessWriter,
	})
	if err != nil {
		close(monitorStop)
		sup.Stop()
		return fmt.Errorf("building gateway: %w", err)
	}

	addr := fmt.Sprintf(":%d", rcfg.GatewayPort)
	server := &http.Server{Addr: addr, Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[runner][INFO] gateway listening on %s", addr)
		serveErr <- server.ListenAndServe()
	}()

	sigCh := kernel.Default.Signals.Notify(syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	shutdown := false
	for !shutdown {
		select {
		case sig := <-sigCh:
			switch {
			case kernel.Default.Signals.IsReloadSignal(sig):
				log.Printf("[runner][INFO] received %s, reload is not supported, ignoring", sig)
			case kernel.Default.Signals.IsTermSignal(sig):
				log.Printf("[runner][INFO] received %s, shutting down", sig)
				shutdown = true
			}
		case err := <-serveErr:
			if err != nil && err != http.ErrServerClosed {
				log.Printf("[runner][ERROR] gateway stopped: %v", err)
			}
			shutdown = true
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	close(monitorStop)
	schedules.Stop()
	sup.Stop()
	return nil
}

// runModule locates the named service's directory under the configured
// services root and hosts its Wasm module to completion, for one-off
// invocation outside the full runner.
func runModule(name string) error {
	rcfg, err := runnerconfig.Load(runnerConfigPath)
	if err != nil {
		return fmt.Errorf("loading runner config: %w", err)
	}

	dir := filepath.Join(rcfg.ServicesDir, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}

	ctx := context.Background()
	rt, err := wasmrt.New(ctx)
	if err != nil {
		return fmt.Errorf("starting wasm runtime: %w", err)
	}
	defer rt.Close()

	baseURL := os.Getenv("RUNNER_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:14000"
	}

	inst := wasmrt.Instance{
		ServiceName:   name,
		ServiceDir:    dir,
		URL:           baseURL,
		Index:         0,
		InstanceCount: 1,
	}

	h := rt.Start(inst, os.Stdout, os.Stderr)
	return h.Wait()
}

func newAccessWriter() (*logging.Writer, error) {
	path := os.Getenv("RUNNER_ACCESS_LOG")
	if path == "" {
		return nil, nil
	}
	return logging.NewWriter(path, logging.DefaultRotation)
}
