//go:build unix

// Package kernel_test provides black-box tests for the kernel package.
// It tests the kernel facade and default instance.
package kernel_test

import (
	"os"
	"syscall"
	"testing"

	"github.com/kodflow/daemon/internal/kernel"
)

// TestNew tests the New constructor.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestNew(t *testing.T) {
	// Define test cases for New.
	tests := []struct {
		name string
	}{
		{name: "returns non-nil kernel"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			k := kernel.New()
			// Check if the kernel is not nil.
			if k == nil {
				t.Error("New should return a non-nil instance")
			}
		})
	}
}

// TestKernel_Signals tests that Signals interface is initialized.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestKernel_Signals(t *testing.T) {
	// Define test cases for Signals.
	tests := []struct {
		name string
	}{
		{name: "signals interface initialized"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			k := kernel.New()
			// Check Signals interface.
			if k.Signals == nil {
				t.Error("Signals interface should not be nil")
			}
		})
	}
}

// TestKernel_Signals_Classification exercises the signal classification
// used by cmd/daemon's shutdown loop, rather than just checking the port
// is non-nil.
func TestKernel_Signals_Classification(t *testing.T) {
	k := kernel.New()

	if !k.Signals.IsTermSignal(syscall.SIGTERM) {
		t.Error("SIGTERM should be a term signal")
	}
	if !k.Signals.IsTermSignal(syscall.SIGINT) {
		t.Error("SIGINT should be a term signal")
	}
	if k.Signals.IsTermSignal(syscall.SIGHUP) {
		t.Error("SIGHUP should not be a term signal")
	}
	if !k.Signals.IsReloadSignal(syscall.SIGHUP) {
		t.Error("SIGHUP should be a reload signal")
	}

	ch := k.Signals.Notify(syscall.SIGUSR1)
	defer k.Signals.Stop(ch)
	if err := k.Signals.Forward(os.Getpid(), syscall.Signal(0)); err != nil {
		t.Errorf("forwarding null signal to self should not error: %v", err)
	}
}

// TestKernel_Signals_Subreaper exercises the child-subreaper controls wired
// into supervisor.StartReaperIfPID1. SetSubreaper requires Linux >= 3.4 or
// returns ErrNotSupported on platforms without it; either outcome is valid.
func TestKernel_Signals_Subreaper(t *testing.T) {
	k := kernel.New()

	err := k.Signals.SetSubreaper()
	if err != nil && err != kernel.ErrNotSupported {
		t.Errorf("SetSubreaper: unexpected error: %v", err)
	}
	if err == nil {
		defer k.Signals.ClearSubreaper()
	}
}

// TestKernel_Process tests that Process interface is initialized.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestKernel_Process(t *testing.T) {
	// Define test cases for Process.
	tests := []struct {
		name string
	}{
		{name: "process interface initialized"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			k := kernel.New()
			// Check Process interface.
			if k.Process == nil {
				t.Error("Process interface should not be nil")
			}
		})
	}
}

// TestKernel_Reaper tests that Reaper interface is initialized.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestKernel_Reaper(t *testing.T) {
	// Define test cases for Reaper.
	tests := []struct {
		name string
	}{
		{name: "reaper interface initialized"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			k := kernel.New()
			// Check Reaper interface.
			if k.Reaper == nil {
				t.Error("Reaper interface should not be nil")
			}
		})
	}
}

// TestDefault tests the Default kernel instance.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestDefault(t *testing.T) {
	// Define test cases for Default.
	tests := []struct {
		name string
	}{
		{name: "default kernel is not nil"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			// Check if the default kernel is not nil.
			if kernel.Default == nil {
				t.Error("Default kernel should not be nil")
			}
		})
	}
}
