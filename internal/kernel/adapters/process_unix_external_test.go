//go:build unix

// Package adapters_test provides black-box tests for the adapters package.
// It tests process control functionality for Unix systems.
package adapters_test

import (
	"os"
	"os/exec"
	"testing"

	"github.com/kodflow/daemon/internal/kernel/adapters"
)

// TestNewUnixProcessControl tests the NewUnixProcessControl constructor.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestNewUnixProcessControl(t *testing.T) {
	// Define test cases for NewUnixProcessControl.
	tests := []struct {
		name string
	}{
		{name: "returns non-nil process control"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			pc := adapters.NewUnixProcessControl()
			// Check if the process control is not nil.
			if pc == nil {
				t.Error("NewUnixProcessControl should return a non-nil instance")
			}
		})
	}
}

// TestUnixProcessControl_SetProcessGroup tests the SetProcessGroup method.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestUnixProcessControl_SetProcessGroup(t *testing.T) {
	// Define test cases for SetProcessGroup.
	tests := []struct {
		name string
	}{
		{name: "sets Setpgid on command"},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			pc := adapters.NewUnixProcessControl()
			cmd := exec.Command("echo", "test")
			pc.SetProcessGroup(cmd)
			// Check if SysProcAttr was set.
			if cmd.SysProcAttr == nil {
				t.Error("SysProcAttr should not be nil after SetProcessGroup")
			}
			// Check if Setpgid was enabled.
			if !cmd.SysProcAttr.Setpgid {
				t.Error("Setpgid should be true after SetProcessGroup")
			}
		})
	}
}

// TestUnixProcessControl_GetProcessGroup tests the GetProcessGroup method.
//
// Params:
//   - t: the testing context
//
// Returns:
//   - (none, test function)
func TestUnixProcessControl_GetProcessGroup(t *testing.T) {
	// Define test cases for GetProcessGroup.
	tests := []struct {
		name        string
		pid         int
		expectError bool
	}{
		{name: "get process group for invalid pid", pid: -1, expectError: true},
		{name: "get process group for current process", pid: os.Getpid(), expectError: false},
	}

	// Iterate over test cases.
	for _, tt := range tests {
		// Run each test case as a subtest.
		t.Run(tt.name, func(t *testing.T) {
			pc := adapters.NewUnixProcessControl()
			pgid, err := pc.GetProcessGroup(tt.pid)
			// Check if error expectation is met.
			if tt.expectError && err == nil {
				t.Error("expected error for invalid pid")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			// Check if pgid is valid for successful calls.
			if !tt.expectError && pgid <= 0 {
				t.Errorf("expected positive pgid, got %d", pgid)
			}
		})
	}
}
