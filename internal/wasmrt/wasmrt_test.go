package wasmrt

import (
	"context"
	"testing"
)

func TestWasmPath(t *testing.T) {
	got := WasmPath("services/foo", "foo")
	want := "services/foo/target/wasm32-wasi/release/foo.wasm"
	if got != want {
		t.Fatalf("WasmPath() = %q, want %q", got, want)
	}
}

func TestPortOf(t *testing.T) {
	port, err := portOf("http://127.0.0.1:9001")
	if err != nil {
		t.Fatalf("portOf returned error: %v", err)
	}
	if port != "9001" {
		t.Fatalf("portOf() = %q, want 9001", port)
	}
}

func TestPortOfInvalidURL(t *testing.T) {
	if _, err := portOf("://bad"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestEngineForUnlimitedReturnsBase(t *testing.T) {
	rt, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer rt.Close()

	e, err := rt.engineFor(0)
	if err != nil {
		t.Fatalf("engineFor(0) returned error: %v", err)
	}
	if e != rt.base {
		t.Fatal("engineFor(0) should return the shared base engine")
	}
}

func TestEngineForMemoryLimitIsMemoizedAndDistinctPerLimit(t *testing.T) {
	rt, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	defer rt.Close()

	e16a, err := rt.engineFor(16)
	if err != nil {
		t.Fatalf("engineFor(16) returned error: %v", err)
	}
	e16b, err := rt.engineFor(16)
	if err != nil {
		t.Fatalf("engineFor(16) second call returned error: %v", err)
	}
	if e16a != e16b {
		t.Fatal("engineFor(16) should return the same memoized engine on repeat calls")
	}
	if e16a == rt.base {
		t.Fatal("engineFor(16) should not reuse the unlimited base engine")
	}

	e32, err := rt.engineFor(32)
	if err != nil {
		t.Fatalf("engineFor(32) returned error: %v", err)
	}
	if e32 == e16a {
		t.Fatal("engineFor should build a distinct engine per distinct memory limit")
	}
}
