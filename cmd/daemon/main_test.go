package main

import "testing"

func TestDispatchRejectsUnknownFlags(t *testing.T) {
	if err := dispatch([]string{"--bogus"}); err == nil {
		t.Fatal("expected an error for an unrecognized flag")
	}
}

func TestDispatchRejectsModuleWithoutName(t *testing.T) {
	if err := dispatch([]string{"--module"}); err == nil {
		t.Fatal("expected an error for --module with no name")
	}
}

func TestDispatchModuleRequiresExistingServiceDir(t *testing.T) {
	err := dispatch([]string{"--module", "does-not-exist"})
	if err == nil {
		t.Fatal("expected an error for a nonexistent module directory")
	}
}

func TestDispatchBarePositionalRequiresExistingServiceDir(t *testing.T) {
	err := dispatch([]string{"does-not-exist"})
	if err == nil {
		t.Fatal("expected an error for a nonexistent module directory")
	}
}
