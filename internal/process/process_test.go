package process

import (
	"net"
	"testing"
	"time"
)

func TestHostPort(t *testing.T) {
	hp, err := hostPort("http://127.0.0.1:9001/")
	if err != nil {
		t.Fatalf("hostPort returned error: %v", err)
	}
	if hp != "127.0.0.1:9001" {
		t.Fatalf("hostPort() = %q, want 127.0.0.1:9001", hp)
	}
}

func TestHostPortInvalid(t *testing.T) {
	if _, err := hostPort("://bad"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}

func TestPortOf(t *testing.T) {
	if got := portOf("127.0.0.1:9001"); got != "9001" {
		t.Fatalf("portOf() = %q, want 9001", got)
	}
}

func TestPortOfMalformed(t *testing.T) {
	if got := portOf("not-a-hostport"); got != "" {
		t.Fatalf("portOf() = %q, want empty string", got)
	}
}

func TestProbePortSucceedsAgainstListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	if !probePort(ln.Addr().String(), 1, 200*time.Millisecond) {
		t.Fatal("expected probePort to succeed against a live listener")
	}
}

func TestProbePortFailsWhenNothingListening(t *testing.T) {
	if probePort("127.0.0.1:1", 2, 50*time.Millisecond) {
		t.Fatal("expected probePort to fail against a closed port")
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateStopped:  "stopped",
		StateStarting: "starting",
		StateRunning:  "running",
		StateStopping: "stopping",
		StateFailed:   "failed",
		State(99):     "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
