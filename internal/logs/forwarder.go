package logs

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// leveledLine matches "[LEVEL] message" formatted output a service writes
// itself; anything else is attributed to the stream label (STDOUT/STDERR).
var leveledLine = regexp.MustCompile(`^\[([A-Za-z]+)\]\s?(.*)$`)

// Forwarder is an io.Writer that buffers bytes, splits them on '\n', and
// pushes one formatted line per flush into a service's Ring. It is used
// identically for native stdio pipes and Wasm virtual stdio.
type Forwarder struct {
	service     string
	streamLabel string
	ring        *Ring
	buf         []byte
}

// NewForwarder creates a forwarder for one stdio stream of one service.
// streamLabel is "STDOUT" or "STDERR" and is used when the line does not
// carry its own [LEVEL] prefix.
func NewForwarder(service, streamLabel string, ring *Ring) *Forwarder {
	return &Forwarder{service: service, streamLabel: streamLabel, ring: ring}
}

// Write implements io.Writer with line buffering; every complete line is
// formatted and pushed immediately.
func (f *Forwarder) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)

	for {
		idx := -1
		for i, b := range f.buf {
			if b == '\n' {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		f.emit(string(f.buf[:idx]))
		f.buf = f.buf[idx+1:]
	}

	return len(p), nil
}

// Flush pushes any residual buffered bytes as one final line. Call once on
// stream close.
func (f *Forwarder) Flush() {
	if len(f.buf) == 0 {
		return
	}
	f.emit(string(f.buf))
	f.buf = nil
}

func (f *Forwarder) emit(raw string) {
	line := strings.TrimRight(raw, "\r")
	if line == "" {
		return
	}

	level, message := f.streamLabel, line
	if m := leveledLine.FindStringSubmatch(line); m != nil {
		level, message = strings.ToUpper(m[1]), m[2]
	}

	f.ring.Push(fmt.Sprintf("[svc:%s][%s] %s", f.service, level, message))
}

var _ io.Writer = (*Forwarder)(nil)
