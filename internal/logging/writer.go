// Package logging provides the runner's own rotating diagnostic log —
// distinct from the per-service LogRing in internal/logs, which captures
// supervised children's stdio. The runner uses it for the gateway's access
// log and queue delivery failures; its boot/shutdown lines go through the
// standard log package instead.
package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotationConfig controls when and how a Writer rolls its backing file.
type RotationConfig struct {
	MaxSizeBytes    int64  // 0 disables rotation
	MaxBackups      int    // number of rotated files kept, oldest dropped
	TimestampFormat string // empty disables the per-line timestamp prefix
}

// DefaultRotation matches the teacher's own log-rotation defaults.
var DefaultRotation = RotationConfig{
	MaxSizeBytes:    100 << 20, // 100MiB
	MaxBackups:      5,
	TimestampFormat: time.RFC3339,
}

// Writer is a size-rotated append-only log file writer.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	path   string
	cfg    RotationConfig
	size   int64
}

// NewWriter opens (or creates) path for append and prepares rotation
// according to cfg.
func NewWriter(path string, cfg RotationConfig) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("statting log file %s: %w", path, err)
	}

	if cfg.TimestampFormat != "" {
		cfg.TimestampFormat = ParseTimestampFormat(cfg.TimestampFormat)
	}

	return &Writer{
		file: f,
		buf:  bufio.NewWriter(f),
		path: path,
		cfg:  cfg,
		size: info.Size(),
	}, nil
}

// WriteLine appends one formatted, newline-terminated line, rotating first
// if it would exceed MaxSizeBytes.
func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg.TimestampFormat != "" {
		line = FormatTimestamp(time.Now(), w.cfg.TimestampFormat) + " " + line
	}
	line += "\n"

	if w.cfg.MaxSizeBytes > 0 && w.size+int64(len(line)) > w.cfg.MaxSizeBytes {
		if err := w.rotate(); err != nil {
			return fmt.Errorf("rotating %s: %w", w.path, err)
		}
	}

	n, err := w.buf.WriteString(line)
	if err != nil {
		return err
	}
	w.size += int64(n)
	return w.buf.Flush()
}

func (w *Writer) rotate() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return err
	}

	if w.cfg.MaxBackups > 0 {
		oldest := fmt.Sprintf("%s.%d", w.path, w.cfg.MaxBackups)
		os.Remove(oldest)
		for i := w.cfg.MaxBackups - 1; i >= 1; i-- {
			os.Rename(fmt.Sprintf("%s.%d", w.path, i), fmt.Sprintf("%s.%d", w.path, i+1))
		}
		os.Rename(w.path, w.path+".1")
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.size = 0
	return nil
}

// Close flushes and closes the backing file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Size reports the current backing file's size in bytes.
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}
