package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Trace is the optional human-readable event log. Paths ending in .zst are
// zstd-compressed. A nil *Trace discards everything.
type Trace struct {
	file *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
	err  error
	done bool
}

// OpenTrace creates (truncating) the trace file at path.
func OpenTrace(path string) (*Trace, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace: %w", err)
	}
	t := &Trace{file: f}
	var dst io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating trace encoder: %w", err)
		}
		t.enc = enc
		dst = enc
	}
	t.w = bufio.NewWriter(dst)
	return t, nil
}

// Logf writes one formatted line. The first write error is kept and
// returned by Close.
func (t *Trace) Logf(format string, args ...any) {
	if t == nil || t.done || t.err != nil {
		return
	}
	if _, err := fmt.Fprintf(t.w, format+"\n", args...); err != nil {
		t.err = err
	}
}

// Close flushes and closes the trace. Later calls do nothing.
func (t *Trace) Close() error {
	if t == nil || t.done {
		return nil
	}
	t.done = true
	err := t.err
	if ferr := t.w.Flush(); err == nil {
		err = ferr
	}
	if t.enc != nil {
		if cerr := t.enc.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	return err
}
