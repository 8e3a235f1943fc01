// Package compressutil wires github.com/klauspost/compress's zstd
// encoder into ievrtool's optional compressed diagnostic log.
package compressutil

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// LogWriter wraps a zstd encoder around an append-only diagnostic log
// file, flushing after every write so a killed process still leaves a
// readable (if truncated-frame) log.
type LogWriter struct {
	file *os.File
	enc  *zstd.Encoder
}

// OpenLogWriter creates (or truncates) path and returns a writer that
// zstd-compresses everything written to it at the given level.
func OpenLogWriter(path string, level zstd.EncoderLevel) (*LogWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("compressutil: create %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("compressutil: new zstd writer: %w", err)
	}
	return &LogWriter{file: f, enc: enc}, nil
}

// Write implements io.Writer, compressing p into the underlying file.
func (w *LogWriter) Write(p []byte) (int, error) {
	n, err := w.enc.Write(p)
	if err != nil {
		return n, err
	}
	if err := w.enc.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// Close flushes the final zstd frame and closes the underlying file.
func (w *LogWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

var _ io.WriteCloser = (*LogWriter)(nil)
