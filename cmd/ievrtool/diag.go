package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/ievr/ievrtool/internal/compressutil"
)

// openDiagLog opens the --log-file destination, if set, and returns a
// logger that writes to it (zstd-compressed) in addition to stderr.
// The caller must close the returned closer, which is a no-op when no
// log file was requested.
func openDiagLog() (*log.Logger, io.Closer, error) {
	if logFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags), io.NopCloser(nil), nil
	}

	w, err := compressutil.OpenLogWriter(logFile, zstd.SpeedDefault)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(io.MultiWriter(os.Stderr, w), "", log.LstdFlags), w, nil
}
