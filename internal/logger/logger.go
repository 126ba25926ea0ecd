// Package logger configures the process-wide log output, optionally
// teeing every line to an append-only file.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Setup directs the standard logger to stderr, and additionally to
// filePath when it is non-empty. It returns a close function for the
// log file (a no-op when no file is configured).
func Setup(filePath string) (func() error, error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if filePath == "" {
		log.SetOutput(os.Stderr)
		return func() error { return nil }, nil
	}

	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}
