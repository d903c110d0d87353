// Package sink writes translated lines to their destination.
//
// A File sink writes into a temporary file next to the destination and
// renames it over the destination on Commit, so a failed translation
// never replaces a previous good output.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PartialSuffix is appended to the destination path while a file is
// being written. An aborted file keeps this name for inspection.
const PartialSuffix = ".partial"

// File is an append-only line sink backed by a file.
type File struct {
	path    string
	tmp     string
	f       *os.File
	w       *bufio.Writer
	lines   int
	closed  bool
	written bool
}

// Create opens a sink for path, creating parent directories.
func Create(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sink: creating directory for %s: %w", path, err)
	}
	tmp := path + PartialSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	return &File{path: path, tmp: tmp, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the destination path.
func (s *File) Path() string { return s.path }

// Lines returns the number of lines written so far.
func (s *File) Lines() int { return s.lines }

// WriteLines appends lines, each terminated by a newline.
func (s *File) WriteLines(lines []string) error {
	if s.closed {
		return errors.New("sink: write after close")
	}
	for _, l := range lines {
		if _, err := s.w.WriteString(l); err != nil {
			return fmt.Errorf("sink: writing %s: %w", s.tmp, err)
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("sink: writing %s: %w", s.tmp, err)
		}
	}
	s.lines += len(lines)
	s.written = s.written || len(lines) > 0
	return nil
}

// Commit flushes the file and moves it to the destination path.
func (s *File) Commit() error {
	if s.closed {
		return errors.New("sink: commit after close")
	}
	if err := s.close(); err != nil {
		return err
	}
	if err := os.Rename(s.tmp, s.path); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

// Abort flushes and closes the file without touching the destination.
// The partial output stays at Path()+PartialSuffix; an abort before any
// line was written removes it. Abort after Commit is a no-op.
func (s *File) Abort() error {
	if s.closed {
		return nil
	}
	err := s.close()
	if !s.written {
		err = errors.Join(err, os.Remove(s.tmp))
	}
	return err
}

func (s *File) close() error {
	s.closed = true
	return errors.Join(s.w.Flush(), s.f.Close())
}

// Memory collects lines in memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	lines []string
}

// WriteLines appends lines.
func (m *Memory) WriteLines(lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, lines...)
	return nil
}

// Lines returns a copy of everything written.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}
