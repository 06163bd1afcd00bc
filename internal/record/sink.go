// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package record persists session readings as append-only text files.
package record

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/flight_recorder/internal/imu"
)

var (
	// ErrStorageFault covers every enumerate, create, write, sync and close
	// failure. It is fatal to the session, not to the process.
	ErrStorageFault = errors.New("storage fault")

	// ErrHandleClosed is returned when a handle is used after EndSession.
	ErrHandleClosed = errors.New("session handle already closed")
)

// Sink is the durable destination of a session's records.
// A Sink is owned by a single writer for the duration of a session.
type Sink interface {
	BeginSession() (*Handle, error)
	Append(h *Handle, r imu.Reading) error
	EndSession(h *Handle) error
}

// Handle is one open session file.
type Handle struct {
	Index int
	Name  string
	Path  string

	file      *os.File
	buf       []byte
	records   int
	sinceSync int
	closed    bool
}

// Records returns the number of records appended so far.
func (h *Handle) Records() int {
	return h.records
}

// SessionFile describes a session file found in the session directory.
type SessionFile struct {
	Index   int       `json:"index"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DirSink writes sessions into Dir as <Prefix><n><Suffix>.
type DirSink struct {
	Dir    string
	Prefix string
	Suffix string

	// SyncEvery fsyncs the file after this many records; 0 syncs only on close.
	SyncEvery int
}

// NewDirSink returns a sink rooted at dir.
func NewDirSink(dir, prefix, suffix string, syncEvery int) *DirSink {
	return &DirSink{Dir: dir, Prefix: prefix, Suffix: suffix, SyncEvery: syncEvery}
}

// BeginSession allocates the next session file and opens it for append.
// The index is one past both the entry count and the highest existing index,
// so files 1..m yield m+1 and a name is never reused.
func (s *DirSink) BeginSession() (*Handle, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create session dir %s: %w", ErrStorageFault, s.Dir, err)
		}
		entries = nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: enumerate %s: %w", ErrStorageFault, s.Dir, err)
	}

	next := len(entries)
	for _, e := range entries {
		if idx, ok := s.parseIndex(e.Name()); ok && idx > next {
			next = idx
		}
	}
	next++

	name := s.fileName(next)
	path := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStorageFault, path, err)
	}

	return &Handle{
		Index: next,
		Name:  name,
		Path:  path,
		file:  f,
		buf:   make([]byte, 0, 128),
	}, nil
}

// Append writes one record with a single write call.
func (s *DirSink) Append(h *Handle, r imu.Reading) error {
	if h.closed {
		return ErrHandleClosed
	}

	h.buf = AppendRecord(h.buf[:0], r)
	if _, err := h.file.Write(h.buf); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorageFault, h.Name, err)
	}
	h.records++

	if s.SyncEvery > 0 {
		h.sinceSync++
		if h.sinceSync >= s.SyncEvery {
			h.sinceSync = 0
			if err := h.file.Sync(); err != nil {
				return fmt.Errorf("%w: sync %s: %w", ErrStorageFault, h.Name, err)
			}
		}
	}
	return nil
}

// EndSession flushes and closes the file. A second call returns ErrHandleClosed.
func (s *DirSink) EndSession(h *Handle) error {
	if h.closed {
		return ErrHandleClosed
	}
	h.closed = true

	syncErr := h.file.Sync()
	closeErr := h.file.Close()
	if err := errors.Join(syncErr, closeErr); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrStorageFault, h.Name, err)
	}
	return nil
}

// List returns the session files in the directory ordered by index.
func (s *DirSink) List() ([]SessionFile, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate %s: %w", ErrStorageFault, s.Dir, err)
	}

	var files []SessionFile
	for _, e := range entries {
		idx, ok := s.parseIndex(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, SessionFile{
			Index:   idx,
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Index < files[j].Index })
	return files, nil
}

func (s *DirSink) fileName(index int) string {
	return s.Prefix + strconv.Itoa(index) + s.Suffix
}

func (s *DirSink) parseIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, s.Prefix) || !strings.HasSuffix(name, s.Suffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, s.Prefix), s.Suffix)
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 1 {
		return 0, false
	}
	return idx, true
}
