// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mmap provides a read-only memory mapping of a whole file that
// is released exactly once.
package mmap

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Advice is a hint to the kernel about how the mapping will be accessed.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceRandom
	AdviceSequential
)

func (a Advice) flag() int {
	switch a {
	case AdviceRandom:
		return unix.MADV_RANDOM
	case AdviceSequential:
		return unix.MADV_SEQUENTIAL
	default:
		return unix.MADV_NORMAL
	}
}

// Map is a read-only, shared mapping of a file's full contents.  Data may
// be read concurrently from any number of goroutines until Close.
type Map struct {
	data []byte
	once sync.Once
}

// Open maps the file at path.  An empty file yields a Map with no data,
// since a zero-length mapping cannot be created.
func Open(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// the mapping stays valid after the descriptor is closed
	defer func() {
		_ = f.Close()
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("f.Stat: %w", err)
	}

	size := fi.Size()
	if size == 0 {
		return &Map{}, nil
	}
	if size < 0 || size != int64(int(size)) {
		return nil, fmt.Errorf("mmap: file %q has unsupported size %d", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("unix.Mmap(%s): %w", path, err)
	}
	return &Map{data: data}, nil
}

// Advise passes an access-pattern hint for the whole mapping to the kernel.
func (m *Map) Advise(a Advice) error {
	if len(m.data) == 0 {
		return nil
	}
	if err := unix.Madvise(m.data, a.flag()); err != nil {
		return fmt.Errorf("madvise: %w", err)
	}
	return nil
}

// Data returns the mapped bytes.  The slice must not be written to, and
// must not be used after Close.
func (m *Map) Data() []byte {
	return m.data
}

// Len returns the length of the mapping in bytes.
func (m *Map) Len() int {
	return len(m.data)
}

// Close unmaps the region.  Calls after the first are no-ops.  munmap of
// a region this package created should never fail, so a failure panics.
func (m *Map) Close() {
	m.once.Do(func() {
		data := m.data
		m.data = nil
		if data == nil {
			return
		}
		if err := unix.Munmap(data); err != nil {
			panic(fmt.Errorf("invariant broken: unix.Munmap: %w", err))
		}
	})
}
