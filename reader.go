// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blobkv

import (
	"errors"
	"fmt"
	"io"

	"github.com/bpowers/blobkv/internal/mmap"
	"github.com/bpowers/blobkv/internal/trailer"
)

// span is a half-open [start, end) range of the data region.
type span struct {
	start int64
	end   int64
}

// Reader resolves keys in a finished blobkv file to views of its
// memory-mapped contents.  Lookups are safe for concurrent use.
type Reader struct {
	m    *mmap.Map
	data []byte
	ints map[int64]span
	strs map[string]span

	dataLen int64
}

// Open maps the file at path and indexes its trailer.  Open either returns
// a fully indexed Reader or an error; format problems match ErrCorrupt.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	options := newReaderOptions(opts)

	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}

	advice := mmap.AdviceSequential
	if options.randomAccess {
		advice = mmap.AdviceRandom
	}
	if err := m.Advise(advice); err != nil {
		options.logger.Warn("ignoring failed access hint", "path", path, "err", err)
	}

	r := &Reader{
		m:    m,
		data: m.Data(),
		ints: make(map[int64]span),
		strs: make(map[string]span),
	}
	dups, err := r.buildIndex()
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	options.logger.Debug("blobkv file indexed",
		"path", path,
		"size", r.m.Len(),
		"data_len", r.dataLen,
		"int_keys", len(r.ints),
		"str_keys", len(r.strs),
		"overwritten", dups)
	return r, nil
}

// buildIndex walks every trailer entry.  When a key appears more than once
// the entry later in the trailer wins.
func (r *Reader) buildIndex() (dups int, err error) {
	d, err := trailer.NewDecoder(r.data)
	if err != nil {
		return 0, err
	}
	r.dataLen = d.TrailerStart()
	for {
		e, err := d.Next()
		if errors.Is(err, io.EOF) {
			return dups, nil
		} else if err != nil {
			return 0, err
		}

		s := span{start: e.Start, end: e.End}
		switch e.Kind {
		case trailer.KindInt:
			if _, ok := r.ints[e.IntKey]; ok {
				dups++
			}
			r.ints[e.IntKey] = s
		case trailer.KindStr:
			if _, ok := r.strs[e.StrKey]; ok {
				dups++
			}
			r.strs[e.StrKey] = s
		}
	}
}

func (r *Reader) view(s span) []byte {
	return r.data[s.start:s.end:s.end]
}

// GetInt returns the value stored under the integer key.  The returned
// slice points into the mapped file: it must not be modified, and must
// not be used after Close.
func (r *Reader) GetInt(key int64) ([]byte, bool) {
	s, ok := r.ints[key]
	if !ok {
		return nil, false
	}
	return r.view(s), true
}

// GetStr returns the value stored under the string key, with the same
// aliasing rules as GetInt.
func (r *Reader) GetStr(key string) ([]byte, bool) {
	s, ok := r.strs[key]
	if !ok {
		return nil, false
	}
	return r.view(s), true
}

// Len returns the number of distinct integer and string keys.
func (r *Reader) Len() (ints, strs int) {
	return len(r.ints), len(r.strs)
}

// Size returns the length of the underlying file in bytes, or 0 after Close.
func (r *Reader) Size() int64 {
	return int64(r.m.Len())
}

// DataLen returns the length of the data region, which is where the
// trailer begins.
func (r *Reader) DataLen() int64 {
	return r.dataLen
}

// Close unmaps the file.  Every slice returned by GetInt or GetStr becomes
// invalid.  Close must not race with lookups; calling it again is a no-op.
func (r *Reader) Close() error {
	r.m.Close()
	r.data = nil
	r.ints = nil
	r.strs = nil
	return nil
}
