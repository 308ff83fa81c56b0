// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blobkv

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/bpowers/blobkv/internal/datafile"
)

// Writer builds a single blobkv file.  Values are appended to the file as
// they are added; the index is written by Close.
//
// A Writer must only be used from one goroutine at a time.
//
// A Writer that becomes unreachable without being closed is closed by the
// garbage collector.  If that implicit close fails the error is logged and
// the process panics, since there is no caller left to report it to.
// Always call Close.
type Writer struct {
	path   string
	f      *os.File
	dw     *datafile.Writer
	logger *slog.Logger
	sync   bool

	closed   bool
	closeErr error
}

// Create truncates or creates the file at path and returns a Writer for it.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	options := newWriterOptions(opts)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("os.Create: %w", err)
	}

	w := &Writer{
		path:   path,
		f:      f,
		dw:     datafile.NewWriter(f, options.bufSize),
		logger: options.logger,
		sync:   options.sync,
	}
	runtime.SetFinalizer(w, (*Writer).finalize)
	return w, nil
}

// AddInt appends value to the file under the integer key.  Adding the
// same key twice is allowed; readers see the later value.
func (w *Writer) AddInt(key int64, value []byte) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.dw.AppendInt(key, value); err != nil {
		return fmt.Errorf("AddInt(%d): %w", key, err)
	}
	return nil
}

// AddStr appends value to the file under the string key.  The key is
// stored byte-for-byte; the empty string is a valid key.  Keys that are
// not valid UTF-8 return ErrInvalidKey and nothing is written.
func (w *Writer) AddStr(key string, value []byte) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.dw.AppendStr(key, value); err != nil {
		return fmt.Errorf("AddStr(%q): %w", key, err)
	}
	return nil
}

// Offset returns the number of value bytes written so far.  Close does not
// change it.
func (w *Writer) Offset() int64 {
	return w.dw.Offset()
}

// Close writes the trailer and footer and closes the file.  Calling Close
// more than once returns the result of the first call.
func (w *Writer) Close() error {
	if w.closed {
		return w.closeErr
	}
	w.closed = true
	runtime.SetFinalizer(w, nil)

	w.closeErr = w.finish()
	return w.closeErr
}

func (w *Writer) finish() error {
	ints, strs := w.dw.Counts()
	trailerStart, err := w.dw.Finish()
	if err != nil {
		_ = w.f.Close()
		return fmt.Errorf("datafile.Finish: %w", err)
	}

	if w.sync {
		if err := w.f.Sync(); err != nil {
			_ = w.f.Close()
			return fmt.Errorf("f.Sync: %w", err)
		}
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("f.Close: %w", err)
	}

	w.logger.Debug("blobkv file written",
		"path", w.path,
		"int_entries", ints,
		"str_entries", strs,
		"trailer_start", trailerStart)
	return nil
}

func (w *Writer) finalize() {
	if w.closed {
		return
	}
	w.logger.Warn("blobkv Writer was not closed; closing implicitly", "path", w.path)
	if err := w.Close(); err != nil {
		w.logger.Error("implicit close of blobkv Writer failed", "path", w.path, "err", err)
		panic(fmt.Errorf("blobkv: implicit close of %s failed: %w", w.path, err))
	}
}
