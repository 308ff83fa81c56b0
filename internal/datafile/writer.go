// Copyright 2023 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datafile appends values to a blobkv data region and, once
// finished, writes the trailer and footer that index them.
package datafile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bpowers/blobkv/internal/trailer"
)

const (
	DefaultBufferSize = 4 * 1024 * 1024
)

var (
	ErrFinished = errors.New("datafile: writer already finished")
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// Writer appends values back-to-back and remembers the byte range of
// each one.  It is not safe for concurrent use.
type Writer struct {
	w        *bufio.Writer
	off      int64
	ints     []trailer.Entry
	strs     []trailer.Entry
	finished atomic.Bool
}

// NewWriter returns a Writer buffering up to bufSize bytes in front of f.
// A bufSize <= 0 selects DefaultBufferSize.
func NewWriter(f io.Writer, bufSize int) *Writer {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Writer{
		w: bufio.NewWriterSize(f, bufSize),
	}
}

// Offset is the running length of the data region.  Trailer and footer
// bytes written by Finish are not counted.
func (w *Writer) Offset() int64 {
	return w.off
}

// Counts returns how many integer and string entries have been recorded.
func (w *Writer) Counts() (ints, strs int) {
	return len(w.ints), len(w.strs)
}

func (w *Writer) appendValue(value []byte) (start, end int64, err error) {
	if w.finished.Load() {
		return 0, 0, ErrFinished
	}
	start = w.off
	if start < 0 {
		panic(fmt.Errorf("invariant broken: negative data offset %d", start))
	}
	if _, err := w.w.Write(value); err != nil {
		return 0, 0, fmt.Errorf("bufio.Write: %w", err)
	}
	w.off += int64(len(value))
	return start, w.off, nil
}

// AppendInt writes value and records it under the integer key.
func (w *Writer) AppendInt(key int64, value []byte) error {
	start, end, err := w.appendValue(value)
	if err != nil {
		return err
	}
	w.ints = append(w.ints, trailer.Entry{Kind: trailer.KindInt, Start: start, End: end, IntKey: key})
	return nil
}

// AppendStr writes value and records it under the string key, which is
// stored verbatim.  Keys that are not valid UTF-8 are rejected before
// anything is written.
func (w *Writer) AppendStr(key string, value []byte) error {
	if !utf8.ValidString(key) {
		return trailer.ErrInvalidKey
	}
	start, end, err := w.appendValue(value)
	if err != nil {
		return err
	}
	w.strs = append(w.strs, trailer.Entry{Kind: trailer.KindStr, Start: start, End: end, StrKey: key})
	return nil
}

// Finish writes every integer entry, then every string entry, each group
// in insertion order, followed by the footer, and flushes.  It returns
// the offset at which the trailer begins.  Only the first call does any
// work; later calls return ErrFinished.
func (w *Writer) Finish() (trailerStart int64, err error) {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		return 0, ErrFinished
	}

	defer func() {
		w.w.Reset(nopWriter{})
		w.ints = nil
		w.strs = nil
	}()

	trailerStart = w.off
	maxLen := trailer.FooterSize
	for _, group := range [][]trailer.Entry{w.ints, w.strs} {
		for i := range group {
			if n := group[i].EncodedLen(); n > maxLen {
				maxLen = n
			}
		}
	}
	buf := make([]byte, 0, maxLen)
	for _, group := range [][]trailer.Entry{w.ints, w.strs} {
		for i := range group {
			buf = group[i].AppendTo(buf[:0])
			if err := w.write(buf); err != nil {
				return 0, err
			}
		}
	}
	if err := w.write(trailer.AppendFooter(buf[:0], trailerStart)); err != nil {
		return 0, err
	}

	if err := w.w.Flush(); err != nil {
		return 0, fmt.Errorf("bufio.Flush: %w", err)
	}
	return trailerStart, nil
}

func (w *Writer) write(p []byte) error {
	if _, err := w.w.Write(p); err != nil {
		return fmt.Errorf("bufio.Write: %w", err)
	}
	return nil
}
