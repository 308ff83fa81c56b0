// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blobkv

import (
	"io"
	"log/slog"

	"github.com/bpowers/blobkv/internal/datafile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

type writerOptions struct {
	logger  *slog.Logger
	bufSize int
	sync    bool
}

func newWriterOptions(opts []WriterOption) writerOptions {
	options := writerOptions{
		logger:  discardLogger(),
		bufSize: datafile.DefaultBufferSize,
		sync:    true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithWriterLogger sets an optional logger for the writer.  If not
// provided, no logging output will be produced.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(opts *writerOptions) {
		opts.logger = logger
	}
}

// WithBufferSize sets the size of the write buffer in front of the file.
func WithBufferSize(n int) WriterOption {
	return func(opts *writerOptions) {
		opts.bufSize = n
	}
}

// WithSync controls whether Close fsyncs the file.  Defaults to true.
func WithSync(sync bool) WriterOption {
	return func(opts *writerOptions) {
		opts.sync = sync
	}
}

// ReaderOption configures a Reader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	logger       *slog.Logger
	randomAccess bool
}

func newReaderOptions(opts []ReaderOption) readerOptions {
	options := readerOptions{
		logger:       discardLogger(),
		randomAccess: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithReaderLogger sets an optional logger for the reader.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(opts *readerOptions) {
		opts.logger = logger
	}
}

// WithRandomAccess hints whether lookups will be random (the default) or
// mostly sequential.  It only affects kernel paging, never results.
func WithRandomAccess(random bool) ReaderOption {
	return func(opts *readerOptions) {
		opts.randomAccess = random
	}
}
