// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blobkv

import (
	"errors"

	"github.com/bpowers/blobkv/internal/trailer"
)

var (
	// ErrClosed is returned when adding to a Writer after Close.
	ErrClosed = errors.New("blobkv: writer is closed")

	// ErrCorrupt is matched (via errors.Is) by every format error Open returns.
	ErrCorrupt = trailer.ErrCorrupt
	// ErrUnknownTag means a trailer entry had a type tag other than int or string.
	ErrUnknownTag = trailer.ErrUnknownTag
	// ErrInvalidKey means a string key in the trailer was not valid UTF-8.
	ErrInvalidKey = trailer.ErrInvalidKey
)
