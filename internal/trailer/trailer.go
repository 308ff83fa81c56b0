// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package trailer encodes and decodes the index that follows the data
// region of a blobkv file, along with the fixed 8-byte footer that
// points at it.
package trailer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Kind is the 4-byte type tag that starts every trailer entry.
type Kind int32

const (
	KindInt Kind = 0
	KindStr Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

const (
	tagSize    = 4
	fieldSize  = 8
	headerSize = tagSize + 3*fieldSize // tag + start + end + (key | key_len)

	// IntEntrySize is the encoded size of every integer-keyed entry.
	IntEntrySize = headerSize
	// FooterSize is the size of the trailing trailer-offset field.
	FooterSize = fieldSize
)

var (
	// ErrCorrupt is the umbrella error for any malformed file.
	ErrCorrupt = errors.New("blobkv: corrupt file")
	// ErrUnknownTag is returned for an entry tag outside {int, str}.
	ErrUnknownTag = fmt.Errorf("%w: unknown trailer entry tag", ErrCorrupt)
	// ErrInvalidKey is returned when string key bytes are not valid UTF-8.
	ErrInvalidKey = fmt.Errorf("%w: string key is not valid UTF-8", ErrCorrupt)
)

// Entry describes one key and the half-open byte range [Start, End) of
// its value.  IntKey is meaningful for KindInt, StrKey for KindStr.
type Entry struct {
	Kind   Kind
	Start  int64
	End    int64
	IntKey int64
	StrKey string
}

// EncodedLen returns the number of bytes AppendTo will produce.
func (e *Entry) EncodedLen() int {
	if e.Kind == KindStr {
		return headerSize + len(e.StrKey)
	}
	return IntEntrySize
}

// AppendTo appends the little-endian encoding of e to dst.
func (e *Entry) AppendTo(dst []byte) []byte {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(e.Kind))
	binary.LittleEndian.PutUint64(hdr[4:12], uint64(e.Start))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(e.End))
	switch e.Kind {
	case KindInt:
		binary.LittleEndian.PutUint64(hdr[20:28], uint64(e.IntKey))
		return append(dst, hdr[:]...)
	case KindStr:
		binary.LittleEndian.PutUint64(hdr[20:28], uint64(len(e.StrKey)))
		dst = append(dst, hdr[:]...)
		return append(dst, e.StrKey...)
	default:
		panic(fmt.Sprintf("invariant broken: encoding entry with %s", e.Kind))
	}
}

// UnmarshalBytes decodes a single entry from the front of b, returning
// the number of bytes consumed.  String keys are copied out of b.
func (e *Entry) UnmarshalBytes(b []byte) (n int, err error) {
	if len(b) < headerSize {
		return 0, fmt.Errorf("%w: truncated entry header (%d < %d bytes)", ErrCorrupt, len(b), headerSize)
	}
	kind := Kind(int32(binary.LittleEndian.Uint32(b[0:4])))
	start := int64(binary.LittleEndian.Uint64(b[4:12]))
	end := int64(binary.LittleEndian.Uint64(b[12:20]))
	last := int64(binary.LittleEndian.Uint64(b[20:28]))

	switch kind {
	case KindInt:
		*e = Entry{Kind: kind, Start: start, End: end, IntKey: last}
		return IntEntrySize, nil
	case KindStr:
		rest := b[headerSize:]
		if last < 0 || last > int64(len(rest)) {
			return 0, fmt.Errorf("%w: key_len %d exceeds remaining %d bytes", ErrCorrupt, last, len(rest))
		}
		key := rest[:last]
		if !utf8.Valid(key) {
			return 0, fmt.Errorf("%w (%q)", ErrInvalidKey, key)
		}
		*e = Entry{Kind: kind, Start: start, End: end, StrKey: string(key)}
		return headerSize + int(last), nil
	default:
		return 0, fmt.Errorf("%w %d", ErrUnknownTag, int32(kind))
	}
}

// AppendFooter appends the encoded trailer offset to dst.
func AppendFooter(dst []byte, trailerStart int64) []byte {
	var buf [FooterSize]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(trailerStart))
	return append(dst, buf[:]...)
}

// ReadFooter returns the trailer offset stored in the last 8 bytes of
// file, validating that it lies within [0, len(file)-8].
func ReadFooter(file []byte) (trailerStart int64, err error) {
	if len(file) < FooterSize {
		return 0, fmt.Errorf("%w: file too short for footer: %d < %d", ErrCorrupt, len(file), FooterSize)
	}
	footerOff := int64(len(file) - FooterSize)
	trailerStart = int64(binary.LittleEndian.Uint64(file[footerOff:]))
	if trailerStart < 0 || trailerStart > footerOff {
		return 0, fmt.Errorf("%w: trailer offset %d outside [0, %d]", ErrCorrupt, trailerStart, footerOff)
	}
	return trailerStart, nil
}

// Decoder walks the trailer region of a complete file.  It is not safe
// for concurrent use.
type Decoder struct {
	file         []byte
	trailerStart int64
	off          int64
	end          int64
}

// NewDecoder reads the footer of file and positions the decoder at the
// first trailer entry.
func NewDecoder(file []byte) (*Decoder, error) {
	trailerStart, err := ReadFooter(file)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		file:         file,
		trailerStart: trailerStart,
		off:          trailerStart,
		end:          int64(len(file) - FooterSize),
	}, nil
}

// TrailerStart is the absolute offset of the first trailer entry, which
// is also the length of the data region.
func (d *Decoder) TrailerStart() int64 {
	return d.trailerStart
}

// Next decodes the next entry.  It returns io.EOF once the cursor lands
// exactly on the footer.  Entries whose byte range falls outside the data
// region are rejected.
func (d *Decoder) Next() (Entry, error) {
	if d.off == d.end {
		return Entry{}, io.EOF
	}
	var e Entry
	n, err := e.UnmarshalBytes(d.file[d.off:d.end])
	if err != nil {
		return Entry{}, fmt.Errorf("entry at offset %d: %w", d.off, err)
	}
	if e.Start < 0 || e.End < e.Start || e.End > d.trailerStart {
		return Entry{}, fmt.Errorf("%w: entry at offset %d has range [%d, %d) outside data region [0, %d)",
			ErrCorrupt, d.off, e.Start, e.End, d.trailerStart)
	}
	d.off += int64(n)
	return e, nil
}
