// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package blobkv writes and reads immutable files mapping integer or
// string keys to opaque byte values.
//
// A Writer appends values in the order they are added, and Close writes
// an index (the trailer) describing where each value lives.  A Reader maps
// the finished file into memory, indexes the trailer once at Open, and
// answers lookups with slices of the mapping (no copies).
//
// A file looks like:
//
//	┌───────────────────┐
//	│ values, appended  │
//	│ back-to-back with │
//	│ no delimiters     │
//	│                   │
//	├───────────────────┤
//	│ integer entries   │
//	├───────────────────┤
//	│ string entries    │
//	├───────────────────┤
//	│ trailer offset    │ 8 bytes
//	└───────────────────┘
//
// All integers are little-endian.  Offsets are absolute from the start of
// the file and ranges are half-open.  Integer entries are 28 bytes:
//
//	 0    4         12        20        28
//	+----+---------+---------+---------+
//	|  0 | start   | end     | key     |
//	+----+---------+---------+---------+
//
// String entries are 28 bytes followed by the UTF-8 key:
//
//	 0    4         12        20        28
//	+----+---------+---------+---------+------------------+
//	|  1 | start   | end     | key_len | key (key_len)... |
//	+----+---------+---------+---------+------------------+
//
// Integer and string keys are separate namespaces.  If a key is added more
// than once, the entry written later in the trailer wins; since every
// integer entry precedes every string entry, that is the last add within
// each namespace.
package blobkv
