// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-testdata prints a fixture for the table tests: one entry
// per line, either `i:<int64 key>:<value>` or `s:<string key>:<value>`.
//
//	go run ./cmd/gen-testdata -n 1000000 > testdata.large
package main

import (
	"bufio"
	crand "crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/dgryski/go-farm"
)

const (
	prefix    = "pref_"
	suffixLen = 16
)

var nPairs = flag.Int("n", 1000000, "number of entries to generate")

func newRand() *rand.Rand {
	var seedBytes [8]byte
	if _, err := crand.Read(seedBytes[:]); err != nil {
		panic(err)
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func main() {
	flag.Parse()

	rng := newRand()
	out := bufio.NewWriter(os.Stdout)
	defer func() {
		if err := out.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "flush: %s\n", err)
			os.Exit(1)
		}
	}()

	for i := 0; i < *nPairs; i++ {
		var buf [suffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			panic(err)
		}
		value := fmt.Sprintf("%s%x", prefix, buf)
		// derive keys from the value so a given value always lands on the same key
		fp := farm.Fingerprint64([]byte(value))
		if i%2 == 0 {
			fmt.Fprintf(out, "i:%d:%s\n", int64(fp), value)
		} else {
			fmt.Fprintf(out, "s:%016x%08x:%s\n", fp, farm.Fingerprint32([]byte(value)), value)
		}
	}
}
