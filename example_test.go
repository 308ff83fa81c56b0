// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blobkv_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bpowers/blobkv"
)

func Example() {
	dir, err := os.MkdirTemp("", "blobkv-example")
	if err != nil {
		log.Fatalln(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "example.blobkv")

	w, err := blobkv.Create(path)
	if err != nil {
		log.Fatalln(err)
	}
	// neglecting errors for demo purposes
	_ = w.AddInt(101, []byte("foo"))
	_ = w.AddStr("bar", []byte("baz"))
	if err := w.Close(); err != nil {
		log.Fatalln(err)
	}

	r, err := blobkv.Open(path)
	if err != nil {
		log.Fatalln(err)
	}
	defer r.Close()

	v, ok := r.GetInt(101)
	fmt.Println(string(v), ok)
	v, ok = r.GetStr("bar")
	fmt.Println(string(v), ok)
	_, ok = r.GetStr("101")
	fmt.Println(ok)

	// Output:
	// foo true
	// baz true
	// false
}
