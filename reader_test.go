// Copyright 2021 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package blobkv

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpowers/blobkv/internal/trailer"
)

func writeFile(t *testing.T, build func(w *Writer)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.blobkv")
	w, err := Create(path)
	require.NoError(t, err)
	build(w)
	require.NoError(t, w.Close())
	return path
}

func openFile(t *testing.T, path string, opts ...ReaderOption) *Reader {
	t.Helper()
	r, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
	})
	return r
}

func TestReader_Scenario(t *testing.T) {
	path := writeFile(t, func(w *Writer) {
		require.NoError(t, w.AddStr("Foo bar", []byte{1, 7}))
		require.NoError(t, w.AddInt(43, []byte{72, 101, 108, 108, 111}))
		require.NoError(t, w.AddInt(21, []byte{72, 101, 32, 111}))
		require.NoError(t, w.AddStr("Hello world", []byte{14, 21}))
		require.NoError(t, w.AddInt(65, []byte{1, 37, 121}))
	})
	r := openFile(t, path)

	v, ok := r.GetInt(42)
	assert.False(t, ok)
	assert.Nil(t, v)

	v, ok = r.GetInt(43)
	require.True(t, ok)
	assert.Equal(t, []byte{72, 101, 108, 108, 111}, v)

	v, ok = r.GetInt(21)
	require.True(t, ok)
	assert.Equal(t, []byte{72, 101, 32, 111}, v)

	v, ok = r.GetInt(65)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 37, 121}, v)

	v, ok = r.GetStr("Hello world")
	require.True(t, ok)
	assert.Equal(t, []byte{14, 21}, v)

	v, ok = r.GetStr("Foo bar")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 7}, v)

	ints, strs := r.Len()
	assert.Equal(t, 3, ints)
	assert.Equal(t, 2, strs)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), r.Size())
	assert.Equal(t, int64(16), r.DataLen())
}

func TestReader_RoundTrip(t *testing.T) {
	const n = 2000
	value := func(i int) []byte {
		v := make([]byte, i%97)
		for j := range v {
			v[j] = byte(i + j)
		}
		return v
	}

	path := writeFile(t, func(w *Writer) {
		for i := 0; i < n; i++ {
			require.NoError(t, w.AddInt(int64(i)*-3, value(i)))
			require.NoError(t, w.AddStr("key-"+strconv.Itoa(i), value(n-i)))
		}
	})
	r := openFile(t, path, WithRandomAccess(false))

	for i := 0; i < n; i++ {
		v, ok := r.GetInt(int64(i) * -3)
		require.True(t, ok)
		require.Equal(t, value(i), v)

		v, ok = r.GetStr("key-" + strconv.Itoa(i))
		require.True(t, ok)
		require.Equal(t, value(n-i), v)
	}
}

func TestReader_NamespaceIsolation(t *testing.T) {
	path := writeFile(t, func(w *Writer) {
		require.NoError(t, w.AddInt(42, []byte("int")))
		require.NoError(t, w.AddStr("42", []byte("str")))
		require.NoError(t, w.AddStr("7", []byte("only str")))
	})
	r := openFile(t, path)

	v, ok := r.GetInt(42)
	require.True(t, ok)
	assert.Equal(t, "int", string(v))

	v, ok = r.GetStr("42")
	require.True(t, ok)
	assert.Equal(t, "str", string(v))

	_, ok = r.GetInt(7)
	assert.False(t, ok)
}

func TestReader_LastWriteWins(t *testing.T) {
	var logs syncBuffer
	path := writeFile(t, func(w *Writer) {
		require.NoError(t, w.AddInt(1, []byte("first")))
		require.NoError(t, w.AddStr("k", []byte("first")))
		require.NoError(t, w.AddInt(1, []byte("second")))
		require.NoError(t, w.AddStr("k", []byte("second")))
	})
	r := openFile(t, path, WithReaderLogger(newTestLogger(&logs)))

	v, ok := r.GetInt(1)
	require.True(t, ok)
	assert.Equal(t, "second", string(v))

	v, ok = r.GetStr("k")
	require.True(t, ok)
	assert.Equal(t, "second", string(v))

	ints, strs := r.Len()
	assert.Equal(t, 1, ints)
	assert.Equal(t, 1, strs)
	assert.Contains(t, logs.String(), "overwritten=2")
}

func TestReader_EmptyValue(t *testing.T) {
	path := writeFile(t, func(w *Writer) {
		require.NoError(t, w.AddInt(1, nil))
		require.NoError(t, w.AddStr("", []byte{}))
		require.NoError(t, w.AddInt(2, []byte("x")))
	})
	r := openFile(t, path)

	v, ok := r.GetInt(1)
	require.True(t, ok)
	assert.NotNil(t, v)
	assert.Len(t, v, 0)

	v, ok = r.GetStr("")
	require.True(t, ok)
	assert.NotNil(t, v)
	assert.Len(t, v, 0)
}

func TestReader_ViewsAreCapped(t *testing.T) {
	path := writeFile(t, func(w *Writer) {
		require.NoError(t, w.AddInt(1, []byte("ab")))
		require.NoError(t, w.AddInt(2, []byte("cd")))
	})
	r := openFile(t, path)

	v, ok := r.GetInt(1)
	require.True(t, ok)
	assert.Equal(t, 2, cap(v))

	// appending must copy rather than write into the mapping
	grown := append(v, 'x')
	assert.Equal(t, "abx", string(grown))
	v2, _ := r.GetInt(2)
	assert.Equal(t, "cd", string(v2))
}

func TestReader_Concurrent(t *testing.T) {
	const n = 500
	path := writeFile(t, func(w *Writer) {
		for i := 0; i < n; i++ {
			require.NoError(t, w.AddInt(int64(i), []byte(strconv.Itoa(i))))
		}
	})
	r := openFile(t, path)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				v, ok := r.GetInt(int64(i))
				if !ok || string(v) != strconv.Itoa(i) {
					t.Errorf("GetInt(%d) = %q, %v", i, v, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestReader_Close(t *testing.T) {
	path := writeFile(t, func(w *Writer) {
		require.NoError(t, w.AddInt(1, []byte("v")))
	})
	r, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, ok := r.GetInt(1)
	assert.False(t, ok)
	assert.Equal(t, int64(0), r.Size())
}

// craft writes raw file contents built from data, the given entries, and
// a correct footer, then lets mutate corrupt the result.
func craft(t *testing.T, data string, entries []trailer.Entry, mutate func([]byte)) string {
	t.Helper()
	file := []byte(data)
	for i := range entries {
		file = entries[i].AppendTo(file)
	}
	file = trailer.AppendFooter(file, int64(len(data)))
	if mutate != nil {
		mutate(file)
	}
	path := filepath.Join(t.TempDir(), "crafted.blobkv")
	require.NoError(t, os.WriteFile(path, file, 0644))
	return path
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "doesnt-exist"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	for name, contents := range map[string][]byte{
		"empty":  nil,
		"short":  {1, 2, 3},
		"beyond": {9, 0, 0, 0, 0, 0, 0, 0},
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, contents, 0644))
			_, err := Open(path)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestOpen_InvalidUTF8(t *testing.T) {
	path := craft(t, "value", []trailer.Entry{
		{Kind: trailer.KindStr, Start: 0, End: 5, StrKey: "abc"},
	}, func(file []byte) {
		// the key bytes follow the 5 data bytes and the 28-byte entry header
		file[5+28+1] = 0xff
	})

	r, err := Open(path)
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen_UnknownTag(t *testing.T) {
	path := craft(t, "value", []trailer.Entry{
		{Kind: trailer.KindInt, Start: 0, End: 5, IntKey: 1},
		{Kind: trailer.KindInt, Start: 0, End: 5, IntKey: 2},
	}, func(file []byte) {
		binary.LittleEndian.PutUint32(file[5+28:], 3)
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestOpen_Overshoot(t *testing.T) {
	path := craft(t, "value", []trailer.Entry{
		{Kind: trailer.KindStr, Start: 0, End: 5, StrKey: "abc"},
	}, func(file []byte) {
		binary.LittleEndian.PutUint64(file[5+20:], 4)
	})

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen_RangeOutsideData(t *testing.T) {
	path := craft(t, "value", []trailer.Entry{
		{Kind: trailer.KindInt, Start: 2, End: 6, IntKey: 1},
	}, nil)

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}
