// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/devblok/korufx/utility/kar"
	qt "github.com/frankban/quicktest"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(c *qt.C, files map[string]string) []byte {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	for name, contents := range files {
		c.Assert(builder.Add(name, strings.NewReader(contents)), qt.IsNil)
	}

	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	c.Assert(err, qt.IsNil)
	c.Logf("written %d", written)
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	f, err := ar.Open("test")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString1)))

	result := make([]byte, len(testString1))
	n, err := io.ReadFull(f, result)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, len(testString1))
	c.Assert(string(result), qt.Equals, testString1)
}

func TestCreateAndReadAll(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	f, err := ar.ReadAll("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, testString2)

	c.Assert(ar.Names(), qt.DeepEquals, []string{"test", "test2"})
	c.Assert(ar.Header().Author, qt.Equals, "devblok")
}

func TestOpenMissing(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Has("nope"), qt.Equals, false)

	_, err = ar.Open("nope")
	c.Assert(err, qt.Equals, kar.ErrNotExist)
}

func TestOpenNotArchive(t *testing.T) {
	c := qt.New(t)
	_, err := kar.Open(bytes.NewReader([]byte("PK\x03\x04 definitely a zip file")))
	c.Assert(err, qt.Equals, kar.ErrFileFormat)

	_, err = kar.Open(bytes.NewReader([]byte("KA")))
	c.Assert(err, qt.Equals, kar.ErrFileFormat)
}

func corruptHeader(size int64) []byte {
	data := append([]byte(nil), kar.Magic[:]...)
	field := make([]byte, kar.HeaderSizeNumberLength)
	binary.LittleEndian.PutUint64(field, uint64(size))
	return append(append(data, field...), "short header"...)
}

// onlyReaderAt hides the size of the underlying reader.
type onlyReaderAt struct {
	r io.ReaderAt
}

func (o onlyReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return o.r.ReadAt(p, off)
}

func TestOpenCorruptHeaderSize(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		name string
		size int64
	}{
		{"huge", 1 << 62},
		{"negative", -5},
		{"past end", 1024},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			_, err := kar.Open(bytes.NewReader(corruptHeader(tt.size)))
			c.Assert(err, qt.Equals, kar.ErrFileFormat)
		})
	}

	_, err := kar.Open(onlyReaderAt{bytes.NewReader(corruptHeader(1 << 62))})
	c.Assert(err, qt.Equals, kar.ErrFileFormat)
	_, err = kar.Open(onlyReaderAt{bytes.NewReader(corruptHeader(1024))})
	c.Assert(err, qt.Equals, kar.ErrFileFormat)
}
