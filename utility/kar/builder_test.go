// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestAddAndWrite(t *testing.T) {
	c := qt.New(t)
	builder, err := NewBuilder(Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	c.Assert(builder.Add("test", strings.NewReader("idunvovkjnreovmegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.Add("test2", strings.NewReader("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")), qt.IsNil)
	c.Assert(builder.files, qt.HasLen, 2)
	c.Assert(builder.files[0].Size, qt.Equals, int64(31))

	buf := bytes.NewBuffer(nil)
	num, err := builder.WriteTo(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(num, qt.Equals, int64(buf.Len()))
	c.Assert(buf.Bytes()[:MagicLength], qt.DeepEquals, Magic[:])
}

func TestAddDuplicate(t *testing.T) {
	c := qt.New(t)
	builder, err := NewBuilder(Header{Version: 1})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	c.Assert(builder.Add("a", strings.NewReader("one")), qt.IsNil)
	c.Assert(builder.Add("a", strings.NewReader("two")), qt.ErrorMatches, `kar: duplicate file "a"`)
	c.Assert(builder.Len(), qt.Equals, 1)
}

func TestCloseRemovesTemp(t *testing.T) {
	c := qt.New(t)
	builder, err := NewBuilder(Header{Version: 1})
	c.Assert(err, qt.IsNil)
	c.Assert(builder.Add("a", strings.NewReader("one")), qt.IsNil)
	c.Assert(builder.Close(), qt.IsNil)

	_, err = os.Stat(builder.tempDir)
	c.Assert(os.IsNotExist(err), qt.Equals, true)
}

func TestHeaderSizeField(t *testing.T) {
	c := qt.New(t)
	field := int64ToBinary(1234)
	c.Assert(field, qt.HasLen, HeaderSizeNumberLength)

	num, err := binaryToint64(field)
	c.Assert(err, qt.IsNil)
	c.Assert(num, qt.Equals, int64(1234))
}
