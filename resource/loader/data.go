// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/devblok/korufx/resource"
)

// DataFormat tells how a data file is validated when loaded.
type DataFormat int

// Data formats
const (
	DataBinary DataFormat = iota
	DataText
	DataJSON
)

func (f DataFormat) String() string {
	switch f {
	case DataText:
		return "text"
	case DataJSON:
		return "json"
	}
	return "binary"
}

// Data is the placeholder of a data file request.
type Data struct {
	path   string
	format DataFormat

	data   []byte
	loaded bool
}

// Path returns the requested logical path.
func (d *Data) Path() string {
	return d.path
}

// Ready reports whether the data has been populated.
func (d *Data) Ready() bool {
	return d.loaded
}

// Bytes returns the raw contents.
func (d *Data) Bytes() []byte {
	return d.data
}

// Text returns the contents as a string.
func (d *Data) Text() string {
	return string(d.data)
}

// JSON decodes the contents into v.
func (d *Data) JSON(v interface{}) error {
	return json.Unmarshal(d.data, v)
}

func (d *Data) populate(l *Loader, src resource.Source) error {
	data, err := resource.ReadAll(src)
	if err != nil {
		return err
	}
	switch d.format {
	case DataText:
		if !utf8.Valid(data) {
			return decodeErrorf("%s: not valid UTF-8", src)
		}
	case DataJSON:
		if !json.Valid(data) {
			return decodeErrorf("%s: not valid JSON", src)
		}
	}
	d.data, d.loaded = data, true
	return nil
}

func (d *Data) release() {
	d.data, d.loaded = nil, false
}
