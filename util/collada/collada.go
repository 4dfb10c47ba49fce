// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package collada decodes the parts of COLLADA documents that describe
// triangle meshes: sources, the vertices element and triangle or polygon
// lists indexing into them.
package collada

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Semantics of the inputs the mesh import understands.
const (
	SemanticVertex   = "VERTEX"
	SemanticPosition = "POSITION"
	SemanticNormal   = "NORMAL"
)

// Collada is the top-level Collada object
type Collada struct {
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Geometry represents Collada's geometry
type Geometry struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
	Mesh Mesh   `xml:"mesh"`
}

// Mesh contains all the primitive data
type Mesh struct {
	Sources   []Source    `xml:"source"`
	Vertices  Vertices    `xml:"vertices"`
	Triangles []Triangles `xml:"triangles"`
	Polylists []Triangles `xml:"polylist"`
}

// Source finds a source by id or by a "#id" reference.
func (m *Mesh) Source(ref string) *Source {
	id := StripID(ref)
	for i := range m.Sources {
		if m.Sources[i].ID == id {
			return &m.Sources[i]
		}
	}
	return nil
}

// Positions follows the vertices element to its POSITION source. Exporters
// that skip the reference are served by the source whose id ends in
// -positions.
func (m *Mesh) Positions() *Source {
	for _, in := range m.Vertices.Inputs {
		if in.Semantic != SemanticPosition {
			continue
		}
		if s := m.Source(in.Source); s != nil {
			return s
		}
	}
	for i := range m.Sources {
		if strings.HasSuffix(m.Sources[i].ID, "-positions") {
			return &m.Sources[i]
		}
	}
	return nil
}

// Primitives returns the triangle lists followed by the polygon lists.
func (m *Mesh) Primitives() []Triangles {
	return append(append([]Triangles(nil), m.Triangles...), m.Polylists...)
}

// Source is a named float array and the accessor reading it.
type Source struct {
	ID       string   `xml:"id,attr"`
	Floats   Floats   `xml:"float_array"`
	Accessor Accessor `xml:"technique_common>accessor"`
}

// Vec3 returns the first three components of element index.
func (s *Source) Vec3(index int) ([3]float32, error) {
	stride := s.Accessor.Stride
	if stride == 0 {
		stride = 3
	}
	start := index * stride
	if index < 0 || start+3 > len(s.Floats.Data) {
		return [3]float32{}, fmt.Errorf("index %d out of range of source %s", index, s.ID)
	}
	d := s.Floats.Data[start : start+3]
	return [3]float32{d[0], d[1], d[2]}, nil
}

// Accessor describes how a source's array is read
type Accessor struct {
	Count  int `xml:"count,attr"`
	Stride int `xml:"stride,attr"`
}

// Floats is the array of floats
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			f.ID = attr.Value
		}
	}
	return decodeFields(d, start, func(field string) error {
		num, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
		return nil
	})
}

// Ints is a whitespace separated list of integers, as in <p> and <vcount>.
type Ints []int

// UnmarshalXML unmarshals the list
func (n *Ints) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return decodeFields(d, start, func(field string) error {
		num, err := strconv.Atoi(field)
		if err != nil {
			return err
		}
		*n = append(*n, num)
		return nil
	})
}

func decodeFields(d *xml.Decoder, start xml.StartElement, each func(string) error) error {
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, field := range strings.Fields(raw) {
		if err := each(field); err != nil {
			return err
		}
	}
	return nil
}

// Vertices contains the list of vertices
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Triangles is a <triangles> or <polylist> element. Polygon lists carry
// the corner count of every polygon in VCount.
type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr"`
	Inputs   []Input `xml:"input"`
	VCount   Ints    `xml:"vcount"`
	Index    Ints    `xml:"p"`
}

// Stride returns the number of indices making up one corner.
func (t *Triangles) Stride() int {
	stride := 0
	for _, in := range t.Inputs {
		if int(in.Offset)+1 > stride {
			stride = int(in.Offset) + 1
		}
	}
	return stride
}

// Input returns the input of a semantic.
func (t *Triangles) Input(semantic string) (Input, bool) {
	for _, in := range t.Inputs {
		if in.Semantic == semantic {
			return in, true
		}
	}
	return Input{}, false
}

// Corners returns the index tuples of every triangle corner in order.
// Polygons are split into fans around their first corner.
func (t *Triangles) Corners() ([][]int, error) {
	stride := t.Stride()
	if stride == 0 {
		return nil, errors.New("primitive has no inputs")
	}
	if len(t.Index)%stride != 0 {
		return nil, fmt.Errorf("index length %d is not a multiple of %d inputs", len(t.Index), stride)
	}
	corners := make([][]int, len(t.Index)/stride)
	for i := range corners {
		corners[i] = t.Index[i*stride : (i+1)*stride]
	}
	if len(t.VCount) == 0 {
		if len(corners)%3 != 0 {
			return nil, fmt.Errorf("%d corners do not make whole triangles", len(corners))
		}
		return corners, nil
	}

	var (
		out  [][]int
		next int
	)
	for _, n := range t.VCount {
		if n < 3 || next+n > len(corners) {
			return nil, fmt.Errorf("polygon of %d corners at corner %d does not fit %d corners", n, next, len(corners))
		}
		poly := corners[next : next+n]
		for i := 1; i+1 < n; i++ {
			out = append(out, poly[0], poly[i], poly[i+1])
		}
		next += n
	}
	return out, nil
}

// StripID removes the leading '#' of a source reference.
func StripID(ref string) string {
	return strings.TrimPrefix(ref, "#")
}

// Input is Collada'a input type
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
}
