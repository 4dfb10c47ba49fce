// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package model holds meshes imported for the geometry resource kind.
package model

import (
	"bytes"
	"encoding/binary"

	glm "github.com/go-gl/mathgl/mgl32"
)

// VertexSize is the size in bytes of one packed Vertex.
const VertexSize = (3 + 3 + 4) * 4

// Vertex is a model vertex
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	Color  glm.Vec4
}

// Mesh is a triangle list.
type Mesh struct {
	Name     string
	Vertices []Vertex
}

// Bytes packs the vertices as little endian float32s in field order,
// ready for a vertex buffer.
func (m *Mesh) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(m.Vertices)*VertexSize))
	for _, v := range m.Vertices {
		binary.Write(buf, binary.LittleEndian, v.Pos)
		binary.Write(buf, binary.LittleEndian, v.Normal)
		binary.Write(buf, binary.LittleEndian, v.Color)
	}
	return buf.Bytes()
}

// Bounds returns the axis aligned bounding box of the mesh.
func (m *Mesh) Bounds() (min, max glm.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	min, max = m.Vertices[0].Pos, m.Vertices[0].Pos
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Pos[i] < min[i] {
				min[i] = v.Pos[i]
			}
			if v.Pos[i] > max[i] {
				max[i] = v.Pos[i]
			}
		}
	}
	return
}

// Uniform defines a model-view-projection object
type Uniform struct {
	Model      glm.Mat4
	View       glm.Mat4
	Projection glm.Mat4
}

// Bytes packs the uniform for a uniform buffer.
func (u Uniform) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 3*16*4))
	binary.Write(buf, binary.LittleEndian, u.Model)
	binary.Write(buf, binary.LittleEndian, u.View)
	binary.Write(buf, binary.LittleEndian, u.Projection)
	return buf.Bytes()
}
