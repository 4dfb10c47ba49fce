// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/model"
	"github.com/devblok/korufx/resource"
)

// Geometry is the placeholder of a mesh request.
type Geometry struct {
	path string

	mesh   *model.Mesh
	buffer gfx.Buffer
}

// Path returns the requested logical path.
func (g *Geometry) Path() string {
	return g.path
}

// Ready reports whether the mesh has been populated.
func (g *Geometry) Ready() bool {
	return g.buffer != nil
}

// Mesh returns the imported mesh.
func (g *Geometry) Mesh() *model.Mesh {
	return g.mesh
}

// Buffer returns the vertex buffer holding the mesh.
func (g *Geometry) Buffer() gfx.Buffer {
	return g.buffer
}

// DrawCall returns a call drawing the mesh with program and the
// model-view-projection block u.
func (g *Geometry) DrawCall(program gfx.Program, u model.Uniform, textures ...gfx.Texture) gfx.DrawCall {
	return gfx.DrawCall{
		Program:  program,
		Vertices: g.buffer,
		Count:    len(g.mesh.Vertices),
		Textures: textures,
		Uniforms: u.Bytes(),
	}
}

func (g *Geometry) populate(l *Loader, src resource.Source) error {
	data, err := resource.ReadAll(src)
	if err != nil {
		return err
	}
	mesh, err := model.ImportCollada(data)
	if err != nil {
		return decodeErrorf("%s: %v", src, err)
	}
	buf, err := l.device.CreateBuffer(mesh.Bytes(), gfx.BufferVertex)
	if err != nil {
		return &DecodeError{Err: err}
	}
	g.mesh, g.buffer = mesh, buf
	return nil
}

func (g *Geometry) release() {
	if g.buffer != nil {
		g.buffer.Release()
	}
	g.mesh, g.buffer = nil, nil
}
