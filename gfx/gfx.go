// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the graphics capability surface that resource loaders,
// render targets and effects are written against. Concrete devices implement
// Device; nothing outside a device package issues API calls directly.
package gfx

import (
	"errors"
	"image"
	"image/color"
)

// package errors
var (
	ErrCompile     = errors.New("shader compilation failed")
	ErrReleased    = errors.New("object already released")
	ErrUnsupported = errors.New("operation not supported by device")
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Wrap is the texture coordinate wrapping mode.
type Wrap int

// Texture wrapping modes
const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

// Filter is the texture sampling filter.
type Filter int

// Texture filters. The mipmap variants are only valid as minification
// filters of textures that carry more than one level.
const (
	FilterLinear Filter = iota
	FilterNearest
	FilterLinearMipmapLinear
	FilterNearestMipmapNearest
)

// Mipmapped reports whether the filter samples from mip levels.
func (f Filter) Mipmapped() bool {
	return f == FilterLinearMipmapLinear || f == FilterNearestMipmapNearest
}

// Sampler holds the sampling state of a texture.
type Sampler struct {
	WrapS, WrapT Wrap
	Min, Mag     Filter
	Anisotropy   float32
}

// DefaultSampler is what textures get when nothing else is asked for.
var DefaultSampler = Sampler{
	WrapS: WrapRepeat,
	WrapT: WrapRepeat,
	Min:   FilterLinearMipmapLinear,
	Mag:   FilterLinear,
}

// Format is a texel format.
type Format int

// Supported formats
const (
	FormatRGBA8 Format = iota
	FormatDepth24
)

// TextureDesc describes a texture to create. Levels is indexed by
// [layer][level], level 0 being the full sized image. Attachment
// textures leave Levels empty.
type TextureDesc struct {
	Width, Height int
	Layers        int
	Format        Format
	Sampler       Sampler
	Levels        [][]*image.RGBA
}

// Texture is a device texture.
type Texture interface {
	Releasable

	// ID uniquely identifies the texture on its device.
	ID() uint32

	// Size returns the size of the base level.
	Size() (width, height int)

	// Levels returns the number of mip levels.
	Levels() int

	// Layers returns the number of array layers, 1 for plain textures.
	Layers() int

	// Sampler returns the sampling state the texture was created with.
	Sampler() Sampler
}

// Stage identifies a programmable pipeline stage.
type Stage int

// Pipeline stages
const (
	StageVertex Stage = iota
	StageFragment
	StageGeometry
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageGeometry:
		return "geometry"
	}
	return "unknown"
}

// ProgramDesc describes a shader program. Binary programs carry SPIR-V
// modules, the rest carry GLSL source.
type ProgramDesc struct {
	Name    string
	Binary  bool
	Sources map[Stage][]byte
}

// Program is a linked shader program.
type Program interface {
	Releasable

	ID() uint32
	Name() string
	Stages() []Stage
}

// BufferUsage is a hint on how a buffer is used.
type BufferUsage int

// Buffer usages
const (
	BufferVertex BufferUsage = iota
	BufferIndex
	BufferUniform
)

// Buffer is a device buffer.
type Buffer interface {
	Releasable

	ID() uint32
	Len() int
	Usage() BufferUsage
}

// Framebuffer is a draw destination. The framebuffer returned by
// Device.Screen is the window's implicit one.
type Framebuffer interface {
	Releasable

	ID() uint32
	Size() (width, height int)
}

// DrawCall is a unit of drawing work. A fullscreen draw covers the
// current viewport and needs no vertex buffer.
type DrawCall struct {
	Program    Program
	Vertices   Buffer
	Count      int
	Textures   []Texture
	Fullscreen bool

	// Uniforms is the packed uniform block of a mesh draw.
	Uniforms []byte
}

// Device is the capability surface of a graphics API.
type Device interface {

	// CreateTexture creates and uploads a texture.
	CreateTexture(TextureDesc) (Texture, error)

	// CreateProgram compiles and links a shader program.
	CreateProgram(ProgramDesc) (Program, error)

	// CreateBuffer creates a buffer holding data.
	CreateBuffer(data []byte, usage BufferUsage) (Buffer, error)

	// CreateFramebuffer creates an offscreen framebuffer with the given
	// attachments. Depth may be nil.
	CreateFramebuffer(color, depth Texture) (Framebuffer, error)

	// Screen returns the window framebuffer.
	Screen() Framebuffer

	// BindFramebuffer makes fb the active draw destination.
	BindFramebuffer(fb Framebuffer)

	// Bound returns the active draw destination.
	Bound() Framebuffer

	// Viewport sets the drawing area within the bound framebuffer.
	Viewport(rect image.Rectangle)

	// Clear clears the bound framebuffer within the viewport.
	Clear(c color.Color)

	// Draw issues a draw call against the bound framebuffer.
	Draw(DrawCall) error
}
