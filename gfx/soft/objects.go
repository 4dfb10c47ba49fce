// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package soft

import (
	"image"

	"github.com/devblok/korufx/gfx"
)

type texture struct {
	device   *Device
	id       uint32
	width    int
	height   int
	layers   int
	format   gfx.Format
	sampler  gfx.Sampler
	levels   [][]*image.RGBA
	released bool
}

func (t *texture) ID() uint32 { return t.id }
func (t *texture) Size() (int, int) { return t.width, t.height }
func (t *texture) Layers() int { return t.layers }
func (t *texture) Sampler() gfx.Sampler { return t.sampler }

func (t *texture) Levels() int {
	if len(t.levels) == 0 {
		return 0
	}
	return len(t.levels[0])
}

func (t *texture) Release() {
	t.released = true
	t.levels = nil
}

type program struct {
	device   *Device
	id       uint32
	name     string
	stages   []gfx.Stage
	released bool
}

func (p *program) ID() uint32 { return p.id }
func (p *program) Name() string { return p.name }
func (p *program) Stages() []gfx.Stage { return p.stages }
func (p *program) Release() { p.released = true }

type buffer struct {
	device   *Device
	id       uint32
	data     []byte
	usage    gfx.BufferUsage
	released bool
}

func (b *buffer) ID() uint32 { return b.id }
func (b *buffer) Len() int { return len(b.data) }
func (b *buffer) Usage() gfx.BufferUsage { return b.usage }

func (b *buffer) Release() {
	b.released = true
	b.data = nil
}

type framebuffer struct {
	device   *Device
	id       uint32
	color    *texture
	depth    *texture
	width    int
	height   int
	released bool
}

func (f *framebuffer) ID() uint32 { return f.id }
func (f *framebuffer) Size() (int, int) { return f.width, f.height }

// Release frees the framebuffer object, attachments are owned by the caller.
// The screen framebuffer cannot be released.
func (f *framebuffer) Release() {
	if f == f.device.screen {
		return
	}
	f.released = true
	if f.device.bound == f {
		f.device.bound = f.device.screen
	}
}
