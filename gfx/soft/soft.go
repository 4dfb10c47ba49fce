// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package soft implements gfx.Device in memory. Textures and framebuffers are
// plain RGBA images, programs are validated but never executed. It backs
// headless runs and tests, and cmd/koru presents its screen image.
package soft

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/devblok/korufx/gfx"
	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// spirvMagic opens every SPIR-V module, little endian.
const spirvMagic = 0x07230203

// uniformMatrixSize is the size of one float32 4x4 matrix.
const uniformMatrixSize = 16 * 4

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger used for device diagnostics.
func WithLogger(logger log.FieldLogger) Option {
	return func(d *Device) {
		d.log = logger
	}
}

// WithScreenSize sets the size of the window framebuffer.
func WithScreenSize(width, height int) Option {
	return func(d *Device) {
		d.screenW, d.screenH = width, height
	}
}

// Stats counts the work a Device has done.
type Stats struct {
	Textures     int
	Programs     int
	Buffers      int
	Framebuffers int
	Binds        int
	Clears       int
	Draws        int
}

// NewDevice creates a software device.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		log:     log.StandardLogger(),
		screenW: 800,
		screenH: 600,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.screen = &framebuffer{
		device: d,
		color: &texture{
			device: d,
			width:  d.screenW,
			height: d.screenH,
			layers: 1,
			levels: [][]*image.RGBA{{image.NewRGBA(image.Rect(0, 0, d.screenW, d.screenH))}},
		},
		width:  d.screenW,
		height: d.screenH,
	}
	d.bound = d.screen
	d.viewport = image.Rect(0, 0, d.screenW, d.screenH)
	return d
}

// Device is an in-memory gfx.Device. It is not safe for concurrent use,
// the runtime drives it from a single loop.
type Device struct {
	log log.FieldLogger

	nextID   uint32
	screenW  int
	screenH  int
	screen   *framebuffer
	bound    *framebuffer
	viewport image.Rectangle

	stats Stats
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

// Stats returns a copy of the work counters.
func (d *Device) Stats() Stats {
	return d.stats
}

// Pixels returns the base level of a texture created by this device.
func (d *Device) Pixels(t gfx.Texture) *image.RGBA {
	tex, ok := t.(*texture)
	if !ok || tex.released || len(tex.levels) == 0 {
		return nil
	}
	return tex.levels[0][0]
}

// ScreenImage returns the window framebuffer contents.
func (d *Device) ScreenImage() *image.RGBA {
	return d.screen.color.levels[0][0]
}

// ResizeScreen reallocates the window framebuffer.
func (d *Device) ResizeScreen(width, height int) {
	d.screenW, d.screenH = width, height
	d.screen.width, d.screen.height = width, height
	d.screen.color.width, d.screen.color.height = width, height
	d.screen.color.levels = [][]*image.RGBA{{image.NewRGBA(image.Rect(0, 0, width, height))}}
}

// Viewport implements interface
func (d *Device) Viewport(rect image.Rectangle) {
	d.viewport = rect
}

// CurrentViewport returns the viewport set last.
func (d *Device) CurrentViewport() image.Rectangle {
	return d.viewport
}

// CreateTexture implements interface
func (d *Device) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("soft.CreateTexture(): invalid size %dx%d", desc.Width, desc.Height)
	}
	layers := desc.Layers
	if layers < 1 {
		layers = 1
	}
	levels := desc.Levels
	if len(levels) == 0 {
		levels = make([][]*image.RGBA, layers)
		for i := range levels {
			levels[i] = []*image.RGBA{image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height))}
		}
	}
	if len(levels) != layers {
		return nil, fmt.Errorf("soft.CreateTexture(): %d layers declared, %d supplied", layers, len(levels))
	}
	if desc.Sampler.Min.Mipmapped() && len(levels[0]) < 2 && desc.Width*desc.Height > 1 {
		return nil, fmt.Errorf("soft.CreateTexture(): mipmap filter on a texture without mip levels")
	}

	copied := make([][]*image.RGBA, layers)
	for l := range levels {
		for _, lvl := range levels[l] {
			img := image.NewRGBA(lvl.Bounds())
			draw.Draw(img, img.Bounds(), lvl, lvl.Bounds().Min, draw.Src)
			copied[l] = append(copied[l], img)
		}
	}

	d.stats.Textures++
	return &texture{
		device:  d,
		id:      d.id(),
		width:   desc.Width,
		height:  desc.Height,
		layers:  layers,
		format:  desc.Format,
		sampler: desc.Sampler,
		levels:  copied,
	}, nil
}

// CreateProgram implements interface
func (d *Device) CreateProgram(desc gfx.ProgramDesc) (gfx.Program, error) {
	if len(desc.Sources) == 0 {
		return nil, fmt.Errorf("%w: %s: no stages", gfx.ErrCompile, desc.Name)
	}
	if _, ok := desc.Sources[gfx.StageVertex]; !ok && !desc.Binary {
		return nil, fmt.Errorf("%w: %s: missing vertex stage", gfx.ErrCompile, desc.Name)
	}

	stages := make([]gfx.Stage, 0, len(desc.Sources))
	for stage, src := range desc.Sources {
		if err := compile(desc.Binary, src); err != nil {
			return nil, fmt.Errorf("%w: %s (%s): %v", gfx.ErrCompile, desc.Name, stage, err)
		}
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })

	d.stats.Programs++
	return &program{
		device: d,
		id:     d.id(),
		name:   desc.Name,
		stages: stages,
	}, nil
}

// compile performs the checks a driver front end would reject first.
func compile(spirv bool, src []byte) error {
	if spirv {
		if len(src) < 4 || len(src)%4 != 0 {
			return fmt.Errorf("module size %d is not a multiple of 4", len(src))
		}
		if binary.LittleEndian.Uint32(src) != spirvMagic {
			return fmt.Errorf("bad SPIR-V magic")
		}
		return nil
	}
	for _, line := range bytes.Split(src, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("#error")) {
			return fmt.Errorf("%s", bytes.TrimSpace(bytes.TrimPrefix(line, []byte("#error"))))
		}
	}
	if !bytes.Contains(src, []byte("void main")) {
		return fmt.Errorf("no entry point")
	}
	return nil
}

// CreateBuffer implements interface
func (d *Device) CreateBuffer(data []byte, usage gfx.BufferUsage) (gfx.Buffer, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	d.stats.Buffers++
	return &buffer{
		device: d,
		id:     d.id(),
		data:   buf,
		usage:  usage,
	}, nil
}

// CreateFramebuffer implements interface
func (d *Device) CreateFramebuffer(color, depth gfx.Texture) (gfx.Framebuffer, error) {
	ct, ok := color.(*texture)
	if !ok || ct == nil {
		return nil, fmt.Errorf("soft.CreateFramebuffer(): color attachment is not a soft texture")
	}
	if ct.released {
		return nil, gfx.ErrReleased
	}
	fb := &framebuffer{
		device: d,
		id:     d.id(),
		color:  ct,
		width:  ct.width,
		height: ct.height,
	}
	if depth != nil {
		dt, ok := depth.(*texture)
		if !ok {
			return nil, fmt.Errorf("soft.CreateFramebuffer(): depth attachment is not a soft texture")
		}
		if dt.width != ct.width || dt.height != ct.height {
			return nil, fmt.Errorf("soft.CreateFramebuffer(): attachment sizes differ")
		}
		fb.depth = dt
	}
	d.stats.Framebuffers++
	return fb, nil
}

// Screen implements interface
func (d *Device) Screen() gfx.Framebuffer {
	return d.screen
}

// BindFramebuffer implements interface
func (d *Device) BindFramebuffer(fb gfx.Framebuffer) {
	f, ok := fb.(*framebuffer)
	if !ok || f == nil {
		f = d.screen
	}
	d.bound = f
	d.stats.Binds++
}

// Bound implements interface
func (d *Device) Bound() gfx.Framebuffer {
	return d.bound
}

// Clear implements interface
func (d *Device) Clear(c color.Color) {
	d.stats.Clears++
	if d.bound.released {
		d.log.WithField("framebuffer", d.bound.id).Warn("clear on released framebuffer")
		return
	}
	dst := d.bound.color.levels[0][0]
	draw.Draw(dst, d.viewport.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// Draw implements interface. Fullscreen draws sample the first texture
// across the viewport, anything else is only counted.
func (d *Device) Draw(call gfx.DrawCall) error {
	prog, ok := call.Program.(*program)
	if !ok || prog == nil {
		return fmt.Errorf("soft.Draw(): no program")
	}
	if prog.released {
		return gfx.ErrReleased
	}
	if d.bound.released {
		return gfx.ErrReleased
	}
	for _, t := range call.Textures {
		tex, ok := t.(*texture)
		if !ok || tex.released {
			return fmt.Errorf("soft.Draw(): invalid texture input")
		}
		if tex == d.bound.color {
			return fmt.Errorf("soft.Draw(): texture %d is both input and destination", tex.id)
		}
	}
	if !call.Fullscreen && call.Vertices == nil {
		return fmt.Errorf("soft.Draw(): no vertices")
	}
	if len(call.Uniforms)%uniformMatrixSize != 0 {
		return fmt.Errorf("soft.Draw(): uniform block of %d bytes is not made of 4x4 matrices", len(call.Uniforms))
	}
	d.stats.Draws++

	if call.Fullscreen && len(call.Textures) > 0 {
		src := call.Textures[0].(*texture).levels[0][0]
		dst := d.bound.color.levels[0][0]
		scaler := xdraw.Interpolator(xdraw.ApproxBiLinear)
		if call.Textures[0].Sampler().Mag == gfx.FilterNearest {
			scaler = xdraw.NearestNeighbor
		}
		scaler.Scale(dst, d.viewport.Intersect(dst.Bounds()), src, src.Bounds(), xdraw.Src, nil)
	}
	return nil
}
