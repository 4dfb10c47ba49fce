// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"fmt"
	"image"
	"image/draw"

	// Decoders available to textures
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/resource"
	xdraw "golang.org/x/image/draw"
)

// TextureOption configures a texture request.
type TextureOption func(*textureOptions)

type textureOptions struct {
	sampler gfx.Sampler
	mipmaps bool
	flipY   bool
	layers  int
}

func defaultTextureOptions() textureOptions {
	return textureOptions{
		sampler: gfx.DefaultSampler,
		mipmaps: true,
		layers:  1,
	}
}

// normalise keeps the filter consistent with the presence of mip levels.
func (o *textureOptions) normalise() {
	if !o.mipmaps && o.sampler.Min.Mipmapped() {
		if o.sampler.Min == gfx.FilterNearestMipmapNearest {
			o.sampler.Min = gfx.FilterNearest
		} else {
			o.sampler.Min = gfx.FilterLinear
		}
	}
	if o.layers < 1 {
		o.layers = 1
	}
}

func (o textureOptions) String() string {
	return fmt.Sprintf("%+v mip=%t flip=%t layers=%d", o.sampler, o.mipmaps, o.flipY, o.layers)
}

// Wrap sets the wrapping modes.
func Wrap(s, t gfx.Wrap) TextureOption {
	return func(o *textureOptions) {
		o.sampler.WrapS, o.sampler.WrapT = s, t
	}
}

// Filter sets the minification and magnification filters.
func Filter(min, mag gfx.Filter) TextureOption {
	return func(o *textureOptions) {
		o.sampler.Min, o.sampler.Mag = min, mag
	}
}

// Anisotropy sets the anisotropic filtering level.
func Anisotropy(level float32) TextureOption {
	return func(o *textureOptions) {
		o.sampler.Anisotropy = level
	}
}

// Mipmaps turns mip generation on or off. On by default.
func Mipmaps(on bool) TextureOption {
	return func(o *textureOptions) {
		o.mipmaps = on
	}
}

// FlipY flips the image vertically before upload.
func FlipY() TextureOption {
	return func(o *textureOptions) {
		o.flipY = true
	}
}

// Layers loads the image as a texture array of n layers stacked
// vertically in the source image.
func Layers(n int) TextureOption {
	return func(o *textureOptions) {
		o.layers = n
	}
}

// Texture is the placeholder of a texture request.
type Texture struct {
	path string
	opts textureOptions

	tex           gfx.Texture
	width, height int
}

// Path returns the requested logical path.
func (t *Texture) Path() string {
	return t.path
}

// Ready reports whether the texture has been populated.
func (t *Texture) Ready() bool {
	return t.tex != nil
}

// Get returns the device texture, nil until populated.
func (t *Texture) Get() gfx.Texture {
	return t.tex
}

// Size returns the size of one layer's base level.
func (t *Texture) Size() (int, int) {
	return t.width, t.height
}

func (t *Texture) populate(l *Loader, src resource.Source) error {
	r, err := src.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	img, format, err := image.Decode(r)
	if err != nil {
		return decodeErrorf("%s: %v", src, err)
	}

	pixels := getPixels(img)
	if t.opts.flipY {
		flip(pixels)
	}

	layers, err := splitLayers(pixels, t.opts.layers)
	if err != nil {
		return decodeErrorf("%s: %v", src, err)
	}

	levels := make([][]*image.RGBA, len(layers))
	for i, layer := range layers {
		levels[i] = []*image.RGBA{layer}
		if t.opts.mipmaps {
			levels[i] = mipChain(layer)
		}
	}

	w, h := layers[0].Bounds().Dx(), layers[0].Bounds().Dy()
	tex, err := l.device.CreateTexture(gfx.TextureDesc{
		Width:   w,
		Height:  h,
		Layers:  len(layers),
		Format:  gfx.FormatRGBA8,
		Sampler: t.opts.sampler,
		Levels:  levels,
	})
	if err != nil {
		return &DecodeError{Err: fmt.Errorf("%s (%s): %v", src, format, err)}
	}
	t.tex, t.width, t.height = tex, w, h
	return nil
}

func (t *Texture) release() {
	if t.tex != nil {
		t.tex.Release()
	}
	t.tex = nil
}

// getPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas
func getPixels(img image.Image) *image.RGBA {
	b := img.Bounds()
	newImg := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(newImg, newImg.Bounds(), img, b.Min, draw.Src)
	return newImg
}

func flip(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func splitLayers(img *image.RGBA, n int) ([]*image.RGBA, error) {
	if n <= 1 {
		return []*image.RGBA{img}, nil
	}
	h := img.Bounds().Dy()
	if h%n != 0 {
		return nil, fmt.Errorf("height %d is not divisible into %d layers", h, n)
	}
	lh := h / n
	layers := make([]*image.RGBA, n)
	for i := range layers {
		layer := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), lh))
		draw.Draw(layer, layer.Bounds(), img, image.Pt(0, i*lh), draw.Src)
		layers[i] = layer
	}
	return layers, nil
}

// mipChain halves base until both sides are 1, level 0 being base itself.
func mipChain(base *image.RGBA) []*image.RGBA {
	levels := []*image.RGBA{base}
	prev := base
	for {
		w, h := prev.Bounds().Dx(), prev.Bounds().Dy()
		if w == 1 && h == 1 {
			return levels
		}
		w, h = maxInt(w/2, 1), maxInt(h/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), xdraw.Src, nil)
		levels = append(levels, next)
		prev = next
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
