// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fill is an effect clearing its target to a color that cycles
// through a palette over time.
package fill

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/resource/loader"
	"github.com/devblok/korufx/target"
	"github.com/gobuffalo/packr"
)

// Name is the registered name of the effect.
const Name = "fill"

// Resources holds the embedded palette.
var Resources = packr.NewBox("./resources")

// Definition registers the effect.
func Definition() effect.Definition {
	return effect.Definition{
		Name: Name,
		Box:  Resources,
		New:  New,
	}
}

type palette struct {
	Period float64    `json:"period"`
	Colors [][4]uint8 `json:"colors"`
}

// New constructs the effect.
func New(ctx *effect.Context) (effect.Effect, error) {
	return &Fill{
		ctx:     ctx,
		palette: ctx.Data(ctx.Local("palette.json"), loader.DataJSON),
	}, nil
}

// Fill clears to the palette color of the current time.
type Fill struct {
	ctx     *effect.Context
	palette *loader.Data

	period float64
	colors []color.RGBA
}

// Draw implements interface
func (f *Fill) Draw(time, frametime float64, t *target.Target) error {
	if f.colors == nil {
		if err := f.parse(); err != nil {
			return err
		}
	}
	f.ctx.Device().Clear(f.At(time))
	return nil
}

func (f *Fill) parse() error {
	var p palette
	if err := f.palette.JSON(&p); err != nil {
		return fmt.Errorf("fill: palette: %w", err)
	}
	if len(p.Colors) == 0 {
		return errors.New("fill: palette has no colors")
	}
	if p.Period <= 0 {
		p.Period = 1
	}
	f.period = p.Period
	for _, c := range p.Colors {
		f.colors = append(f.colors, color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
	}
	return nil
}

// At returns the color at time. The palette wraps around every period
// seconds in both directions. It is transparent black until the first
// draw has read the palette.
func (f *Fill) At(time float64) color.RGBA {
	n := len(f.colors)
	if n == 0 {
		return color.RGBA{}
	}
	phase := math.Mod(time/f.period, 1)
	if phase < 0 {
		phase++
	}
	pos := phase * float64(n)
	i := int(pos) % n
	frac := pos - math.Floor(pos)
	return lerp(f.colors[i], f.colors[(i+1)%n], frac)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
