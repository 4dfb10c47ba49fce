// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package postfx is an effect that draws another effect into an offscreen
// target and then samples it across its own target.
package postfx

import (
	"fmt"

	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/resource/loader"
	"github.com/devblok/korufx/target"
	"github.com/gobuffalo/packr"
)

// Name is the registered name of the effect.
const Name = "postfx"

// Resources holds the embedded post processing program.
var Resources = packr.NewBox("./resources")

// Definition registers the effect post processing scene.
func Definition(scene effect.Definition) effect.Definition {
	return effect.Definition{
		Name: Name,
		Box:  Resources,
		New: func(ctx *effect.Context) (effect.Effect, error) {
			return New(ctx, scene)
		},
	}
}

// New constructs the effect around scene.
func New(ctx *effect.Context, scene effect.Definition) (effect.Effect, error) {
	inner, err := ctx.Construct(scene)
	if err != nil {
		return nil, fmt.Errorf("postfx: %w", err)
	}
	return &PostFX{
		ctx:     ctx,
		scene:   inner,
		program: ctx.Program(ctx.Local("postfx.glsl")),
		target:  ctx.Target("scene", 0, 0, target.Attachments{Depth: true}),
	}, nil
}

// PostFX draws its scene offscreen and composites the result.
type PostFX struct {
	ctx     *effect.Context
	scene   effect.Effect
	program *loader.Program
	target  *target.Target
}

// Target returns the offscreen target holding the scene.
func (p *PostFX) Target() *target.Target {
	return p.target
}

// Draw implements interface
func (p *PostFX) Draw(time, frametime float64, t *target.Target) error {
	if err := p.ctx.Draw(p.scene, time, frametime, p.target); err != nil {
		return fmt.Errorf("postfx: scene: %w", err)
	}
	return p.ctx.Device().Draw(gfx.DrawCall{
		Program:    p.program.Get(),
		Textures:   []gfx.Texture{p.target.Color()},
		Fullscreen: true,
	})
}
