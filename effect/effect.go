// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package effect defines what an effect is to the runtime: a constructor
// that only declares resources and a draw operation run every tick.
package effect

import (
	"errors"

	"github.com/devblok/korufx/resource"
	"github.com/devblok/korufx/target"
)

// ErrNoConstructor is returned for definitions without a constructor.
var ErrNoConstructor = errors.New("effect has no constructor")

// Effect is a drawable unit.
type Effect interface {

	// Draw issues the drawing work of one tick into t, which is already
	// bound. time may move in any direction between calls; frametime is
	// the expected length of a frame in seconds.
	Draw(time, frametime float64, t *target.Target) error
}

// Releaser is implemented by effects holding resources of their own
// besides what their Context handed out.
type Releaser interface {
	Release()
}

// Factory constructs an effect. It may only issue resource requests
// through ctx; none of them are usable before the loading phase.
type Factory func(ctx *Context) (Effect, error)

// Definition registers an effect with a manager.
type Definition struct {
	Name string

	// Dir is the effect-local resource directory on disk holding kind
	// sub-directories. Optional.
	Dir string

	// Box holds resources embedded with the effect. Optional.
	Box resource.Box

	New Factory
}

// Root returns the resource location of the definition.
func (d Definition) Root() resource.EffectRoot {
	return resource.EffectRoot{Effect: d.Name, Dir: d.Dir, Box: d.Box}
}

// Validate checks the definition can be constructed.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("effect has no name")
	}
	if d.New == nil {
		return ErrNoConstructor
	}
	return nil
}

// DrawFunc adapts a function into an Effect.
type DrawFunc func(time, frametime float64, t *target.Target) error

// Draw implements interface
func (f DrawFunc) Draw(time, frametime float64, t *target.Target) error {
	return f(time, frametime, t)
}
