// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postfx_test

import (
	"errors"
	"testing"

	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/effects/postfx"
	"github.com/devblok/korufx/gfx/soft"
	"github.com/devblok/korufx/resource"
	"github.com/devblok/korufx/resource/loader"
	"github.com/devblok/korufx/target"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSceneFailureIsReported(t *testing.T) {
	c := qt.New(t)
	logger, _ := test.NewNullLogger()

	dir, err := resource.Build(resource.Layout{Effects: []resource.EffectRoot{postfx.Definition(effect.Definition{}).Root()}})
	c.Assert(err, qt.IsNil)
	defer dir.Close()

	dev := soft.NewDevice(soft.WithLogger(logger), soft.WithScreenSize(8, 8))
	l := loader.New(resource.NewLocator(dir), dev, loader.WithLogger(logger))
	b := target.NewBinder(dev, target.Screen(dev), logger)
	ctx := effect.NewContext(postfx.Name, l, b, logger)

	failure := errors.New("scene failed")
	var seen *target.Target
	fx, err := postfx.New(ctx, effect.Definition{
		Name: "scene",
		New: func(*effect.Context) (effect.Effect, error) {
			return effect.DrawFunc(func(time, frametime float64, t *target.Target) error {
				seen = t
				return failure
			}), nil
		},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(l.PopulateAll(), qt.IsNil)
	c.Assert(ctx.Allocate(), qt.IsNil)

	p := fx.(*postfx.PostFX)
	c.Assert(p.Target().Name(), qt.Equals, "postfx/scene")
	err = b.Do(postfx.Name, nil, func(t *target.Target) error {
		return p.Draw(0, 0, t)
	})
	c.Assert(errors.Is(err, failure), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, "postfx: scene: scene failed")
	c.Assert(seen, qt.Equals, p.Target())
	c.Assert(b.Current(), qt.Equals, b.Screen())

	req := l.Requests()
	c.Assert(req, qt.HasLen, 1)
	c.Assert(req[0].Kind, qt.Equals, resource.KindProgram)
	c.Assert(req[0].Populated, qt.Equals, true)
}

func TestBadScene(t *testing.T) {
	c := qt.New(t)
	logger, _ := test.NewNullLogger()
	dev := soft.NewDevice(soft.WithLogger(logger))
	l := loader.New(resource.NewLocator(resource.NewDirectory()), dev)
	ctx := effect.NewContext(postfx.Name, l, target.NewBinder(dev, target.Screen(dev), logger), logger)

	_, err := postfx.New(ctx, effect.Definition{Name: "scene"})
	c.Assert(errors.Is(err, effect.ErrNoConstructor), qt.Equals, true)
}
