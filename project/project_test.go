// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package project_test

import (
	"bytes"
	"errors"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/effects"
	"github.com/devblok/korufx/effects/fill"
	"github.com/devblok/korufx/effects/postfx"
	"github.com/devblok/korufx/gfx/soft"
	"github.com/devblok/korufx/manager"
	"github.com/devblok/korufx/project"
	"github.com/devblok/korufx/target"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus/hooks/test"
)

func config(effects ...string) core.Configuration {
	cfg := core.DefaultConfiguration()
	cfg.Resources.EffectsDir = ""
	cfg.Project.Effects = effects
	return cfg
}

func open(c *qt.C, cfg core.Configuration, registry []effect.Definition) (*project.Project, *soft.Device) {
	logger, _ := test.NewNullLogger()
	dev := soft.NewDevice(soft.WithLogger(logger), soft.WithScreenSize(32, 24))
	p, err := project.Open(cfg, dev, registry, project.WithLogger(logger))
	c.Assert(err, qt.IsNil)
	return p, dev
}

func TestPostFXOverFill(t *testing.T) {
	c := qt.New(t)
	p, dev := open(c, config(postfx.Name), effects.Builtin())
	defer p.Close()

	c.Assert(p.Start(), qt.IsNil)
	c.Assert(p.Manager.State(postfx.Name), qt.Equals, manager.Ready)
	c.Assert(p.Manager.State(fill.Name), qt.Equals, manager.Unregistered)

	c.Assert(p.Tick(0, 1.0/60), qt.HasLen, 0)
	c.Assert(dev.ScreenImage().RGBAAt(16, 12), qt.Equals, color.RGBA{12, 18, 40, 255})

	fx, _, ok := p.Manager.Effect(postfx.Name)
	c.Assert(ok, qt.Equals, true)
	scene := fx.(*postfx.PostFX).Target()
	c.Assert(dev.Pixels(scene.Color()).RGBAAt(0, 0), qt.Equals, color.RGBA{12, 18, 40, 255})
	c.Assert(p.Binder.Current(), qt.Equals, p.Binder.Screen())
}

func TestSelectsAllEffectsByDefault(t *testing.T) {
	c := qt.New(t)
	p, _ := open(c, config(), effects.Builtin())
	defer p.Close()

	c.Assert(p.Effects, qt.HasLen, 2)
	c.Assert(p.Start(), qt.IsNil)
	c.Assert(p.Tick(1, 0.1), qt.HasLen, 0)
	c.Assert(p.Manager.State(fill.Name), qt.Equals, manager.Active)
	c.Assert(p.Manager.State(postfx.Name), qt.Equals, manager.Active)
}

func TestUnknownEffect(t *testing.T) {
	c := qt.New(t)
	_, err := project.Open(config("tunnel"), soft.NewDevice(), effects.Builtin())
	c.Assert(errors.Is(err, manager.ErrUnknownEffect), qt.Equals, true)

	_, err = project.Open(config(), soft.NewDevice(), nil)
	c.Assert(err, qt.Equals, project.ErrNoEffects)
}

func TestTimelineAndEffectDirs(t *testing.T) {
	c := qt.New(t)
	dir, err := ioutil.TempDir("", "project-test")
	c.Assert(err, qt.IsNil)
	defer os.RemoveAll(dir)

	// An effect directory on disk overrides the embedded palette.
	palette := filepath.Join(dir, "effects", "fill", "data", "fill", "palette.json")
	c.Assert(os.MkdirAll(filepath.Dir(palette), 0755), qt.IsNil)
	c.Assert(ioutil.WriteFile(palette, []byte(`{"period": 2, "colors": [[255, 0, 0, 255]]}`), 0644), qt.IsNil)

	timeline := filepath.Join(dir, "timeline.json")
	c.Assert(ioutil.WriteFile(timeline, []byte(`[{"effect": "fill", "start": 0, "end": 5}]`), 0644), qt.IsNil)

	cfg := config(fill.Name)
	cfg.Resources.EffectsDir = filepath.Join(dir, "effects")
	cfg.Project.Timeline = timeline

	p, dev := open(c, cfg, effects.Builtin())
	defer p.Close()
	c.Assert(p.Timeline, qt.HasLen, 1)
	c.Assert(p.Effects[0].Dir, qt.Equals, filepath.Join(dir, "effects", "fill"))
	c.Assert(p.Start(), qt.IsNil)

	p.Tick(1, 0.1)
	c.Assert(dev.ScreenImage().RGBAAt(0, 0), qt.Equals, color.RGBA{255, 0, 0, 255})
	c.Assert(dev.Stats().Clears, qt.Equals, 1)

	p.Tick(6, 0.1)
	c.Assert(dev.Stats().Clears, qt.Equals, 1)
	c.Assert(p.Manager.State(fill.Name), qt.Equals, manager.Ready)

	var out bytes.Buffer
	c.Assert(p.Report(&out), qt.IsNil)
	c.Assert(out.String(), qt.Matches, `(?s)KIND +PATH +EFFECTS +SOURCE\ndata +fill/palette.json +\[fill\] +`+regexp.QuoteMeta(palette)+`\n.*\(shadowed\)\n`)
}

func TestStartReportsFailures(t *testing.T) {
	c := qt.New(t)
	broken := effect.Definition{
		Name: "broken",
		New: func(ctx *effect.Context) (effect.Effect, error) {
			ctx.Texture(ctx.Local("missing.png"))
			return effect.DrawFunc(func(float64, float64, *target.Target) error { return nil }), nil
		},
	}
	p, _ := open(c, config("broken", fill.Name), append(effects.Builtin(), broken))
	defer p.Close()

	err := p.Start()
	c.Assert(err, qt.ErrorMatches, `effect "broken": texture "broken/missing.png" missing: .*`)
	c.Assert(p.Manager.State("broken"), qt.Equals, manager.Faulted)
	c.Assert(p.Manager.State(fill.Name), qt.Equals, manager.Ready)

	var out bytes.Buffer
	c.Assert(p.Report(&out), qt.IsNil)
	c.Assert(out.String(), qt.Matches, `(?s).*texture +broken/missing.png +\[broken\] +MISSING\n.*`)
}

func TestResize(t *testing.T) {
	c := qt.New(t)
	p, dev := open(c, config(fill.Name), effects.Builtin())
	defer p.Close()
	c.Assert(p.Start(), qt.IsNil)

	dev.ResizeScreen(64, 48)
	c.Assert(p.Resize(64, 48), qt.IsNil)
	c.Assert(p.Tick(0, 0), qt.HasLen, 0)
	c.Assert(dev.ScreenImage().RGBAAt(63, 47), qt.Equals, color.RGBA{12, 18, 40, 255})
}
