// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package effect

import (
	"fmt"
	"path"

	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/resource/loader"
	"github.com/devblok/korufx/target"
	log "github.com/sirupsen/logrus"
)

// NewContext creates the context an effect named name is constructed with.
func NewContext(name string, l *loader.Loader, binder *target.Binder, logger log.FieldLogger) *Context {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Context{
		name:   name,
		loader: l,
		scope:  l.Scope(name),
		device: l.Device(),
		binder: binder,
		log:    logger.WithField("effect", name),
	}
}

// Context is handed to an effect constructor and kept by the effect for
// the rest of its life. Requests made through it are attributed to the
// effect.
type Context struct {
	name   string
	loader *loader.Loader
	scope  *loader.Scope
	device gfx.Device
	binder *target.Binder
	log    *log.Entry

	owned    []*target.Target
	shared   []*target.Target
	children []*Context
}

// Name returns the effect name.
func (c *Context) Name() string {
	return c.name
}

// Local prefixes p with the effect namespace, which is how effect-local
// resources are laid out below their kind directories.
func (c *Context) Local(p string) string {
	return path.Join(c.name, p)
}

// Texture requests a texture.
func (c *Context) Texture(p string, opts ...loader.TextureOption) *loader.Texture {
	return c.scope.Texture(p, opts...)
}

// Program requests a shader program.
func (c *Context) Program(p string, opts ...loader.ProgramOption) *loader.Program {
	return c.scope.Program(p, opts...)
}

// Data requests a data file.
func (c *Context) Data(p string, format loader.DataFormat) *loader.Data {
	return c.scope.Data(p, format)
}

// Geometry requests a mesh.
func (c *Context) Geometry(p string) *loader.Geometry {
	return c.scope.Geometry(p)
}

// Target declares an offscreen target owned by the effect. Like any other
// request it is allocated in the loading phase. Zero sizes take the size
// of the screen.
func (c *Context) Target(name string, width, height int, att target.Attachments) *target.Target {
	if width == 0 && height == 0 {
		width, height = c.binder.Screen().Size()
	}
	t := target.New(c.Local(name), width, height, att)
	c.owned = append(c.owned, t)
	return t
}

// Share registers the effect as a reader of another effect's target so
// that it stays alive while this effect exists.
func (c *Context) Share(t *target.Target) *target.Target {
	c.shared = append(c.shared, t.Retain())
	return t
}

// Targets returns the targets the effect owns.
func (c *Context) Targets() []*target.Target {
	return append([]*target.Target(nil), c.owned...)
}

// Construct builds another effect to be drawn from inside this one. The
// child requests resources under its own name and lives as long as c.
func (c *Context) Construct(def Definition) (Effect, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("effect %q: child: %w", c.name, err)
	}
	child := &Context{
		name:   def.Name,
		loader: c.loader,
		scope:  c.loader.Scope(def.Name),
		device: c.device,
		binder: c.binder,
		log:    c.log.WithField("child", def.Name),
	}
	c.children = append(c.children, child)
	return def.New(child)
}

// Allocate creates the device objects of every owned target, children
// included.
func (c *Context) Allocate() error {
	for _, t := range c.owned {
		if err := t.Allocate(c.device); err != nil {
			return fmt.Errorf("effect %q: %w", c.name, err)
		}
	}
	for _, child := range c.children {
		if err := child.Allocate(); err != nil {
			return err
		}
	}
	return nil
}

// Release drops the effect's hold on every target it owns or shares.
func (c *Context) Release() {
	for _, child := range c.children {
		child.Release()
	}
	for _, t := range c.owned {
		t.Release()
	}
	for _, t := range c.shared {
		t.Release()
	}
	c.owned, c.shared, c.children = nil, nil, nil
}

// Failed returns the load failures of the effect and its children.
func (c *Context) Failed() loader.LoadErrors {
	errs := c.loader.Failed(c.name)
	for _, child := range c.children {
		errs = append(errs, child.Failed()...)
	}
	return errs
}

// Device returns the graphics device, usable at draw time.
func (c *Context) Device() gfx.Device {
	return c.device
}

// Binder returns the target binder.
func (c *Context) Binder() *target.Binder {
	return c.binder
}

// Log returns a logger carrying the effect name.
func (c *Context) Log() log.FieldLogger {
	return c.log
}

// Draw runs other inside a binding of t. Once Draw returns the contents
// of an offscreen t are complete and t.Color() can be sampled.
func (c *Context) Draw(other Effect, time, frametime float64, t *target.Target) error {
	return c.binder.Do(c.name, t, func(bound *target.Target) error {
		return other.Draw(time, frametime, bound)
	})
}
