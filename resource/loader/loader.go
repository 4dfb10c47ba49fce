// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package loader implements two-phase resource loading. Effects request
// resources while they are constructed and immediately get placeholders;
// PopulateAll later resolves, decodes and uploads every request and fills
// the very same placeholders in place.
package loader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/resource"
	log "github.com/sirupsen/logrus"
)

// ErrDecode is matched by every decode, compile or upload failure.
var ErrDecode = errors.New("decode failed")

// DecodeError wraps a failure to turn raw bytes into a device object.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying failure.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecode) hold.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func decodeErrorf(format string, args ...interface{}) error {
	return &DecodeError{Err: fmt.Errorf(format, args...)}
}

// LoadError is one failed request as seen by one requesting effect.
type LoadError struct {
	Effect string
	Kind   resource.Kind
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	reason := "failed"
	if e.Missing() {
		reason = "missing"
	} else if errors.Is(e.Err, ErrDecode) {
		reason = "decode failed"
	}
	return fmt.Sprintf("effect %q: %s %q %s: %v", e.Effect, e.Kind, e.Path, reason, e.Err)
}

// Unwrap returns the underlying failure.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Missing reports whether no search root held the resource.
func (e *LoadError) Missing() bool {
	return errors.Is(e.Err, resource.ErrResourceNotFound)
}

// LoadErrors is the aggregate returned by PopulateAll.
type LoadErrors []*LoadError

func (e LoadErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	lines := make([]string, len(e))
	for i, le := range e {
		lines[i] = "\t" + le.Error()
	}
	return fmt.Sprintf("%d resources failed to load:\n%s", len(e), strings.Join(lines, "\n"))
}

// Is reports whether any of the failures matches target.
func (e LoadErrors) Is(target error) bool {
	for _, le := range e {
		if errors.Is(le, target) {
			return true
		}
	}
	return false
}

// ForEffect returns the errors of one effect.
func (e LoadErrors) ForEffect(name string) LoadErrors {
	var out LoadErrors
	for _, le := range e {
		if le.Effect == name {
			out = append(out, le)
		}
	}
	return out
}

// placeholder is implemented by every resource handle handed out.
type placeholder interface {
	populate(l *Loader, src resource.Source) error
	release()
}

type request struct {
	kind    resource.Kind
	path    string
	key     string
	effects []string
	item    placeholder
	done    bool
	err     error
}

func (r *request) addEffect(name string) {
	for _, e := range r.effects {
		if e == name {
			return
		}
	}
	r.effects = append(r.effects, name)
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger log.FieldLogger) Option {
	return func(l *Loader) {
		l.log = logger
	}
}

// New creates a Loader resolving through locator and uploading to dev.
func New(locator *resource.Locator, dev gfx.Device, opts ...Option) *Loader {
	l := &Loader{
		locator: locator,
		device:  dev,
		log:     log.StandardLogger(),
		index:   make(map[string]*request),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Loader records requests and populates them. It is not safe for concurrent
// use; requests and population happen on the driving loop.
type Loader struct {
	locator *resource.Locator
	device  gfx.Device
	log     log.FieldLogger

	requests []*request
	index    map[string]*request
}

// Stats counts requests by state.
type Stats struct {
	Requests  int
	Populated int
	Failed    int
}

// Stats returns the current request counts.
func (l *Loader) Stats() Stats {
	s := Stats{Requests: len(l.requests)}
	for _, r := range l.requests {
		switch {
		case r.done:
			s.Populated++
		case r.err != nil:
			s.Failed++
		}
	}
	return s
}

// Scope returns the request scope of an effect.
func (l *Loader) Scope(effect string) *Scope {
	return &Scope{loader: l, effect: effect}
}

// Locator returns the locator requests are resolved with.
func (l *Loader) Locator() *resource.Locator {
	return l.locator
}

// Device returns the device resources are uploaded to.
func (l *Loader) Device() gfx.Device {
	return l.device
}

// record registers a request or returns the placeholder of an identical
// earlier one. No I/O and no device calls happen here.
func (l *Loader) record(effect string, kind resource.Kind, path, options string, create func() placeholder) placeholder {
	key := fmt.Sprintf("%s|%s|%s", kind, path, options)
	if r, ok := l.index[key]; ok {
		r.addEffect(effect)
		return r.item
	}
	r := &request{
		kind:    kind,
		path:    path,
		key:     key,
		effects: []string{effect},
		item:    create(),
	}
	l.requests = append(l.requests, r)
	l.index[key] = r
	return r.item
}

// PopulateAll resolves and loads every request that is not populated yet,
// in registration order. Failures do not stop the run; they are returned
// together as LoadErrors. Populated requests are never touched again, so
// calling PopulateAll repeatedly only retries what failed before.
func (l *Loader) PopulateAll() error {
	var errs LoadErrors
	for _, r := range l.requests {
		if r.done {
			continue
		}
		fields := log.Fields{"kind": r.kind, "path": r.path, "effects": strings.Join(r.effects, ",")}

		src, err := l.locator.Resolve(r.kind, r.path)
		if err == nil {
			err = r.item.populate(l, src)
		}
		if err != nil {
			r.err = err
			l.log.WithFields(fields).WithError(err).Error("resource load failed")
			for _, effect := range r.effects {
				errs = append(errs, &LoadError{Effect: effect, Kind: r.kind, Path: r.path, Err: err})
			}
			continue
		}

		r.done, r.err = true, nil
		l.log.WithFields(fields).WithField("source", src.String()).Debug("resource loaded")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Failed returns the outstanding failures of an effect as of the last
// PopulateAll.
func (l *Loader) Failed(effect string) LoadErrors {
	var errs LoadErrors
	for _, r := range l.requests {
		if r.done || r.err == nil {
			continue
		}
		for _, e := range r.effects {
			if e == effect {
				errs = append(errs, &LoadError{Effect: effect, Kind: r.kind, Path: r.path, Err: r.err})
			}
		}
	}
	return errs
}

// Request describes a recorded request.
type Request struct {
	Kind      resource.Kind
	Path      string
	Effects   []string
	Populated bool
	Err       error
}

// Requests lists the recorded requests in registration order.
func (l *Loader) Requests() []Request {
	out := make([]Request, len(l.requests))
	for i, r := range l.requests {
		out[i] = Request{
			Kind:      r.kind,
			Path:      r.path,
			Effects:   append([]string(nil), r.effects...),
			Populated: r.done,
			Err:       r.err,
		}
	}
	return out
}

// Release frees every populated device object. Released requests count
// as unpopulated again, so releasing twice frees nothing twice.
func (l *Loader) Release() {
	for _, r := range l.requests {
		if r.done {
			r.item.release()
			r.done = false
		}
	}
}

// Scope issues requests on behalf of one effect.
type Scope struct {
	loader *Loader
	effect string
}

// Effect returns the name requests are attributed to.
func (s *Scope) Effect() string {
	return s.effect
}

// Texture requests a texture.
func (s *Scope) Texture(path string, opts ...TextureOption) *Texture {
	o := defaultTextureOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.normalise()
	return s.loader.record(s.effect, resource.KindTexture, path, o.String(), func() placeholder {
		return &Texture{path: path, opts: o}
	}).(*Texture)
}

// Program requests a shader program.
func (s *Scope) Program(path string, opts ...ProgramOption) *Program {
	var o programOptions
	for _, opt := range opts {
		opt(&o)
	}
	return s.loader.record(s.effect, resource.KindProgram, path, o.String(), func() placeholder {
		return &Program{path: path, opts: o}
	}).(*Program)
}

// Data requests a data file.
func (s *Scope) Data(path string, format DataFormat) *Data {
	return s.loader.record(s.effect, resource.KindData, path, format.String(), func() placeholder {
		return &Data{path: path, format: format}
	}).(*Data)
}

// Geometry requests a mesh.
func (s *Scope) Geometry(path string) *Geometry {
	return s.loader.record(s.effect, resource.KindGeometry, path, "", func() placeholder {
		return &Geometry{path: path}
	}).(*Geometry)
}
