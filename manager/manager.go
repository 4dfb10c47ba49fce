// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package manager drives effects through their life: construction, the
// loading phase and per tick drawing, with faults isolated per effect.
package manager

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/resource/loader"
	"github.com/devblok/korufx/target"
	log "github.com/sirupsen/logrus"
)

// package errors
var (
	ErrEffectDrawFault = errors.New("effect draw fault")
	ErrConstruct       = errors.New("effect construction failed")
	ErrDuplicate       = errors.New("effect already registered")
	ErrUnknownEffect   = errors.New("unknown effect")
)

// State is the life cycle state of an effect.
type State int

// Effect states. A registered effect that has not been constructed yet
// reports Unregistered, as does a name the manager does not know.
const (
	Unregistered State = iota
	Constructed
	Ready
	Active
	Faulted
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Ready:
		return "ready"
	case Active:
		return "active"
	case Faulted:
		return "faulted"
	}
	return "unregistered"
}

// DrawFault is a failure inside the draw of one effect on one tick.
type DrawFault struct {
	Effect string
	Tick   uint64
	Err    error
}

func (f *DrawFault) Error() string {
	return fmt.Sprintf("effect %q faulted on tick %d: %v", f.Effect, f.Tick, f.Err)
}

// Unwrap returns the underlying failure.
func (f *DrawFault) Unwrap() error {
	return f.Err
}

// Is makes errors.Is(err, ErrEffectDrawFault) hold.
func (f *DrawFault) Is(target error) bool {
	return target == ErrEffectDrawFault
}

// PanicError carries a value recovered from an effect.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// ConstructError is a failed effect constructor.
type ConstructError struct {
	Effect string
	Err    error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("effect %q: %v", e.Effect, e.Err)
}

// Unwrap returns the underlying failure.
func (e *ConstructError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConstruct) hold.
func (e *ConstructError) Is(target error) bool {
	return target == ErrConstruct
}

// Errors is a list of independent failures.
type Errors []error

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = "\t" + err.Error()
	}
	return fmt.Sprintf("%d errors:\n%s", len(e), strings.Join(lines, "\n"))
}

// Is reports whether any of the errors matches target.
func (e Errors) Is(target error) bool {
	for _, err := range e {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As finds the first error that matches target.
func (e Errors) As(target interface{}) bool {
	for _, err := range e {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// Options configures a Manager.
type Options struct {
	Loader *loader.Loader
	Binder *target.Binder
	Policy Policy
	Log    log.FieldLogger
}

// Status describes one effect.
type Status struct {
	Name   string
	State  State
	Reason error
}

type entry struct {
	def     effect.Definition
	state   State
	ctx     *effect.Context
	effect  effect.Effect
	reason  error
	loading bool
}

func (e *entry) fault(reason error, loading bool) {
	e.state, e.reason, e.loading = Faulted, reason, loading
}

// New creates a manager. A nil policy draws every ready effect.
func New(opts Options) *Manager {
	if opts.Log == nil {
		opts.Log = log.StandardLogger()
	}
	if opts.Policy == nil {
		opts.Policy = All()
	}
	return &Manager{
		loader: opts.Loader,
		binder: opts.Binder,
		policy: opts.Policy,
		log:    opts.Log,
		index:  make(map[string]*entry),
	}
}

// Manager owns the registered effects. It is driven from a single loop:
// ConstructAll, then PopulateAll, then Tick for every frame.
type Manager struct {
	loader *loader.Loader
	binder *target.Binder
	policy Policy
	log    log.FieldLogger

	entries []*entry
	index   map[string]*entry
	ticks   uint64
}

// Register adds effect definitions in order. Registration order is the
// order of construction, loading and of the ready list policies see.
func (m *Manager) Register(defs ...effect.Definition) error {
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("manager.Register(%s): %w", def.Name, err)
		}
		if _, ok := m.index[def.Name]; ok {
			return fmt.Errorf("manager.Register(%s): %w", def.Name, ErrDuplicate)
		}
		e := &entry{def: def, state: Unregistered}
		m.entries = append(m.entries, e)
		m.index[def.Name] = e
	}
	return nil
}

// Unregister destroys an effect and releases its targets.
func (m *Manager) Unregister(name string) error {
	e, ok := m.index[name]
	if !ok {
		return fmt.Errorf("manager.Unregister(%s): %w", name, ErrUnknownEffect)
	}
	m.destroy(e)
	delete(m.index, name)
	for i := range m.entries {
		if m.entries[i] == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.log.WithField("effect", name).Debug("effect unregistered")
	return nil
}

func (m *Manager) destroy(e *entry) {
	if r, ok := e.effect.(effect.Releaser); ok {
		r.Release()
	}
	if e.ctx != nil {
		e.ctx.Release()
	}
	e.effect, e.ctx = nil, nil
}

// ConstructAll constructs every registered effect that was not constructed
// yet. A constructor error or panic faults that effect only; the failures
// are returned together.
func (m *Manager) ConstructAll() error {
	var errs Errors
	for _, e := range m.entries {
		if e.state != Unregistered {
			continue
		}
		fields := log.Fields{"effect": e.def.Name}
		if err := m.construct(e); err != nil {
			cerr := &ConstructError{Effect: e.def.Name, Err: err}
			e.fault(cerr, false)
			errs = append(errs, cerr)
			m.log.WithFields(fields).WithError(err).Error("effect construction failed")
			continue
		}
		e.state = Constructed
		m.log.WithFields(fields).Debug("effect constructed")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (m *Manager) construct(e *entry) (err error) {
	ctx := effect.NewContext(e.def.Name, m.loader, m.binder, m.log)
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			ctx.Release()
		}
	}()

	fx, err := e.def.New(ctx)
	if err != nil {
		return err
	}
	if fx == nil {
		return errors.New("constructor returned no effect")
	}
	e.ctx, e.effect = ctx, fx
	return nil
}

// PopulateAll runs the loading phase: it allocates the offscreen targets
// of constructed effects and populates every resource request. Effects
// with any failed request or target are faulted and never drawn; the rest
// become ready. Effects faulted by an earlier load become ready once a
// retry succeeds. The failures are returned together.
func (m *Manager) PopulateAll() error {
	var errs Errors
	pending := make(map[*entry]bool)
	for _, e := range m.entries {
		switch {
		case e.state == Constructed, e.state == Faulted && e.loading:
			pending[e] = true
		default:
			continue
		}
		if err := e.ctx.Allocate(); err != nil {
			delete(pending, e)
			e.fault(err, true)
			errs = append(errs, err)
			m.log.WithField("effect", e.def.Name).WithError(err).Error("render target allocation failed")
		}
	}

	if err := m.loader.PopulateAll(); err != nil {
		errs = append(errs, err)
	}

	for _, e := range m.entries {
		if !pending[e] {
			continue
		}
		if failed := e.ctx.Failed(); len(failed) > 0 {
			e.fault(failed, true)
			m.log.WithFields(log.Fields{"effect": e.def.Name, "failures": len(failed)}).Warn("effect faulted by load failures")
			continue
		}
		e.state, e.reason, e.loading = Ready, nil, false
		m.log.WithField("effect", e.def.Name).Debug("effect ready")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Tick draws the effects the policy selects for this tick, each inside a
// binding of its target. A failing or panicking draw faults that effect
// and is returned; the other effects are drawn regardless. A selection
// whose target cannot be bound is skipped for this tick only, the effect
// stays ready.
func (m *Manager) Tick(time, frametime float64) []*DrawFault {
	m.ticks++
	tc := TickContext{
		Tick:      m.ticks,
		Time:      time,
		FrameTime: frametime,
	}
	for _, e := range m.entries {
		if e.state == Active {
			e.state = Ready
		}
		if e.state == Ready {
			tc.Ready = append(tc.Ready, e.def.Name)
		}
	}

	var faults []*DrawFault
	for _, sel := range m.policy.SelectActive(tc) {
		e, ok := m.index[sel.Effect]
		if !ok || e.state != Ready {
			continue
		}
		fields := log.Fields{"effect": e.def.Name, "tick": m.ticks, "time": time}

		release, err := m.binder.Bind(e.def.Name, sel.Target)
		if err != nil {
			m.log.WithFields(fields).WithError(err).Warn("effect skipped, render target not bindable")
			continue
		}
		e.state = Active
		if err := m.draw(e, release, time, frametime); err != nil {
			fault := &DrawFault{Effect: e.def.Name, Tick: m.ticks, Err: err}
			e.fault(fault, false)
			faults = append(faults, fault)

			l := m.log.WithFields(fields).WithError(err)
			if p, ok := err.(*PanicError); ok {
				l = l.WithField("stack", string(p.Stack))
			}
			l.Error("effect draw faulted")
		}
	}
	return faults
}

// draw runs the draw of e into the bound target and releases the binding
// however the draw exits.
func (m *Manager) draw(e *entry, release func(), time, frametime float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	defer release()
	return e.effect.Draw(time, frametime, m.binder.Current())
}

// State returns the state of an effect.
func (m *Manager) State(name string) State {
	if e, ok := m.index[name]; ok {
		return e.state
	}
	return Unregistered
}

// Effects returns the status of every effect in registration order.
func (m *Manager) Effects() []Status {
	out := make([]Status, len(m.entries))
	for i, e := range m.entries {
		out[i] = Status{Name: e.def.Name, State: e.state, Reason: e.reason}
	}
	return out
}

// Effect returns a constructed effect and its context.
func (m *Manager) Effect(name string) (effect.Effect, *effect.Context, bool) {
	e, ok := m.index[name]
	if !ok || e.effect == nil {
		return nil, nil, false
	}
	return e.effect, e.ctx, true
}

// Ticks returns the number of ticks run.
func (m *Manager) Ticks() uint64 {
	return m.ticks
}

// SetPolicy replaces the policy from the next tick on.
func (m *Manager) SetPolicy(p Policy) {
	m.policy = p
}

// Release destroys every effect and frees all loaded resources.
func (m *Manager) Release() {
	for _, e := range m.entries {
		m.destroy(e)
	}
	m.loader.Release()
}
