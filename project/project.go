// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package project wires a configuration into a running set of effects:
// the resource directory, loader, binder and manager.
package project

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"text/tabwriter"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/manager"
	"github.com/devblok/korufx/resource"
	"github.com/devblok/korufx/resource/loader"
	"github.com/devblok/korufx/target"
	log "github.com/sirupsen/logrus"
)

// ErrNoEffects is returned when there is nothing to run.
var ErrNoEffects = errors.New("no effects to run")

// Option configures a Project.
type Option func(*Project)

// WithLogger sets the logger handed to every component.
func WithLogger(logger log.FieldLogger) Option {
	return func(p *Project) {
		p.log = logger
	}
}

// WithPolicy overrides the policy derived from the configuration.
func WithPolicy(policy manager.Policy) Option {
	return func(p *Project) {
		p.policy = policy
	}
}

// Project is one configured run.
type Project struct {
	Config    core.Configuration
	Directory *resource.Directory
	Locator   *resource.Locator
	Loader    *loader.Loader
	Binder    *target.Binder
	Manager   *manager.Manager
	Device    gfx.Device

	// Effects are the definitions registered, in order.
	Effects  []effect.Definition
	Timeline []manager.TimelineEntry

	log    log.FieldLogger
	policy manager.Policy
}

// Open builds a project from cfg. registry holds every effect known to
// the binary; cfg.Project.Effects selects and orders the ones run, all of
// them in registry order when empty. Nothing is constructed yet.
func Open(cfg core.Configuration, dev gfx.Device, registry []effect.Definition, opts ...Option) (*Project, error) {
	p := &Project{
		Config: cfg,
		Device: dev,
		log:    log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	selected, err := selectEffects(cfg, registry)
	if err != nil {
		return nil, err
	}
	p.Effects = selected

	if p.policy == nil {
		if p.policy, err = p.timelinePolicy(); err != nil {
			return nil, err
		}
	}

	// Every known effect gets a root so that effects constructing others
	// find their resources, selected effects first to win collisions.
	layout := resource.Layout{
		Dirs:        cfg.Resources.Dirs(),
		Archives:    cfg.Resources.Archives,
		GlobalFirst: cfg.Resources.GlobalFirst,
	}
	seen := make(map[string]bool)
	for _, def := range append(append([]effect.Definition(nil), selected...), registry...) {
		if seen[def.Name] {
			continue
		}
		seen[def.Name] = true
		if def.Dir == "" {
			def.Dir = cfg.Resources.EffectDir(def.Name)
		}
		layout.Effects = append(layout.Effects, def.Root())
	}

	if p.Directory, err = resource.Build(layout); err != nil {
		return nil, fmt.Errorf("project.Open(): %w", err)
	}
	p.Locator = resource.NewLocator(p.Directory)
	p.Loader = loader.New(p.Locator, dev, loader.WithLogger(p.log))
	p.Binder = target.NewBinder(dev, target.Screen(dev), p.log)
	p.Manager = manager.New(manager.Options{
		Loader: p.Loader,
		Binder: p.Binder,
		Policy: p.policy,
		Log:    p.log,
	})
	if err := p.Manager.Register(selected...); err != nil {
		p.Directory.Close()
		return nil, err
	}
	return p, nil
}

func selectEffects(cfg core.Configuration, registry []effect.Definition) ([]effect.Definition, error) {
	byName := make(map[string]effect.Definition, len(registry))
	for _, def := range registry {
		byName[def.Name] = def
	}

	var selected []effect.Definition
	if len(cfg.Project.Effects) == 0 {
		selected = append(selected, registry...)
	}
	for _, name := range cfg.Project.Effects {
		def, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("project.Open(): %w: %s", manager.ErrUnknownEffect, name)
		}
		selected = append(selected, def)
	}
	if len(selected) == 0 {
		return nil, ErrNoEffects
	}

	for i := range selected {
		if selected[i].Dir == "" {
			selected[i].Dir = cfg.Resources.EffectDir(selected[i].Name)
		}
	}
	return selected, nil
}

func (p *Project) timelinePolicy() (manager.Policy, error) {
	if p.Config.Project.Timeline == "" {
		if len(p.Effects) == 1 {
			return manager.Single(p.Effects[0].Name), nil
		}
		return manager.All(), nil
	}
	data, err := ioutil.ReadFile(p.Config.Project.Timeline)
	if err != nil {
		return nil, fmt.Errorf("project.Open(): timeline: %w", err)
	}
	if p.Timeline, err = manager.ParseTimeline(data); err != nil {
		return nil, err
	}
	return manager.Timeline(p.Timeline...), nil
}

// Start constructs every effect and runs the loading phase. Failures are
// logged and returned; effects that failed are faulted and the others can
// still run, so the caller decides whether to go on.
func (p *Project) Start() error {
	var errs manager.Errors
	if err := p.Manager.ConstructAll(); err != nil {
		errs = append(errs, err)
	}
	if err := p.Manager.PopulateAll(); err != nil {
		errs = append(errs, err)
	}
	ready := 0
	for _, s := range p.Manager.Effects() {
		if s.State == manager.Ready {
			ready++
		}
	}
	p.log.WithFields(log.Fields{"effects": len(p.Effects), "ready": ready}).Info("project started")
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Tick draws one frame.
func (p *Project) Tick(time, frametime float64) []*manager.DrawFault {
	return p.Manager.Tick(time, frametime)
}

// Resize follows a change of the window size.
func (p *Project) Resize(width, height int) error {
	return p.Binder.Screen().Resize(width, height)
}

// Report writes, for every requested resource, the sources that could
// serve it in search order and which one is used.
func (p *Project) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tPATH\tEFFECTS\tSOURCE")
	reqs := p.Loader.Requests()
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Kind < reqs[j].Kind })
	for _, r := range reqs {
		candidates := p.Locator.Candidates(r.Kind, r.Path)
		effects := fmt.Sprint(r.Effects)
		if len(candidates) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Kind, r.Path, effects, "MISSING")
			continue
		}
		for i, src := range candidates {
			marker := "  (shadowed)"
			if i == 0 {
				marker = ""
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s%s\n", r.Kind, r.Path, effects, src, marker)
		}
	}
	return tw.Flush()
}

// Close releases every effect, resource and archive.
func (p *Project) Close() error {
	p.Manager.Release()
	return p.Directory.Close()
}
