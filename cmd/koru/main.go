// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command koru runs effects in a window. With -list it only reports where
// every requested resource resolves.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/effects"
	"github.com/devblok/korufx/gfx/soft"
	"github.com/devblok/korufx/manager"
	"github.com/devblok/korufx/project"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

type options struct {
	list    bool
	verbose bool
	strict  bool
	seek    time.Duration
}

// configure reads the environment, an optional .env file and the flags,
// the flags taking precedence.
func configure(args []string, stderr io.Writer) (core.Configuration, options, error) {
	var (
		opts     options
		envFile  string
		effectsF string
		timeline string
		fps      int
		width    int
		height   int
	)
	fs := flag.NewFlagSet("koru", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&envFile, "env", ".env", "Project environment file, ignored when missing")
	fs.StringVar(&effectsF, "effect", "", "Comma separated effects to run, in registration order")
	fs.StringVar(&timeline, "timeline", "", "JSON timeline selecting effects by time")
	fs.IntVar(&fps, "fps", -1, "Frames per second, 0 for unlimited")
	fs.IntVar(&width, "width", 0, "Window width")
	fs.IntVar(&height, "height", 0, "Window height")
	fs.BoolVar(&opts.list, "list", false, "List where every requested resource resolves and exit")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&opts.strict, "strict", false, "Exit when any resource fails to load")
	fs.DurationVar(&opts.seek, "seek", time.Second, "Step of the seek keys")
	if err := fs.Parse(args); err != nil {
		return core.Configuration{}, opts, err
	}
	if fs.NArg() > 0 {
		return core.Configuration{}, opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := core.LoadEnvFile(envFile); err != nil {
			return core.Configuration{}, opts, err
		}
	}
	cfg, err := core.ConfigurationFromEnv()
	if err != nil {
		return cfg, opts, err
	}

	if effectsF != "" {
		cfg.Project.Effects = strings.Split(effectsF, ",")
	}
	if timeline != "" {
		cfg.Project.Timeline = timeline
	}
	if fps >= 0 {
		cfg.Time.FramesPerSecond = fps
	}
	if width > 0 {
		cfg.Window.Width = width
	}
	if height > 0 {
		cfg.Window.Height = height
	}
	return cfg, opts, cfg.Validate()
}

func main() {
	cfg, opts, err := configure(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	} else if err != nil {
		log.WithError(err).Fatal("configuration failed")
	}
	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}

	logger := log.StandardLogger()
	dev := soft.NewDevice(soft.WithLogger(logger), soft.WithScreenSize(cfg.Window.Width, cfg.Window.Height))
	p, err := project.Open(cfg, dev, effects.Builtin(), project.WithLogger(logger))
	if err != nil {
		log.WithError(err).Fatal("project setup failed")
	}
	defer p.Close()

	startErr := p.Start()
	if opts.list {
		if err := p.Report(os.Stdout); err != nil {
			log.WithError(err).Fatal("report failed")
		}
		return
	}
	if startErr != nil {
		if opts.strict {
			log.WithError(startErr).Fatal("loading failed")
		}
		log.WithError(startErr).Warn("running with faulted effects")
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.WithError(err).Fatal("sdl init failed")
	}
	defer sdl.Quit()

	w, err := newWindow(cfg.Window, dev)
	if err != nil {
		log.WithError(err).Fatal("window creation failed")
	}
	defer w.Destroy()

	loop(p, w, cfg, opts)
}

func loop(p *project.Project, w *window, cfg core.Configuration, opts options) {
	tm := core.NewTime(cfg.Time)
	defer tm.Stop()
	timer := core.NewTimer(nil)
	timer.Start()

	resize := func(width, height int) {
		if err := w.Resize(width, height); err != nil {
			log.WithError(err).Error("window resize failed")
		}
		if err := p.Resize(width, height); err != nil {
			log.WithError(err).Error("screen target resize failed")
		}
	}

EventLoop:
	for {
		select {
		case <-tm.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				if handle(event, timer, opts.seek, resize) {
					break EventLoop
				}
			}
		case <-tm.FpsTicker().C:
			for _, fault := range p.Tick(timer.Time(), tm.FrameTime()) {
				log.WithField("effect", fault.Effect).Warn("effect disabled for the rest of the run")
			}
			if err := w.Present(); err != nil {
				log.WithError(err).Error("present failed")
			}
			if finished(p.Timeline, timer.Time()) {
				break EventLoop
			}
		}
	}
	log.Info("event loop exited")
}

// handle applies one window event and reports whether the run should end.
func handle(event sdl.Event, timer *core.Timer, seek time.Duration, resize func(width, height int)) bool {
	switch et := event.(type) {
	case *sdl.KeyboardEvent:
		if et.Type != sdl.KEYDOWN {
			return false
		}
		switch et.Keysym.Sym {
		case sdl.K_ESCAPE:
			return true
		case sdl.K_SPACE:
			timer.Toggle()
		case sdl.K_LEFT:
			timer.Seek(-seek)
		case sdl.K_RIGHT:
			timer.Seek(seek)
		case sdl.K_HOME:
			timer.SeekTo(0)
		}
	case *sdl.WindowEvent:
		if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			resize(int(et.Data1), int(et.Data2))
		}
	case *sdl.QuitEvent:
		return true
	}
	return false
}

// finished reports whether a timeline run has played to its end.
func finished(timeline []manager.TimelineEntry, now float64) bool {
	return len(timeline) > 0 && now >= manager.Duration(timeline)
}
