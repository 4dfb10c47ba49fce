// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/devblok/korufx/resource"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

// Environment variables read by ConfigurationFromEnv. List values are
// separated by os.PathListSeparator.
const (
	EnvProjectName = "KORU_PROJECT"
	EnvEffects     = "KORU_EFFECTS"
	EnvTimeline    = "KORU_TIMELINE"
	EnvFPS         = "KORU_FPS"
	EnvPollDelay   = "KORU_EVENT_POLL_DELAY"
	EnvTitle       = "KORU_WINDOW_TITLE"
	EnvWidth       = "KORU_WINDOW_WIDTH"
	EnvHeight      = "KORU_WINDOW_HEIGHT"
	EnvFullscreen  = "KORU_FULLSCREEN"
	EnvEffectsDir  = "KORU_EFFECTS_DIR"
	EnvArchives    = "KORU_ARCHIVES"
	EnvGlobalFirst = "KORU_GLOBAL_FIRST"
	EnvTextures    = "KORU_TEXTURES"
	EnvShaders     = "KORU_SHADERS"
	EnvData        = "KORU_DATA"
	EnvGeometry    = "KORU_GEOMETRY"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Project   ProjectConfiguration
	Time      TimeConfiguration
	Window    WindowConfiguration
	Resources ResourceConfiguration
}

// ProjectConfiguration names what is run
type ProjectConfiguration struct {
	Name string

	// Effects are registered in this order, which decides resource
	// collisions between effects.
	Effects []string

	// Timeline is a JSON file of timeline entries. Without one a single
	// effect runs alone and several are all drawn every tick.
	Timeline string
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between window event polls in
	// milliseconds
	EventPollDelay int
}

// WindowConfiguration is used to configure the window
type WindowConfiguration struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
}

// ResourceConfiguration lists where resources are searched for
type ResourceConfiguration struct {
	Textures []string
	Shaders  []string
	Data     []string
	Geometry []string
	Archives []string

	// EffectsDir holds one directory per effect, named like the effect.
	EffectsDir string

	// GlobalFirst lets project-global resources shadow effect-local ones.
	GlobalFirst bool
}

// DefaultConfiguration returns the configuration used when nothing is set
func DefaultConfiguration() Configuration {
	return Configuration{
		Project: ProjectConfiguration{
			Name: "koru",
		},
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  16,
		},
		Window: WindowConfiguration{
			Title:  "Koru3D",
			Width:  1280,
			Height: 720,
		},
		Resources: ResourceConfiguration{
			EffectsDir:  "effects",
			GlobalFirst: true,
		},
	}
}

// Dirs returns the global directories per resource kind.
func (r ResourceConfiguration) Dirs() map[resource.Kind][]string {
	return map[resource.Kind][]string{
		resource.KindTexture:  r.Textures,
		resource.KindProgram:  r.Shaders,
		resource.KindData:     r.Data,
		resource.KindGeometry: r.Geometry,
	}
}

// EffectDir returns the local directory of an effect, or "" when there is
// none on disk.
func (r ResourceConfiguration) EffectDir(effect string) string {
	if r.EffectsDir == "" {
		return ""
	}
	dir := filepath.Join(r.EffectsDir, effect)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return ""
	}
	return dir
}

// LoadEnvFile reads a project .env file into the environment seen by
// ConfigurationFromEnv. Variables already set in the process environment
// take precedence.
func LoadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("core.LoadEnvFile(%s): %w", path, err)
	}
	for k, v := range values {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		envy.Set(k, v)
	}
	return nil
}

// ConfigurationFromEnv overlays the KORU_* variables on the defaults.
func ConfigurationFromEnv() (Configuration, error) {
	cfg := DefaultConfiguration()
	var err error

	cfg.Project.Name = envy.Get(EnvProjectName, cfg.Project.Name)
	cfg.Project.Effects = list(EnvEffects)
	cfg.Project.Timeline = envy.Get(EnvTimeline, "")

	if cfg.Time.FramesPerSecond, err = integer(EnvFPS, cfg.Time.FramesPerSecond); err != nil {
		return cfg, err
	}
	if cfg.Time.EventPollDelay, err = integer(EnvPollDelay, cfg.Time.EventPollDelay); err != nil {
		return cfg, err
	}

	cfg.Window.Title = envy.Get(EnvTitle, cfg.Window.Title)
	if cfg.Window.Width, err = integer(EnvWidth, cfg.Window.Width); err != nil {
		return cfg, err
	}
	if cfg.Window.Height, err = integer(EnvHeight, cfg.Window.Height); err != nil {
		return cfg, err
	}
	if cfg.Window.Fullscreen, err = boolean(EnvFullscreen, cfg.Window.Fullscreen); err != nil {
		return cfg, err
	}

	cfg.Resources.EffectsDir = envy.Get(EnvEffectsDir, cfg.Resources.EffectsDir)
	cfg.Resources.Archives = list(EnvArchives)
	cfg.Resources.Textures = list(EnvTextures)
	cfg.Resources.Shaders = list(EnvShaders)
	cfg.Resources.Data = list(EnvData)
	cfg.Resources.Geometry = list(EnvGeometry)
	if cfg.Resources.GlobalFirst, err = boolean(EnvGlobalFirst, cfg.Resources.GlobalFirst); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values nothing can run with.
func (c Configuration) Validate() error {
	switch {
	case c.Time.FramesPerSecond < 0:
		return fmt.Errorf("core: negative frames per second %d", c.Time.FramesPerSecond)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("core: bad window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return nil
}

func list(key string) []string {
	v := envy.Get(key, "")
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, string(os.PathListSeparator)) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func integer(key string, def int) (int, error) {
	v := envy.Get(key, "")
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("core: %s: %w", key, err)
	}
	return i, nil
}

func boolean(key string, def bool) (bool, error) {
	v := envy.Get(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("core: %s: %w", key, err)
	}
	return b, nil
}
