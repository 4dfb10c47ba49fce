// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"

	"github.com/devblok/korufx/core"
	"github.com/devblok/korufx/gfx/soft"
	"github.com/veandco/go-sdl2/sdl"
)

// window presents the software device screen through an SDL streaming
// texture.
type window struct {
	sdlWindow *sdl.Window
	renderer  *sdl.Renderer
	texture   *sdl.Texture
	device    *soft.Device
}

func newWindow(cfg core.WindowConfiguration, dev *soft.Device) (*window, error) {
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}
	sdlWindow, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags)
	if err != nil {
		return nil, err
	}
	renderer, err := sdl.CreateRenderer(sdlWindow, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		sdlWindow.Destroy()
		return nil, err
	}
	w := &window{sdlWindow: sdlWindow, renderer: renderer, device: dev}
	if err := w.createTexture(cfg.Width, cfg.Height); err != nil {
		w.Destroy()
		return nil, err
	}
	return w, nil
}

func (w *window) createTexture(width, height int) error {
	if w.texture != nil {
		w.texture.Destroy()
	}
	tex, err := w.renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
	if err != nil {
		return fmt.Errorf("window texture %dx%d: %v", width, height, err)
	}
	w.texture = tex
	return nil
}

// Resize reallocates the device screen and the streaming texture.
func (w *window) Resize(width, height int) error {
	w.device.ResizeScreen(width, height)
	return w.createTexture(width, height)
}

// Present copies the device screen to the window.
func (w *window) Present() error {
	img := w.device.ScreenImage()
	if err := w.texture.Update(nil, img.Pix, img.Stride); err != nil {
		return err
	}
	if err := w.renderer.Clear(); err != nil {
		return err
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return err
	}
	w.renderer.Present()
	return nil
}

// Destroy frees the SDL objects.
func (w *window) Destroy() {
	if w.texture != nil {
		w.texture.Destroy()
	}
	w.renderer.Destroy()
	w.sdlWindow.Destroy()
}
