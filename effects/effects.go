// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package effects collects the effects shipped with the runtime.
package effects

import (
	"github.com/devblok/korufx/effect"
	"github.com/devblok/korufx/effects/fill"
	"github.com/devblok/korufx/effects/postfx"
)

// Builtin returns the definitions of the shipped effects.
func Builtin() []effect.Definition {
	return []effect.Definition{
		fill.Definition(),
		postfx.Definition(fill.Definition()),
	}
}
