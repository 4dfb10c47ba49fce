// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/devblok/korufx/utility/kar"
)

// NewDirectory creates an empty virtual directory.
func NewDirectory() *Directory {
	return &Directory{
		roots: make(map[Kind][]Root),
	}
}

// Directory holds the ordered search roots of every kind. It is built once
// at startup and frozen before the first lookup; afterwards it is read only
// and needs no locking.
type Directory struct {
	roots   map[Kind][]Root
	frozen  bool
	closers []io.Closer
}

// Register appends root to the search roots of kind. Registering into a
// frozen directory is a programming error and panics.
func (d *Directory) Register(kind Kind, root Root) {
	if d.frozen {
		panic(fmt.Sprintf("resource: register %s root %s on a frozen directory", kind, root))
	}
	d.roots[kind] = append(d.roots[kind], root)
}

// Freeze ends registration.
func (d *Directory) Freeze() {
	d.frozen = true
}

// Frozen reports whether Freeze was called.
func (d *Directory) Frozen() bool {
	return d.frozen
}

// Roots returns the search roots of kind in registration order.
func (d *Directory) Roots(kind Kind) []Root {
	roots := make([]Root, len(d.roots[kind]))
	copy(roots, d.roots[kind])
	return roots
}

// Close releases archives opened by Build.
func (d *Directory) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.closers = nil
	return first
}

// EffectRoot is the resource location of one effect. Dir is a directory on
// disk, Box an embedded box; either may be empty. Kind sub-directories
// (textures, shaders, ...) are expected below both.
type EffectRoot struct {
	Effect string
	Dir    string
	Box    Box
}

// Layout is the externally supplied, already ordered description of where
// resources live.
type Layout struct {

	// Dirs are project-global directories per kind.
	Dirs map[Kind][]string

	// Archives are kar archives holding kind sub-directories.
	Archives []string

	// Effects are effect-local locations in effect registration order.
	Effects []EffectRoot

	// GlobalFirst registers project-global roots before effect-local
	// ones so that global resources shadow local ones.
	GlobalFirst bool
}

// Build creates a frozen directory from a layout. For every kind the
// registration order is: global dirs, archives, effect roots, with the
// effect roots moved to the front when GlobalFirst is false.
func Build(layout Layout) (*Directory, error) {
	d := NewDirectory()

	var archives []*kar.File
	for _, p := range layout.Archives {
		f, err := kar.OpenFile(p)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("resource.Build(): archive %s: %w", p, err)
		}
		archives = append(archives, f)
		d.closers = append(d.closers, f)
	}

	for _, kind := range Kinds {
		var global, local []Root
		for _, dir := range layout.Dirs[kind] {
			global = append(global, DirRoot(dir))
		}
		for i, f := range archives {
			global = append(global, NewArchiveRoot(layout.Archives[i], f.Archive, kind.Dir()))
		}
		for _, e := range layout.Effects {
			if e.Dir != "" {
				local = append(local, DirRoot(filepath.Join(e.Dir, kind.Dir())))
			}
			if e.Box != nil {
				local = append(local, NewBoxRoot(e.Effect, e.Box, kind.Dir()))
			}
		}

		ordered := append(global, local...)
		if !layout.GlobalFirst {
			ordered = append(append([]Root(nil), local...), global...)
		}
		for _, root := range ordered {
			d.Register(kind, root)
		}
	}

	d.Freeze()
	return d, nil
}
