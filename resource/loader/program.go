// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/devblok/korufx/gfx"
	"github.com/devblok/korufx/resource"
)

const spirvSuffix = ".spv"

// stageDefines are the markers of stages in single file programs.
var stageDefines = []struct {
	stage  gfx.Stage
	define string
}{
	{gfx.StageVertex, "VERTEX_SHADER"},
	{gfx.StageFragment, "FRAGMENT_SHADER"},
	{gfx.StageGeometry, "GEOMETRY_SHADER"},
}

// ProgramOption configures a program request.
type ProgramOption func(*programOptions)

type programOptions struct {
	fragment string
	geometry string
}

func (o programOptions) String() string {
	return fmt.Sprintf("frag=%s geom=%s", o.fragment, o.geometry)
}

// FragmentStage loads the fragment stage from its own file. The requested
// path is then the vertex stage.
func FragmentStage(path string) ProgramOption {
	return func(o *programOptions) {
		o.fragment = path
	}
}

// GeometryStage loads the geometry stage from its own file.
func GeometryStage(path string) ProgramOption {
	return func(o *programOptions) {
		o.geometry = path
	}
}

// Program is the placeholder of a shader program request.
type Program struct {
	path string
	opts programOptions

	program gfx.Program
}

// Path returns the requested logical path.
func (p *Program) Path() string {
	return p.path
}

// Ready reports whether the program has been populated.
func (p *Program) Ready() bool {
	return p.program != nil
}

// Get returns the device program, nil until populated.
func (p *Program) Get() gfx.Program {
	return p.program
}

func (p *Program) populate(l *Loader, src resource.Source) error {
	desc := gfx.ProgramDesc{
		Name:    p.path,
		Sources: make(map[gfx.Stage][]byte),
	}

	if p.opts.fragment == "" && p.opts.geometry == "" {
		data, err := resource.ReadAll(src)
		if err != nil {
			return err
		}
		if strings.HasSuffix(p.path, spirvSuffix) {
			stage, err := spirvStage(p.path)
			if err != nil {
				return &DecodeError{Err: err}
			}
			desc.Binary = true
			desc.Sources[stage] = data
		} else if err := splitStages(data, desc.Sources); err != nil {
			return decodeErrorf("%s: %v", src, err)
		}
	} else {
		stages := []struct {
			stage gfx.Stage
			path  string
		}{
			{gfx.StageVertex, p.path},
			{gfx.StageFragment, p.opts.fragment},
			{gfx.StageGeometry, p.opts.geometry},
		}
		desc.Binary = strings.HasSuffix(p.path, spirvSuffix)
		for _, s := range stages {
			if s.path == "" {
				continue
			}
			if strings.HasSuffix(s.path, spirvSuffix) != desc.Binary {
				return decodeErrorf("%s: cannot mix SPIR-V and GLSL stages", s.path)
			}
			stageSrc := src
			if s.path != p.path {
				var err error
				if stageSrc, err = l.locator.Resolve(resource.KindProgram, s.path); err != nil {
					return err
				}
			}
			data, err := resource.ReadAll(stageSrc)
			if err != nil {
				return err
			}
			desc.Sources[s.stage] = data
		}
	}

	prog, err := l.device.CreateProgram(desc)
	if err != nil {
		return &DecodeError{Err: err}
	}
	p.program = prog
	return nil
}

func (p *Program) release() {
	if p.program != nil {
		p.program.Release()
	}
	p.program = nil
}

// spirvStage derives the stage of a compiled module from its name, which
// is expected to be name.stage.spv.
func spirvStage(p string) (gfx.Stage, error) {
	nodes := strings.Split(strings.TrimSuffix(path.Base(p), spirvSuffix), ".")
	if len(nodes) != 2 {
		return 0, fmt.Errorf("%s: compiled shader names are name.stage.spv", p)
	}
	switch nodes[1] {
	case "vert":
		return gfx.StageVertex, nil
	case "frag":
		return gfx.StageFragment, nil
	case "geom":
		return gfx.StageGeometry, nil
	}
	return 0, fmt.Errorf("%s: unknown shader stage %q", p, nodes[1])
}

// splitStages turns a single file program into one source per stage. A
// stage is present when its define is referenced; its source is the file
// with the define injected right after the #version line.
func splitStages(src []byte, out map[gfx.Stage][]byte) error {
	version, body := []byte(nil), src
	if trimmed := bytes.TrimLeft(src, " \t\r\n"); bytes.HasPrefix(trimmed, []byte("#version")) {
		end := bytes.IndexByte(trimmed, '\n')
		if end < 0 {
			return fmt.Errorf("program holds only a #version line")
		}
		version, body = trimmed[:end+1], trimmed[end+1:]
	}

	for _, sd := range stageDefines {
		if !bytes.Contains(body, []byte(sd.define)) {
			continue
		}
		var buf bytes.Buffer
		buf.Write(version)
		fmt.Fprintf(&buf, "#define %s 1\n", sd.define)
		buf.Write(body)
		out[sd.stage] = buf.Bytes()
	}
	if len(out) == 0 {
		return fmt.Errorf("no %s, %s or %s section", stageDefines[0].define, stageDefines[1].define, stageDefines[2].define)
	}
	return nil
}
