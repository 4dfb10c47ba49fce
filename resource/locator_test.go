// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource_test

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/korufx/resource"
	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packd"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func tempDir(c *qt.C) (string, func()) {
	dir, err := ioutil.TempDir("", "resource-test")
	c.Assert(err, qt.IsNil)
	return dir, func() { os.RemoveAll(dir) }
}

func writeFile(c *qt.C, dir, name, contents string) {
	full := filepath.Join(dir, filepath.FromSlash(name))
	c.Assert(os.MkdirAll(filepath.Dir(full), 0755), qt.IsNil)
	c.Assert(ioutil.WriteFile(full, []byte(contents), 0644), qt.IsNil)
}

func readSource(c *qt.C, src resource.Source) string {
	data, err := resource.ReadAll(src)
	c.Assert(err, qt.IsNil)
	return string(data)
}

func TestProperty_RegistrationOrderWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("the first registered root holding a path is returned", prop.ForAll(
		func(name, first, second string) bool {
			c := qt.New(t)
			dir1, clean1 := tempDir(c)
			defer clean1()
			dir2, clean2 := tempDir(c)
			defer clean2()

			writeFile(c, dir1, name+".png", "one:"+first)
			writeFile(c, dir2, name+".png", "two:"+second)

			d := resource.NewDirectory()
			d.Register(resource.KindTexture, resource.DirRoot(dir1))
			d.Register(resource.KindTexture, resource.DirRoot(dir2))
			loc := resource.NewLocator(d)

			src, err := loc.Resolve(resource.KindTexture, name+".png")
			if err != nil {
				return false
			}
			return readSource(c, src) == "one:"+first && len(loc.Candidates(resource.KindTexture, name+".png")) == 2
		},
		gen.Identifier(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestResolveNotFound(t *testing.T) {
	c := qt.New(t)
	dir, clean := tempDir(c)
	defer clean()

	d := resource.NewDirectory()
	d.Register(resource.KindProgram, resource.DirRoot(dir))
	loc := resource.NewLocator(d)

	_, err := loc.Resolve(resource.KindProgram, "cube/missing.glsl")
	c.Assert(errors.Is(err, resource.ErrResourceNotFound), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, `program "cube/missing.glsl" not found in any search root`)

	var nf *resource.NotFoundError
	c.Assert(errors.As(err, &nf), qt.Equals, true)
	c.Assert(nf.Kind, qt.Equals, resource.KindProgram)
}

func TestResolveKindsAreSeparate(t *testing.T) {
	c := qt.New(t)
	dir, clean := tempDir(c)
	defer clean()
	writeFile(c, dir, "cube/texture.png", "png")

	d := resource.NewDirectory()
	d.Register(resource.KindTexture, resource.DirRoot(dir))
	loc := resource.NewLocator(d)

	_, err := loc.Resolve(resource.KindData, "cube/texture.png")
	c.Assert(errors.Is(err, resource.ErrResourceNotFound), qt.Equals, true)
}

func TestDirRootRejectsEscapes(t *testing.T) {
	c := qt.New(t)
	dir, clean := tempDir(c)
	defer clean()
	writeFile(c, dir, "inner/a.txt", "a")

	root := resource.DirRoot(filepath.Join(dir, "inner"))
	for _, p := range []string{"../inner/a.txt", "/a.txt", "", ".", "inner"} {
		_, ok := root.Lookup(p)
		c.Assert(ok, qt.Equals, false, qt.Commentf("path %q", p))
	}
	_, ok := root.Lookup("./a.txt")
	c.Assert(ok, qt.Equals, true)
}

func TestBoxRoot(t *testing.T) {
	c := qt.New(t)
	box := packd.NewMemoryBox()
	c.Assert(box.AddString("shaders/cube/cube.glsl", "void main() {}"), qt.IsNil)

	root := resource.NewBoxRoot("cube", box, "shaders")
	src, ok := root.Lookup("cube/cube.glsl")
	c.Assert(ok, qt.Equals, true)
	c.Assert(readSource(c, src), qt.Equals, "void main() {}")
	c.Assert(src.String(), qt.Equals, "box:cube/shaders/cube/cube.glsl")

	_, ok = root.Lookup("cube/other.glsl")
	c.Assert(ok, qt.Equals, false)
}

func TestFrozenDirectoryPanics(t *testing.T) {
	c := qt.New(t)
	d := resource.NewDirectory()
	resource.NewLocator(d)
	c.Assert(d.Frozen(), qt.Equals, true)
	c.Assert(func() { d.Register(resource.KindData, resource.DirRoot(".")) }, qt.PanicMatches, `resource: register data root \. on a frozen directory`)
}

func TestParseKind(t *testing.T) {
	c := qt.New(t)
	for _, k := range resource.Kinds {
		parsed, err := resource.ParseKind(k.String())
		c.Assert(err, qt.IsNil)
		c.Assert(parsed, qt.Equals, k)

		parsed, err = resource.ParseKind(k.Dir())
		c.Assert(err, qt.IsNil)
		c.Assert(parsed, qt.Equals, k)
	}
	_, err := resource.ParseKind("sound")
	c.Assert(err, qt.ErrorMatches, `unknown resource kind "sound"`)
}
