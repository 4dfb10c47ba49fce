// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/devblok/korufx/utility/kar"
	"github.com/gobuffalo/packd"
)

// Source is a physical resource found by a Root.
type Source interface {

	// Open returns the raw bytes of the resource.
	Open() (io.ReadCloser, error)

	// String describes where the source lives.
	String() string
}

// Root is one search location of a virtual directory.
type Root interface {

	// Lookup tests whether the root holds the logical path.
	Lookup(logicalPath string) (Source, bool)

	String() string
}

// ReadAll reads a Source to the end.
func ReadAll(src Source) ([]byte, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// DirRoot is a directory on disk.
type DirRoot string

// Lookup implements interface
func (d DirRoot) Lookup(logicalPath string) (Source, bool) {
	p, ok := CleanPath(logicalPath)
	if !ok {
		return nil, false
	}
	full := filepath.Join(string(d), filepath.FromSlash(p))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	return fileSource(full), true
}

func (d DirRoot) String() string {
	return string(d)
}

type fileSource string

func (f fileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f fileSource) String() string {
	return string(f)
}

// Box is what BoxRoot needs from a resource box. Both packr boxes and
// packd memory boxes satisfy it.
type Box interface {
	packd.Finder
	packd.Haser
}

// NewBoxRoot makes a root out of box. Logical paths are looked up below
// prefix inside the box.
func NewBoxRoot(name string, box Box, prefix string) *BoxRoot {
	return &BoxRoot{name: name, box: box, prefix: prefix}
}

// BoxRoot serves resources embedded into the binary.
type BoxRoot struct {
	name   string
	box    Box
	prefix string
}

// Lookup implements interface
func (b *BoxRoot) Lookup(logicalPath string) (Source, bool) {
	p, ok := CleanPath(logicalPath)
	if !ok {
		return nil, false
	}
	if b.prefix != "" {
		p = path.Join(b.prefix, p)
	}
	if !b.box.Has(p) {
		return nil, false
	}
	return &boxSource{root: b, name: p}, true
}

func (b *BoxRoot) String() string {
	return fmt.Sprintf("box:%s/%s", b.name, b.prefix)
}

type boxSource struct {
	root *BoxRoot
	name string
}

func (s *boxSource) Open() (io.ReadCloser, error) {
	data, err := s.root.box.Find(s.name)
	if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (s *boxSource) String() string {
	return fmt.Sprintf("box:%s/%s", s.root.name, s.name)
}

// NewArchiveRoot serves the files below prefix of a kar archive. The
// archive stays owned by the caller.
func NewArchiveRoot(name string, ar *kar.Archive, prefix string) *ArchiveRoot {
	return &ArchiveRoot{name: name, prefix: prefix, archive: ar}
}

// ArchiveRoot serves resources packed into a kar archive.
type ArchiveRoot struct {
	name    string
	prefix  string
	archive *kar.Archive
}

// Lookup implements interface
func (a *ArchiveRoot) Lookup(logicalPath string) (Source, bool) {
	p, ok := CleanPath(logicalPath)
	if !ok {
		return nil, false
	}
	if a.prefix != "" {
		p = path.Join(a.prefix, p)
	}
	if !a.archive.Has(p) {
		return nil, false
	}
	return &archiveSource{root: a, name: p}, true
}

func (a *ArchiveRoot) String() string {
	return fmt.Sprintf("kar:%s!%s", a.name, a.prefix)
}

type archiveSource struct {
	root *ArchiveRoot
	name string
}

func (s *archiveSource) Open() (io.ReadCloser, error) {
	return s.root.archive.Open(s.name)
}

func (s *archiveSource) String() string {
	return fmt.Sprintf("kar:%s!%s", s.root.name, s.name)
}
