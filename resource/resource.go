// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource implements the virtual resource namespace. Logical paths
// such as "cube/texture.png" are resolved per resource kind against an
// ordered list of search roots; the first root holding the path wins.
package resource

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrResourceNotFound is matched by every locator miss.
var ErrResourceNotFound = errors.New("resource not found")

// Kind is a resource kind. Each kind has its own virtual directory.
type Kind int

// Resource kinds
const (
	KindTexture Kind = iota
	KindProgram
	KindData
	KindGeometry
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{KindTexture, KindProgram, KindData, KindGeometry}

var kindNames = map[Kind]string{
	KindTexture:  "texture",
	KindProgram:  "program",
	KindData:     "data",
	KindGeometry: "geometry",
}

var kindDirs = map[Kind]string{
	KindTexture:  "textures",
	KindProgram:  "shaders",
	KindData:     "data",
	KindGeometry: "geometry",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Dir returns the conventional sub-directory holding resources of the kind
// below an effect or project resource directory.
func (k Kind) Dir() string {
	return kindDirs[k]
}

// ParseKind parses the name of a kind as returned by String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s || kindDirs[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

// NotFoundError is returned when no root holds a logical path.
type NotFoundError struct {
	Kind Kind
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in any search root", e.Kind, e.Path)
}

// Is makes errors.Is(err, ErrResourceNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}

// CleanPath normalises a logical path. Paths are slash separated and
// relative; anything escaping the root is rejected.
func CleanPath(p string) (string, bool) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", false
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
