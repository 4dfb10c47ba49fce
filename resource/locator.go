// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// NewLocator creates a locator over a directory. The directory is frozen
// if it was not already.
func NewLocator(dir *Directory) *Locator {
	dir.Freeze()
	return &Locator{dir: dir}
}

// Locator resolves logical paths to physical sources.
type Locator struct {
	dir *Directory
}

// Directory returns the directory the locator searches.
func (l *Locator) Directory() *Directory {
	return l.dir
}

// Resolve returns the source of the first root of kind that holds
// logicalPath, trying roots in registration order.
func (l *Locator) Resolve(kind Kind, logicalPath string) (Source, error) {
	for _, root := range l.dir.roots[kind] {
		if src, ok := root.Lookup(logicalPath); ok {
			return src, nil
		}
	}
	return nil, &NotFoundError{Kind: kind, Path: logicalPath}
}

// Candidates returns every source of kind holding logicalPath, the first
// being the one Resolve picks. Shadowed entries follow in root order.
func (l *Locator) Candidates(kind Kind, logicalPath string) []Source {
	var found []Source
	for _, root := range l.dir.roots[kind] {
		if src, ok := root.Lookup(logicalPath); ok {
			found = append(found, src)
		}
	}
	return found
}
