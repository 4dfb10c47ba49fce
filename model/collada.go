// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"encoding/xml"
	"errors"

	"github.com/devblok/korufx/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

// DefaultColor is given to imported vertices, COLLADA meshes carry none.
var DefaultColor = glm.Vec4{1.0, 1.0, 0.0, 1.0}

// ImportCollada reads given file and converts the first Collada geometry
// into the engine's mesh. Triangle and polygon lists are both imported,
// polygons as triangle fans.
func ImportCollada(fileContents []byte) (*Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return nil, err
	}
	if len(doc.Geometries) == 0 {
		return nil, errors.New("no geometry in document")
	}

	geometry := doc.Geometries[0]
	positions := geometry.Mesh.Positions()
	if positions == nil {
		return nil, errors.New("mesh has no position source")
	}

	mesh := &Mesh{Name: geometry.Name}
	for _, prim := range geometry.Mesh.Primitives() {
		vertex, ok := prim.Input(collada.SemanticVertex)
		if !ok {
			return nil, errors.New("primitive has no VERTEX input")
		}
		var normals *collada.Source
		normal, hasNormals := prim.Input(collada.SemanticNormal)
		if hasNormals {
			if normals = geometry.Mesh.Source(normal.Source); normals == nil {
				return nil, errors.New("normal source " + normal.Source + " not found")
			}
		}

		corners, err := prim.Corners()
		if err != nil {
			return nil, err
		}
		for _, corner := range corners {
			pos, err := positions.Vec3(corner[vertex.Offset])
			if err != nil {
				return nil, err
			}
			v := Vertex{Pos: pos, Color: DefaultColor}
			if normals != nil {
				if v.Normal, err = normals.Vec3(corner[normal.Offset]); err != nil {
					return nil, err
				}
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}
	}
	if len(mesh.Vertices) == 0 {
		return nil, errors.New("mesh has no triangles")
	}
	return mesh, nil
}
