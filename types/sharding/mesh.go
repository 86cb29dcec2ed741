/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package sharding

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"slices"
)

// Mesh is the shape of the logical device mesh: the dimension of each mesh
// axis. It carries no device ids or placement, only the combinatorial
// structure the layouts are defined against.
//
// Use MakeMesh to create one. The zero value is an invalid mesh of rank 0.
type Mesh struct {
	dimensions []int
}

// MakeMesh returns a Mesh with the given axis dimensions, e.g.
// MakeMesh(2, 4) is a 2x4 mesh with mesh axes 0 and 1. It panics on an axis
// dimension <= 0 or an empty dimensions list.
func MakeMesh(dimensions ...int) Mesh {
	if len(dimensions) == 0 {
		exceptions.Panicf("sharding.MakeMesh(): mesh needs at least one axis")
	}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("sharding.MakeMesh(%v): cannot create a mesh with an axis with dimension <= 0", dimensions)
		}
	}
	return Mesh{dimensions: slices.Clone(dimensions)}
}

// Ok returns whether this is a valid mesh, with at least one axis.
func (m Mesh) Ok() bool { return len(m.dimensions) > 0 }

// Rank returns the number of mesh axes.
func (m Mesh) Rank() int { return len(m.dimensions) }

// Dim returns the dimension of the given mesh axis. axis can take negative
// numbers, counting from the end. It panics on an out-of-bounds axis.
func (m Mesh) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += m.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= m.Rank() {
		exceptions.Panicf("Mesh.Dim(%d) out-of-bounds for mesh rank %d (mesh=%s)", axis, m.Rank(), m)
	}
	return m.dimensions[adjustedAxis]
}

// Dimensions returns a copy of the axis dimensions.
func (m Mesh) Dimensions() []int { return slices.Clone(m.dimensions) }

// Axes returns the list of mesh-axis ids, 0 to Rank()-1. This is the usual
// "legal sharding axes" argument to SimulateShard if every mesh axis may be
// used.
func (m Mesh) Axes() []int {
	axes := make([]int, m.Rank())
	for ii := range axes {
		axes[ii] = ii
	}
	return axes
}

// NumDevices returns the total number of devices in the mesh, the product
// of all axis dimensions.
func (m Mesh) NumDevices() int {
	num := 1
	for _, dim := range m.dimensions {
		num *= dim
	}
	return num
}

// String implements stringer, pretty-prints the mesh shape.
func (m Mesh) String() string {
	if !m.Ok() {
		return "Mesh[invalid]"
	}
	return fmt.Sprintf("Mesh%v", m.dimensions)
}
