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

// Package sharding describes how the axes of a logical tensor are laid out
// over a multi-dimensional device mesh, and simulates how a layout changes
// under the primitive collectives: shard, all-gather and all-to-all.
//
// Everything here is combinatorial: no tensor data is touched and no
// communication happens. The package supplies the building blocks for a
// layout-transition search (e.g., driven by a communication cost model),
// but not the search itself.
//
// ## Glossary
//
//   - Mesh axis: one dimension of the logical device mesh. A 2x4 mesh has
//     mesh axes 0 and 1, with dimensions 2 and 4.
//   - Tensor axis: one dimension of the logical tensor being laid out.
//   - Shard list: the ordered sequence of mesh axes sharding one tensor
//     axis, innermost split last. An empty list means the axis is
//     replicated across the mesh.
//
// A shard list must be strictly increasing. This bans the incontiguous and
// reordered compositions (e.g. a tensor axis sharded as S02 out of S012, or
// as S10) that the collectives below cannot reach, so every representable
// layout is also a reachable one.
//
// The notation follows the usual sharding-spec convention: "S01" is a
// tensor axis sharded by mesh axes 0 then 1, "R" is a replicated axis, and
// a full layout for a rank-3 tensor reads like "S01,R,S2".
package sharding

import (
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"slices"
)

// DimSpec pairs one tensor axis with the ordered list of mesh axes sharding
// it. An empty (or nil) MeshAxes means the tensor axis is replicated.
//
// The zero value is a valid, replicated DimSpec for tensor axis 0.
type DimSpec struct {
	// TensorAxis identifies which axis of the logical tensor this spec
	// describes.
	TensorAxis int

	// MeshAxes is the shard list: mesh axes in the order the splits were
	// applied, innermost last. Must be strictly increasing.
	MeshAxes []int
}

// DimSpecOf returns a DimSpec for the given tensor axis sharded by the given
// mesh axes, in order. It panics if the mesh axes are not strictly
// increasing non-negative values, since such a layout is not representable.
func DimSpecOf(tensorAxis int, meshAxes ...int) DimSpec {
	d := DimSpec{TensorAxis: tensorAxis, MeshAxes: slices.Clone(meshAxes)}
	if tensorAxis < 0 {
		exceptions.Panicf("sharding.DimSpecOf(%d, %v): tensor axis cannot be negative", tensorAxis, meshAxes)
	}
	if !d.Ok() {
		exceptions.Panicf("sharding.DimSpecOf(%d, %v): mesh axes must be non-negative and strictly increasing", tensorAxis, meshAxes)
	}
	return d
}

// Ok returns whether the shard list is representable: non-negative mesh
// axes in strictly increasing order.
func (d DimSpec) Ok() bool {
	for ii, axis := range d.MeshAxes {
		if axis < 0 {
			return false
		}
		if ii > 0 && axis <= d.MeshAxes[ii-1] {
			return false
		}
	}
	return true
}

// IsReplicated returns whether the tensor axis is not sharded at all.
func (d DimSpec) IsReplicated() bool { return len(d.MeshAxes) == 0 }

// NumShards returns how many mesh axes shard this tensor axis.
func (d DimSpec) NumShards() int { return len(d.MeshAxes) }

// Innermost returns the last mesh axis applied to this tensor axis. It
// panics if the axis is replicated.
func (d DimSpec) Innermost() int {
	if d.IsReplicated() {
		exceptions.Panicf("DimSpec.Innermost() on replicated tensor axis %d", d.TensorAxis)
	}
	return d.MeshAxes[len(d.MeshAxes)-1]
}

// Clone returns a deep copy: the shard list is freshly allocated.
func (d DimSpec) Clone() DimSpec {
	return DimSpec{TensorAxis: d.TensorAxis, MeshAxes: slices.Clone(d.MeshAxes)}
}

// Equal compares tensor axis and shard list.
func (d DimSpec) Equal(d2 DimSpec) bool {
	return d.TensorAxis == d2.TensorAxis && slices.Equal(d.MeshAxes, d2.MeshAxes)
}

// String renders the shard list in S-notation: "R" for replicated, "S01"
// for a shard list [0 1].
func (d DimSpec) String() string {
	if d.IsReplicated() {
		return "R"
	}
	var b strings.Builder
	b.WriteByte('S')
	for _, axis := range d.MeshAxes {
		b.WriteString(strconv.Itoa(axis))
	}
	return b.String()
}

// parseShardList parses the S-notation of one tensor axis: "R" or "S"
// followed by one digit per mesh axis. Mesh axes above 9 are not
// representable in this notation, which is fine for the mesh ranks (<= 4)
// this package targets.
func parseShardList(text string) ([]int, error) {
	if text == "R" {
		return nil, nil
	}
	if len(text) < 2 || text[0] != 'S' {
		return nil, errors.Errorf("invalid dim spec %q: want \"R\" or \"S\" followed by mesh axes digits", text)
	}
	meshAxes := make([]int, 0, len(text)-1)
	for _, digit := range text[1:] {
		if digit < '0' || digit > '9' {
			return nil, errors.Errorf("invalid dim spec %q: mesh axis %q is not a digit", text, digit)
		}
		axis := int(digit - '0')
		if len(meshAxes) > 0 && axis <= meshAxes[len(meshAxes)-1] {
			return nil, errors.Errorf("invalid dim spec %q: mesh axes must be strictly increasing", text)
		}
		meshAxes = append(meshAxes, axis)
	}
	return meshAxes, nil
}
