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
	"sort"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"slices"
)

// Spec is the layout of one logical tensor: for each tensor axis, the
// ordered list of mesh axes sharding it. Tensor axes absent from the
// mapping are replicated.
//
// A Spec is a value: all methods treat the receiver as immutable and return
// freshly derived results. Use MakeSpec or Replicated to create one.
type Spec struct {
	rank          int
	dimToMeshAxes map[int][]int
}

// MakeSpec returns a Spec for a tensor of the given rank, with each entry
// of dimToMeshAxes sharding one tensor axis by the given mesh axes, in
// order. Missing tensor axes are replicated, and empty lists are allowed
// and equivalent to absent ones.
//
// It panics on an unrepresentable layout: tensor axis out of range, a shard
// list that is not strictly increasing, or a mesh axis sharding two
// different tensor axes. Mesh compatibility (axes within the mesh rank) is
// checked separately by CheckValid, since a Spec is meaningful without a
// particular mesh.
func MakeSpec(rank int, dimToMeshAxes map[int][]int) Spec {
	if rank < 0 {
		exceptions.Panicf("sharding.MakeSpec(rank=%d): rank cannot be negative", rank)
	}
	s := Spec{rank: rank, dimToMeshAxes: make(map[int][]int, len(dimToMeshAxes))}
	seen := make(map[int]int) // mesh axis -> tensor axis using it.
	for tensorAxis, meshAxes := range dimToMeshAxes {
		if tensorAxis < 0 || tensorAxis >= rank {
			exceptions.Panicf("sharding.MakeSpec(rank=%d): tensor axis %d out-of-range", rank, tensorAxis)
		}
		if len(meshAxes) == 0 {
			continue
		}
		d := DimSpec{TensorAxis: tensorAxis, MeshAxes: meshAxes}
		if !d.Ok() {
			exceptions.Panicf("sharding.MakeSpec(rank=%d): shard list %v for tensor axis %d must be non-negative and strictly increasing",
				rank, meshAxes, tensorAxis)
		}
		for _, meshAxis := range meshAxes {
			if other, found := seen[meshAxis]; found {
				exceptions.Panicf("sharding.MakeSpec(rank=%d): mesh axis %d shards both tensor axes %d and %d",
					rank, meshAxis, other, tensorAxis)
			}
			seen[meshAxis] = tensorAxis
		}
		s.dimToMeshAxes[tensorAxis] = slices.Clone(meshAxes)
	}
	return s
}

// Replicated returns the fully replicated Spec for a tensor of the given
// rank: no axis is sharded.
func Replicated(rank int) Spec {
	return MakeSpec(rank, nil)
}

// Rank returns the rank of the tensor the Spec lays out.
func (s Spec) Rank() int { return s.rank }

// Dim returns the DimSpec of the given tensor axis, with its own copy of
// the shard list. axis can take negative numbers, counting from the end.
// It panics on an out-of-bounds axis.
func (s Spec) Dim(axis int) DimSpec {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.rank
	}
	if adjustedAxis < 0 || adjustedAxis >= s.rank {
		exceptions.Panicf("Spec.Dim(%d) out-of-bounds for rank %d (spec=%s)", axis, s.rank, s)
	}
	return DimSpec{TensorAxis: adjustedAxis, MeshAxes: slices.Clone(s.dimToMeshAxes[adjustedAxis])}
}

// ShardedAxes returns the tensor axes that are sharded, in increasing
// order.
func (s Spec) ShardedAxes() []int {
	axes := make([]int, 0, len(s.dimToMeshAxes))
	for tensorAxis := range s.dimToMeshAxes {
		axes = append(axes, tensorAxis)
	}
	sort.Ints(axes)
	return axes
}

// MeshAxesInUse returns every mesh axis sharding some tensor axis, in
// increasing order.
func (s Spec) MeshAxesInUse() []int {
	var inUse []int
	for _, meshAxes := range s.dimToMeshAxes {
		inUse = append(inUse, meshAxes...)
	}
	sort.Ints(inUse)
	return inUse
}

// WithDim returns a copy of the Spec with the given tensor axis laid out as
// newMeshAxes (empty or nil meaning replicated), every other axis
// unchanged. It panics, like MakeSpec, if the result is unrepresentable.
func (s Spec) WithDim(tensorAxis int, newMeshAxes []int) Spec {
	dimToMeshAxes := make(map[int][]int, len(s.dimToMeshAxes)+1)
	for axis, meshAxes := range s.dimToMeshAxes {
		if axis == tensorAxis {
			continue
		}
		dimToMeshAxes[axis] = meshAxes
	}
	dimToMeshAxes[tensorAxis] = newMeshAxes
	return MakeSpec(s.rank, dimToMeshAxes)
}

// Equal compares rank and the layout of every tensor axis.
func (s Spec) Equal(s2 Spec) bool {
	if s.rank != s2.rank {
		return false
	}
	for tensorAxis := 0; tensorAxis < s.rank; tensorAxis++ {
		if !slices.Equal(s.dimToMeshAxes[tensorAxis], s2.dimToMeshAxes[tensorAxis]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the Spec.
func (s Spec) Clone() Spec {
	return MakeSpec(s.rank, s.dimToMeshAxes)
}

// CheckValid returns an error if the Spec does not fit the given mesh:
// a mesh axis beyond the mesh rank, or (defensively, for Specs built by
// hand) a broken shard-list invariant.
func (s Spec) CheckValid(mesh Mesh) error {
	if !mesh.Ok() {
		return errors.Errorf("invalid mesh %s", mesh)
	}
	seen := make(map[int]int)
	for tensorAxis, meshAxes := range s.dimToMeshAxes {
		d := DimSpec{TensorAxis: tensorAxis, MeshAxes: meshAxes}
		if !d.Ok() {
			return errors.Errorf("spec %s: shard list %v of tensor axis %d is not strictly increasing", s, meshAxes, tensorAxis)
		}
		for _, meshAxis := range meshAxes {
			if meshAxis >= mesh.Rank() {
				return errors.Errorf("spec %s: mesh axis %d out-of-range for %s", s, meshAxis, mesh)
			}
			if other, found := seen[meshAxis]; found {
				return errors.Errorf("spec %s: mesh axis %d shards both tensor axes %d and %d", s, meshAxis, other, tensorAxis)
			}
			seen[meshAxis] = tensorAxis
		}
	}
	return nil
}

// String renders the layout in S-notation, one tensor axis at a time,
// comma-separated: a rank-3 tensor sharded on its first axis by mesh axes 0
// and 1 reads "S01,R,R".
func (s Spec) String() string {
	parts := make([]string, 0, s.rank)
	for tensorAxis := 0; tensorAxis < s.rank; tensorAxis++ {
		parts = append(parts, DimSpec{TensorAxis: tensorAxis, MeshAxes: s.dimToMeshAxes[tensorAxis]}.String())
	}
	return strings.Join(parts, ",")
}

// ParseSpec parses the comma-separated S-notation produced by Spec.String,
// e.g. "S01,R,S2" for a rank-3 tensor. Unlike MakeSpec this returns an
// error rather than panicking, since the input is typically user-provided.
func ParseSpec(text string) (Spec, error) {
	parts := strings.Split(text, ",")
	dimToMeshAxes := make(map[int][]int, len(parts))
	seen := make(map[int]bool)
	for tensorAxis, part := range parts {
		meshAxes, err := parseShardList(strings.TrimSpace(part))
		if err != nil {
			return Spec{}, errors.WithMessagef(err, "parsing spec %q, tensor axis %d", text, tensorAxis)
		}
		for _, meshAxis := range meshAxes {
			if seen[meshAxis] {
				return Spec{}, errors.Errorf("parsing spec %q: mesh axis %d shards more than one tensor axis", text, meshAxis)
			}
			seen[meshAxis] = true
		}
		dimToMeshAxes[tensorAxis] = meshAxes
	}
	return MakeSpec(len(parts), dimToMeshAxes), nil
}
