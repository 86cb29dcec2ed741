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
	"k8s.io/klog/v2"
)

// OpKind identifies the collective primitive behind a Transition.
type OpKind int

const (
	// OpAllGather collapses the innermost shard split of one tensor axis.
	OpAllGather OpKind = iota

	// OpAllToAll moves the shard list of one tensor axis onto another.
	OpAllToAll

	// OpShard introduces a new innermost shard split on one tensor axis.
	OpShard
)

// String implements stringer.
func (op OpKind) String() string {
	switch op {
	case OpAllGather:
		return "all-gather"
	case OpAllToAll:
		return "all-to-all"
	case OpShard:
		return "shard"
	}
	return fmt.Sprintf("OpKind(%d)", int(op))
}

// Transition is one layout reachable from a starting Spec by a single
// collective primitive.
type Transition struct {
	// Op is the collective that produces Result.
	Op OpKind

	// TensorAxes lists the tensor axes the collective touches: one axis
	// for all-gather and shard, the (donor, receiver) pair for all-to-all.
	TensorAxes []int

	// Result is the layout after the collective.
	Result Spec

	// ZeroCost is true when the transition moves no data. By convention
	// only shard transitions are free: a new split is a local
	// re-partitioning, while gathers and all-to-alls communicate.
	ZeroCost bool
}

// String implements stringer, e.g. `shard[1] -> "R,S0"`.
func (t Transition) String() string {
	return fmt.Sprintf("%s%v -> %q", t.Op, t.TensorAxes, t.Result)
}

// Successors enumerates every layout reachable from spec by one collective
// on the given mesh:
//
//   - an all-gather on each sharded tensor axis;
//   - an all-to-all from each sharded tensor axis to each replicated one;
//   - a shard of each tensor axis by each mesh axis not already in use.
//
// The order is deterministic: all-gathers by tensor axis, then all-to-alls
// by (donor, receiver) axis, then shards by (tensor axis, mesh axis). The
// input spec is not modified. It panics if spec does not fit the mesh.
//
// This is the one-step expansion a layout search is built on; cost modeling
// beyond the ZeroCost flag is up to the caller.
func Successors(spec Spec, mesh Mesh) []Transition {
	if err := spec.CheckValid(mesh); err != nil {
		exceptions.Panicf("sharding.Successors(): %+v", err)
	}
	var transitions []Transition

	numGathers := 0
	for _, tensorAxis := range spec.ShardedAxes() {
		newMeshAxes, err := SimulateAllGather(spec.Dim(tensorAxis))
		if err != nil {
			// ShardedAxes only returns non-replicated axes.
			exceptions.Panicf("sharding.Successors(): %+v", err)
		}
		transitions = append(transitions, Transition{
			Op:         OpAllGather,
			TensorAxes: []int{tensorAxis},
			Result:     spec.WithDim(tensorAxis, newMeshAxes),
		})
		numGathers++
	}

	numMoves := 0
	for _, donor := range spec.ShardedAxes() {
		for receiver := 0; receiver < spec.Rank(); receiver++ {
			if receiver == donor || !spec.Dim(receiver).IsReplicated() {
				continue
			}
			newFront, newBack, err := SimulateAllToAll(spec.Dim(donor), spec.Dim(receiver))
			if err != nil {
				exceptions.Panicf("sharding.Successors(): %+v", err)
			}
			transitions = append(transitions, Transition{
				Op:         OpAllToAll,
				TensorAxes: []int{donor, receiver},
				Result:     spec.WithDim(donor, newFront).WithDim(receiver, newBack),
			})
			numMoves++
		}
	}

	freeMeshAxes := freeAxes(spec, mesh)
	numShards := 0
	for tensorAxis := 0; tensorAxis < spec.Rank(); tensorAxis++ {
		for _, newMeshAxes := range SimulateShard(spec.Dim(tensorAxis), freeMeshAxes) {
			transitions = append(transitions, Transition{
				Op:         OpShard,
				TensorAxes: []int{tensorAxis},
				Result:     spec.WithDim(tensorAxis, newMeshAxes),
				ZeroCost:   true,
			})
			numShards++
		}
	}

	klog.V(2).Infof("sharding.Successors(%s, %s): %d all-gathers, %d all-to-alls, %d shards",
		spec, mesh, numGathers, numMoves, numShards)
	return transitions
}

// freeAxes returns the mesh axes not sharding any tensor axis of spec, in
// increasing order.
func freeAxes(spec Spec, mesh Mesh) []int {
	inUse := make(map[int]bool)
	for _, meshAxis := range spec.MeshAxesInUse() {
		inUse[meshAxis] = true
	}
	var free []int
	for _, meshAxis := range mesh.Axes() {
		if !inUse[meshAxis] {
			free = append(free, meshAxis)
		}
	}
	return free
}
