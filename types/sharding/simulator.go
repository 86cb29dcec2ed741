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
	"github.com/pkg/errors"
	"slices"
)

// ErrInvalidTransition is returned when a collective is simulated on a
// layout it cannot legally apply to: all-gather on a replicated axis, or
// all-to-all between two axes that are both sharded. Check for it with
// errors.Is.
var ErrInvalidTransition = errors.New("invalid layout transition")

// SimulateAllGather simulates an all-gather over the given tensor axis: the
// innermost (last applied) shard split collapses, and that mesh axis's data
// becomes replicated. It returns the resulting shard list, which may be
// empty, meaning the tensor axis became fully replicated.
//
// Only the innermost mesh axis can be gathered: removing an interior one
// would leave a shard list that skips an axis in gather order, an
// incontiguous layout this package bans. So all-gather(S01) -> S0, and
// there is no one-step transition from S01 to S1.
//
// Gathering an already replicated axis is meaningless and returns
// ErrInvalidTransition.
//
// The input is not modified; the result is freshly allocated.
func SimulateAllGather(pair DimSpec) ([]int, error) {
	if pair.IsReplicated() {
		return nil, errors.Wrapf(ErrInvalidTransition, "all-gather on replicated tensor axis %d", pair.TensorAxis)
	}
	return slices.Clone(pair.MeshAxes[:len(pair.MeshAxes)-1]), nil
}

// SimulateAllToAll simulates an all-to-all moving the shard list of one
// tensor axis wholesale onto another: whichever side is sharded donates all
// its mesh axes to the other side and becomes replicated. It returns the
// resulting front and back shard lists; exactly one of them holds all the
// axes and the other is empty. If both sides are already replicated the
// call is a no-op and both results are empty.
//
//	all-to-all(S01, R) -> (R, S01)
//	all-to-all(R, S1)  -> (S1, R)
//
// When both sides are sharded the direction is ambiguous, and merging the
// two shard lists could produce a decreasing order (e.g. S0 and S1 merging
// into S10), which is not representable; the call returns
// ErrInvalidTransition. With one side always empty, the surviving list
// keeps its strictly increasing order untouched.
//
// Both inputs are treated as immutable; the results are freshly allocated.
func SimulateAllToAll(front, back DimSpec) (newFront, newBack []int, err error) {
	if !front.IsReplicated() && !back.IsReplicated() {
		err = errors.Wrapf(ErrInvalidTransition,
			"all-to-all between tensor axes %d (%s) and %d (%s): both sides are sharded",
			front.TensorAxis, front, back.TensorAxis, back)
		return
	}
	if back.IsReplicated() {
		newBack = slices.Clone(front.MeshAxes)
		return
	}
	newFront = slices.Clone(back.MeshAxes)
	return
}

// SimulateShard simulates the shard transitions available to the given
// tensor axis: for each candidate mesh axis in legalMeshAxes, in order, the
// shard list extended by that axis -- if the extension keeps the list
// strictly increasing, i.e., shard(S0) -> S01 but never S00 or S10. The
// result may be empty if no candidate qualifies.
//
// Unlike the other simulators this one branches: it returns every one-step
// reachable shard list rather than a single result, and it never fails.
// Introducing a shard split moves no data (each device keeps a local
// partition), so by convention of the surrounding system the communication
// cost of any shard transition is zero.
//
// The input is not modified; each result is freshly allocated.
func SimulateShard(pair DimSpec, legalMeshAxes []int) [][]int {
	results := make([][]int, 0, len(legalMeshAxes))
	for _, meshAxis := range legalMeshAxes {
		if !pair.IsReplicated() && meshAxis <= pair.Innermost() {
			continue
		}
		newMeshAxes := make([]int, 0, len(pair.MeshAxes)+1)
		newMeshAxes = append(newMeshAxes, pair.MeshAxes...)
		newMeshAxes = append(newMeshAxes, meshAxis)
		results = append(results, newMeshAxes)
	}
	return results
}
