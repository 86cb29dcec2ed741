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
	"testing"

	"github.com/stretchr/testify/require"
)

func transitionStrings(transitions []Transition) []string {
	strs := make([]string, 0, len(transitions))
	for _, transition := range transitions {
		strs = append(strs, transition.String())
	}
	return strs
}

func TestSuccessorsFromReplicated(t *testing.T) {
	mesh := MakeMesh(2, 2)
	transitions := Successors(Replicated(2), mesh)
	require.Equal(t, []string{
		`shard[0] -> "S0,R"`,
		`shard[0] -> "S1,R"`,
		`shard[1] -> "R,S0"`,
		`shard[1] -> "R,S1"`,
	}, transitionStrings(transitions))
	for _, transition := range transitions {
		require.True(t, transition.ZeroCost)
		require.NoError(t, transition.Result.CheckValid(mesh))
	}
}

func TestSuccessorsFromSharded(t *testing.T) {
	mesh := MakeMesh(2, 2)
	spec, err := ParseSpec("S0,R")
	require.NoError(t, err)

	transitions := Successors(spec, mesh)
	require.Equal(t, []string{
		`all-gather[0] -> "R,R"`,
		`all-to-all[0 1] -> "R,S0"`,
		`shard[0] -> "S01,R"`,
		`shard[1] -> "S0,S1"`,
	}, transitionStrings(transitions))
	require.Equal(t, "S0,R", spec.String()) // Input spec untouched.

	for _, transition := range transitions {
		require.Equal(t, transition.Op == OpShard, transition.ZeroCost)
		require.NoError(t, transition.Result.CheckValid(mesh))
	}
}

func TestSuccessorsSaturatedMesh(t *testing.T) {
	// Every mesh axis in use: only gathers and moves remain.
	mesh := MakeMesh(2, 2)
	spec := MakeSpec(3, map[int][]int{0: {0}, 1: {1}})
	transitions := Successors(spec, mesh)
	require.Equal(t, []string{
		`all-gather[0] -> "R,S1,R"`,
		`all-gather[1] -> "S0,R,R"`,
		`all-to-all[0 2] -> "R,S1,S0"`,
		`all-to-all[1 2] -> "S0,R,S1"`,
	}, transitionStrings(transitions))
}

func TestSuccessorsRejectsIncompatibleMesh(t *testing.T) {
	spec := MakeSpec(2, map[int][]int{0: {3}})
	require.Panics(t, func() { Successors(spec, MakeMesh(2, 2)) })
}

func TestOpKindString(t *testing.T) {
	require.Equal(t, "all-gather", OpAllGather.String())
	require.Equal(t, "all-to-all", OpAllToAll.String())
	require.Equal(t, "shard", OpShard.String())
	require.Equal(t, "OpKind(17)", OpKind(17).String())
}
