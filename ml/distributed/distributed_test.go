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

package distributed

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/shardspec/types/sharding"
	"github.com/gomlx/shardspec/types/tensors"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	mesh := sharding.MakeMesh(2, 2)
	weight := tensors.New(dtypes.Float32, 4, 3)

	dist, err := Wrap(weight, mesh, sharding.MakeSpec(2, map[int][]int{0: {0}}))
	require.NoError(t, err)
	require.Equal(t, weight, dist.Local())
	require.Equal(t, "S0,R", dist.Spec().String())
	require.Equal(t, `(Float32)[4 3]@Mesh[2 2]:"S0,R"`, dist.String())

	_, err = Wrap(nil, mesh, sharding.Replicated(2))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = Wrap(weight.Transposed(0, 1), mesh, sharding.Replicated(2))
	require.ErrorIs(t, err, ErrNotContiguous)

	// Rank mismatch between spec and tensor.
	_, err = Wrap(weight, mesh, sharding.Replicated(3))
	require.Error(t, err)

	// Spec does not fit the mesh.
	_, err = Wrap(weight, mesh, sharding.MakeSpec(2, map[int][]int{0: {7}}))
	require.Error(t, err)

	dist, err = WrapReplicated(weight, mesh)
	require.NoError(t, err)
	require.Equal(t, "R,R", dist.Spec().String())
}

func TestConvert(t *testing.T) {
	mesh := sharding.MakeMesh(2, 2)
	params := NewParams().
		Set("weight", tensors.New(dtypes.Float32, 4, 3)).
		Set("bias", tensors.New(dtypes.Float32, 3))

	require.NoError(t, Convert(params, "weight", mesh, sharding.MakeSpec(2, map[int][]int{0: {0, 1}})))

	// The plain variant is gone, replaced in one step.
	param, found := params.Get("weight")
	require.True(t, found)
	require.True(t, param.IsDistributed())
	require.Nil(t, param.Plain())
	require.Equal(t, "S01,R", param.Distributed().Spec().String())
	require.Equal(t, []int{4, 3}, param.Tensor().Dimensions())

	// Converting again is rejected, not double-wrapped.
	err := Convert(params, "weight", mesh, sharding.Replicated(2))
	require.ErrorIs(t, err, ErrTypeMismatch)

	err = Convert(params, "no_such", mesh, sharding.Replicated(2))
	require.ErrorIs(t, err, ErrMissingAttribute)

	require.NoError(t, ConvertReplicated(params, "bias", mesh))
	param, _ = params.Get("bias")
	require.Equal(t, "R", param.Distributed().Spec().String())
}

func TestConvertLeavesParamsUnchangedOnError(t *testing.T) {
	mesh := sharding.MakeMesh(2, 2)
	view := tensors.New(dtypes.Float32, 4, 3).Transposed(0, 1)
	params := NewParams().Set("weight", view)

	err := Convert(params, "weight", mesh, sharding.Replicated(2))
	require.ErrorIs(t, err, ErrNotContiguous)

	param, found := params.Get("weight")
	require.True(t, found)
	require.False(t, param.IsDistributed())
	require.Equal(t, view, param.Plain())
}

func TestNamedParams(t *testing.T) {
	mesh := sharding.MakeMesh(4)
	attention := NewParams().
		Set("query", tensors.New(dtypes.Float32, 8, 8)).
		Set("key", tensors.New(dtypes.Float32, 8, 8))
	encoder := NewParams().
		Set("embedding", tensors.New(dtypes.Float32, 128, 8)).
		AddModule("attention", attention)
	model := NewParams().
		Set("head", tensors.New(dtypes.Float32, 8, 2)).
		AddModule("encoder", encoder)

	require.NoError(t, Convert(attention, "query", mesh, sharding.MakeSpec(2, map[int][]int{1: {0}})))

	var names []string
	distributedCount := 0
	NamedParams(model, "", true, func(name string, param *Param) {
		names = append(names, name)
		if param.IsDistributed() {
			distributedCount++
			require.Equal(t, "encoder.attention.query", name)
		}
	})
	require.Equal(t, []string{
		"head",
		"encoder.embedding",
		"encoder.attention.key",
		"encoder.attention.query",
	}, names)
	require.Equal(t, 1, distributedCount)

	// Non-recursive enumeration only sees direct parameters.
	names = names[:0]
	NamedParams(model, "model", false, func(name string, _ *Param) {
		names = append(names, name)
	})
	require.Equal(t, []string{"model.head"}, names)
}

func TestParamsNames(t *testing.T) {
	params := NewParams()
	require.Panics(t, func() { params.Set("", nil) })
	require.Panics(t, func() { params.Set("a.b", nil) })
	require.False(t, params.Replace("missing", PlainParam(nil)))
}
