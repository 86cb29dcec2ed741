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

package tensors

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestTensor(t *testing.T) {
	scalar := New(dtypes.Float64)
	require.True(t, scalar.IsScalar())
	require.Equal(t, 0, scalar.Rank())
	require.Equal(t, 1, scalar.Size())
	require.Equal(t, 8, int(scalar.Memory()))
	require.True(t, scalar.IsContiguous())
	require.Equal(t, "(Float64)", scalar.String())

	tensor := New(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 3, tensor.Rank())
	require.Equal(t, 4*3*2, tensor.Size())
	require.Equal(t, 4*4*3*2, int(tensor.Memory()))
	require.Equal(t, []int{6, 2, 1}, tensor.Strides())
	require.True(t, tensor.IsContiguous())
	require.Equal(t, "(Float32)[4 3 2]", tensor.String())

	require.Equal(t, 4, tensor.Dim(0))
	require.Equal(t, 2, tensor.Dim(-1))
	require.Panics(t, func() { tensor.Dim(3) })
	require.Panics(t, func() { New(dtypes.Float32, 4, 0) })
}

func TestTransposed(t *testing.T) {
	tensor := New(dtypes.Float32, 4, 3)
	transposed := tensor.Transposed(0, 1)
	require.Equal(t, []int{3, 4}, transposed.Dimensions())
	require.Equal(t, []int{1, 3}, transposed.Strides())
	require.False(t, transposed.IsContiguous())

	// The original handle is untouched.
	require.Equal(t, []int{4, 3}, tensor.Dimensions())
	require.True(t, tensor.IsContiguous())

	// Transposing back restores contiguity.
	require.True(t, transposed.Transposed(-1, -2).IsContiguous())
	require.True(t, tensor.Equal(transposed.Transposed(0, 1)))

	require.Panics(t, func() { tensor.Transposed(0, 2) })
}

func TestNewWithStrides(t *testing.T) {
	tensor := NewWithStrides(dtypes.Int32, []int{2, 2}, []int{1, 2})
	require.False(t, tensor.IsContiguous())
	require.Panics(t, func() { NewWithStrides(dtypes.Int32, []int{2, 2}, []int{1}) })

	same := NewWithStrides(dtypes.Int32, []int{2, 2}, []int{2, 1})
	require.True(t, same.IsContiguous())
	require.True(t, same.Equal(New(dtypes.Int32, 2, 2)))
	require.False(t, same.Equal(tensor))
}
