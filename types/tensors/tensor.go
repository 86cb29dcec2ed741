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

// Package tensors implements a storage-free tensor handle: the dtype, axis
// dimensions and strides of a logical tensor, without its values.
//
// The sharding layer only reasons about layouts, so a handle is all it
// needs: enough to know a tensor's rank, its memory footprint, and whether
// its memory layout is contiguous (distributed wrapping requires row-major
// contiguous handles). DTypes come from github.com/gomlx/gopjrt/dtypes.
package tensors

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"slices"
)

// Tensor is a handle to a logical multidimensional array: dtype, dimensions
// and strides, but no actual values. Strides are in elements, not bytes.
//
// Use New (row-major contiguous) or NewWithStrides to create one.
type Tensor struct {
	dtype      dtypes.DType
	dimensions []int
	strides    []int
}

// New returns a handle with the given dtype and dimensions and row-major
// contiguous strides. A call without dimensions creates a scalar handle.
// It panics on an axis with dimension <= 0.
func New(dtype dtypes.DType, dimensions ...int) *Tensor {
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("tensors.New(%s, %v): cannot create a tensor with an axis with dimension <= 0", dtype, dimensions)
		}
	}
	return &Tensor{
		dtype:      dtype,
		dimensions: slices.Clone(dimensions),
		strides:    contiguousStrides(dimensions),
	}
}

// NewWithStrides returns a handle with explicit strides, one per axis.
// Use it to describe views whose memory layout is not row-major contiguous,
// e.g. transposes. It panics if strides and dimensions disagree in length
// or any dimension is <= 0.
func NewWithStrides(dtype dtypes.DType, dimensions, strides []int) *Tensor {
	if len(strides) != len(dimensions) {
		exceptions.Panicf("tensors.NewWithStrides(%s): %d dimensions but %d strides", dtype, len(dimensions), len(strides))
	}
	t := New(dtype, dimensions...)
	t.strides = slices.Clone(strides)
	return t
}

// contiguousStrides returns the row-major strides for the given dimensions:
// innermost axis has stride 1.
func contiguousStrides(dimensions []int) []int {
	strides := make([]int, len(dimensions))
	stride := 1
	for axis := len(dimensions) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dimensions[axis]
	}
	return strides
}

// DType returns the tensor's element type.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.dimensions) }

// IsScalar returns whether the handle has rank 0.
func (t *Tensor) IsScalar() bool { return t.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative
// numbers, counting from the end. It panics on an out-of-bounds axis.
func (t *Tensor) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += t.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= t.Rank() {
		exceptions.Panicf("Tensor.Dim(%d) out-of-bounds for rank %d (tensor=%s)", axis, t.Rank(), t)
	}
	return t.dimensions[adjustedAxis]
}

// Dimensions returns a copy of the axis dimensions.
func (t *Tensor) Dimensions() []int { return slices.Clone(t.dimensions) }

// Strides returns a copy of the per-axis strides, in elements.
func (t *Tensor) Strides() []int { return slices.Clone(t.strides) }

// Size returns the number of elements, the product of all dimensions.
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.dimensions {
		size *= dim
	}
	return size
}

// Memory returns the bytes needed to store the tensor's values.
func (t *Tensor) Memory() uintptr {
	return t.dtype.Memory() * uintptr(t.Size())
}

// IsContiguous returns whether the handle's strides are the row-major
// contiguous ones for its dimensions.
func (t *Tensor) IsContiguous() bool {
	return slices.Equal(t.strides, contiguousStrides(t.dimensions))
}

// Transposed returns a new handle with two axes swapped, as a view: the
// strides are swapped along with the dimensions, so for non-trivial
// dimensions the result is generally no longer contiguous. Axes can take
// negative numbers, counting from the end.
func (t *Tensor) Transposed(axisA, axisB int) *Tensor {
	if axisA < 0 {
		axisA += t.Rank()
	}
	if axisB < 0 {
		axisB += t.Rank()
	}
	if axisA < 0 || axisA >= t.Rank() || axisB < 0 || axisB >= t.Rank() {
		exceptions.Panicf("Tensor.Transposed(%d, %d) out-of-bounds for rank %d", axisA, axisB, t.Rank())
	}
	t2 := t.Clone()
	t2.dimensions[axisA], t2.dimensions[axisB] = t2.dimensions[axisB], t2.dimensions[axisA]
	t2.strides[axisA], t2.strides[axisB] = t2.strides[axisB], t2.strides[axisA]
	return t2
}

// Clone returns a deep copy of the handle.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		dtype:      t.dtype,
		dimensions: slices.Clone(t.dimensions),
		strides:    slices.Clone(t.strides),
	}
}

// Equal compares dtype, dimensions and strides.
func (t *Tensor) Equal(t2 *Tensor) bool {
	return t.dtype == t2.dtype && slices.Equal(t.dimensions, t2.dimensions) && slices.Equal(t.strides, t2.strides)
}

// String implements stringer, pretty-prints dtype and dimensions.
func (t *Tensor) String() string {
	if t == nil {
		return "(nil Tensor)"
	}
	if t.IsScalar() {
		return fmt.Sprintf("(%s)", t.dtype)
	}
	return fmt.Sprintf("(%s)%v", t.dtype, t.dimensions)
}
