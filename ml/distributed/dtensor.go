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

// Package distributed holds the distributed-tensor side of the sharding
// layer: a DTensor handle pairing a tensor with its layout on a device
// mesh, a Params container owning the named parameters of a model, and the
// conversion of plain parameters into distributed ones.
//
// No communication or device placement happens here: a DTensor records how
// a tensor is laid out, the types/sharding package reasons about how that
// layout can change.
package distributed

import (
	"fmt"

	"github.com/gomlx/shardspec/types/sharding"
	"github.com/gomlx/shardspec/types/tensors"
	"github.com/pkg/errors"
)

// DTensor is a tensor handle annotated with its layout: the device mesh it
// lives on and the sharding.Spec mapping its axes onto the mesh axes.
//
// Use Wrap to create one; a freshly wrapped tensor is fully replicated
// unless a spec is given.
type DTensor struct {
	local *tensors.Tensor
	mesh  sharding.Mesh
	spec  sharding.Spec
}

// Wrap returns a DTensor placing the given tensor handle on the mesh with
// the given layout. The tensor must be non-nil (ErrTypeMismatch), row-major
// contiguous (ErrNotContiguous), and the spec must match the tensor rank
// and fit the mesh.
func Wrap(t *tensors.Tensor, mesh sharding.Mesh, spec sharding.Spec) (*DTensor, error) {
	if t == nil {
		return nil, errors.Wrap(ErrTypeMismatch, "cannot wrap a nil tensor")
	}
	if !t.IsContiguous() {
		return nil, errors.Wrapf(ErrNotContiguous, "cannot wrap tensor %s with strides %v", t, t.Strides())
	}
	if spec.Rank() != t.Rank() {
		return nil, errors.Errorf("spec %q has rank %d, tensor %s has rank %d", spec, spec.Rank(), t, t.Rank())
	}
	if err := spec.CheckValid(mesh); err != nil {
		return nil, errors.WithMessagef(err, "cannot wrap tensor %s", t)
	}
	return &DTensor{local: t, mesh: mesh, spec: spec}, nil
}

// WrapReplicated is a shortcut for Wrap with a fully replicated layout.
func WrapReplicated(t *tensors.Tensor, mesh sharding.Mesh) (*DTensor, error) {
	if t == nil {
		return nil, errors.Wrap(ErrTypeMismatch, "cannot wrap a nil tensor")
	}
	return Wrap(t, mesh, sharding.Replicated(t.Rank()))
}

// Local returns the wrapped tensor handle.
func (d *DTensor) Local() *tensors.Tensor { return d.local }

// Mesh returns the device mesh the tensor is laid out on.
func (d *DTensor) Mesh() sharding.Mesh { return d.mesh }

// Spec returns the tensor's layout on the mesh.
func (d *DTensor) Spec() sharding.Spec { return d.spec }

// String implements stringer, e.g. `(Float32)[4 3]@Mesh[2 2]:"S0,R"`.
func (d *DTensor) String() string {
	if d == nil {
		return "(nil DTensor)"
	}
	return fmt.Sprintf("%s@%s:%q", d.local, d.mesh, d.spec)
}
