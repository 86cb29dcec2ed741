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
	"github.com/gomlx/shardspec/types/sharding"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Errors surfaced by Convert and Wrap. Check for them with errors.Is; they
// are user-facing and not retryable.
var (
	// ErrMissingAttribute: the named parameter does not exist in the
	// container.
	ErrMissingAttribute = errors.New("no parameter with that name")

	// ErrTypeMismatch: the named parameter is not a plain tensor, either
	// nil or already distributed.
	ErrTypeMismatch = errors.New("parameter is not a plain tensor")

	// ErrNotContiguous: the tensor's memory layout is not row-major
	// contiguous, so it cannot be wrapped.
	ErrNotContiguous = errors.New("tensor is not contiguous")
)

// Convert replaces the plain tensor parameter under name with its
// distributed wrapping on the given mesh and layout. The replacement is
// atomic: the container never holds both variants, and on error it is left
// unchanged.
//
// It fails with ErrMissingAttribute if name is unknown, ErrTypeMismatch if
// the parameter holds no plain tensor (including one already converted:
// re-wrapping a distributed tensor is rejected, not nested), and
// ErrNotContiguous if the tensor handle is a non-contiguous view.
func Convert(params *Params, name string, mesh sharding.Mesh, spec sharding.Spec) error {
	param, found := params.Get(name)
	if !found {
		return errors.Wrapf(ErrMissingAttribute, "Convert(%q)", name)
	}
	if param.IsDistributed() {
		return errors.Wrapf(ErrTypeMismatch, "Convert(%q): already distributed as %s", name, param.Distributed())
	}
	if param.Plain() == nil {
		return errors.Wrapf(ErrTypeMismatch, "Convert(%q)", name)
	}
	dist, err := Wrap(param.Plain(), mesh, spec)
	if err != nil {
		return errors.WithMessagef(err, "Convert(%q)", name)
	}
	params.Replace(name, DistributedParam(dist))
	klog.V(1).Infof("distributed.Convert(%q): %s", name, dist)
	return nil
}

// ConvertReplicated converts the named parameter with a fully replicated
// layout on the mesh.
func ConvertReplicated(params *Params, name string, mesh sharding.Mesh) error {
	param, found := params.Get(name)
	if !found {
		return errors.Wrapf(ErrMissingAttribute, "ConvertReplicated(%q)", name)
	}
	if param.Plain() == nil {
		return errors.Wrapf(ErrTypeMismatch, "ConvertReplicated(%q)", name)
	}
	return Convert(params, name, mesh, sharding.Replicated(param.Plain().Rank()))
}
