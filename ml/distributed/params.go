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
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shardspec/types/tensors"
)

// Param is one named parameter of a model: either a plain tensor handle or
// a distributed one, never both. Conversion from plain to distributed
// happens atomically through Convert, replacing the variant wholesale.
type Param struct {
	plain *tensors.Tensor
	dist  *DTensor
}

// PlainParam returns a Param holding a plain tensor handle.
func PlainParam(t *tensors.Tensor) *Param { return &Param{plain: t} }

// DistributedParam returns a Param holding a distributed tensor.
func DistributedParam(d *DTensor) *Param { return &Param{dist: d} }

// IsDistributed returns whether the parameter has been converted to a
// distributed tensor.
func (p *Param) IsDistributed() bool { return p.dist != nil }

// Plain returns the plain tensor handle, or nil if the parameter is
// distributed.
func (p *Param) Plain() *tensors.Tensor { return p.plain }

// Distributed returns the distributed tensor, or nil if the parameter is
// still plain.
func (p *Param) Distributed() *DTensor { return p.dist }

// Tensor returns the underlying tensor handle of either variant.
func (p *Param) Tensor() *tensors.Tensor {
	if p.IsDistributed() {
		return p.dist.Local()
	}
	return p.plain
}

// String implements stringer.
func (p *Param) String() string {
	if p == nil {
		return "(nil Param)"
	}
	if p.IsDistributed() {
		return p.dist.String()
	}
	return p.plain.String()
}

// Module is a node of a model tree: it exposes its named direct parameters
// and its named child modules. NamedParams traverses a Module tree,
// qualifying names with a dot-separated path ("encoder.weight").
//
// Params is the ready-made implementation; anything that owns tensors can
// implement Module to participate in enumeration and conversion.
type Module interface {
	// EnumerateParams calls fn for each direct (non-recursive) parameter,
	// in deterministic order.
	EnumerateParams(fn func(name string, param *Param))

	// EnumerateModules calls fn for each direct child module, in
	// deterministic order.
	EnumerateModules(fn func(name string, child Module))
}

// Params is an owning container of named parameters and child modules, the
// usual Module implementation. It keeps parameters by name; replacement of
// a parameter's variant goes through Convert (or Replace) so that the old
// variant is dropped and the new one set in one step.
//
// The zero value is not usable, create it with NewParams. Not safe for
// concurrent mutation.
type Params struct {
	params  map[string]*Param
	modules map[string]Module
}

// NewParams returns an empty parameter container.
func NewParams() *Params {
	return &Params{
		params:  make(map[string]*Param),
		modules: make(map[string]Module),
	}
}

// Set adds (or overwrites) a plain tensor parameter under the given name.
// It returns the Params to allow chaining. Names must not contain dots,
// which are reserved for qualifying paths.
func (p *Params) Set(name string, t *tensors.Tensor) *Params {
	p.checkName(name)
	p.params[name] = PlainParam(t)
	return p
}

// AddModule attaches a child module under the given name, returning the
// Params to allow chaining.
func (p *Params) AddModule(name string, child Module) *Params {
	p.checkName(name)
	p.modules[name] = child
	return p
}

func (p *Params) checkName(name string) {
	if name == "" {
		exceptions.Panicf("Params: empty name")
	}
	for _, r := range name {
		if r == '.' {
			exceptions.Panicf("Params: name %q cannot contain '.', it is reserved for qualified paths", name)
		}
	}
}

// Get returns the parameter with the given name, and whether it exists.
func (p *Params) Get(name string) (*Param, bool) {
	param, found := p.params[name]
	return param, found
}

// Replace swaps the parameter under name for the given one, atomically
// from the container's point of view: the previous variant is no longer
// reachable once Replace returns. It returns false if no parameter with
// that name exists, in which case nothing changes.
func (p *Params) Replace(name string, param *Param) bool {
	if _, found := p.params[name]; !found {
		return false
	}
	p.params[name] = param
	return true
}

// NumParams returns the number of direct parameters.
func (p *Params) NumParams() int { return len(p.params) }

// EnumerateParams implements Module, visiting direct parameters in name
// order.
func (p *Params) EnumerateParams(fn func(name string, param *Param)) {
	for _, name := range sortedKeys(p.params) {
		fn(name, p.params[name])
	}
}

// EnumerateModules implements Module, visiting direct children in name
// order.
func (p *Params) EnumerateModules(fn func(name string, child Module)) {
	for _, name := range sortedKeys(p.modules) {
		fn(name, p.modules[name])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NamedParams calls fn for every parameter reachable from root with its
// qualified dot-separated name, prefixed by prefix if non-empty. If recurse
// is false only root's direct parameters are visited. Within one module,
// parameters are visited before child modules; ordering across an entire
// tree is deterministic but callers should not depend on it beyond that.
func NamedParams(root Module, prefix string, recurse bool, fn func(name string, param *Param)) {
	root.EnumerateParams(func(name string, param *Param) {
		fn(qualify(prefix, name), param)
	})
	if !recurse {
		return
	}
	root.EnumerateModules(func(name string, child Module) {
		NamedParams(child, qualify(prefix, name), true, fn)
	})
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
