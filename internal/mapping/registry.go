package mapping

import (
	"fmt"

	"github.com/hanpama/typegraph/internal/typeinfo"
)

// Registry holds resolvers in registration order. For a given type the
// first resolver that supports it and produces a present mapping wins.
type Registry struct {
	outputs []OutputResolver
	inputs  []InputResolver
}

// Add registers r as an output resolver, an input resolver, or both.
func (r *Registry) Add(res any) error {
	ok := false
	if o, is := res.(OutputResolver); is {
		r.outputs = append(r.outputs, o)
		ok = true
	}
	if i, is := res.(InputResolver); is {
		r.inputs = append(r.inputs, i)
		ok = true
	}
	if !ok {
		return fmt.Errorf("%T is neither an output nor an input resolver", res)
	}
	return nil
}

// Output returns the resolvers supporting t, or nil.
func (r *Registry) Output(t typeinfo.Type) OutputResolver {
	var fan fanOutOutput
	for _, o := range r.outputs {
		if o.SupportsOutput(t) {
			fan = append(fan, o)
		}
	}
	if len(fan) == 0 {
		return nil
	}
	return fan
}

// Input returns the resolvers supporting t, or nil.
func (r *Registry) Input(t typeinfo.Type) InputResolver {
	var fan fanOutInput
	for _, i := range r.inputs {
		if i.SupportsInput(t) {
			fan = append(fan, i)
		}
	}
	if len(fan) == 0 {
		return nil
	}
	return fan
}

type fanOutOutput []OutputResolver

func (f fanOutOutput) SupportsOutput(t typeinfo.Type) bool {
	for _, o := range f {
		if o.SupportsOutput(t) {
			return true
		}
	}
	return false
}

func (f fanOutOutput) ResolveOutput(e *Encounter) (Resolved, error) {
	for _, o := range f {
		r, err := o.ResolveOutput(e)
		if err != nil {
			return Resolved{}, err
		}
		if r.Present() {
			e.ctx.resolvedBy = o
			return r, nil
		}
	}
	return Absent(), nil
}

type fanOutInput []InputResolver

func (f fanOutInput) SupportsInput(t typeinfo.Type) bool {
	for _, i := range f {
		if i.SupportsInput(t) {
			return true
		}
	}
	return false
}

func (f fanOutInput) ResolveInput(e *Encounter) (Resolved, error) {
	for _, i := range f {
		r, err := i.ResolveInput(e)
		if err != nil {
			return Resolved{}, err
		}
		if r.Present() {
			e.ctx.resolvedBy = i
			return r, nil
		}
	}
	return Absent(), nil
}
