package typeinfo

import "reflect"

// Instances supplies values for parameters no environment supplier handles.
type Instances interface {
	Supplier(t reflect.Type, markers Markers) (func() (any, error), bool)
}

// ZeroInstances supplies zero values, allocating the element of pointer
// types.
type ZeroInstances struct{}

func (ZeroInstances) Supplier(t reflect.Type, _ Markers) (func() (any, error), bool) {
	return func() (any, error) {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface(), nil
		}
		return reflect.Zero(t).Interface(), nil
	}, true
}

// InstanceMap supplies fixed values by type and falls back to Next.
type InstanceMap struct {
	Values map[reflect.Type]any
	Next   Instances
}

func (m InstanceMap) Supplier(t reflect.Type, markers Markers) (func() (any, error), bool) {
	if v, ok := m.Values[t]; ok {
		return func() (any, error) { return v, nil }, true
	}
	if m.Next != nil {
		return m.Next.Supplier(t, markers)
	}
	return nil, false
}
