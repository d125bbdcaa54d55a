// Package optional provides a three-state argument wrapper distinguishing an
// omitted argument, an explicit null and a value.
package optional

import (
	"fmt"
	"reflect"
)

type state uint8

const (
	omitted state = iota
	null
	present
)

// Value holds an optional T. The zero Value is omitted.
type Value[T any] struct {
	v     T
	state state
}

func Some[T any](v T) Value[T] { return Value[T]{v: v, state: present} }
func Null[T any]() Value[T]    { return Value[T]{state: null} }

// Get returns the value and whether one is present.
func (o Value[T]) Get() (T, bool) { return o.v, o.state == present }

// OrElse returns the value or def when none is present.
func (o Value[T]) OrElse(def T) T {
	if o.state == present {
		return o.v
	}
	return def
}

func (o Value[T]) IsPresent() bool { return o.state == present }
func (o Value[T]) IsNull() bool    { return o.state == null }
func (o Value[T]) IsOmitted() bool { return o.state == omitted }

func (o Value[T]) String() string {
	switch o.state {
	case present:
		return fmt.Sprintf("Some(%v)", o.v)
	case null:
		return "Null"
	}
	return "Omitted"
}

// Elem returns T.
func (Value[T]) Elem() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Unwrap returns the value as any, or nil when none is present.
func (o Value[T]) Unwrap() any {
	if o.state != present {
		return nil
	}
	return o.v
}

func (o *Value[T]) assign(v any, st state) {
	o.state = st
	if st == present {
		o.v = v.(T)
	}
}

// Wrapper is implemented by every Value instantiation.
type Wrapper interface {
	Elem() reflect.Type
	Unwrap() any
}

type assigner interface {
	assign(v any, st state)
}

var wrapperType = reflect.TypeOf((*Wrapper)(nil)).Elem()

// Is reports whether t is a Value instantiation.
func Is(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || !t.Implements(wrapperType) {
		return false
	}
	_, ok := reflect.New(t).Interface().(assigner)
	return ok
}

// Make builds a Value of type t. A nil v yields Null, except when omit is
// set, which yields the omitted state.
func Make(t reflect.Type, v any, omit bool) any {
	p := reflect.New(t)
	a := p.Interface().(assigner)
	switch {
	case omit:
		a.assign(nil, omitted)
	case v == nil:
		a.assign(nil, null)
	default:
		a.assign(v, present)
	}
	return p.Elem().Interface()
}
