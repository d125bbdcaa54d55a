package naming

import (
	"fmt"
)

// ConflictError reports two owners claiming one schema name.
type ConflictError struct {
	Name   string
	First  string
	Second string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate schema name %q: first claimed at %s, claimed again at %s", e.Name, e.First, e.Second)
}

type claim struct {
	owner any
	where string
}

// Registry guards the names of one schema build. Owners are comparable keys,
// typically a reflect.Type paired with a direction.
type Registry struct {
	byName  map[string]claim
	byOwner map[any]string
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]claim),
		byOwner: make(map[any]string),
	}
}

// Claim assigns name to owner. Claiming the same name for the same owner is a
// no-op; any other repeat is a ConflictError.
func (r *Registry) Claim(name string, owner any, where fmt.Stringer) error {
	if err := Validate(name); err != nil {
		return err
	}
	if c, ok := r.byName[name]; ok {
		if c.owner == owner {
			return nil
		}
		return &ConflictError{Name: name, First: c.where, Second: describe(where)}
	}
	if prev, ok := r.byOwner[owner]; ok && prev != name {
		return fmt.Errorf("%s is already named %q and cannot also be named %q", describe(where), prev, name)
	}
	r.byName[name] = claim{owner: owner, where: describe(where)}
	r.byOwner[owner] = name
	return nil
}

// Request claims a name that no type owns, such as a root type name.
func (r *Registry) Request(name string, where fmt.Stringer) error {
	return r.Claim(name, requested(name), where)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// NameOf returns the name assigned to owner.
func (r *Registry) NameOf(owner any) (string, bool) {
	n, ok := r.byOwner[owner]
	return n, ok
}

type requested string

func describe(s fmt.Stringer) string {
	if s == nil {
		return "<unknown>"
	}
	if str := s.String(); str != "" {
		return str
	}
	return "<root>"
}
