package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hanpama/typegraph/internal/typeinfo"
)

// Crumb is one step of a Breadcrumb, such as "type demo.Book".
type Crumb string

func TypeCrumb(t typeinfo.Type) Crumb { return Crumb("type " + t.String()) }

func MemberCrumb(m typeinfo.Member) Crumb {
	if m.IsMethod {
		return Crumb("method " + m.String())
	}
	return Crumb("field " + m.String())
}

func ParamCrumb(p typeinfo.Param) Crumb { return Crumb(p.String()) }

func Crumbf(format string, args ...any) Crumb { return Crumb(fmt.Sprintf(format, args...)) }

// Breadcrumb is an immutable trail of the mapping steps that led to the
// current position, innermost last.
type Breadcrumb struct {
	parent *Breadcrumb
	crumb  Crumb
}

// Push returns a trail extended by c. A nil receiver starts a new trail.
func (b *Breadcrumb) Push(c Crumb) *Breadcrumb {
	return &Breadcrumb{parent: b, crumb: c}
}

// Crumbs lists the trail outermost first.
func (b *Breadcrumb) Crumbs() []Crumb {
	var out []Crumb
	for cur := b; cur != nil; cur = cur.parent {
		out = append(out, cur.crumb)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (b *Breadcrumb) String() string {
	cs := b.Crumbs()
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, " > ")
}

// MappingError is raised when a Go type cannot be mapped. It carries the
// trail of mapping steps active when it was raised.
type MappingError struct {
	Message string
	Trail   *Breadcrumb
	Cause   error
}

func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Cause != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Cause.Error())
	}
	cs := e.Trail.Crumbs()
	for i := len(cs) - 1; i >= 0; i-- {
		b.WriteString("\n\tat ")
		b.WriteString(string(cs[i]))
	}
	return b.String()
}

func (e *MappingError) Unwrap() error { return e.Cause }

// InputError reports an input object that converted but failed its validate
// tags. Its extensions name the failed fields for clients.
type InputError struct {
	Type  string
	Cause error
}

func (e *InputError) Error() string { return fmt.Sprintf("invalid %s: %v", e.Type, e.Cause) }
func (e *InputError) Unwrap() error { return e.Cause }

func (e *InputError) Extensions() map[string]any {
	ext := map[string]any{"code": "BAD_USER_INPUT"}
	var verrs validator.ValidationErrors
	if errors.As(e.Cause, &verrs) {
		fields := make([]any, len(verrs))
		for i, fe := range verrs {
			fields[i] = map[string]any{"field": fe.Namespace(), "rule": fe.Tag()}
		}
		ext["fields"] = fields
	}
	return ext
}
