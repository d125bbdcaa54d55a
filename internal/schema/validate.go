package schema

import (
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ValidationError lists the problems gqlparser reported for a rendered schema.
type ValidationError struct {
	SDL    string
	Errors gqlerror.List
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Message
	}
	return "invalid schema: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Errors }

// Validate renders s as SDL and loads it with gqlparser, returning the parsed
// schema used for query validation.
func Validate(s *Schema) (*ast.Schema, error) {
	sdl := Render(s)
	parsed, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		if list, ok := err.(gqlerror.List); ok {
			return nil, &ValidationError{SDL: sdl, Errors: list}
		}
		if ge, ok := err.(*gqlerror.Error); ok {
			return nil, &ValidationError{SDL: sdl, Errors: gqlerror.List{ge}}
		}
		return nil, err
	}
	return parsed, nil
}
