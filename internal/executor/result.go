package executor

import (
	"strconv"
	"strings"
)

// Path locates a value in the response: field names and list indexes.
type Path []PathElement

// PathElement is a string response name or an int list index.
type PathElement any

// With returns a copy of p extended by elem.
func (p Path) With(elem PathElement) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, elem)
}

// String renders p as a.b[0].c.
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		}
	}
	return b.String()
}

// GraphQLError is a located execution error. Resolver errors that are a
// GraphQLError, or expose Extensions() map[string]any, keep their extensions.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}
