package executor

import "context"

// Runtime is what the Executor calls to produce values.
//
// Per depth the Executor expands synchronous fields through ResolveSync as it
// meets them, then hands every async field of that depth to one
// BatchResolveAsync call. A field is async when its schema.Field.Async is set;
// ResolveSync is never called for it.
//
// objectType is the GraphQL name of the parent type, source the parent value
// (the initial value for root fields) and args the coerced arguments. None of
// them may be mutated.
//
// Errors and panics from any method become located errors on the field. A
// null reaching a non-null position nulls the nearest nullable ancestor.
// Once ctx is done no further fields are resolved; they fail with ctx.Err().
type Runtime interface {
	// ResolveSync returns the raw value of a sync field. (nil, nil) is null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one depth of async fields. results[i] is
	// the outcome of tasks[i]; a slice of another length fails the batch.
	// Tasks below a position already nulled are not passed.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the object type of a value of an interface or
	// union.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue turns a scalar or enum value into a JSON-safe
	// value. Enums serialize to their value name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	ObjectType string
	Field      string
	// Source is the parent value, nil for root fields.
	Source any
	Args   map[string]any
}

type AsyncResolveResult struct {
	Value any
	// Error fails this element only.
	Error error
}
