// Package executor runs GraphQL operations breadth first over a Runtime.
//
// Synchronous fields are resolved and completed as soon as they are reached,
// so plain projections never add depth. Async fields are queued instead and
// resolved together: every async field found while expanding one depth goes
// to a single Runtime.BatchResolveAsync call, and the fields their results
// expose form the next depth. A query whose async fields nest d deep makes d
// batch calls.
//
// Completion follows GraphQL: lists complete item by item, leaves go through
// Runtime.SerializeLeafValue and abstract values through Runtime.ResolveType.
// A null in a non-null position is reported once and nulls the nearest
// nullable ancestor; queued fields below it are dropped before the next
// batch. Root fields only null themselves.
//
// Errors are collected with their response path and execution carries on,
// so a result may hold both data and errors.
//
// Requests are expected to be validated already. Variables are coerced
// against the operation before execution starts, and a failure there is the
// only error that leaves Data nil.
package executor
