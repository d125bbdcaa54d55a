package events

import "time"

// FieldResolveStart is emitted before a field supplier runs. ID pairs it with
// the matching FieldResolveFinish; concurrent resolutions of one request
// carry distinct IDs.
type FieldResolveStart struct {
	ID         uint64
	ObjectType string
	Field      string
	Async      bool
}

// FieldResolveFinish is emitted after a field supplier returns.
type FieldResolveFinish struct {
	ID         uint64
	ObjectType string
	Field      string
	Async      bool
	Err        error
	Duration   time.Duration
}
