package events

import "time"

// SchemaBuildStart is emitted when a schema build begins. ID pairs it with
// the matching SchemaBuildFinish.
type SchemaBuildStart struct {
	ID    uint64
	Roots int
	Types int
}

// SchemaBuildFinish is emitted when a schema build ends, successfully or not.
type SchemaBuildFinish struct {
	ID       uint64
	Types    int
	Err      error
	Duration time.Duration
}

// TypeResolved is emitted once per Go type mapped during a build.
type TypeResolved struct {
	GoType   string
	Input    bool
	GraphQL  string
	Resolver string
}
