package events

import (
	"net/http"
	"time"
)

// HTTPStart and HTTPFinish bracket one request to the GraphQL handler.
type HTTPStart struct {
	RequestID string
	Request   *http.Request
}

type HTTPFinish struct {
	RequestID string
	Request   *http.Request
	Status    int
	Duration  time.Duration
}

// GraphQLStart is emitted before an operation runs. A batched request emits
// one start and finish pair per operation, in order.
type GraphQLStart struct {
	RequestID     string
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish carries the number of errors of the result and the first of
// them, if any.
type GraphQLFinish struct {
	RequestID     string
	OperationName string
	OperationType string
	ErrorCount    int
	Err           error
	Duration      time.Duration
}
