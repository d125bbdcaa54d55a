package server

import (
	"net/http"

	executor "github.com/hanpama/typegraph/internal/executor"
)

func errorResult(msg string) *executor.ExecutionResult {
	return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: msg}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
