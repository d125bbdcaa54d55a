package server

import (
	"io"
	"net/http"
	"strings"

	language "github.com/hanpama/typegraph/internal/language"
)

// GraphQLRequest is one operation in the JSON body or the GET query string.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// operationType names the operation req selects, or "" when the document
// does not parse or the name matches nothing.
func (req GraphQLRequest) operationType() string {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return ""
	}
	op := doc.Operations.ForName(req.OperationName)
	if op == nil && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}

// rejection is a request refused before execution.
type rejection struct {
	status int
	msg    string
}

func (r *rejection) Error() string { return r.msg }

func badRequest(msg string) *rejection { return &rejection{status: http.StatusBadRequest, msg: msg} }

// readRequests decodes a single request or a batch. batched reports
// whether the body was a JSON array.
func readRequests(r *http.Request, maxBody int64) (reqs []GraphQLRequest, batched bool, rej *rejection) {
	if r.Method == http.MethodGet {
		req, rej := queryStringRequest(r)
		if rej != nil {
			return nil, false, rej
		}
		return []GraphQLRequest{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return nil, false, badRequest("unsupported Content-Type")
	}
	body, rej := readBody(r, maxBody)
	if rej != nil {
		return nil, false, rej
	}

	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, true, badRequest("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, true, badRequest("empty batch")
		}
		return reqs, true, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, badRequest("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return []GraphQLRequest{req}, false, nil
}

func queryStringRequest(r *http.Request) (GraphQLRequest, *rejection) {
	q := r.URL.Query()
	req := GraphQLRequest{
		Query:         q.Get("query"),
		OperationName: q.Get("operationName"),
		Variables:     map[string]any{},
	}
	if req.Query == "" {
		return req, badRequest("missing 'query'")
	}
	if v := q.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return req, badRequest("invalid 'variables' JSON")
		}
	}
	return req, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, *rejection) {
	defer r.Body.Close()
	var src io.Reader = r.Body
	if maxBody > 0 {
		src = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, &rejection{status: http.StatusRequestEntityTooLarge, msg: "body too large"}
	}
	return body, nil
}
