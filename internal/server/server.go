package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/metadata"

	eventbus "github.com/hanpama/typegraph/internal/eventbus"
	events "github.com/hanpama/typegraph/internal/events"
	executor "github.com/hanpama/typegraph/internal/executor"
	reqid "github.com/hanpama/typegraph/internal/reqid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Executor runs one operation against a built schema. *mapping.Built
// implements it.
type Executor interface {
	Execute(ctx context.Context, query, operationName string, variables map[string]any) *executor.ExecutionResult
}

// Handler is an http.Handler that serves a GraphQL endpoint.
type Handler struct {
	exec Executor
	opt  Options
}

type Options struct {
	// Timeout applies when the request context has no deadline. 0 disables it.
	Timeout time.Duration

	Pretty bool

	// MaxBodyBytes limits the request body. 0 means unlimited.
	MaxBodyBytes int64

	CORS CORSOptions

	// MetadataHeaders lists HTTP headers copied into the outgoing gRPC
	// metadata of the resolver context. Names are case-insensitive.
	MetadataHeaders []string

	Logger logrus.FieldLogger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option     { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                     { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option        { return func(o *Options) { o.MaxBodyBytes = n } }
func WithLogger(l logrus.FieldLogger) Option { return func(o *Options) { o.Logger = l } }
func WithCORS(origins ...string) Option      { return func(o *Options) { o.CORS.AllowedOrigins = origins } }
func WithMetadataHeaders(h ...string) Option { return func(o *Options) { o.MetadataHeaders = h } }

// New creates a GraphQL HTTP handler serving exec.
func New(exec Executor, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = logrus.StandardLogger()
	}
	return &Handler{exec: exec, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	log := h.opt.Logger.WithField("request_id", rid)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{RequestID: rid, Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{RequestID: rid, Request: r, Status: status, Duration: time.Since(start)})
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"status":   status,
			"duration": time.Since(start),
		}).Debug("http request")
	}()
	reject := func(rej *rejection) {
		status = rej.status
		log.WithField("reason", rej.msg).Warn("rejected graphql request")
		writeJSON(w, status, errorResult(rej.msg), h.opt.Pretty)
	}

	switch r.Method {
	case http.MethodOptions:
		if h.opt.CORS.enabled() {
			h.opt.CORS.setHeaders(w, r)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	case http.MethodGet, http.MethodPost:
	default:
		reject(&rejection{status: http.StatusMethodNotAllowed, msg: "method not allowed"})
		return
	}

	reqs, batched, rej := readRequests(r, h.opt.MaxBodyBytes)
	if rej != nil {
		reject(rej)
		return
	}
	if h.opt.CORS.enabled() {
		h.opt.CORS.setHeaders(w, r)
	}
	if r.Method == http.MethodGet && reqs[0].operationType() == "mutation" {
		reject(&rejection{status: http.StatusMethodNotAllowed, msg: "mutations are not allowed over GET"})
		return
	}

	ctx = h.forwardHeaders(ctx, r, rid)
	if !batched {
		writeJSON(w, status, h.executeOne(ctx, log, rid, reqs[0]), h.opt.Pretty)
		return
	}
	out := make([]*executor.ExecutionResult, len(reqs))
	for i, req := range reqs {
		out[i] = h.executeOne(ctx, log, rid, req)
	}
	writeJSON(w, status, out, h.opt.Pretty)
}

// forwardHeaders exposes the allowed request headers and the request id as
// outgoing gRPC metadata.
func (h *Handler) forwardHeaders(ctx context.Context, r *http.Request, rid string) context.Context {
	md := metadata.MD{}
	for _, name := range h.opt.MetadataHeaders {
		if v := r.Header.Values(name); len(v) > 0 {
			md[strings.ToLower(name)] = v
		}
	}
	md["graphql-request-id"] = []string{rid}
	return metadata.NewOutgoingContext(ctx, md)
}

func (h *Handler) executeOne(ctx context.Context, log logrus.FieldLogger, rid string, req GraphQLRequest) *executor.ExecutionResult {
	opType := req.operationType()
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		RequestID:     rid,
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
	})
	result := h.exec.Execute(ctx, req.Query, req.OperationName, req.Variables)
	var first error
	if len(result.Errors) > 0 {
		first = result.Errors[0]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		RequestID:     rid,
		OperationName: req.OperationName,
		OperationType: opType,
		ErrorCount:    len(result.Errors),
		Err:           first,
		Duration:      time.Since(start),
	})

	entry := log.WithFields(logrus.Fields{
		"operation": req.OperationName,
		"type":      opType,
		"errors":    len(result.Errors),
		"duration":  time.Since(start),
	})
	if first != nil {
		entry.WithError(first).Info("graphql operation failed")
	} else {
		entry.Debug("graphql operation")
	}
	return result
}
