package typesync

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var (
	requestKey  = &contextKey{"request"}
	writerKey   = &contextKey{"writer"}
	endpointKey = &contextKey{"endpoint"}
)

// RequestFromContext returns the HTTP request from a handler's context.
func RequestFromContext(ctx context.Context) *http.Request {
	if r, ok := ctx.Value(requestKey).(*http.Request); ok {
		return r
	}
	return nil
}

// EndpointFromContext returns the name of the endpoint serving the request.
func EndpointFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(endpointKey).(string)
	return name, ok
}

// SetHeader sets a response header from within a handler. It requires that
// the handler was invoked through the router.
func SetHeader(ctx context.Context, key, value string) {
	if w, ok := ctx.Value(writerKey).(http.ResponseWriter); ok {
		w.Header().Set(key, value)
	}
}

func newContext(ctx context.Context, w http.ResponseWriter, r *http.Request, endpoint string) context.Context {
	ctx = context.WithValue(ctx, writerKey, w)
	ctx = context.WithValue(ctx, requestKey, r)
	ctx = context.WithValue(ctx, endpointKey, endpoint)
	return ctx
}
