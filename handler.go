package typesync

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	validate      = validator.New()
	schemaDecoder = schema.NewDecoder()
)

func init() {
	schemaDecoder.IgnoreUnknownKeys(true)
}

// Endpoint is a registered route handler. Values are created with Query,
// Exec or ExecJSON; the interface is sealed so the generator can rely on
// those registration shapes when analyzing an application.
type Endpoint interface {
	meta() *endpointMeta
	serve(w http.ResponseWriter, r *http.Request, args url.Values, logger *slog.Logger)
}

type endpointMeta struct {
	name     string
	methods  []string
	jsonBody bool
	cache    *CacheConfig
}

func (m *endpointMeta) cacheControlHeader() string {
	if m.cache == nil {
		return ""
	}
	return m.cache.header()
}

// Handler is an endpoint whose arguments come from the URL: path arguments
// merged with query parameters, decoded into A.
type Handler[A, R any] struct {
	m  endpointMeta
	fn func(context.Context, A) (R, error)
}

// Query creates a GET endpoint.
func Query[A, R any](fn func(context.Context, A) (R, error)) *Handler[A, R] {
	return &Handler[A, R]{
		m:  endpointMeta{name: funcName(fn), methods: []string{http.MethodGet}},
		fn: fn,
	}
}

// Exec creates a POST endpoint.
func Exec[A, R any](fn func(context.Context, A) (R, error)) *Handler[A, R] {
	return &Handler[A, R]{
		m:  endpointMeta{name: funcName(fn), methods: []string{http.MethodPost}},
		fn: fn,
	}
}

// Methods replaces the accepted HTTP methods.
func (h *Handler[A, R]) Methods(methods ...string) *Handler[A, R] {
	h.m.methods = methods
	return h
}

// Named overrides the endpoint identifier derived from the handler
// function's name.
func (h *Handler[A, R]) Named(name string) *Handler[A, R] {
	h.m.name = name
	return h
}

// CacheControl attaches a Cache-Control header to successful responses.
func (h *Handler[A, R]) CacheControl(cfg CacheConfig) *Handler[A, R] {
	h.m.cache = &cfg
	return h
}

func (h *Handler[A, R]) meta() *endpointMeta { return &h.m }

func (h *Handler[A, R]) serve(w http.ResponseWriter, r *http.Request, args url.Values, logger *slog.Logger) {
	var a A
	if err := decodeArgs(&a, args); err != nil {
		writeError(w, Errorf(CodeInvalidArgument, "failed to decode arguments: %v", err), logger)
		return
	}
	if err := validateValue(a); err != nil {
		writeError(w, toError(err), logger)
		return
	}

	result, err := h.fn(newContext(r.Context(), w, r, h.m.name), a)
	if err != nil {
		writeError(w, toError(err), logger)
		return
	}
	if cc := h.m.cacheControlHeader(); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	if err := writeResult(w, result); err != nil {
		logger.Error("failed to encode response",
			slog.String("endpoint", h.m.name), slog.Any("error", err))
	}
}

// JSONHandler is an endpoint that additionally receives the request body
// decoded from JSON into B.
type JSONHandler[A, B, R any] struct {
	m  endpointMeta
	fn func(context.Context, A, B) (R, error)
}

// ExecJSON creates a POST endpoint whose third handler parameter is decoded
// from the request's JSON body.
func ExecJSON[A, B, R any](fn func(context.Context, A, B) (R, error)) *JSONHandler[A, B, R] {
	return &JSONHandler[A, B, R]{
		m:  endpointMeta{name: funcName(fn), methods: []string{http.MethodPost}, jsonBody: true},
		fn: fn,
	}
}

// Methods replaces the accepted HTTP methods.
func (h *JSONHandler[A, B, R]) Methods(methods ...string) *JSONHandler[A, B, R] {
	h.m.methods = methods
	return h
}

// Named overrides the endpoint identifier derived from the handler
// function's name.
func (h *JSONHandler[A, B, R]) Named(name string) *JSONHandler[A, B, R] {
	h.m.name = name
	return h
}

func (h *JSONHandler[A, B, R]) meta() *endpointMeta { return &h.m }

func (h *JSONHandler[A, B, R]) serve(w http.ResponseWriter, r *http.Request, args url.Values, logger *slog.Logger) {
	var a A
	if err := decodeArgs(&a, args); err != nil {
		writeError(w, Errorf(CodeInvalidArgument, "failed to decode arguments: %v", err), logger)
		return
	}

	var body B
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, Errorf(CodeInvalidArgument, "failed to decode body: %v", err), logger)
			return
		}
	}
	if err := validateValue(body); err != nil {
		writeError(w, toError(err), logger)
		return
	}

	result, err := h.fn(newContext(r.Context(), w, r, h.m.name), a, body)
	if err != nil {
		writeError(w, toError(err), logger)
		return
	}
	if err := writeResult(w, result); err != nil {
		logger.Error("failed to encode response",
			slog.String("endpoint", h.m.name), slog.Any("error", err))
	}
}

// decodeArgs decodes merged path and query values into a struct pointer.
// Non-struct argument types (e.g. struct{} placeholders) are left zero.
func decodeArgs(dst any, args url.Values) error {
	if reflect.ValueOf(dst).Elem().Kind() != reflect.Struct {
		return nil
	}
	return schemaDecoder.Decode(dst, args)
}

// validateValue runs struct validation; non-struct values pass.
func validateValue(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(rv.Interface())
}

// funcName derives an endpoint identifier from a handler function's name.
// Anonymous functions get names like "main_func1"; use Named to override.
func funcName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	full := runtime.FuncForPC(pc).Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	return strings.ReplaceAll(full, ".", "_")
}
