package typesync

import (
	"encoding/json"
	"io"
	"net/http"
)

// Response is a typed HTTP response wrapper. It exists so the generator can
// track the shape of the JSON a handler returns: a handler declared to
// return Response[T] produces client types as if it returned T directly. At
// runtime it carries the payload plus the status code and headers to write.
type Response[T any] struct {
	Data   T
	Status int
	Header http.Header
}

// Respond wraps data in a typed Response with the given status code.
func Respond[T any](data T, status int) Response[T] {
	return Response[T]{Data: data, Status: status}
}

// OK wraps data in a typed Response with status 200.
func OK[T any](data T) Response[T] {
	return Respond(data, http.StatusOK)
}

// WithHeader returns a copy of the response with the header set.
func (r Response[T]) WithHeader(key, value string) Response[T] {
	h := r.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set(key, value)
	r.Header = h
	return r
}

// responseWriter is implemented by handler results that control their own
// status code and headers (i.e. Response[T]).
type responseWriter interface {
	writeTo(w http.ResponseWriter) error
}

func (r Response[T]) writeTo(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	return encodeJSON(w, r.Data)
}

// writeResult writes a handler's result: typed responses write themselves,
// anything else is encoded as a 200 JSON body.
func writeResult(w http.ResponseWriter, result any) error {
	if rw, ok := result.(responseWriter); ok {
		return rw.writeTo(w)
	}
	w.Header().Set("Content-Type", "application/json")
	return encodeJSON(w, result)
}

func encodeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
