package typesync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type echoArgs struct {
	ID   int64  `schema:"id"`
	Name string `schema:"name"`
}

func echoHandler(ctx context.Context, args echoArgs) (echoArgs, error) {
	return args, nil
}

func newTestApp() *App {
	app := NewApp()
	app.Handle("/echo/<int:id>", Query(echoHandler))
	app.Handle("/boom", Query(func(ctx context.Context, _ struct{}) (string, error) {
		return "", Errorf(CodeNotFound, "nothing here")
	}))
	app.Handle("/panic", Query(func(ctx context.Context, _ struct{}) (string, error) {
		panic("kaboom")
	}))
	return app
}

func doRequest(t *testing.T, app *App, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) *Error {
	t.Helper()
	var e Error
	if err := json.NewDecoder(w.Body).Decode(&e); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return &e
}

func TestAppRouting(t *testing.T) {
	app := newTestApp()

	w := doRequest(t, app, "GET", "/echo/42?name=ana", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var got echoArgs
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ID != 42 || got.Name != "ana" {
		t.Errorf("decoded args = %+v", got)
	}
}

func TestAppNotFound(t *testing.T) {
	app := newTestApp()

	tests := []string{"/missing", "/echo/not-a-number"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			w := doRequest(t, app, "GET", path, "")
			if w.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", w.Code)
			}
			if e := decodeErrorBody(t, w); e.Code != CodeNotFound {
				t.Errorf("code = %s, want %s", e.Code, CodeNotFound)
			}
		})
	}
}

func TestAppMethodNotAllowed(t *testing.T) {
	app := newTestApp()

	w := doRequest(t, app, "POST", "/echo/42", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	if e := decodeErrorBody(t, w); e.Code != CodeMethodNotAllowed {
		t.Errorf("code = %s", e.Code)
	}
}

// Multiple routes matching the same path must not repeat their methods in
// the 405 diagnostic.
func TestAppMethodNotAllowedDedupesMethods(t *testing.T) {
	app := NewApp()
	app.Handle("/dup", Query(echoHandler))
	app.Handle("/dup", Query(echoHandler))

	w := doRequest(t, app, "POST", "/dup", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	e := decodeErrorBody(t, w)
	if !strings.Contains(e.Message, "[GET]") {
		t.Errorf("message = %q, want a deduplicated method list", e.Message)
	}
}

func TestAppHandlerError(t *testing.T) {
	app := newTestApp()

	w := doRequest(t, app, "GET", "/boom", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	e := decodeErrorBody(t, w)
	if e.Code != CodeNotFound || e.Message != "nothing here" {
		t.Errorf("envelope = %+v", e)
	}
}

func TestAppPanicRecovery(t *testing.T) {
	app := newTestApp()

	w := doRequest(t, app, "GET", "/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	e := decodeErrorBody(t, w)
	if e.Code != CodeInternal {
		t.Errorf("code = %s, want %s", e.Code, CodeInternal)
	}
	if !strings.Contains(e.Message, "kaboom") {
		t.Errorf("message = %q", e.Message)
	}
}

func TestAppCustomConverter(t *testing.T) {
	app := NewApp()
	app.RegisterConverter("bool", boolConverter{})
	app.Handle("/flags/<bool:value>", Query(func(ctx context.Context, args struct {
		Value bool `schema:"value"`
	}) (bool, error) {
		return args.Value, nil
	}))

	w := doRequest(t, app, "GET", "/flags/true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.TrimSpace(w.Body.String()) != "true" {
		t.Errorf("body = %q", w.Body.String())
	}

	// Segments the converter's pattern rejects never reach the handler.
	w = doRequest(t, app, "GET", "/flags/maybe", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

type boolConverter struct{}

func (boolConverter) Regex() string { return `(?:true)|(?:false)` }

func (boolConverter) Convert(segment string) (bool, error) {
	return segment == "true", nil
}

func TestAppJSONEndpoint(t *testing.T) {
	type createBody struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}
	app := NewApp()
	app.Handle("/users/create", ExecJSON(func(ctx context.Context, _ struct{}, body createBody) (createBody, error) {
		return body, nil
	}))

	w := doRequest(t, app, "POST", "/users/create", `{"name":"Ana","email":"ana@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	// Validation failures report invalid_argument with per-field details.
	w = doRequest(t, app, "POST", "/users/create", `{"name":"Ana","email":"not-an-email"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	e := decodeErrorBody(t, w)
	if e.Code != CodeInvalidArgument {
		t.Errorf("code = %s", e.Code)
	}
	if _, ok := e.Details["Email"]; !ok {
		t.Errorf("details = %v, want an Email entry", e.Details)
	}

	// Malformed JSON is rejected before the handler runs.
	w = doRequest(t, app, "POST", "/users/create", `{"name":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAppTypedResponse(t *testing.T) {
	app := NewApp()
	app.Handle("/created", Exec(func(ctx context.Context, _ struct{}) (Response[map[string]string], error) {
		return Respond(map[string]string{"ok": "yes"}, http.StatusCreated).
			WithHeader("X-Request-Id", "abc"), nil
	}))

	w := doRequest(t, app, "POST", "/created", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if got := w.Header().Get("X-Request-Id"); got != "abc" {
		t.Errorf("X-Request-Id = %q", got)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["ok"] != "yes" {
		t.Errorf("body = %v", body)
	}
}

func TestAppMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(label string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, label)
				next.ServeHTTP(w, r)
			})
		}
	}

	app := NewApp().WithMiddleware(mw("outer")).WithMiddleware(mw("inner"))
	app.Handle("/ping", Query(func(ctx context.Context, _ struct{}) (string, error) {
		return "pong", nil
	}))

	doRequest(t, app, "GET", "/ping", "")
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestAppHandleMalformedRulePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a malformed rule")
		}
	}()
	NewApp().Handle("/bad/<int:id", Query(echoHandler))
}

func TestRouteMetadata(t *testing.T) {
	app := NewApp()
	app.Handle("/echo/<int:id>", Query(echoHandler).Named("echo").Methods("GET", "POST"))

	routes := app.Routes()
	if len(routes) != 1 {
		t.Fatalf("routes = %d", len(routes))
	}
	r := routes[0]
	if r.Name() != "echo" {
		t.Errorf("Name() = %q", r.Name())
	}
	if fmt.Sprint(r.Methods()) != "[GET POST]" {
		t.Errorf("Methods() = %v", r.Methods())
	}
	if r.Rule.Raw != "/echo/<int:id>" {
		t.Errorf("Rule.Raw = %q", r.Rule.Raw)
	}
}

func TestFuncName(t *testing.T) {
	if got := funcName(echoHandler); got != "echoHandler" {
		t.Errorf("funcName = %q", got)
	}
}
