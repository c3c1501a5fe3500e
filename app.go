package typesync

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"runtime/debug"
	"slices"
	"sync"
)

// App is the central router. It manages route registration, URL converters,
// and middleware, and is the value the generator inspects to discover an
// application's routes. Use Handler() to get an http.Handler for use with
// http.ListenAndServe.
type App struct {
	mu          sync.RWMutex
	routes      []*Route
	converters  map[string]Converter
	middlewares []func(http.Handler) http.Handler
	logger      *slog.Logger
}

// Route is one registered rule plus its endpoint.
type Route struct {
	Rule     *Rule
	Endpoint Endpoint

	pattern  *regexp.Regexp
	argNames []string
}

// Name returns the route's endpoint identifier.
func (r *Route) Name() string { return r.Endpoint.meta().name }

// Methods returns the HTTP methods the route accepts.
func (r *Route) Methods() []string { return r.Endpoint.meta().methods }

func NewApp() *App {
	return &App{
		converters: builtinConverters(),
	}
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets a custom logger for the app.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// RegisterConverter registers a named URL converter for use in rules as
// <name:arg>. Registering over a built-in name replaces it.
func (a *App) RegisterConverter(name string, conv Converter) *App {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.converters[name]; exists {
		a.log().Warn("replacing registered converter", slog.String("converter", name))
	}
	a.converters[name] = conv
	return a
}

// Handle registers an endpoint under a URL rule such as
// "/users/<int:id>/posts". It panics on a malformed rule or an unknown
// converter so registration mistakes surface at startup.
func (a *App) Handle(rule string, endpoint Endpoint) *App {
	parsed, err := ParseRule(rule)
	if err != nil {
		panic("typesync: " + err.Error())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pattern, argNames, err := parsed.pattern(a.converters)
	if err != nil {
		panic("typesync: " + err.Error())
	}

	for _, existing := range a.routes {
		if existing.Rule.Raw == rule {
			a.log().Warn("duplicate route registration", slog.String("rule", rule))
		}
	}

	a.routes = append(a.routes, &Route{
		Rule:     parsed,
		Endpoint: endpoint,
		pattern:  pattern,
		argNames: argNames,
	})
	return a
}

// Routes returns the registered routes in registration order.
func (a *App) Routes() []*Route {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.routes)
}

// Handler returns an http.Handler for use with http.ListenAndServe or other
// HTTP servers. The returned handler includes all configured middleware.
//
// Example:
//
//	app := typesync.NewApp().WithMiddleware(cors)
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	// Apply middleware in reverse order so first added is outermost
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

func (a *App) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// serveHTTP handles incoming requests (internal, called via Handler()).
func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log().Error("PANIC recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeError(w, NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)), a.logger)
		}
	}()

	a.mu.RLock()
	routes := a.routes
	a.mu.RUnlock()

	var allowed []string
	for _, route := range routes {
		m := route.pattern.FindStringSubmatch(req.URL.Path)
		if m == nil {
			continue
		}

		meta := route.Endpoint.meta()
		if !slices.Contains(meta.methods, req.Method) {
			allowed = append(allowed, meta.methods...)
			continue
		}

		args, err := a.pathArgs(route, m[1:])
		if err != nil {
			writeError(w, Errorf(CodeNotFound, "no route matches %q: %v", req.URL.Path, err), a.logger)
			return
		}
		for name, values := range req.URL.Query() {
			args[name] = append(args[name], values...)
		}

		route.Endpoint.serve(w, req, args, a.log())
		return
	}

	if len(allowed) > 0 {
		slices.Sort(allowed)
		allowed = slices.Compact(allowed)
		writeError(w, Errorf(CodeMethodNotAllowed, "method %s not allowed, expected one of %v", req.Method, allowed), a.logger)
		return
	}
	writeError(w, NewError(CodeNotFound, "route not found"), a.logger)
}

// pathArgs converts the captured path segments. Conversion both validates
// the segment (e.g. a well-formed UUID) and canonicalizes its string form
// before the endpoint decodes it into its argument struct.
func (a *App) pathArgs(route *Route, captures []string) (url.Values, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	args := make(url.Values, len(captures))
	for i, name := range route.argNames {
		convName, _ := route.Rule.ConverterFor(name)
		conv, ok := a.converters[convName]
		if !ok {
			return nil, fmt.Errorf("unknown converter %q", convName)
		}
		v, err := convertSegment(conv, captures[i])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args.Set(name, fmt.Sprint(v))
	}
	return args, nil
}
