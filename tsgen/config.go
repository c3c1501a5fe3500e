// Package tsgen generates TypeScript declarations and a typed client call
// surface from the routes an application registers on a typesync.App. The
// application's packages are statically analyzed; handlers' declared types
// are translated through a pluggable translator chain, with best-effort
// inference as a fallback for unannotated results.
package tsgen

import (
	"log/slog"

	"github.com/ArmindoFlores/typesync/tsgen/translate"
)

// Config controls generation.
type Config struct {
	// OutDir is the directory where generated files will be written.
	// e.g. "./client/src/api"
	OutDir string

	// Packages are go/packages load patterns for the application packages
	// that register routes. e.g. []string{"./..."}
	Packages []string

	// Dir is the working directory for package loading, usually the
	// application's module root. Empty means the current directory.
	Dir string

	// Endpoint is a base URL prefix added to every generated route URL.
	Endpoint string

	// TypesFile and APIsFile name the generated outputs.
	// Defaults: "types.ts" and "apis.ts".
	TypesFile string
	APIsFile  string

	// Name formats. Placeholders: {d} (as written), {cc} (camelCase),
	// {pc} (PascalCase), {uc} (UPPERCASE), {lc} (lowercase),
	// {sc} (snake_case). FunctionNameFormat uses the r_ (route) and
	// m_ (HTTP method) prefixed variants.
	// Defaults: "{pc}ReturnType", "{pc}ArgsType", "{pc}BodyType",
	// "{m_lc}{r_pc}".
	ReturnTypeFormat   string
	ArgsTypeFormat     string
	BodyTypeFormat     string
	FunctionNameFormat string

	// Inference enables the fallback static inference of return types for
	// handlers whose declared result carries no shape.
	Inference bool

	// ResolveTypeDirectives enables //typesync:type and //typesync:returns
	// comment directives as statically-resolved annotation overrides during
	// inference.
	ResolveTypeDirectives bool

	// SkipUnannotated skips routes with no resolvable return annotation
	// instead of emitting them as any. Default true.
	SkipUnannotated *bool

	// StopOnError stops generation after the first failed route. The
	// failure is still reported cleanly.
	StopOnError bool

	// Translators are additional translator registrations, evaluated
	// together with the built-ins by priority.
	Translators []translate.Registration

	// TranslatorPriorities overrides translator priorities by ID.
	TranslatorPriorities map[string]int

	// Logger receives structured diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// applyConfigDefaults returns a copy of cfg with defaults filled in.
func applyConfigDefaults(cfg *Config) *Config {
	out := *cfg
	if out.TypesFile == "" {
		out.TypesFile = "types.ts"
	}
	if out.APIsFile == "" {
		out.APIsFile = "apis.ts"
	}
	if out.ReturnTypeFormat == "" {
		out.ReturnTypeFormat = "{pc}ReturnType"
	}
	if out.ArgsTypeFormat == "" {
		out.ArgsTypeFormat = "{pc}ArgsType"
	}
	if out.BodyTypeFormat == "" {
		out.BodyTypeFormat = "{pc}BodyType"
	}
	if out.FunctionNameFormat == "" {
		out.FunctionNameFormat = "{m_lc}{r_pc}"
	}
	if out.SkipUnannotated == nil {
		skip := true
		out.SkipUnannotated = &skip
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if len(out.Packages) == 0 {
		out.Packages = []string{"./..."}
	}
	return &out
}
