package tsgen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ArmindoFlores/typesync/tsgen/provider"
	"github.com/ArmindoFlores/typesync/tsgen/sink"
	"github.com/ArmindoFlores/typesync/tsgen/translate"
	"github.com/ArmindoFlores/typesync/tsgen/writer"
)

// RouteFailure records one route whose types could not be resolved.
type RouteFailure struct {
	Endpoint string
	Err      error
}

// Report summarizes a generation run. A run with failures still produces
// output for every route that resolved.
type Report struct {
	// Generated lists the endpoints written to the output.
	Generated []string

	// Skipped lists endpoints skipped for lack of a resolvable annotation.
	Skipped []string

	// Failures lists endpoints whose extraction failed.
	Failures []RouteFailure
}

// OK reports whether every route resolved.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Generate analyzes the configured packages and writes the TypeScript
// outputs to cfg.OutDir. Per-route faults are contained: a failed route is
// reported and the rest still generate, unless cfg.StopOnError is set.
func Generate(ctx context.Context, cfg *Config) (*Report, error) {
	cfg = applyConfigDefaults(cfg)
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("OutDir is required")
	}
	return GenerateTo(ctx, cfg, sink.NewFilesystemSink(cfg.OutDir))
}

// GenerateTo is Generate with an explicit output sink.
func GenerateTo(ctx context.Context, cfg *Config, out sink.OutputSink) (*Report, error) {
	cfg = applyConfigDefaults(cfg)

	src, err := provider.Load(ctx, provider.Options{
		Packages: cfg.Packages,
		Dir:      cfg.Dir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	chain := translate.NewChain(cfg.Translators, cfg.TranslatorPriorities)

	report := &Report{}
	var resolved []writer.RouteTypes
	for _, route := range src.Routes {
		entry, skipped, err := extractRoute(route, src, chain, cfg)
		if err != nil {
			cfg.Logger.Error("couldn't resolve route types",
				slog.String("route", route.Endpoint),
				slog.Any("error", err))
			report.Failures = append(report.Failures, RouteFailure{Endpoint: route.Endpoint, Err: err})
			if cfg.StopOnError {
				break
			}
			continue
		}
		if skipped {
			cfg.Logger.Info("skipping unannotated route", slog.String("route", route.Endpoint))
			report.Skipped = append(report.Skipped, route.Endpoint)
			continue
		}
		resolved = append(resolved, entry)
		report.Generated = append(report.Generated, route.Endpoint)
	}

	w := writer.New(writer.Options{
		TypesFile:          cfg.TypesFile,
		APIsFile:           cfg.APIsFile,
		Endpoint:           cfg.Endpoint,
		ReturnTypeFormat:   cfg.ReturnTypeFormat,
		ArgsTypeFormat:     cfg.ArgsTypeFormat,
		BodyTypeFormat:     cfg.BodyTypeFormat,
		FunctionNameFormat: cfg.FunctionNameFormat,
	})
	if err := w.Write(ctx, resolved, out); err != nil {
		return report, err
	}
	return report, nil
}

// extractRoute resolves one route's types. Panics from the type walk are
// contained here so a single route can never abort the batch.
func extractRoute(route *provider.Route, src *provider.Source, chain *translate.Chain, cfg *Config) (entry writer.RouteTypes, skipped bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while resolving route: %v", rec)
		}
	}()

	ex := NewRouteTypeExtractor(route, src, chain, cfg)

	returns, err := ex.ReturnTypes()
	if err != nil {
		return writer.RouteTypes{}, false, err
	}
	if returns == nil {
		return writer.RouteTypes{}, true, nil
	}
	args, err := ex.ArgsTypes()
	if err != nil {
		return writer.RouteTypes{}, false, err
	}
	bodies, err := ex.BodyTypes()
	if err != nil {
		return writer.RouteTypes{}, false, err
	}

	return writer.RouteTypes{
		RuleName: ex.RuleName(),
		RuleURL:  ex.RuleURL(),
		Methods:  ex.Methods(),
		Args:     args,
		Returns:  returns,
		Bodies:   bodies,
	}, false, nil
}
