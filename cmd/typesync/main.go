// Command typesync generates TypeScript type declarations and a typed API
// client from the routes registered on a typesync.App.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"

	"github.com/ArmindoFlores/typesync/tsgen"
	"github.com/ArmindoFlores/typesync/tsgen/translate"
)

type CLI struct {
	Version         VersionCmd         `cmd:"" help:"Print version information."`
	Gen             GenCmd             `cmd:"" help:"Generate TypeScript types and API functions."`
	ListTranslators ListTranslatorsCmd `cmd:"" name:"list-translators" help:"Show available translators and their default priorities."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

// fileConfig is the YAML shape of --config files. Flags given on the
// command line win over file values.
type fileConfig struct {
	Packages           []string       `yaml:"packages"`
	Endpoint           string         `yaml:"endpoint"`
	TypesFile          string         `yaml:"types_file"`
	APIsFile           string         `yaml:"apis_file"`
	ReturnTypeFormat   string         `yaml:"return_type_format"`
	ArgsTypeFormat     string         `yaml:"args_type_format"`
	BodyTypeFormat     string         `yaml:"body_type_format"`
	FunctionNameFormat string         `yaml:"function_name_format"`
	Inference          bool           `yaml:"inference"`
	ResolveDirectives  bool           `yaml:"resolve_directives"`
	StopOnError        bool           `yaml:"stop_on_error"`
	TranslatorPriority map[string]int `yaml:"translator_priority"`
}

type GenCmd struct {
	Out string `arg:"" help:"Output directory for generated files."`

	Package            []string `help:"Go package pattern to analyze. May be repeated." short:"p" placeholder:"PATTERN"`
	Dir                string   `help:"Working directory for package loading." default:"."`
	Endpoint           string   `help:"Base endpoint prefixed to every route URL." short:"E"`
	TypesFile          string   `help:"Name of the generated type definitions file (defaults to 'types.ts')."`
	APIsFile           string   `help:"Name of the generated API functions file (defaults to 'apis.ts')." name:"apis-file"`
	ReturnTypeFormat   string   `help:"Format for return type names ({d} {cc} {pc} {uc} {lc} {sc}). Defaults to '{pc}ReturnType'."`
	ArgsTypeFormat     string   `help:"Format for argument type names. Defaults to '{pc}ArgsType'."`
	BodyTypeFormat     string   `help:"Format for JSON body type names. Defaults to '{pc}BodyType'."`
	FunctionNameFormat string   `help:"Format for API function names ({r_*} route, {m_*} method). Defaults to '{m_lc}{r_pc}'."`

	Inference          bool     `help:"Infer return types when annotations cannot be resolved." short:"i"`
	ResolveDirectives  bool     `help:"Resolve //typesync:type and //typesync:returns directives during inference."`
	IncludeUnannotated bool     `help:"Emit unannotated routes as 'any' instead of skipping them."`
	StopOnError        bool     `help:"Stop after the first route that fails to resolve."`
	TranslatorPriority []string `help:"Override a translator's priority as ID:PRIORITY. May be repeated." placeholder:"ID:PRIORITY"`

	Config string `help:"YAML config file; command-line flags take precedence." type:"existingfile"`
	Watch  bool   `help:"Watch the analyzed packages and regenerate on changes." short:"w"`
}

func (c *GenCmd) Run() error {
	cfg, err := c.buildConfig()
	if err != nil {
		return err
	}

	run := func() error {
		report, err := tsgen.Generate(context.Background(), cfg)
		if err != nil {
			return err
		}
		for _, f := range report.Failures {
			pterm.Error.Printfln("route %s: %v", f.Endpoint, f.Err)
		}
		if !report.OK() {
			return fmt.Errorf("errors occurred during file generation")
		}
		pterm.Success.Printfln("generated %d route(s), skipped %d", len(report.Generated), len(report.Skipped))
		return nil
	}

	if !c.Watch {
		return run()
	}
	return watch(cfg.Dir, run)
}

func (c *GenCmd) buildConfig() (*tsgen.Config, error) {
	var file fileConfig
	if c.Config != "" {
		raw, err := os.ReadFile(c.Config)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := &tsgen.Config{
		OutDir:                c.Out,
		Dir:                   c.Dir,
		Packages:              coalesceSlice(c.Package, file.Packages),
		Endpoint:              coalesce(c.Endpoint, file.Endpoint),
		TypesFile:             coalesce(c.TypesFile, file.TypesFile),
		APIsFile:              coalesce(c.APIsFile, file.APIsFile),
		ReturnTypeFormat:      coalesce(c.ReturnTypeFormat, file.ReturnTypeFormat),
		ArgsTypeFormat:        coalesce(c.ArgsTypeFormat, file.ArgsTypeFormat),
		BodyTypeFormat:        coalesce(c.BodyTypeFormat, file.BodyTypeFormat),
		FunctionNameFormat:    coalesce(c.FunctionNameFormat, file.FunctionNameFormat),
		Inference:             c.Inference || file.Inference,
		ResolveTypeDirectives: c.ResolveDirectives || file.ResolveDirectives,
		StopOnError:           c.StopOnError || file.StopOnError,
		TranslatorPriorities:  map[string]int{},
		Logger:                slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	if c.IncludeUnannotated {
		skip := false
		cfg.SkipUnannotated = &skip
	}

	for id, p := range file.TranslatorPriority {
		cfg.TranslatorPriorities[id] = p
	}
	for _, spec := range c.TranslatorPriority {
		id, raw, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --translator-priority %q, expected ID:PRIORITY", spec)
		}
		p, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid priority in %q: %w", spec, err)
		}
		cfg.TranslatorPriorities[id] = p
	}
	return cfg, nil
}

// watch regenerates on any Go source change under dir, debounced so editor
// save bursts trigger a single run.
func watch(dir string, run func() error) error {
	if err := run(); err != nil {
		pterm.Error.Printfln("%v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") && path != dir {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	pterm.Info.Printfln("watching %s for changes", dir)

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				if err := run(); err != nil {
					pterm.Error.Printfln("%v", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			pterm.Error.Printfln("watch error: %v", err)
		}
	}
}

type ListTranslatorsCmd struct{}

func (c *ListTranslatorsCmd) Run() error {
	data := pterm.TableData{{"ID", "Priority"}}
	for _, reg := range translate.Builtins() {
		data = append(data, []string{reg.ID, strconv.Itoa(reg.DefaultPriority)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func coalesce(flag, file string) string {
	if flag != "" {
		return flag
	}
	return file
}

func coalesceSlice(flag, file []string) []string {
	if len(flag) > 0 {
		return flag
	}
	return file
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("typesync"),
		kong.Description("Generate TypeScript types and API clients from typesync routes."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
