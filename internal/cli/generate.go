package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/autodocs/autodocs/internal/emitter"
	"github.com/autodocs/autodocs/internal/extract"
	"github.com/autodocs/autodocs/internal/openapi"
	"github.com/autodocs/autodocs/internal/runner"
	"github.com/autodocs/autodocs/internal/spec"
)

// configFiles are looked up in the working directory when --config is not
// given, in this order.
var configFiles = []string{"autodocs.config.json", "autodocs.config.yaml", "autodocs.config.yml"}

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	File       string
	Lang       string
	Output     string
	Format     string
	Workers    int
	Title      string
	Version    string
	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool

	stdout io.Writer
	stderr io.Writer
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Lang: "js", Output: "output", Format: string(emitter.Markdown)}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate API documentation for a source file or directory",
		Long: "Generate API documentation for every Express or Flask source file found at --file. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  autodocs generate --file ./routes --lang js --output ./docs
  autodocs generate -f app.py --lang py --format openapi
  autodocs --config autodocs.config.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			cfg.stdout = cmd.OutOrStdout()
			cfg.stderr = cmd.ErrOrStderr()
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringP("file", "f", "", "Source file or directory to scan")
	flags.String("lang", "", "Source language (js|py); defaults to js")
	flags.StringP("output", "o", "", "Output directory; defaults to output")
	flags.String("format", "", "Output format (markdown|openapi|swagger); defaults to markdown")
	flags.Int("workers", 0, "Files extracted in parallel; defaults to the number of CPUs")
	flags.String("title", "", "OpenAPI info title; defaults to the dialect title")
	flags.String("api-version", "", "OpenAPI info version; defaults to 1.0.0")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output files when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfig returns the defaults overlaid with the config file, if any.
func loadConfig(cmd *cobra.Command) (GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return cfg, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		configPath = discoverConfig(".")
	}
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// discoverConfig returns the first well-known config file present in dir.
func discoverConfig(dir string) string {
	for _, name := range configFiles {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"file":        &cfg.File,
		"lang":        &cfg.Lang,
		"output":      &cfg.Output,
		"format":      &cfg.Format,
		"title":       &cfg.Title,
		"api-version": &cfg.Version,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}
	bools := map[string]*bool{
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}
	if flags.Changed("workers") {
		value, err := flags.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.File = strings.TrimSpace(c.File)
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	c.Output = strings.TrimSpace(c.Output)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Title = strings.TrimSpace(c.Title)
	c.Version = strings.TrimSpace(c.Version)
	if c.Lang == "" {
		c.Lang = "js"
	}
	if c.Output == "" {
		c.Output = "output"
	}
}

func (c *GenerateConfig) validate() error {
	if c.File == "" {
		return newUsageError("generate: --file is required (set via flag or config file)")
	}
	if _, err := extract.Lookup(c.Lang); err != nil {
		return newUsageError(fmt.Sprintf("generate: unsupported --lang: %v", err))
	}
	format, err := emitter.ParseFormat(c.Format)
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: unsupported --format: %v", err))
	}
	c.Format = string(format)
	if c.Workers < 0 {
		return newUsageError(fmt.Sprintf("generate: --workers must not be negative, got %d", c.Workers))
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	stdout, stderr := cfg.stdout, cfg.stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := newLogger(stderr, cfg.Verbose)

	dialect, err := extract.Lookup(cfg.Lang)
	if err != nil {
		return newUsageError(err.Error())
	}
	format, err := emitter.ParseFormat(cfg.Format)
	if err != nil {
		return newUsageError(err.Error())
	}

	// 1) Discover and extract every source file
	batch, runErr := runner.Run(ctx, runner.Options{
		Input:   cfg.File,
		Dialect: dialect,
		Workers: cfg.Workers,
		Logger:  logger.Named("runner"),
	})
	if batch == nil {
		var se *spec.SourceError
		if errors.As(runErr, &se) && se.Code == spec.InputError {
			return newUsageError(fmt.Sprintf("input: %s", se.Message))
		}
		return runErr
	}

	// 2) Render and write the documents that have routes
	absOut := cfg.Output
	if ap, err := filepath.Abs(cfg.Output); err == nil {
		absOut = ap
	}
	res, emitErr := emitter.Emit(ctx, batch.Documents, emitter.Options{
		OutDir: cfg.Output,
		Root:   batch.Root,
		Format: format,
		Info:   openapi.Info{Title: cfg.Title, Version: cfg.Version},
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
		Logger: logger.Named("emitter"),
	})
	if res == nil {
		return wrapOutputError(emitErr, absOut)
	}

	// 3) Report
	if cfg.DryRun {
		printPlan(stdout, res)
	} else {
		for _, p := range res.Planned {
			okColor.Fprintf(stdout, "docs generated at %s\n", filepath.Join(res.OutDir, filepath.FromSlash(p.RelPath)))
		}
	}
	if len(res.Planned) == 0 && len(batch.Failed) == 0 {
		logger.Info("no routes found", "input", cfg.File)
		fmt.Fprintf(stdout, "No routes found in %s\n", cfg.File)
	}
	for _, f := range batch.Failed {
		failColor.Fprintf(stdout, "failed to read %s\n", f)
	}

	var merr *multierror.Error
	if runErr != nil {
		merr = multierror.Append(merr, runErr)
	}
	if emitErr != nil {
		merr = multierror.Append(merr, emitErr)
	}
	return merr.ErrorOrNil()
}

func printPlan(w io.Writer, res *emitter.Result) {
	infoColor.Fprintf(w, "Planned writes to %s (%d files):\n", res.OutDir, len(res.Planned))
	for _, p := range res.Planned {
		fmt.Fprintf(w, "- %s (%d routes, %s, from %s)\n", p.RelPath, p.Routes, humanize.Bytes(uint64(p.Size)), p.Source)
	}
}

func wrapOutputError(err error, outDir string) error {
	if errors.Is(err, emitter.ErrExists) {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --output or use --force to overwrite.", outDir, err))
	}
	// Provide clearer guidance for common FS failures.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --output.", outDir, err))
	}
	return err
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "file", "input":
			cfg.File, err = valueAsString(value)
		case "lang", "language":
			cfg.Lang, err = valueAsString(value)
		case "output", "out":
			cfg.Output, err = valueAsString(value)
		case "format":
			cfg.Format, err = valueAsString(value)
		case "workers":
			cfg.Workers, err = valueAsInt(value)
		case "title":
			cfg.Title, err = valueAsString(value)
		case "version", "apiversion":
			cfg.Version, err = valueAsString(value)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

// loggerFor builds the logger for commands that do not carry a
// GenerateConfig.
func loggerFor(cmd *cobra.Command) hclog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return newLogger(cmd.ErrOrStderr(), verbose)
}
