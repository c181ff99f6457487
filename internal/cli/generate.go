package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	genspec "github.com/mark3labs/apidecl/internal/spec"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by generate.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatOpenAPI2 = "openapi2"
	FormatOpenAPI3 = "openapi3"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Catalog              string
	Resource             string
	All                  bool
	Listing              bool
	Format               string
	Out                  string
	BasePath             string
	RequestURL           string
	APIVersion           string
	Title                string
	UseCamelCaseNames    bool
	UseUnderscoreNames   bool
	DisableAutoBodyParam bool
	UseHTTPS             bool
	Methods              []string
	IncludePaths         []string
	ConfigPath           string
	Force                bool
	Verbose              bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Format: FormatJSON}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Swagger 1.2 API declarations from a route catalog",
		Long: "Generate the API declaration of one resource, or of every resource, from a route catalog. " +
			"Declarations can also be exported as OpenAPI 2.0 or 3.0 documents. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  apidecl generate --catalog routes.yaml --resource widgets
  apidecl generate --catalog routes.yaml --all --out ./docs --format yaml
  apidecl --config apidecl.yaml generate --resource widgets --format openapi3`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("catalog", "", "Path or URL to the route catalog (YAML or JSON)")
	flags.String("resource", "", "Resource to document, e.g. widgets or /widgets")
	flags.Bool("all", false, "Document every resource, one file per resource under --out")
	flags.Bool("listing", false, "With --all, also write the resource listing")
	flags.String("format", "", "Output format (json|yaml|openapi2|openapi3); defaults to json")
	flags.String("out", "", "Output file, or directory with --all; stdout when omitted")
	flags.String("base-path", "", "basePath advertised by the declarations")
	flags.String("request-url", "", "URL the declarations are served from; derives basePath when none is set")
	flags.String("api-version", "", "apiVersion advertised by the declarations")
	flags.String("title", "", "info.title of exported OpenAPI documents")
	flags.Bool("camel-case", false, "Camel-case model property names")
	flags.Bool("underscore", false, "Use lowercase_underscore model property names (with --camel-case)")
	flags.Bool("no-auto-body", false, "Do not synthesize body parameters for non-GET operations")
	flags.Bool("https", false, "Upgrade an http basePath to https")
	flags.StringSlice("methods", nil, "Only include operations using these HTTP methods")
	flags.StringSlice("include-paths", nil, "Only include routes whose path matches one of these regular expressions")
	flags.Bool("force", false, "Overwrite existing output files")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
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

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"catalog", &cfg.Catalog},
		{"resource", &cfg.Resource},
		{"format", &cfg.Format},
		{"out", &cfg.Out},
		{"base-path", &cfg.BasePath},
		{"request-url", &cfg.RequestURL},
		{"api-version", &cfg.APIVersion},
		{"title", &cfg.Title},
	}
	for _, s := range strs {
		if flags.Lookup(s.name) == nil || !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"all", &cfg.All},
		{"listing", &cfg.Listing},
		{"camel-case", &cfg.UseCamelCaseNames},
		{"underscore", &cfg.UseUnderscoreNames},
		{"no-auto-body", &cfg.DisableAutoBodyParam},
		{"https", &cfg.UseHTTPS},
		{"force", &cfg.Force},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if flags.Lookup(b.name) == nil || !flags.Changed(b.name) {
			continue
		}
		value, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = value
	}

	if flags.Lookup("methods") != nil && flags.Changed("methods") {
		value, err := flags.GetStringSlice("methods")
		if err != nil {
			return err
		}
		cfg.Methods = sanitizeList(value)
	}
	if flags.Lookup("include-paths") != nil && flags.Changed("include-paths") {
		value, err := flags.GetStringSlice("include-paths")
		if err != nil {
			return err
		}
		cfg.IncludePaths = sanitizeList(value)
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Catalog = strings.TrimSpace(c.Catalog)
	c.Resource = strings.TrimSpace(c.Resource)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Out = strings.TrimSpace(c.Out)
	c.BasePath = strings.TrimSpace(c.BasePath)
	c.RequestURL = strings.TrimSpace(c.RequestURL)
	c.APIVersion = strings.TrimSpace(c.APIVersion)
	c.Title = strings.TrimSpace(c.Title)
	c.Methods = sanitizeList(c.Methods)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToUpper(m)
	}
	c.IncludePaths = sanitizeList(c.IncludePaths)
}

func (c *GenerateConfig) validate() error {
	if c.Catalog == "" {
		return newUsageError("generate: --catalog is required (set via flag or config file)")
	}

	switch c.Format {
	case "":
		c.Format = FormatJSON
	case FormatJSON, FormatYAML, FormatOpenAPI2, FormatOpenAPI3:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --format %q (allowed: json, yaml, openapi2, openapi3)", c.Format))
	}

	switch {
	case c.All && c.Resource != "":
		return newUsageError("generate: --resource and --all are mutually exclusive")
	case !c.All && c.Resource == "":
		return newUsageError("generate: one of --resource or --all is required")
	case c.All && c.Out == "":
		return newUsageError("generate: --all writes one file per resource and needs --out <dir>")
	case c.Listing && !c.All:
		return newUsageError("generate: --listing requires --all")
	}

	if c.UseUnderscoreNames && !c.UseCamelCaseNames {
		return newUsageError("generate: --underscore only applies together with --camel-case")
	}

	return nil
}

// buildOptions translates the configuration into declaration build options.
// The catalog's own basePath and apiVersion apply when none is configured.
func (c *GenerateConfig) buildOptions(cat *genspec.Catalog, logger *slog.Logger) []genspec.BuildOption {
	base := c.BasePath
	if base == "" {
		base = cat.BasePath
	}
	version := c.APIVersion
	if version == "" {
		version = cat.APIVersion
	}
	return []genspec.BuildOption{
		genspec.WithAPIVersion(version),
		genspec.WithBasePath(genspec.ResolveBasePath(base, c.RequestURL, c.UseHTTPS)),
		genspec.WithCamelCaseNames(c.UseCamelCaseNames),
		genspec.WithUnderscoreNames(c.UseUnderscoreNames),
		genspec.WithAutoBodyParam(!c.DisableAutoBodyParam),
		genspec.WithMethods(c.Methods),
		genspec.WithPathPatterns(c.IncludePaths),
		genspec.WithLogger(logger),
	}
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(os.Stderr, cfg.Verbose)

	cat, err := genspec.LoadCatalog(ctx, cfg.Catalog, genspec.WithLoadLogger(logger))
	if err != nil {
		return specErrorToUsage(err)
	}
	logger.Debug("loaded catalog", "catalog", cfg.Catalog, "types", len(cat.Types), "routes", len(cat.Routes))
	opts := cfg.buildOptions(cat, logger)

	if !cfg.All {
		resource := genspec.ResourcePath(cfg.Resource)
		if !containsString(genspec.Resources(cat.Routes, opts...), resource) {
			return newUsageError(fmt.Sprintf("generate: no routes for resource %q in %s", resource, cfg.Catalog))
		}
		doc, err := genspec.BuildDeclaration(ctx, cat.Routes, resource, opts...)
		if err != nil {
			return fmt.Errorf("build declaration: %w", err)
		}
		data, err := renderDeclaration(ctx, doc, cfg)
		if err != nil {
			return err
		}
		if cfg.Out == "" || cfg.Out == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := writeOutput(cfg.Out, data, cfg.Force); err != nil {
			return wrapOutputError(err, cfg.Out)
		}
		fmt.Fprintf(os.Stdout, "Wrote %s to %s\n", resource, cfg.Out)
		return nil
	}

	docs, err := genspec.BuildAll(ctx, cat.Routes, opts...)
	if err != nil {
		return fmt.Errorf("build declarations: %w", err)
	}
	if len(docs) == 0 {
		return newUsageError(fmt.Sprintf("generate: %s has no visible routes", cfg.Catalog))
	}
	resources := make([]string, 0, len(docs))
	for res := range docs {
		resources = append(resources, res)
	}
	sort.Strings(resources)

	ext := fileExtension(cfg.Format)
	for _, res := range resources {
		data, err := renderDeclaration(ctx, docs[res], cfg)
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.Out, resourceFileName(res)+ext)
		if err := writeOutput(path, data, cfg.Force); err != nil {
			return wrapOutputError(err, cfg.Out)
		}
		logger.Debug("wrote declaration", "resource", res, "path", path)
	}
	if cfg.Listing {
		data, err := encode(genspec.BuildListing(cat.Routes, opts...), cfg.Format)
		if err != nil {
			return err
		}
		if err := writeOutput(filepath.Join(cfg.Out, "resources"+ext), data, cfg.Force); err != nil {
			return wrapOutputError(err, cfg.Out)
		}
	}
	fmt.Fprintf(os.Stdout, "Wrote %d declarations to %s\n", len(resources), cfg.Out)
	return nil
}

func renderDeclaration(ctx context.Context, doc *genspec.Declaration, cfg *GenerateConfig) ([]byte, error) {
	var exportOpts []genspec.ExportOption
	if cfg.Title != "" {
		exportOpts = append(exportOpts, genspec.WithTitle(cfg.Title))
	}
	switch cfg.Format {
	case FormatOpenAPI2:
		doc2, err := genspec.ToOpenAPI2(doc, exportOpts...)
		if err != nil {
			return nil, specErrorToUsage(err)
		}
		return encode(doc2, FormatJSON)
	case FormatOpenAPI3:
		doc3, err := genspec.ToOpenAPI3(ctx, doc, exportOpts...)
		if err != nil {
			return nil, specErrorToUsage(err)
		}
		return encode(doc3, FormatJSON)
	default:
		return encode(doc, cfg.Format)
	}
}

// specErrorToUsage maps structured spec errors into friendly messages.
func specErrorToUsage(err error) error {
	var se *genspec.SpecError
	if !errors.As(err, &se) {
		return err
	}
	msg := fmt.Sprintf("%s: %s", se.Code, se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return wrapUsageError(msg, err)
}

func wrapOutputError(err error, out string) error {
	if errors.Is(err, errOutputExists) {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: use --force to overwrite.", out, err))
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out.", out, msg))
	}
	return err
}

// resourceFileName is the base name of a resource's declaration file. The
// root resource "/" is written as _root.
func resourceFileName(resource string) string {
	if name := strings.Trim(resource, "/"); name != "" {
		return name
	}
	return "_root"
}

func fileExtension(format string) string {
	if format == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// newLogger writes text logs to w: debug and up when verbose, warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
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

	strs := map[string]*string{
		"catalog":    &cfg.Catalog,
		"resource":   &cfg.Resource,
		"format":     &cfg.Format,
		"out":        &cfg.Out,
		"basepath":   &cfg.BasePath,
		"requesturl": &cfg.RequestURL,
		"apiversion": &cfg.APIVersion,
		"title":      &cfg.Title,
	}
	bools := map[string]*bool{
		"all":                  &cfg.All,
		"listing":              &cfg.Listing,
		"usecamelcasenames":    &cfg.UseCamelCaseNames,
		"useunderscorenames":   &cfg.UseUnderscoreNames,
		"disableautobodyparam": &cfg.DisableAutoBodyParam,
		"usehttps":             &cfg.UseHTTPS,
		"force":                &cfg.Force,
		"verbose":              &cfg.Verbose,
	}
	lists := map[string]*[]string{
		"methods":      &cfg.Methods,
		"includepaths": &cfg.IncludePaths,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		if dst, ok := lists[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeList(list)
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
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
	case int, float64:
		return fmt.Sprint(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return sanitizeList(strings.Split(val, ",")), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
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
