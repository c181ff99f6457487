package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--verbose",
		"generate",
		"--catalog", "routes.yaml",
		"--resource", "widgets",
		"--format", "YAML",
		"--out", "./widgets.yaml",
		"--base-path", "http://api.example.com",
		"--request-url", "http://api.example.com/resource/widgets",
		"--api-version", "2.0",
		"--title", "Widget API",
		"--camel-case",
		"--underscore",
		"--no-auto-body",
		"--https",
		"--methods", "get,post",
		"--include-paths", "^/widgets",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Catalog != "routes.yaml" {
		t.Errorf("catalog mismatch: got %q", captured.Catalog)
	}
	if captured.Resource != "widgets" {
		t.Errorf("resource mismatch: got %q", captured.Resource)
	}
	if captured.Format != FormatYAML {
		t.Errorf("format mismatch: got %q", captured.Format)
	}
	if captured.Out != "./widgets.yaml" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if captured.BasePath != "http://api.example.com" {
		t.Errorf("base path mismatch: got %q", captured.BasePath)
	}
	if captured.RequestURL != "http://api.example.com/resource/widgets" {
		t.Errorf("request url mismatch: got %q", captured.RequestURL)
	}
	if captured.APIVersion != "2.0" {
		t.Errorf("api version mismatch: got %q", captured.APIVersion)
	}
	if captured.Title != "Widget API" {
		t.Errorf("title mismatch: got %q", captured.Title)
	}
	if !captured.UseCamelCaseNames || !captured.UseUnderscoreNames {
		t.Errorf("expected camel-case and underscore naming")
	}
	if !captured.DisableAutoBodyParam {
		t.Errorf("expected no-auto-body true")
	}
	if !captured.UseHTTPS {
		t.Errorf("expected https true")
	}
	if want := []string{"GET", "POST"}; !equalStringSlices(captured.Methods, want) {
		t.Errorf("methods mismatch: got %v", captured.Methods)
	}
	if want := []string{"^/widgets"}; !equalStringSlices(captured.IncludePaths, want) {
		t.Errorf("include paths mismatch: got %v", captured.IncludePaths)
	}
	if !captured.Force {
		t.Errorf("expected force true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`catalog: config-routes.yaml
resource: gadgets
format: yaml
out: from-config
basePath: http://config.example.com
apiVersion: 3
methods:
  - get
includePaths: ^/gadgets
use_camel_case_names: true
disable-auto-body-param: "yes"
force: false
verbose: true
`) + "\n"

	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--catalog", "flag-routes.yaml",
		"--methods", "delete",
		"--camel-case=false",
		"--force",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Catalog != "flag-routes.yaml" {
		t.Errorf("catalog: want %q got %q", "flag-routes.yaml", captured.Catalog)
	}
	if captured.Resource != "gadgets" {
		t.Errorf("resource: want gadgets got %q", captured.Resource)
	}
	if captured.Format != FormatYAML {
		t.Errorf("format: want yaml got %q", captured.Format)
	}
	if captured.Out != "from-config" {
		t.Errorf("out: want from-config got %q", captured.Out)
	}
	if captured.BasePath != "http://config.example.com" {
		t.Errorf("base path: got %q", captured.BasePath)
	}
	if captured.APIVersion != "3" {
		t.Errorf("api version: want 3 got %q", captured.APIVersion)
	}
	if want := []string{"DELETE"}; !equalStringSlices(captured.Methods, want) {
		t.Errorf("methods: want %v got %v", want, captured.Methods)
	}
	if want := []string{"^/gadgets"}; !equalStringSlices(captured.IncludePaths, want) {
		t.Errorf("include paths: want %v got %v", want, captured.IncludePaths)
	}
	if captured.UseCamelCaseNames {
		t.Errorf("expected camel-case overridden to false")
	}
	if !captured.DisableAutoBodyParam {
		t.Errorf("expected disableAutoBodyParam from config")
	}
	if !captured.Force {
		t.Errorf("expected force true from flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
}

func TestGenerateConfigUnknownKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("catalog: routes.yaml\nunknown: value\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		t.Fatalf("runner should not be called when config has unknown keys")
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{"--config", configPath, "generate", "--resource", "widgets"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for unknown config key")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing catalog", []string{"generate", "--resource", "widgets"}, "--catalog is required"},
		{"bad format", []string{"generate", "--catalog", "c.yaml", "--resource", "w", "--format", "xml"}, "unsupported --format"},
		{"resource and all", []string{"generate", "--catalog", "c.yaml", "--resource", "w", "--all", "--out", "d"}, "mutually exclusive"},
		{"neither resource nor all", []string{"generate", "--catalog", "c.yaml"}, "one of --resource or --all"},
		{"all without out", []string{"generate", "--catalog", "c.yaml", "--all"}, "needs --out"},
		{"listing without all", []string{"generate", "--catalog", "c.yaml", "--resource", "w", "--listing"}, "--listing requires --all"},
		{"underscore without camel", []string{"generate", "--catalog", "c.yaml", "--resource", "w", "--underscore"}, "--underscore only applies"},
	}

	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		t.Fatalf("runner should not be called for invalid configs")
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := NewRootCmd()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(tc.args)

			err := root.Execute()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected usage error, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValueAsStringSlice(t *testing.T) {
	t.Parallel()
	got, err := valueAsStringSlice("GET, POST,,")
	if err != nil {
		t.Fatalf("string form: %v", err)
	}
	if want := []string{"GET", "POST"}; !equalStringSlices(got, want) {
		t.Fatalf("string form: got %v", got)
	}
	got, err = valueAsStringSlice([]any{"a", "", 1})
	if err != nil {
		t.Fatalf("list form: %v", err)
	}
	if want := []string{"a", "1"}; !equalStringSlices(got, want) {
		t.Fatalf("list form: got %v", got)
	}
	if _, err := valueAsStringSlice(map[string]any{}); err == nil {
		t.Fatalf("expected error for map value")
	}
}

func TestValueAsBool(t *testing.T) {
	t.Parallel()
	for in, want := range map[any]bool{"yes": true, "N": false, true: true, nil: false, "": false} {
		got, err := valueAsBool(in)
		if err != nil {
			t.Fatalf("valueAsBool(%v): %v", in, err)
		}
		if got != want {
			t.Errorf("valueAsBool(%v) = %v, want %v", in, got, want)
		}
	}
	if _, err := valueAsBool("maybe"); err == nil {
		t.Fatalf("expected error for invalid boolean")
	}
	if _, err := valueAsBool(3); err == nil {
		t.Fatalf("expected error for int")
	}
}

func TestResourceFileName(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"/":        "_root",
		"":         "_root",
		"/widgets": "widgets",
		"widgets/": "widgets",
	} {
		if got := resourceFileName(in); got != want {
			t.Errorf("resourceFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
