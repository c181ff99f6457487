package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	genspec "github.com/mark3labs/apidecl/internal/spec"
	"gopkg.in/yaml.v3"
)

const pipelineCatalogYAML = `
apiVersion: "1.0"
basePath: http://api.example.com
types:
  Widget:
    description: Widget operations
    returns: Widget
    properties:
      - { name: Id, type: int }
      - { name: Name, type: string }
  Gadget:
    description: Gadget operations
    properties:
      - { name: Serial, type: string }
routes:
  - path: /widgets/{Id}
    verbs: GET
    request: Widget
  - path: /widgets
    verbs: POST
    request: Widget
  - path: /gadgets/{Serial}
    verbs: [GET, DELETE]
    request: Gadget
`

func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte(pipelineCatalogYAML), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestGeneratePipeline_ResourceToStdout(t *testing.T) {
	catalog := writeCatalog(t)

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", catalog, "--resource", "widgets", "--https"})

	out := captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if doc["swaggerVersion"] != "1.2" {
		t.Errorf("swaggerVersion: got %v", doc["swaggerVersion"])
	}
	if doc["resourcePath"] != "/widgets" {
		t.Errorf("resourcePath: got %v", doc["resourcePath"])
	}
	if doc["basePath"] != "https://api.example.com" {
		t.Errorf("basePath: got %v", doc["basePath"])
	}
	if doc["apiVersion"] != "1.0" {
		t.Errorf("apiVersion: got %v", doc["apiVersion"])
	}
	apis, _ := doc["apis"].([]any)
	if len(apis) != 2 {
		t.Fatalf("expected 2 apis, got %d", len(apis))
	}
	models, _ := doc["models"].(map[string]any)
	if _, ok := models["Widget"]; !ok {
		t.Errorf("expected Widget model, got %v", models)
	}
}

func TestGeneratePipeline_AllWithListing(t *testing.T) {
	catalog := writeCatalog(t)
	outDir := filepath.Join(t.TempDir(), "docs")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", catalog, "--all", "--listing", "--format", "yaml", "--out", outDir})

	out := captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})
	if !strings.Contains(out, "Wrote 2 declarations to") {
		t.Fatalf("unexpected summary: %s", out)
	}

	for _, name := range []string{"widgets.yaml", "gadgets.yaml", "resources.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "resources.yaml"))
	if err != nil {
		t.Fatalf("read listing: %v", err)
	}
	var listing struct {
		APIs []struct {
			Path        string `yaml:"path"`
			Description string `yaml:"description"`
		} `yaml:"apis"`
	}
	if err := yaml.Unmarshal(data, &listing); err != nil {
		t.Fatalf("parse listing: %v", err)
	}
	if len(listing.APIs) != 2 || listing.APIs[0].Path != "/resource/gadgets" || listing.APIs[1].Description != "Widget operations" {
		t.Fatalf("unexpected listing: %+v", listing.APIs)
	}
}

func TestGeneratePipeline_OpenAPI3(t *testing.T) {
	catalog := writeCatalog(t)
	outPath := filepath.Join(t.TempDir(), "gadgets.json")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", catalog, "--resource", "/gadgets", "--format", "openapi3", "--title", "Gadgets", "--out", outPath})

	out := captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})
	if !strings.Contains(out, "Wrote /gadgets to") {
		t.Fatalf("unexpected summary: %s", out)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if !strings.HasPrefix(doc["openapi"].(string), "3.") {
		t.Errorf("openapi version: got %v", doc["openapi"])
	}
	info, _ := doc["info"].(map[string]any)
	if info["title"] != "Gadgets" {
		t.Errorf("title: got %v", info["title"])
	}
	paths, _ := doc["paths"].(map[string]any)
	item, _ := paths["/gadgets/{Serial}"].(map[string]any)
	if item["get"] == nil || item["delete"] == nil {
		t.Fatalf("expected get and delete on /gadgets/{Serial}, got %v", item)
	}
}

func TestGeneratePipeline_ExistingOutputWithoutForce(t *testing.T) {
	catalog := writeCatalog(t)
	outPath := filepath.Join(t.TempDir(), "widgets.json")
	if err := os.WriteFile(outPath, []byte("{}"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", catalog, "--resource", "widgets", "--out", outPath})

	var err error
	captureStdout(func() { err = root.Execute() })
	if err == nil {
		t.Fatalf("expected error for existing output")
	}
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected usage error with --force hint, got %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", catalog, "--resource", "widgets", "--out", outPath, "--force"})
	captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute with --force: %v", err)
		}
	})
	data, _ := os.ReadFile(outPath)
	if !bytes.Contains(data, []byte(`"resourcePath": "/widgets"`)) {
		t.Fatalf("expected overwritten declaration, got %s", data)
	}
}

func TestGeneratePipeline_UnknownResource(t *testing.T) {
	catalog := writeCatalog(t)

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", catalog, "--resource", "sprockets"})

	var err error
	captureStdout(func() { err = root.Execute() })
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), `no routes for resource "/sprockets"`) {
		t.Fatalf("expected unknown resource usage error, got %v", err)
	}
}

func TestGeneratePipeline_InvalidCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(path, []byte("routes:\n  - verbs: GET\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", path, "--resource", "widgets"})

	err := root.Execute()
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ValidationError") || !strings.Contains(err.Error(), "Pointer: #/routes/0") {
		t.Fatalf("expected validation error with pointer, got %v", err)
	}
	var se *genspec.SpecError
	if !errors.As(err, &se) || se.Code != genspec.ValidationError {
		t.Fatalf("expected wrapped SpecError, got %T", err)
	}
}

func TestGeneratePipeline_AllWritesRootResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	catalog := `
types:
  Ping:
    description: Health
    properties:
      - { name: Echo, type: string }
routes:
  - path: /
    verbs: GET
    request: Ping
  - path: /pings
    verbs: GET
    request: Ping
`
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	outDir := filepath.Join(t.TempDir(), "docs")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--catalog", path, "--all", "--out", outDir})
	captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read out dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if want := []string{"_root.json", "pings.json"}; !equalStringSlices(names, want) {
		t.Fatalf("files: want %v got %v", want, names)
	}
}
