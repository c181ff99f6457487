package spec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const widgetCatalog = `
apiVersion: "2.0"
basePath: http://api.example.com
types:
  Widget:
    description: Widget operations
    properties:
      - { name: Id, type: int }
      - { name: Tags, type: "List<string>" }
routes:
  - path: /widgets/{Id}
    verbs: GET
    request: Widget
`

func TestLoadCatalog_BlocksFileURL(t *testing.T) {
	t.Parallel()
	_, err := LoadCatalog(context.Background(), "file:///etc/hosts")
	var se *SpecError
	if !errors.As(err, &se) {
		t.Fatalf("expected SpecError, got %T", err)
	}
	if se.Code != InputError {
		t.Fatalf("expected InputError, got %v", se.Code)
	}
}

func TestLoadCatalog_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	_, err := LoadCatalog(context.Background(), "ftp://example.com/catalog.yaml")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoadCatalog_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := LoadCatalog(context.Background(), "  ")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := LoadCatalog(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoadCatalog_NetworkError(t *testing.T) {
	t.Parallel()
	// Unused port to provoke a quick network failure.
	url := "http://127.0.0.1:1/catalog.yaml"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := LoadCatalog(ctx, url, WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(10*time.Millisecond))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
}

func TestLoadCatalog_File(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(p, []byte(widgetCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := LoadCatalog(context.Background(), p)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.APIVersion != "2.0" || cat.BasePath != "http://api.example.com" {
		t.Fatalf("unexpected header: %+v", cat)
	}
	if len(cat.Routes) != 1 || cat.Routes[0].Request != cat.Types["Widget"] {
		t.Fatalf("route not bound to Widget: %+v", cat.Routes)
	}
}

func TestLoadCatalog_HTTPRetriesTransientFailures(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(widgetCatalog))
	}))
	defer srv.Close()

	cat, err := LoadCatalog(context.Background(), srv.URL+"/catalog.yaml", WithBackoffBase(time.Millisecond))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", hits.Load())
	}
	if _, ok := cat.Types["Widget"]; !ok {
		t.Fatalf("Widget type missing")
	}
}

func TestLoadCatalog_HTTPClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := LoadCatalog(context.Background(), srv.URL+"/catalog.yaml")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
	if !strings.Contains(se.Message, "404") {
		t.Fatalf("expected status in message, got %q", se.Message)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single request, got %d", hits.Load())
	}
}

func TestParseCatalog_SchemaViolation(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		doc     string
		pointer string
	}{
		"bad path": {
			doc:     "routes:\n  - path: widgets\n",
			pointer: "#/routes/0/path",
		},
		"unknown field": {
			doc:     "routes: []\nextra: true\n",
			pointer: "#",
		},
		"bad location": {
			doc:     "types:\n  W:\n    properties:\n      - name: Id\n        type: int\n        apiMembers:\n          - parameterType: cookie\nroutes: []\n",
			pointer: "#/types/W/properties/0/apiMembers/0/parameterType",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.doc), "inline")
			var se *SpecError
			if !errors.As(err, &se) || se.Code != ValidationError {
				t.Fatalf("expected ValidationError, got %v (%T)", err, err)
			}
			if se.JSONPointer != tc.pointer {
				t.Fatalf("expected pointer %q, got %q (%s)", tc.pointer, se.JSONPointer, se.Message)
			}
		})
	}
}

func TestParseCatalog_ParseError(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{"routes: [\n", ""} {
		_, err := ParseCatalog([]byte(doc), "inline")
		var se *SpecError
		if !errors.As(err, &se) || se.Code != ParseError {
			t.Fatalf("%q: expected ParseError, got %v (%T)", doc, err, err)
		}
	}
}
