package spec

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ResolutionError ErrorCode = "ResolutionError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/routes/0/path"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// Logger receives retry warnings. Nil discards them.
	Logger *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithLoadLogger(l *slog.Logger) Option   { return func(s *Settings) { s.Logger = l } }

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

const catalogSchemaURL = "https://apidecl.dev/catalog.schema.json"

var catalogSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(catalogSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(catalogSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(catalogSchemaURL)
})

var errPrinter = message.NewPrinter(language.English)

// LoadCatalog reads, validates and resolves a route catalog.
//
// input may be a filesystem path or an http/https URL. file:// URLs are
// blocked; pass the path instead.
func LoadCatalog(ctx context.Context, input string, opts ...Option) (*Catalog, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "catalog: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && (u.Host != "" || strings.EqualFold(u.Scheme, "file"))

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "catalog: file:// URLs are blocked; pass a path instead", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("catalog: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return ParseCatalog(raw, input)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return ParseCatalog(raw, abs)
}

// ParseCatalog decodes a YAML or JSON catalog, checks it against the
// embedded catalog schema and resolves its type expressions. location is
// only used in errors.
func ParseCatalog(data []byte, location string) (*Catalog, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse catalog: %v", err), Location: location, Cause: err}
	}
	if root.Kind == 0 {
		return nil, &SpecError{Code: ParseError, Message: "parse catalog: document is empty", Location: location}
	}

	if err := validateCatalog(&root, location); err != nil {
		return nil, err
	}

	var doc catalogDoc
	if err := root.Decode(&doc); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode catalog: %v", err), Location: location, Cause: err}
	}
	return resolveCatalog(&doc, location)
}

// validateCatalog round-trips the YAML tree through JSON so the schema
// validator sees plain JSON values.
func validateCatalog(root *yaml.Node, location string) error {
	schema, err := catalogSchema()
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	var generic any
	if err := root.Decode(&generic); err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("parse catalog: %v", err), Location: location, Cause: err}
	}
	buf, err := json.Marshal(generic)
	if err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("parse catalog: %v", err), Location: location, Cause: err}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf))
	if err != nil {
		return &SpecError{Code: ParseError, Message: fmt.Sprintf("parse catalog: %v", err), Location: location, Cause: err}
	}

	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &SpecError{Code: ValidationError, Message: err.Error(), Location: location, Cause: err}
	}
	leaf := deepestCause(verr)
	pointer := "#"
	if len(leaf.InstanceLocation) > 0 {
		pointer = "#/" + strings.Join(escapePointer(leaf.InstanceLocation), "/")
	}
	return &SpecError{
		Code:        ValidationError,
		Message:     fmt.Sprintf("catalog %s: %s", pointer, leaf.ErrorKind.LocalizedString(errPrinter)),
		Location:    location,
		JSONPointer: pointer,
		Cause:       err,
	}
}

func deepestCause(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return err
	}
	var best *jsonschema.ValidationError
	for _, c := range err.Causes {
		if d := deepestCause(c); best == nil || len(d.InstanceLocation) > len(best.InstanceLocation) {
			best = d
		}
	}
	return best
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = pointerEscaper.Replace(p)
	}
	return out
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		body, status, err := doFetch(client, req)
		switch {
		case err != nil:
			lastErr = err
		case status < 300:
			return body, nil
		case status >= 500 || status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("transient http error %d", status)
		default:
			return nil, fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(body)))
		}
		if i == attempts-1 {
			break
		}
		settings.Logger.Warn("retrying catalog fetch", "url", rawURL, "attempt", i+1, "backoff", backoff, "err", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// doFetch returns the full body on success and at most 1KiB of it otherwise.
func doFetch(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	var r io.Reader = resp.Body
	if resp.StatusCode >= 300 {
		r = io.LimitReader(resp.Body, 1024)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func mapValidateOrParseErr(err error, location string) error {
	pointer := extractJSONPointer(err)
	code := ValidationError
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'\"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	// Unwrap MultiError and take the first for brevity.
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}
