package spec

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

// DefaultAPIVersion is used when no API version is configured.
const DefaultAPIVersion = "1.0"

// BuildOption configures how declarations are built from routes.
type BuildOption func(*buildConfig)

type buildConfig struct {
	apiVersion string
	basePath   string
	camelCase  bool
	underscore bool
	autoBody   bool
	methods    map[string]struct{}
	pathRes    []*regexp.Regexp
	visible    func(*typeinfo.Route) bool
	log        *slog.Logger
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	cfg := &buildConfig{
		apiVersion: DefaultAPIVersion,
		autoBody:   true,
		visible:    func(r *typeinfo.Route) bool { return !r.Hidden },
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithAPIVersion sets the apiVersion of produced documents.
func WithAPIVersion(v string) BuildOption {
	return func(c *buildConfig) {
		if v = strings.TrimSpace(v); v != "" {
			c.apiVersion = v
		}
	}
}

// WithBasePath sets the basePath of produced documents. See ResolveBasePath.
func WithBasePath(p string) BuildOption {
	return func(c *buildConfig) { c.basePath = strings.TrimSpace(p) }
}

// WithCamelCaseNames camel-cases model property names.
func WithCamelCaseNames(on bool) BuildOption {
	return func(c *buildConfig) { c.camelCase = on }
}

// WithUnderscoreNames switches camel-cased names to lowercase_underscore.
// It has no effect unless camel case naming is on.
func WithUnderscoreNames(on bool) BuildOption {
	return func(c *buildConfig) { c.underscore = on }
}

// WithAutoBodyParam toggles the synthetic body parameter for non-GET verbs.
// It is on by default.
func WithAutoBodyParam(on bool) BuildOption {
	return func(c *buildConfig) { c.autoBody = on }
}

// WithMethods keeps only operations using one of the provided HTTP verbs.
func WithMethods(methods []string) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m == "" {
				continue
			}
			if c.methods == nil {
				c.methods = make(map[string]struct{}, len(methods))
			}
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only routes whose path matches at least one of the
// provided regular expressions. An invalid pattern never matches.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// WithVisibility replaces the default route filter, which hides routes
// marked Hidden.
func WithVisibility(fn func(*typeinfo.Route) bool) BuildOption {
	return func(c *buildConfig) {
		if fn != nil {
			c.visible = fn
		}
	}
}

// WithLogger routes build diagnostics to l. Nothing is logged by default.
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.log = l
		}
	}
}

func (c *buildConfig) allowsMethod(verb string) bool {
	if len(c.methods) == 0 {
		return true
	}
	_, ok := c.methods[strings.ToUpper(verb)]
	return ok
}

func (c *buildConfig) admits(r *typeinfo.Route) bool {
	if r == nil || !c.visible(r) {
		return false
	}
	if len(c.pathRes) == 0 {
		return true
	}
	for _, re := range c.pathRes {
		if re.MatchString(r.Path) {
			return true
		}
	}
	return false
}

// builder carries the state of one document build. It is not shared
// between builds.
type builder struct {
	cfg       *buildConfig
	reg       *registry
	nicknames map[string]int
	log       *slog.Logger
}

func newBuilder(cfg *buildConfig) *builder {
	return &builder{
		cfg:       cfg,
		reg:       newRegistry(),
		nicknames: make(map[string]int),
		log:       cfg.log,
	}
}

// ResourcePath returns "/" followed by the first non-empty segment of path.
func ResourcePath(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			return "/" + seg
		}
	}
	return "/"
}

// Resources lists the distinct resource paths of the admitted routes, sorted.
func Resources(routes []*typeinfo.Route, opts ...BuildOption) []string {
	cfg := newBuildConfig(opts)
	seen := make(map[string]struct{})
	var out []string
	for _, r := range routes {
		if !cfg.admits(r) {
			continue
		}
		res := ResourcePath(r.Path)
		if _, ok := seen[res]; ok {
			continue
		}
		seen[res] = struct{}{}
		out = append(out, res)
	}
	sort.Strings(out)
	return out
}

// BuildDeclaration assembles the API declaration for one resource. resource
// may be given with or without its leading slash. Every route whose first
// path segment matches contributes one API entry; all of them share a
// single model registry. Input descriptors are never modified.
func BuildDeclaration(ctx context.Context, routes []*typeinfo.Route, resource string, opts ...BuildOption) (*Declaration, error) {
	return buildDeclaration(ctx, routes, ResourcePath(resource), newBuildConfig(opts))
}

func buildDeclaration(ctx context.Context, routes []*typeinfo.Route, resource string, cfg *buildConfig) (*Declaration, error) {
	b := newBuilder(cfg)
	doc := &Declaration{
		APIVersion:     cfg.apiVersion,
		SwaggerVersion: SwaggerVersion,
		BasePath:       cfg.basePath,
		ResourcePath:   resource,
		APIs:           []API{},
	}

	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !cfg.admits(r) || ResourcePath(r.Path) != resource {
			continue
		}
		ops := b.operations(r)
		if len(ops) == 0 {
			continue
		}
		doc.APIs = append(doc.APIs, API{Path: r.Path, Description: r.Summary, Operations: ops})
	}
	sort.SliceStable(doc.APIs, func(i, j int) bool { return doc.APIs[i].Path < doc.APIs[j].Path })

	doc.Models = b.reg.models
	b.log.Debug("built declaration", "resource", resource, "apis", len(doc.APIs), "models", len(doc.Models))
	return doc, nil
}

// BuildAll assembles the declaration of every resource concurrently. Each
// resource gets its own registry; routes are only read.
func BuildAll(ctx context.Context, routes []*typeinfo.Route, opts ...BuildOption) (map[string]*Declaration, error) {
	cfg := newBuildConfig(opts)
	resources := Resources(routes, opts...)
	docs := make([]*Declaration, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	for i, res := range resources {
		g.Go(func() error {
			doc, err := buildDeclaration(gctx, routes, res, cfg)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Declaration, len(resources))
	for i, res := range resources {
		out[res] = docs[i]
	}
	return out, nil
}

// BuildListing assembles the resource listing: one entry per resource,
// described by the first request type in that resource that carries a
// description.
func BuildListing(routes []*typeinfo.Route, opts ...BuildOption) *Listing {
	cfg := newBuildConfig(opts)
	listing := &Listing{
		APIVersion:     cfg.apiVersion,
		SwaggerVersion: SwaggerVersion,
		BasePath:       cfg.basePath,
		APIs:           []ListingAPI{},
	}
	for _, res := range Resources(routes, opts...) {
		entry := ListingAPI{Path: "/resource" + res}
		for _, r := range routes {
			if !cfg.admits(r) || ResourcePath(r.Path) != res {
				continue
			}
			if req := unwrapNullable(r.Request); req != nil && req.Description != "" {
				entry.Description = req.Description
				break
			}
		}
		listing.APIs = append(listing.APIs, entry)
	}
	return listing
}
