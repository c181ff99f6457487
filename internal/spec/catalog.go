package spec

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

// Catalog is a resolved route catalog: the type graph and the routes bound
// to it.
type Catalog struct {
	APIVersion string
	BasePath   string
	Types      map[string]*typeinfo.Type
	Routes     []*typeinfo.Route
}

type catalogDoc struct {
	APIVersion string             `yaml:"apiVersion"`
	BasePath   string             `yaml:"basePath"`
	Types      map[string]typeDoc `yaml:"types"`
	Routes     []routeDoc         `yaml:"routes"`
}

type typeDoc struct {
	Description  string        `yaml:"description"`
	DataContract bool          `yaml:"dataContract"`
	Returns      string        `yaml:"returns"`
	Enum         *enumDoc      `yaml:"enum"`
	Properties   []propertyDoc `yaml:"properties"`
}

type enumDoc struct {
	Underlying string          `yaml:"underlying"`
	Members    []enumMemberDoc `yaml:"members"`
}

// enumMemberDoc accepts either a bare name or {name, value}.
type enumMemberDoc struct {
	Name  string `yaml:"name"`
	Value *int64 `yaml:"value"`
}

func (m *enumMemberDoc) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		m.Name = n.Value
		return nil
	}
	type plain enumMemberDoc
	return n.Decode((*plain)(m))
}

type propertyDoc struct {
	Name            string         `yaml:"name"`
	Type            string         `yaml:"type"`
	DataMember      *dataMemberDoc `yaml:"dataMember"`
	Required        *bool          `yaml:"required"`
	Ignored         bool           `yaml:"ignored"`
	Description     string         `yaml:"description"`
	ApiMembers      []apiMemberDoc `yaml:"apiMembers"`
	AllowableValues *allowableDoc  `yaml:"allowableValues"`
}

type dataMemberDoc struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

type apiMemberDoc struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	ParameterType string `yaml:"parameterType"`
	DataType      string `yaml:"dataType"`
	Verb          string `yaml:"verb"`
	Required      bool   `yaml:"required"`
	AllowMultiple bool   `yaml:"allowMultiple"`
}

type allowableDoc struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
	Min    *int     `yaml:"min"`
	Max    *int     `yaml:"max"`
}

type routeDoc struct {
	Path      string        `yaml:"path"`
	Verbs     verbList      `yaml:"verbs"`
	Request   string        `yaml:"request"`
	Returns   string        `yaml:"returns"`
	Summary   string        `yaml:"summary"`
	Notes     string        `yaml:"notes"`
	Hidden    bool          `yaml:"hidden"`
	Responses []responseDoc `yaml:"responses"`
}

type responseDoc struct {
	Code    int    `yaml:"code"`
	Message string `yaml:"message"`
	Model   string `yaml:"model"`
}

// verbList accepts "GET, POST" as well as [GET, POST].
type verbList []string

func (v *verbList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*v = splitAndTrim(n.Value)
		return nil
	}
	var list []string
	if err := n.Decode(&list); err != nil {
		return err
	}
	*v = list
	return nil
}

// builtins maps builtin type names onto primitives. Both the C#-style
// aliases and Go names are accepted.
var builtins = map[string]typeinfo.Primitive{
	"bool": typeinfo.Bool, "boolean": typeinfo.Bool,
	"sbyte": typeinfo.Int8, "int8": typeinfo.Int8,
	"byte": typeinfo.Uint8, "uint8": typeinfo.Uint8,
	"short": typeinfo.Int16, "int16": typeinfo.Int16,
	"ushort": typeinfo.Uint16, "uint16": typeinfo.Uint16,
	"int": typeinfo.Int32, "int32": typeinfo.Int32,
	"uint": typeinfo.Uint32, "uint32": typeinfo.Uint32,
	"long": typeinfo.Int64, "int64": typeinfo.Int64,
	"ulong": typeinfo.Uint64, "uint64": typeinfo.Uint64,
	"float": typeinfo.Float32, "float32": typeinfo.Float32,
	"double": typeinfo.Float64, "float64": typeinfo.Float64,
	"decimal": typeinfo.Decimal,
	"string": typeinfo.String,
	"DateTime": typeinfo.DateTime, "date": typeinfo.DateTime, "time": typeinfo.DateTime,
}

// resolveCatalog turns a decoded catalog into a descriptor graph. Named
// types are allocated before any property is resolved so properties may
// refer to any declared type, including their owner.
func resolveCatalog(doc *catalogDoc, location string) (*Catalog, error) {
	r := &resolver{
		named: make(map[string]*typeinfo.Type, len(doc.Types)),
		exprs: make(map[string]*typeinfo.Type),
	}
	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		if _, clash := builtins[name]; clash {
			return nil, resolutionError(location, "/types/"+name, fmt.Errorf("type %q shadows a builtin", name))
		}
		names = append(names, name)
		r.named[name] = &typeinfo.Type{Name: name}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.fill(r.named[name], doc.Types[name]); err != nil {
			return nil, resolutionError(location, "/types/"+name, err)
		}
	}

	cat := &Catalog{
		APIVersion: doc.APIVersion,
		BasePath:   doc.BasePath,
		Types:      r.named,
		Routes:     make([]*typeinfo.Route, 0, len(doc.Routes)),
	}
	for i, rd := range doc.Routes {
		route, err := r.route(rd)
		if err != nil {
			return nil, resolutionError(location, fmt.Sprintf("/routes/%d", i), err)
		}
		cat.Routes = append(cat.Routes, route)
	}
	r.bindGenerics()
	return cat, nil
}

func resolutionError(location, pointer string, err error) error {
	return &SpecError{
		Code:        ResolutionError,
		Message:     fmt.Sprintf("catalog: %v", err),
		Location:    location,
		JSONPointer: "#" + pointer,
		Cause:       err,
	}
}

type resolver struct {
	named    map[string]*typeinfo.Type
	exprs    map[string]*typeinfo.Type
	generics []*typeinfo.Type
}

func (r *resolver) fill(t *typeinfo.Type, td typeDoc) error {
	t.Description = td.Description
	t.DataContract = td.DataContract

	if td.Enum != nil {
		enum := &typeinfo.Enum{}
		if u := strings.TrimSpace(td.Enum.Underlying); u != "" {
			p, ok := builtins[u]
			if !ok {
				return fmt.Errorf("unknown enum underlying type %q", u)
			}
			if p != typeinfo.String {
				enum.Underlying = p
			}
		}
		var next int64
		for _, m := range td.Enum.Members {
			if m.Value != nil {
				next = *m.Value
			}
			enum.Members = append(enum.Members, typeinfo.EnumMember{Name: m.Name, Value: next})
			next++
		}
		t.Enum = enum
	}

	if td.Returns != "" {
		ret, err := r.expr(td.Returns)
		if err != nil {
			return fmt.Errorf("returns: %w", err)
		}
		t.Returns = ret
	}

	for _, pd := range td.Properties {
		pt, err := r.expr(pd.Type)
		if err != nil {
			return fmt.Errorf("property %s: %w", pd.Name, err)
		}
		prop := &typeinfo.Property{
			Name:        pd.Name,
			Type:        pt,
			Required:    pd.Required,
			Ignored:     pd.Ignored,
			Description: pd.Description,
		}
		if dm := pd.DataMember; dm != nil {
			prop.Member = true
			prop.Alias = dm.Name
			required := dm.Required
			prop.Required = &required
		}
		for _, am := range pd.ApiMembers {
			prop.ApiMembers = append(prop.ApiMembers, typeinfo.ApiMember(am))
		}
		if av := pd.AllowableValues; av != nil {
			prop.Allowable = &typeinfo.AllowableValues{Name: av.Name, Values: av.Values, Min: av.Min, Max: av.Max}
		}
		t.Properties = append(t.Properties, prop)
	}
	return nil
}

func (r *resolver) route(rd routeDoc) (*typeinfo.Route, error) {
	route := &typeinfo.Route{
		Path:    rd.Path,
		Summary: rd.Summary,
		Notes:   rd.Notes,
		Hidden:  rd.Hidden,
	}
	for _, v := range rd.Verbs {
		switch strings.ToUpper(v) {
		case "*", "ANY", "ALL":
			route.AllVerbs = true
		default:
			route.Verbs = append(route.Verbs, v)
		}
	}
	if len(route.Verbs) == 0 {
		route.AllVerbs = true
	}

	var err error
	if rd.Request != "" {
		if route.Request, err = r.expr(rd.Request); err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
	}
	if rd.Returns != "" {
		if route.Returns, err = r.expr(rd.Returns); err != nil {
			return nil, fmt.Errorf("returns: %w", err)
		}
	}
	for _, resp := range rd.Responses {
		out := typeinfo.Response{Code: resp.Code, Message: resp.Message}
		if resp.Model != "" {
			if out.Model, err = r.expr(resp.Model); err != nil {
				return nil, fmt.Errorf("response %d: %w", resp.Code, err)
			}
		}
		route.Responses = append(route.Responses, out)
	}
	return route, nil
}

// expr resolves a type expression such as Widget, int?, Widget[] or
// Dictionary<string, List<Widget>>.
func (r *resolver) expr(src string) (*typeinfo.Type, error) {
	p := &exprParser{src: src}
	t, err := p.parse(r)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("type %q: unexpected %q at offset %d", src, p.src[p.pos:], p.pos)
	}
	return t, nil
}

func (r *resolver) lookup(name string) (*typeinfo.Type, error) {
	if t, ok := r.named[name]; ok {
		return t, nil
	}
	if t, ok := r.exprs[name]; ok {
		return t, nil
	}
	var t *typeinfo.Type
	switch p, ok := builtins[name]; {
	case ok:
		t = typeinfo.Scalar(p)
		t.Name = name
	case name == "object" || name == "Object":
		t = typeinfo.Object("Object")
	default:
		return nil, fmt.Errorf("unknown type %q", name)
	}
	r.exprs[name] = t
	return t, nil
}

func (r *resolver) generic(def string, args []*typeinfo.Type) *typeinfo.Type {
	t := typeinfo.GenericOf(def, args...)
	if cached, ok := r.exprs[t.Name]; ok {
		return cached
	}
	r.exprs[t.Name] = t
	r.generics = append(r.generics, t)
	return t
}

// bindGenerics gives instances of declared generic types the members of
// their definition. It runs once every declared type is filled.
func (r *resolver) bindGenerics() {
	for _, t := range r.generics {
		if decl, ok := r.named[t.Generic]; ok {
			t.Description = decl.Description
			t.DataContract = decl.DataContract
			t.Properties = decl.Properties
		}
	}
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) parse(r *resolver) (*typeinfo.Type, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("type %q: expected a type name at offset %d", p.src, start)
	}
	name := p.src[start:p.pos]

	var (
		t   *typeinfo.Type
		err error
	)
	if p.peek() == '<' {
		p.pos++
		var args []*typeinfo.Type
		for {
			arg, err := p.parse(r)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.skipSpace()
			if p.peek() == ',' {
				p.pos++
				continue
			}
			if p.peek() != '>' {
				return nil, fmt.Errorf("type %q: expected ',' or '>' at offset %d", p.src, p.pos)
			}
			p.pos++
			break
		}
		t = r.generic(name, args)
	} else if t, err = r.lookup(name); err != nil {
		return nil, err
	}

	for {
		p.skipSpace()
		switch {
		case strings.HasPrefix(p.src[p.pos:], "[]"):
			p.pos += 2
			t = r.wrap(typeinfo.ArrayOf(t))
		case p.peek() == '?':
			p.pos++
			t = r.wrap(typeinfo.NullableOf(t))
		default:
			return t, nil
		}
	}
}

// wrap dedupes array and nullable wrappers by name.
func (r *resolver) wrap(t *typeinfo.Type) *typeinfo.Type {
	if cached, ok := r.exprs[t.Name]; ok {
		return cached
	}
	r.exprs[t.Name] = t
	return t
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9', c == '.':
		return !first
	}
	return false
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
