package spec

import (
	"regexp"
	"strings"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

var placeholderRe = regexp.MustCompile(`\{(\w+)\*?\}`)

// sameParameter is the merge equality: names match and either side is
// required or both share a location. A required parameter therefore hides
// a same-named one in any location.
func sameParameter(x, y *Parameter) bool {
	return x.Name == y.Name && (x.Required || y.Required || x.ParamType == y.ParamType)
}

// union appends each candidate not already matched by an entry of dst.
// Earlier entries win.
func (b *builder) union(dst []*Parameter, candidates ...*Parameter) []*Parameter {
next:
	for _, c := range candidates {
		for _, existing := range dst {
			if sameParameter(existing, c) {
				b.log.Debug("drop parameter", "name", c.Name, "paramType", c.ParamType, "kept", existing.ParamType)
				continue next
			}
		}
		dst = append(dst, c)
	}
	return dst
}

// parameters resolves the parameter list of route for verb.
func (b *builder) parameters(route *typeinfo.Route, verb string) []*Parameter {
	req := unwrapNullable(route.Request)

	params := b.union([]*Parameter{}, b.documentedParameters(req, verb)...)
	params = b.union(params, b.impliedParameters(route.Path, req)...)

	if !b.cfg.autoBody || strings.EqualFold(verb, "GET") || req == nil || hasBody(params) {
		return params
	}

	excluded := make(map[string]struct{})
	for _, p := range params {
		if p.Required {
			excluded[p.Name] = struct{}{}
		}
	}
	b.resolve(req, excluded)
	id := modelID(req)
	b.log.Debug("synthesize body parameter", "type", id, "verb", verb)
	return append(params, &Parameter{Name: id, Type: id, ParamType: ParamBody})
}

// documentedParameters yields one parameter per api member scoped to verb.
func (b *builder) documentedParameters(req *typeinfo.Type, verb string) []*Parameter {
	if req == nil {
		return nil
	}
	var out []*Parameter
	for _, p := range req.Properties {
		for _, m := range p.ApiMembers {
			if m.Verb != "" && !strings.EqualFold(m.Verb, verb) {
				continue
			}
			param := &Parameter{
				Name:          m.Name,
				Description:   m.Description,
				ParamType:     m.ParameterType,
				Required:      m.Required,
				AllowMultiple: m.AllowMultiple,
			}
			if param.Name == "" {
				param.Name = rawName(p)
			}
			if param.ParamType == "" {
				param.ParamType = ParamPath
			}
			if m.DataType != "" {
				param.Type = m.DataType
			} else {
				s := b.shapeOf(p.Type)
				param.Type, param.Items, param.Enum = s.typ, s.items, s.enum
			}
			applyAllowable(param, allowableFor(req, p, param.Name))
			out = append(out, param)
		}
	}
	return out
}

// impliedParameters derives path parameters from the placeholders of path
// and query parameters from every remaining visible property.
func (b *builder) impliedParameters(path string, req *typeinfo.Type) []*Parameter {
	var out []*Parameter
	consumed := make(map[*typeinfo.Property]struct{})

	for _, name := range placeholders(path) {
		param := &Parameter{Name: name, ParamType: ParamPath, Required: true, Type: TypeString}
		if p := findProperty(req, name); p != nil {
			consumed[p] = struct{}{}
			s := b.shapeOf(p.Type)
			param.Type, param.Items, param.Enum = s.typ, s.items, s.enum
			param.Description = p.Description
			applyAllowable(param, p.Allowable)
		}
		out = append(out, param)
	}

	if req == nil {
		return out
	}
	for _, p := range req.Properties {
		if _, ok := consumed[p]; ok || !visibleIn(req, p) {
			continue
		}
		s := b.shapeOf(p.Type)
		param := &Parameter{
			Name:        rawName(p),
			Description: p.Description,
			ParamType:   ParamQuery,
			Type:        s.typ,
			Items:       s.items,
			Enum:        s.enum,
		}
		applyAllowable(param, p.Allowable)
		out = append(out, param)
	}
	return out
}

// placeholders returns the distinct {name} and {name*} segments of path in
// order of appearance.
func placeholders(path string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// findProperty matches a placeholder to a visible property, exactly first
// and then ignoring case.
func findProperty(req *typeinfo.Type, name string) *typeinfo.Property {
	if req == nil {
		return nil
	}
	for _, p := range req.Properties {
		if visibleIn(req, p) && (p.Name == name || p.Alias == name) {
			return p
		}
	}
	for _, p := range req.Properties {
		if visibleIn(req, p) && (strings.EqualFold(p.Name, name) || strings.EqualFold(p.Alias, name)) {
			return p
		}
	}
	return nil
}

// allowableFor picks the constraint for a documented parameter: the
// property's own when unscoped or scoped to name, else any property's
// constraint scoped to name.
func allowableFor(req *typeinfo.Type, own *typeinfo.Property, name string) *typeinfo.AllowableValues {
	if av := own.Allowable; av != nil && (av.Name == "" || av.Name == name) {
		return av
	}
	for _, p := range req.Properties {
		if av := p.Allowable; av != nil && av.Name == name {
			return av
		}
	}
	return nil
}

func applyAllowable(param *Parameter, av *typeinfo.AllowableValues) {
	if av == nil {
		return
	}
	if len(av.Values) > 0 {
		param.Enum = append([]string(nil), av.Values...)
	}
	param.Minimum, param.Maximum = av.Min, av.Max
}

func hasBody(params []*Parameter) bool {
	for _, p := range params {
		if strings.EqualFold(p.ParamType, ParamBody) {
			return true
		}
	}
	return false
}

// rawName is the parameter name of p: its alias when set, else its name.
// Parameter names are never case-folded.
func rawName(p *typeinfo.Property) string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Name
}
