package spec

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

var nicknameCleaner = regexp.MustCompile(`[{}*\-_/]`)

// allVerbs is the verb set of a route that accepts any verb.
var allVerbs = []string{"GET", "POST", "PUT", "DELETE"}

// effectiveVerbs returns the upper-cased, de-duplicated verbs of route in
// declaration order, without OPTIONS.
func effectiveVerbs(route *typeinfo.Route) []string {
	declared := allVerbs
	if !route.AllVerbs {
		declared = nil
		for _, v := range route.Verbs {
			declared = append(declared, strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })...)
		}
	}
	seen := make(map[string]struct{}, len(declared))
	out := make([]string, 0, len(declared))
	for _, v := range declared {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" || v == "OPTIONS" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// operations builds one operation per allowed verb of route.
func (b *builder) operations(route *typeinfo.Route) []*Operation {
	var ops []*Operation
	for _, verb := range effectiveVerbs(route) {
		if !b.cfg.allowsMethod(verb) {
			continue
		}
		op := &Operation{
			Method:           verb,
			Nickname:         b.nickname(verb, route.Path),
			Summary:          route.Summary,
			Notes:            route.Notes,
			Parameters:       b.parameters(route, verb),
			ResponseMessages: b.responseMessages(route),
		}
		if ret := returnType(route); ret != nil {
			s := b.shapeOf(ret)
			op.Type, op.Items = s.typ, s.items
		}
		ops = append(ops, op)
	}
	return ops
}

// nickname is the lowercase verb followed by the path without braces,
// wildcards, dashes, underscores or slashes. Repeats within one document
// get a numeric suffix starting at 2.
func (b *builder) nickname(verb, path string) string {
	base := strings.ToLower(verb) + nicknameCleaner.ReplaceAllString(path, "")
	b.nicknames[base]++
	n := b.nicknames[base]
	if n == 1 {
		return base
	}
	name := base + strconv.Itoa(n)
	for b.nicknames[name] > 0 {
		n++
		name = base + strconv.Itoa(n)
	}
	b.nicknames[name]++
	b.log.Debug("nickname collision", "nickname", base, "assigned", name)
	return name
}

// returnType is the route's own return type, else the request type's
// declared return contract.
func returnType(route *typeinfo.Route) *typeinfo.Type {
	if route.Returns != nil {
		return route.Returns
	}
	if req := unwrapNullable(route.Request); req != nil {
		return req.Returns
	}
	return nil
}

func (b *builder) responseMessages(route *typeinfo.Route) []ResponseMessage {
	out := make([]ResponseMessage, 0, len(route.Responses))
	for _, r := range route.Responses {
		msg := ResponseMessage{Code: r.Code, Message: r.Message}
		if r.Model != nil {
			msg.ResponseModel = b.responseModel(r.Model)
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// responseModel names the model a response message carries. Scalar and
// enum types are not models and yield an empty name; lists name their
// element model.
func (b *builder) responseModel(t *typeinfo.Type) string {
	if elem := listElementType(t); elem != nil {
		t = elem
	}
	t = unwrapNullable(t)
	if _, ok := classifyScalar(t); ok || isEnumType(t) || listElementType(t) != nil {
		return ""
	}
	b.resolve(t, nil)
	return modelID(t)
}
