package spec

import (
	"strings"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

// registry holds the models of one document, keyed by type identity.
type registry struct {
	models map[string]*Model
}

func newRegistry() *registry {
	return &registry{models: make(map[string]*Model)}
}

// ensure returns the model for id, creating an empty one when absent. The
// boolean reports whether the model was created by this call.
func (r *registry) ensure(id string) (*Model, bool) {
	if m, ok := r.models[id]; ok {
		return m, false
	}
	m := &Model{ID: id, Properties: make(map[string]*ModelProperty)}
	r.models[id] = m
	return m, true
}

func (r *registry) has(id string) bool {
	_, ok := r.models[id]
	return ok
}

// shape is the classified form of a property, parameter or return type.
type shape struct {
	typ   string
	items *Items
	enum  []string
}

// shapeOf classifies t and registers every model it references.
func (b *builder) shapeOf(t *typeinfo.Type) shape {
	t = unwrapNullable(t)
	if t == nil {
		return shape{}
	}
	if elem := listElementType(t); elem != nil {
		return shape{typ: TypeArray, items: b.itemsOf(elem)}
	}
	if isEnumType(t) {
		tag, values := enumValues(t.Enum)
		return shape{typ: tag, enum: values}
	}
	if tag, ok := classifyScalar(t); ok {
		return shape{typ: tag}
	}
	b.resolve(t, nil)
	return shape{typ: modelID(t)}
}

// itemsOf describes the elements of an array. Items cannot nest, so an
// array of arrays is described by its innermost element.
func (b *builder) itemsOf(elem *typeinfo.Type) *Items {
	elem = unwrapNullable(elem)
	for inner := listElementType(elem); inner != nil; inner = listElementType(elem) {
		elem = unwrapNullable(inner)
	}
	if tag, ok := classifyScalar(elem); ok {
		return &Items{Type: tag}
	}
	if isEnumType(elem) {
		tag, _ := enumValues(elem.Enum)
		return &Items{Type: tag}
	}
	b.resolve(elem, nil)
	return &Items{Ref: modelID(elem)}
}

// resolve registers t and, transitively, every structured type reachable
// from its visible properties. The model is inserted before its
// properties are walked so cyclic graphs terminate on the second visit.
// Properties whose raw or serialized name is in excluded are skipped.
func (b *builder) resolve(t *typeinfo.Type, excluded map[string]struct{}) {
	t = unwrapNullable(t)
	if t == nil || isEnumType(t) {
		return
	}
	if _, ok := classifyScalar(t); ok {
		return
	}
	if elem := listElementType(t); elem != nil {
		b.resolve(elem, nil)
		return
	}

	model, created := b.reg.ensure(modelID(t))
	if !created {
		return
	}
	b.log.Debug("register model", "id", model.ID)

	for _, p := range t.Properties {
		if !visibleIn(t, p) || bodyHidden(p) {
			continue
		}
		name := b.propertyName(p)
		if isExcluded(excluded, p.Name, name) {
			continue
		}
		if _, dup := model.Properties[name]; dup {
			b.log.Warn("duplicate property name, keeping the first", "model", model.ID, "property", p.Name, "name", name)
			continue
		}

		s := b.shapeOf(p.Type)
		prop := &ModelProperty{
			Type:        s.typ,
			Items:       s.items,
			Enum:        s.enum,
			Required:    isRequired(p),
			Description: p.Description,
		}
		if doc, ok := bodyMember(p); ok {
			prop.Description = doc.Description
		}
		if av := p.Allowable; av != nil {
			if len(av.Values) > 0 {
				prop.Enum = append([]string(nil), av.Values...)
			}
			prop.Minimum, prop.Maximum = av.Min, av.Max
		}
		model.Properties[name] = prop
	}
}

// visibleIn applies the documentation visibility rules of the owning type.
func visibleIn(owner *typeinfo.Type, p *typeinfo.Property) bool {
	if owner.DataContract {
		return p.Member
	}
	return !p.Ignored
}

// bodyHidden reports whether p is documented as a non-body parameter under
// its own name, which keeps it out of the body schema.
func bodyHidden(p *typeinfo.Property) bool {
	named := false
	for _, m := range p.ApiMembers {
		if !strings.EqualFold(m.Name, p.Name) {
			continue
		}
		if m.ParameterType == ParamBody {
			return false
		}
		named = true
	}
	return named
}

func bodyMember(p *typeinfo.Property) (typeinfo.ApiMember, bool) {
	for _, m := range p.ApiMembers {
		if m.ParameterType == ParamBody && strings.EqualFold(m.Name, p.Name) {
			return m, true
		}
	}
	return typeinfo.ApiMember{}, false
}

func isRequired(p *typeinfo.Property) bool {
	if p.Required != nil {
		return *p.Required
	}
	return !isNullableWrapper(p.Type)
}

func isExcluded(excluded map[string]struct{}, names ...string) bool {
	for _, n := range names {
		if _, ok := excluded[n]; ok {
			return true
		}
	}
	return false
}

// propertyName is the serialized name of p under the naming configuration.
// Underscore naming only applies together with camel case naming.
func (b *builder) propertyName(p *typeinfo.Property) string {
	name := p.Name
	if p.Alias != "" {
		name = p.Alias
	}
	if !b.cfg.camelCase {
		return name
	}
	if b.cfg.underscore {
		return toLowercaseUnderscore(name)
	}
	return toCamelCase(name)
}
