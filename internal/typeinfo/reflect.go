package typeinfo

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Enumerator is implemented by named Go types that act as enums.
type Enumerator interface {
	EnumMembers() []EnumMember
}

// Returns declares the response type of a request struct when embedded:
//
//	type GetWidget struct {
//		typeinfo.Returns[Widget]
//		ID int `path:"ID"`
//	}
type Returns[T any] struct{}

func (Returns[T]) returnType() reflect.Type { return reflect.TypeFor[T]() }

type returner interface{ returnType() reflect.Type }

// locationTags are the struct tags that declare a parameter location.
var locationTags = []string{"path", "query", "body", "header", "form"}

var (
	returnerType   = reflect.TypeFor[returner]()
	enumeratorType = reflect.TypeFor[Enumerator]()
	timeType       = reflect.TypeFor[time.Time]()
	pkgQualifier   = regexp.MustCompile(`[\w./-]+\.`)
)

// Reflector builds descriptors from Go types. It memoizes by reflect.Type so
// recursive structs produce a cyclic descriptor graph instead of looping.
// A Reflector is not safe for concurrent use.
type Reflector struct {
	cache map[reflect.Type]*Type
}

func NewReflector() *Reflector {
	return &Reflector{cache: make(map[reflect.Type]*Type)}
}

// TypeFor is a generic shorthand for r.TypeOf.
func TypeFor[T any](r *Reflector) *Type {
	return r.TypeOf(reflect.TypeFor[T]())
}

// TypeOf returns the descriptor for t.
func (r *Reflector) TypeOf(t reflect.Type) *Type {
	if t == nil {
		return Object("Object")
	}
	if cached, ok := r.cache[t]; ok {
		return cached
	}

	if t.Kind() == reflect.Pointer {
		return NullableOf(r.TypeOf(t.Elem()))
	}
	if t == timeType {
		out := &Type{Name: "DateTime", Primitive: DateTime}
		r.cache[t] = out
		return out
	}

	if t.Implements(enumeratorType) {
		return r.enumOf(t)
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return ArrayOf(r.TypeOf(t.Elem()))
	case reflect.Map:
		return GenericOf("map", r.TypeOf(t.Key()), r.TypeOf(t.Elem()))
	case reflect.Struct:
		return r.structOf(t)
	case reflect.Interface:
		return Object("Object")
	}

	if p, ok := primitiveOf(t.Kind()); ok {
		name := t.Name()
		if t.PkgPath() == "" {
			name = string(p)
		}
		out := &Type{Name: name, Primitive: p}
		r.cache[t] = out
		return out
	}
	return Object(typeName(t))
}

func (r *Reflector) enumOf(t reflect.Type) *Type {
	members := reflect.Zero(t).Interface().(Enumerator).EnumMembers()
	enum := &Enum{Members: members}
	if p, ok := primitiveOf(t.Kind()); ok && p != String {
		enum.Underlying = p
	}
	out := &Type{Name: typeName(t), Enum: enum}
	r.cache[t] = out
	return out
}

func (r *Reflector) structOf(t reflect.Type) *Type {
	out := &Type{Name: typeName(t)}
	// Registered before walking fields so self references resolve to out.
	r.cache[t] = out
	r.appendFields(out, t)
	return out
}

func (r *Reflector) appendFields(out *Type, t reflect.Type) {
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Type.Implements(returnerType) {
			ret := reflect.Zero(f.Type).Interface().(returner).returnType()
			out.Returns = r.TypeOf(ret)
			continue
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			r.appendFields(out, f.Type)
			continue
		}
		if !f.IsExported() {
			continue
		}
		out.Properties = append(out.Properties, r.fieldOf(f))
	}
}

func (r *Reflector) fieldOf(f reflect.StructField) *Property {
	prop := &Property{
		Name:        f.Name,
		Type:        r.TypeOf(f.Type),
		Description: f.Tag.Get("doc"),
	}

	if tag, ok := f.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		switch name {
		case "-":
			prop.Ignored = true
		case "":
		default:
			prop.Alias = name
		}
	}

	if v, ok := f.Tag.Lookup("required"); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			prop.Required = &b
		}
	}

	for _, loc := range locationTags {
		name, ok := f.Tag.Lookup(loc)
		if !ok {
			continue
		}
		multiple, _ := strconv.ParseBool(f.Tag.Get("multiple"))
		prop.ApiMembers = append(prop.ApiMembers, ApiMember{
			Name:          name,
			Description:   prop.Description,
			ParameterType: loc,
			DataType:      f.Tag.Get("datatype"),
			Verb:          f.Tag.Get("verb"),
			Required:      f.Tag.Get("required") == "true",
			AllowMultiple: multiple,
		})
	}

	prop.Allowable = allowableOf(f.Tag)
	return prop
}

func allowableOf(tag reflect.StructTag) *AllowableValues {
	var av AllowableValues
	if enum := tag.Get("enum"); enum != "" {
		for _, v := range strings.Split(enum, ",") {
			if v = strings.TrimSpace(v); v != "" {
				av.Values = append(av.Values, v)
			}
		}
	}
	if n, err := strconv.Atoi(tag.Get("minimum")); err == nil {
		av.Min = &n
	}
	if n, err := strconv.Atoi(tag.Get("maximum")); err == nil {
		av.Max = &n
	}
	if av.Values == nil && av.Min == nil && av.Max == nil {
		return nil
	}
	return &av
}

func primitiveOf(k reflect.Kind) (Primitive, bool) {
	//exhaustive:ignore
	switch k {
	case reflect.Bool:
		return Bool, true
	case reflect.Int8:
		return Int8, true
	case reflect.Uint8:
		return Uint8, true
	case reflect.Int16:
		return Int16, true
	case reflect.Uint16:
		return Uint16, true
	case reflect.Int32:
		return Int32, true
	case reflect.Uint32:
		return Uint32, true
	case reflect.Int, reflect.Int64:
		return Int64, true
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return Uint64, true
	case reflect.Float32:
		return Float32, true
	case reflect.Float64:
		return Float64, true
	case reflect.String:
		return String, true
	}
	return "", false
}

// typeName strips package qualifiers from generic instance names so
// Page[example.com/app.Widget] becomes Page[Widget].
func typeName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return "Object"
	}
	return pkgQualifier.ReplaceAllString(name, "")
}
