package spec

import (
	"strconv"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

// External type tags.
const (
	TypeByte    = "byte"
	TypeBoolean = "boolean"
	TypeInt     = "int"
	TypeLong    = "long"
	TypeFloat   = "float"
	TypeDouble  = "double"
	TypeString  = "string"
	TypeDate    = "date"
	TypeArray   = "array"
)

var scalarTags = map[typeinfo.Primitive]string{
	typeinfo.Bool:     TypeBoolean,
	typeinfo.Int8:     TypeByte,
	typeinfo.Uint8:    TypeByte,
	typeinfo.Int16:    TypeInt,
	typeinfo.Uint16:   TypeInt,
	typeinfo.Int32:    TypeInt,
	typeinfo.Uint32:   TypeInt,
	typeinfo.Int64:    TypeLong,
	typeinfo.Uint64:   TypeLong,
	typeinfo.Float32:  TypeFloat,
	typeinfo.Float64:  TypeDouble,
	typeinfo.Decimal:  TypeDouble,
	typeinfo.String:   TypeString,
	typeinfo.DateTime: TypeDate,
}

// listGenerics are the single-argument generic definitions treated as
// ordered collections.
var listGenerics = map[string]struct{}{
	"List":        {},
	"IList":       {},
	"IEnumerable": {},
}

// IsScalarTag reports whether tag belongs to the scalar vocabulary.
func IsScalarTag(tag string) bool {
	switch tag {
	case TypeByte, TypeBoolean, TypeInt, TypeLong, TypeFloat, TypeDouble, TypeString, TypeDate:
		return true
	}
	return false
}

// classifyScalar returns the external tag of t, looking through nullable
// wrappers. Enums are not scalars.
func classifyScalar(t *typeinfo.Type) (string, bool) {
	t = unwrapNullable(t)
	if t == nil || t.Enum != nil || t.Primitive == "" {
		return "", false
	}
	tag, ok := scalarTags[t.Primitive]
	return tag, ok
}

func isEnumType(t *typeinfo.Type) bool {
	t = unwrapNullable(t)
	return t != nil && t.Enum != nil
}

// listElementType returns the element of an array or a single-argument
// ordered collection, or nil when t is not a list.
func listElementType(t *typeinfo.Type) *typeinfo.Type {
	t = unwrapNullable(t)
	if t == nil {
		return nil
	}
	if t.Array {
		return t.Elem
	}
	if _, ok := listGenerics[t.Generic]; ok && len(t.Args) == 1 {
		return t.Args[0]
	}
	return nil
}

func isNullableWrapper(t *typeinfo.Type) bool {
	return t != nil && t.Nullable
}

func unwrapNullable(t *typeinfo.Type) *typeinfo.Type {
	for t != nil && t.Nullable && t.Elem != nil {
		t = t.Elem
	}
	return t
}

// enumValues returns the tag and allowed values of an enum. Numeric enums
// carry their underlying tag and "<n> (<name>)" values.
func enumValues(e *typeinfo.Enum) (string, []string) {
	values := make([]string, 0, len(e.Members))
	if !e.Numeric() {
		for _, m := range e.Members {
			values = append(values, m.Name)
		}
		return TypeString, values
	}
	tag, ok := scalarTags[e.Underlying]
	if !ok {
		tag = TypeInt
	}
	for _, m := range e.Members {
		values = append(values, strconv.FormatInt(m.Value, 10)+" ("+m.Name+")")
	}
	return tag, values
}

// modelID is the registry identity of a structured type.
func modelID(t *typeinfo.Type) string {
	return unwrapNullable(t).Name
}
