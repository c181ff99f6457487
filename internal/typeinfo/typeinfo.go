// Package typeinfo describes the request and response type graph consumed by
// the declaration compiler. Descriptors are plain data: they are produced by
// a catalog loader or by the reflection adapter and are never mutated once
// built.
package typeinfo

import "strings"

// Primitive names a host primitive that maps onto a fixed external scalar tag.
type Primitive string

const (
	Bool     Primitive = "bool"
	Int8     Primitive = "int8"
	Uint8    Primitive = "uint8"
	Int16    Primitive = "int16"
	Uint16   Primitive = "uint16"
	Int32    Primitive = "int32"
	Uint32   Primitive = "uint32"
	Int64    Primitive = "int64"
	Uint64   Primitive = "uint64"
	Float32  Primitive = "float32"
	Float64  Primitive = "float64"
	Decimal  Primitive = "decimal"
	String   Primitive = "string"
	DateTime Primitive = "datetime"
)

// Type is a node in the type graph. Exactly one shape applies: primitive,
// array (Elem), nullable wrapper (Elem), enum, generic instance (Generic +
// Args) or structured object (Properties). Named types may point back at
// themselves through their properties.
type Type struct {
	Name        string
	Description string

	Primitive Primitive

	Array    bool
	Nullable bool
	Elem     *Type

	Generic string
	Args    []*Type

	Enum *Enum

	// DataContract marks a type that lists its documented members
	// explicitly; properties without Member set are then hidden.
	DataContract bool
	Properties   []*Property

	// Returns is the declared return-type contract of a request type.
	Returns *Type
}

// Enum lists the members of an enum type. A zero Underlying marks a
// symbolic enum.
type Enum struct {
	Underlying Primitive
	Members    []EnumMember
}

type EnumMember struct {
	Name  string
	Value int64
}

// Numeric reports whether the enum is backed by an integer primitive.
func (e *Enum) Numeric() bool { return e != nil && e.Underlying != "" && e.Underlying != String }

// Property is a single member of a structured type.
type Property struct {
	Name string
	Type *Type

	// Alias overrides the serialized name.
	Alias string
	// Required overrides the nullability-derived required flag.
	Required *bool
	// Member marks the property as part of its type's documentation contract.
	Member bool
	// Ignored marks the property as non-serializable.
	Ignored bool

	Description string
	ApiMembers  []ApiMember
	Allowable   *AllowableValues
}

// ApiMember is per-verb parameter metadata attached to a request property.
type ApiMember struct {
	Name          string
	Description   string
	ParameterType string
	DataType      string
	Verb          string
	Required      bool
	AllowMultiple bool
}

// AllowableValues constrains a property or parameter. Name scopes the
// constraint to a parameter name; empty applies to any.
type AllowableValues struct {
	Name   string
	Values []string
	Min    *int
	Max    *int
}

// Route binds a path template and verb set to a request type.
type Route struct {
	Path     string
	Verbs    []string
	AllVerbs bool
	Request  *Type
	// Returns overrides Request.Returns when set.
	Returns   *Type
	Summary   string
	Notes     string
	Responses []Response
	Hidden    bool
}

// Response is a declared response status for a route.
type Response struct {
	Code    int
	Message string
	Model   *Type
}

// Scalar returns an unnamed primitive descriptor.
func Scalar(p Primitive) *Type { return &Type{Name: string(p), Primitive: p} }

// ArrayOf returns an array descriptor over elem.
func ArrayOf(elem *Type) *Type {
	return &Type{Name: elem.Name + "[]", Array: true, Elem: elem}
}

// NullableOf wraps elem in a nullable descriptor.
func NullableOf(elem *Type) *Type {
	return &Type{Name: elem.Name + "?", Nullable: true, Elem: elem}
}

// GenericOf returns an instance of the named generic definition.
func GenericOf(def string, args ...*Type) *Type {
	names := make([]string, 0, len(args))
	for _, a := range args {
		names = append(names, a.Name)
	}
	return &Type{Name: def + "<" + strings.Join(names, ",") + ">", Generic: def, Args: args}
}

// Object returns a structured type with the given properties.
func Object(name string, props ...*Property) *Type {
	return &Type{Name: name, Properties: props}
}

// Prop is a shorthand for a plain property.
func Prop(name string, t *Type) *Property { return &Property{Name: name, Type: t} }

// BoolPtr returns a pointer to b, for Property.Required.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to n, for AllowableValues bounds.
func IntPtr(n int) *int { return &n }

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}
