package spec

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// ExportOption configures OpenAPI export.
type ExportOption func(*exportConfig)

type exportConfig struct {
	title       string
	description string
}

// WithTitle sets info.title of exported documents.
func WithTitle(title string) ExportOption {
	return func(c *exportConfig) { c.title = strings.TrimSpace(title) }
}

// WithDescription sets info.description of exported documents.
func WithDescription(desc string) ExportOption {
	return func(c *exportConfig) { c.description = strings.TrimSpace(desc) }
}

// scalarFormats maps scalar tags onto Swagger 2.0 type and format.
var scalarFormats = map[string][2]string{
	TypeByte:    {"string", "byte"},
	TypeBoolean: {"boolean", ""},
	TypeInt:     {"integer", "int32"},
	TypeLong:    {"integer", "int64"},
	TypeFloat:   {"number", "float"},
	TypeDouble:  {"number", "double"},
	TypeString:  {"string", ""},
	TypeDate:    {"string", "date-time"},
}

var braceStar = strings.NewReplacer("*}", "}")

// exportMethods are the verbs a Swagger 2.0 path item can hold.
var exportMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodPost: {}, http.MethodPut: {}, http.MethodDelete: {},
	http.MethodPatch: {}, http.MethodHead: {}, http.MethodOptions: {},
}

// ToOpenAPI2 maps a declaration onto a Swagger 2.0 document. Path
// parameters without a matching template placeholder are demoted to query.
// Duplicate (location, name) pairs keep their first entry, and only the
// first body parameter of an operation survives. Verbs Swagger 2.0 cannot
// hold are skipped.
func ToOpenAPI2(d *Declaration, opts ...ExportOption) (*openapi2.T, error) {
	if d == nil {
		return nil, &SpecError{Code: ConversionError, Message: "export: nil declaration"}
	}
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.title == "" {
		cfg.title = strings.TrimPrefix(d.ResourcePath, "/") + " API"
	}
	version := d.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	doc := &openapi2.T{
		Swagger:     "2.0",
		Info:        openapi3.Info{Title: cfg.title, Version: version, Description: cfg.description},
		Paths:       make(map[string]*openapi2.PathItem),
		Definitions: make(map[string]*openapi3.SchemaRef, len(d.Models)),
	}
	if err := applyBasePath(doc, d.BasePath); err != nil {
		return nil, err
	}

	x := exporter{models: d.Models}
	for id, m := range d.Models {
		doc.Definitions[componentName(id)] = x.modelSchema(m)
	}

	for _, api := range d.APIs {
		path := braceStar.Replace(api.Path)
		item := doc.Paths[path]
		if item == nil {
			item = &openapi2.PathItem{}
			doc.Paths[path] = item
		}
		for _, op := range api.Operations {
			if _, ok := exportMethods[op.Method]; !ok {
				continue
			}
			if item.GetOperation(op.Method) != nil {
				continue
			}
			item.SetOperation(op.Method, x.operation(api, op))
		}
	}
	return doc, nil
}

// ToOpenAPI3 exports a declaration as a validated OpenAPI 3 document by way
// of ToOpenAPI2 and openapi2conv.
func ToOpenAPI3(ctx context.Context, d *Declaration, opts ...ExportOption) (*openapi3.T, error) {
	doc2, err := ToOpenAPI2(d, opts...)
	if err != nil {
		return nil, err
	}
	doc3, err := openapi2conv.ToV3(doc2)
	if err != nil {
		return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: d.ResourcePath, Cause: err}
	}
	if doc3.Paths == nil {
		doc3.Paths = openapi3.Paths{}
	}
	if doc2.Host == "" && doc2.BasePath != "" {
		doc3.AddServer(&openapi3.Server{URL: doc2.BasePath})
	}
	if err := doc3.Validate(ctx); err != nil {
		return nil, mapValidateOrParseErr(err, d.ResourcePath)
	}
	return doc3, nil
}

func applyBasePath(doc *openapi2.T, base string) error {
	if base == "" {
		return nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return &SpecError{Code: ConversionError, Message: fmt.Sprintf("export: invalid basePath %q: %v", base, err), Cause: err}
	}
	if u.Host == "" {
		doc.BasePath = "/" + strings.TrimLeft(base, "/")
		return nil
	}
	doc.Host = u.Host
	doc.Schemes = []string{u.Scheme}
	doc.BasePath = u.Path
	return nil
}

type exporter struct {
	models map[string]*Model
}

func (x exporter) modelSchema(m *Model) *openapi3.SchemaRef {
	schema := openapi3.NewObjectSchema()
	names := make([]string, 0, len(m.Properties))
	for name := range m.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := m.Properties[name]
		ref := x.schemaFor(p.Type, p.Items, p.Enum)
		if ref.Value != nil {
			ref.Value.Description = p.Description
			ref.Value.Min, ref.Value.Max = toFloat(p.Minimum), toFloat(p.Maximum)
		}
		schema.Properties[name] = ref
		if p.Required {
			schema.Required = append(schema.Required, name)
		}
	}
	return openapi3.NewSchemaRef("", schema)
}

// schemaFor maps a type tag onto a schema. Model ids become definition
// references; ids that name no model degrade to a free-form object.
func (x exporter) schemaFor(typ string, items *Items, enum []string) *openapi3.SchemaRef {
	if f, ok := scalarFormats[typ]; ok {
		return openapi3.NewSchemaRef("", &openapi3.Schema{Type: f[0], Format: f[1], Enum: enumValues2(f[0], enum)})
	}
	if typ == TypeArray {
		return openapi3.NewSchemaRef("", &openapi3.Schema{Type: "array", Items: x.itemsSchema(items)})
	}
	if _, ok := x.models[typ]; ok {
		return &openapi3.SchemaRef{Ref: "#/definitions/" + componentName(typ)}
	}
	return openapi3.NewSchemaRef("", openapi3.NewObjectSchema())
}

func (x exporter) itemsSchema(items *Items) *openapi3.SchemaRef {
	switch {
	case items == nil:
		return openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	case items.Ref != "":
		return x.schemaFor(items.Ref, nil, nil)
	default:
		return x.schemaFor(items.Type, nil, nil)
	}
}

func (x exporter) operation(api API, op *Operation) *openapi2.Operation {
	out := &openapi2.Operation{
		Summary:     op.Summary,
		Description: op.Notes,
		OperationID: op.Nickname,
		Responses:   make(map[string]*openapi2.Response),
	}

	inTemplate := make(map[string]struct{})
	for _, name := range placeholders(api.Path) {
		inTemplate[name] = struct{}{}
	}

	seen := make(map[string]struct{})
	hasBodyParam := false
	var form []*openapi2.Parameter
	for _, p := range op.Parameters {
		param := x.parameter(p)
		if param.In == openapi3.ParameterInPath {
			if _, ok := inTemplate[param.Name]; !ok {
				param.In = openapi3.ParameterInQuery
			}
		}
		key := param.In + "\x00" + param.Name
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		switch param.In {
		case ParamBody:
			if hasBodyParam {
				continue
			}
			hasBodyParam = true
		case "formData":
			form = append(form, param)
			continue
		}
		out.Parameters = append(out.Parameters, param)
	}
	if !hasBodyParam {
		out.Parameters = append(out.Parameters, form...)
	}
	for _, name := range placeholders(api.Path) {
		if _, ok := seen[openapi3.ParameterInPath+"\x00"+name]; !ok {
			out.Parameters = append(out.Parameters, &openapi2.Parameter{In: openapi3.ParameterInPath, Name: name, Type: "string", Required: true})
		}
	}

	success := &openapi2.Response{Description: "OK"}
	if op.Type != "" {
		success.Schema = x.schemaFor(op.Type, op.Items, nil)
	}
	out.Responses[strconv.Itoa(http.StatusOK)] = success
	for _, m := range op.ResponseMessages {
		if m.Code < 100 || m.Code > 599 {
			continue
		}
		desc := m.Message
		if desc == "" {
			desc = http.StatusText(m.Code)
		}
		resp := &openapi2.Response{Description: desc}
		if m.ResponseModel != "" {
			resp.Schema = x.schemaFor(m.ResponseModel, nil, nil)
		} else if m.Code == http.StatusOK {
			resp.Schema = success.Schema
		}
		out.Responses[strconv.Itoa(m.Code)] = resp
	}
	return out
}

func (x exporter) parameter(p *Parameter) *openapi2.Parameter {
	in := p.ParamType
	if in == ParamForm {
		in = "formData"
	}
	out := &openapi2.Parameter{
		In:          in,
		Name:        p.Name,
		Description: p.Description,
		Required:    p.Required || in == openapi3.ParameterInPath,
		Minimum:     toFloat(p.Minimum),
		Maximum:     toFloat(p.Maximum),
	}
	schema := x.schemaFor(p.Type, p.Items, p.Enum)
	if in == ParamBody {
		out.Schema = schema
		return out
	}
	if schema.Ref != "" {
		out.Schema = schema
		return out
	}
	out.Type, out.Format = schema.Value.Type, schema.Value.Format
	out.Enum = schema.Value.Enum
	out.Items = schema.Value.Items
	if p.AllowMultiple && out.Type != "array" {
		out.CollectionFormat = "csv"
		out.Items = openapi3.NewSchemaRef("", &openapi3.Schema{Type: out.Type, Format: out.Format, Enum: out.Enum})
		out.Type, out.Format, out.Enum = "array", "", nil
	}
	return out
}

// enumValues2 converts allowed values to JSON values of typ. Numeric enum
// values of the form "<n> (<name>)" keep their number.
func enumValues2(typ string, values []string) []interface{} {
	if len(values) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		switch typ {
		case "integer", "number":
			num, _, _ := strings.Cut(v, " ")
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				out = append(out, v)
				continue
			}
			out = append(out, f)
		default:
			out = append(out, v)
		}
	}
	return out
}

func toFloat(n *int) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
