package spec

import (
	"strings"
	"testing"

	"github.com/mark3labs/apidecl/internal/typeinfo"
)

func intType() *typeinfo.Type    { return typeinfo.Scalar(typeinfo.Int32) }
func stringType() *typeinfo.Type { return typeinfo.Scalar(typeinfo.String) }

func listOf(elem *typeinfo.Type) *typeinfo.Type { return typeinfo.GenericOf("List", elem) }

// widgetType is Widget{Id int, Tags List<string>}.
func widgetType() *typeinfo.Type {
	return typeinfo.Object("Widget",
		typeinfo.Prop("Id", intType()),
		typeinfo.Prop("Tags", listOf(stringType())),
	)
}

func testBuilder(opts ...BuildOption) *builder {
	return newBuilder(newBuildConfig(opts))
}

func paramNamed(t *testing.T, params []*Parameter, name string) *Parameter {
	t.Helper()
	for _, p := range params {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no parameter %q in %v", name, paramNames(params))
	return nil
}

func paramNames(params []*Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.ParamType+":"+p.Name)
	}
	return out
}

// danglingRefs returns every model reference in d that names no model.
func danglingRefs(d *Declaration) []string {
	var missing []string
	check := func(where, id string) {
		if id == "" || IsScalarTag(id) || id == TypeArray {
			return
		}
		if _, ok := d.Models[id]; !ok {
			missing = append(missing, where+"->"+id)
		}
	}
	checkItems := func(where string, it *Items) {
		if it != nil {
			check(where, it.Ref)
		}
	}
	for _, api := range d.APIs {
		for _, op := range api.Operations {
			where := op.Method + " " + api.Path
			check(where, op.Type)
			checkItems(where, op.Items)
			for _, p := range op.Parameters {
				if p.Enum == nil {
					check(where+" "+p.Name, p.Type)
				}
				checkItems(where+" "+p.Name, p.Items)
			}
			for _, m := range op.ResponseMessages {
				check(where+" response", m.ResponseModel)
			}
		}
	}
	for id, m := range d.Models {
		for name, p := range m.Properties {
			if p.Enum == nil {
				check(id+"."+name, p.Type)
			}
			checkItems(id+"."+name, p.Items)
		}
	}
	return missing
}

func catalogYAML(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}
