package spec

// Output document definitions. Field names and tags are the external
// contract of the Swagger 1.2 API declaration format.

const SwaggerVersion = "1.2"

// Parameter locations.
const (
	ParamPath   = "path"
	ParamQuery  = "query"
	ParamBody   = "body"
	ParamHeader = "header"
	ParamForm   = "form"
)

// Declaration is the API declaration for one resource.
type Declaration struct {
	APIVersion     string            `json:"apiVersion" yaml:"apiVersion"`
	SwaggerVersion string            `json:"swaggerVersion" yaml:"swaggerVersion"`
	BasePath       string            `json:"basePath" yaml:"basePath"`
	ResourcePath   string            `json:"resourcePath" yaml:"resourcePath"`
	APIs           []API             `json:"apis" yaml:"apis"`
	Models         map[string]*Model `json:"models" yaml:"models"`
}

type API struct {
	Path        string       `json:"path" yaml:"path"`
	Description string       `json:"description" yaml:"description"`
	Operations  []*Operation `json:"operations" yaml:"operations"`
}

type Operation struct {
	Method           string            `json:"method" yaml:"method"`
	Nickname         string            `json:"nickname" yaml:"nickname"`
	Summary          string            `json:"summary" yaml:"summary"`
	Notes            string            `json:"notes" yaml:"notes"`
	Parameters       []*Parameter      `json:"parameters" yaml:"parameters"`
	Type             string            `json:"type,omitempty" yaml:"type,omitempty"`
	Items            *Items            `json:"items,omitempty" yaml:"items,omitempty"`
	ResponseMessages []ResponseMessage `json:"responseMessages" yaml:"responseMessages"`
}

type Parameter struct {
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	ParamType     string   `json:"paramType" yaml:"paramType"`
	AllowMultiple bool     `json:"allowMultiple" yaml:"allowMultiple"`
	Required      bool     `json:"required" yaml:"required"`
	Type          string   `json:"type" yaml:"type"`
	Enum          []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Minimum       *int     `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum       *int     `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Items         *Items   `json:"items,omitempty" yaml:"items,omitempty"`
}

type ResponseMessage struct {
	Code          int    `json:"code" yaml:"code"`
	Message       string `json:"message" yaml:"message"`
	ResponseModel string `json:"responseModel,omitempty" yaml:"responseModel,omitempty"`
}

// Model is a registered structured type.
type Model struct {
	ID         string                    `json:"id" yaml:"id"`
	Properties map[string]*ModelProperty `json:"properties" yaml:"properties"`
}

type ModelProperty struct {
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string   `json:"type" yaml:"type"`
	Items       *Items   `json:"items,omitempty" yaml:"items,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Required    bool     `json:"required" yaml:"required"`
	Minimum     *int     `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty" yaml:"maximum,omitempty"`
}

// Items describes array elements: a scalar Type or a model Ref, never both.
type Items struct {
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Ref  string `json:"$ref,omitempty" yaml:"$ref,omitempty"`
}

// Listing is the resource listing that points at each declaration.
type Listing struct {
	APIVersion     string       `json:"apiVersion" yaml:"apiVersion"`
	SwaggerVersion string       `json:"swaggerVersion" yaml:"swaggerVersion"`
	BasePath       string       `json:"basePath" yaml:"basePath"`
	APIs           []ListingAPI `json:"apis" yaml:"apis"`
}

type ListingAPI struct {
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description" yaml:"description"`
}
