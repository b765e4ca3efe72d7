package schema

import "strings"

// ParameterLocation is where a parameter is carried on the outbound request.
type ParameterLocation string

const (
	LocationPath   ParameterLocation = "PATH"
	LocationQuery  ParameterLocation = "QUERY"
	LocationHeader ParameterLocation = "HEADER"
	LocationCookie ParameterLocation = "COOKIE"
)

// ParameterStyle controls how array and object values are serialized.
type ParameterStyle string

const (
	StyleForm           ParameterStyle = "FORM"
	StyleSpaceDelimited ParameterStyle = "SPACE_DELIMITED"
	StylePipeDelimited  ParameterStyle = "PIPE_DELIMITED"
	StyleDeepObject     ParameterStyle = "DEEP_OBJECT"
	StyleSimple         ParameterStyle = "SIMPLE"
	StyleMatrix         ParameterStyle = "MATRIX"
	StyleLabel          ParameterStyle = "LABEL"
)

// Parameter describes one named input of an operation.
type Parameter struct {
	Name     string            `yaml:"name" json:"name"`
	In       ParameterLocation `yaml:"in" json:"in"`
	Style    ParameterStyle    `yaml:"style,omitempty" json:"style,omitempty"`
	Explode  bool              `yaml:"explode,omitempty" json:"explode,omitempty"`
	Required bool              `yaml:"required,omitempty" json:"required,omitempty"`
}

// Mapping renames a logical operation parameter (or the request body) to the
// field name the caller actually sends in its params payload.
type Mapping struct {
	Name       string `yaml:"name" json:"name"`
	MappedName string `yaml:"mapped_name" json:"mappedName"`
}

// RequestBodyMapping marks that an operation accepts a body. Name is the
// logical body field; a Mapping with the same name may rename it.
type RequestBodyMapping struct {
	Name     string `yaml:"name" json:"name"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// ResponseContent is one media-type range a response body may be encoded in.
type ResponseContent struct {
	MediaTypeRange string `yaml:"media_type_range" json:"mediaTypeRange"`
	Schema         string `yaml:"schema,omitempty" json:"schema,omitempty"`
}

// ResponseBody groups the content candidates for one status code pattern:
// an exact code ("200"), a class ("2XX") or "default".
type ResponseBody struct {
	StatusCode string            `yaml:"status_code" json:"statusCode"`
	Contents   []ResponseContent `yaml:"contents" json:"contents"`
}

// SecurityRequirement references a security scheme by ID.
type SecurityRequirement struct {
	SchemeID string `yaml:"scheme_id" json:"schemeId"`
}

// Operation is a read-only descriptor of one API endpoint.
type Operation struct {
	ID             string                `yaml:"id" json:"id"`
	Method         string                `yaml:"method" json:"method"`
	Path           string                `yaml:"path" json:"path"`
	Parameters     []Parameter           `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	RequestBody    *RequestBodyMapping   `yaml:"request_body,omitempty" json:"requestBody,omitempty"`
	ResponseBodies []ResponseBody        `yaml:"response_bodies,omitempty" json:"responseBodies,omitempty"`
	Security       []SecurityRequirement `yaml:"security,omitempty" json:"security,omitempty"`
	Mappings       []Mapping             `yaml:"mappings,omitempty" json:"mappings,omitempty"`
}

// MappedName returns the caller-side field name for a logical name,
// defaulting to the name itself when no mapping exists.
func (o *Operation) MappedName(name string) string {
	for _, m := range o.Mappings {
		if m.Name == name && m.MappedName != "" {
			return m.MappedName
		}
	}
	return name
}

// ParametersIn returns the operation's parameters for one location, in
// declaration order.
func (o *Operation) ParametersIn(loc ParameterLocation) []Parameter {
	var out []Parameter
	for _, p := range o.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

// UpperMethod returns the HTTP method in canonical upper case.
func (o *Operation) UpperMethod() string {
	if o.Method == "" {
		return "GET"
	}
	return strings.ToUpper(o.Method)
}

// SecuritySchemeType is the OpenAPI security scheme type.
type SecuritySchemeType string

const (
	SecurityTypeHTTP   SecuritySchemeType = "HTTP"
	SecurityTypeAPIKey SecuritySchemeType = "API_KEY"
	SecurityTypeOAuth2 SecuritySchemeType = "OAUTH2"
)

// SecurityScheme describes how an upstream API expects to be authenticated.
type SecurityScheme struct {
	ID         string             `yaml:"id" json:"id"`
	Type       SecuritySchemeType `yaml:"type" json:"type"`
	HTTPScheme string             `yaml:"http_scheme,omitempty" json:"httpScheme,omitempty"`
}

// Server is one base URL an API is served from.
type Server struct {
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Schema is the API definition an operation belongs to.
type Schema struct {
	ID              string           `yaml:"id" json:"id"`
	Servers         []Server         `yaml:"servers,omitempty" json:"servers,omitempty"`
	SecuritySchemes []SecurityScheme `yaml:"security_schemes,omitempty" json:"securitySchemes,omitempty"`
	Operations      []Operation      `yaml:"operations,omitempty" json:"operations,omitempty"`
}

// SecurityScheme looks up a scheme by ID.
func (s *Schema) SecurityScheme(id string) (*SecurityScheme, bool) {
	for i := range s.SecuritySchemes {
		if s.SecuritySchemes[i].ID == id {
			return &s.SecuritySchemes[i], true
		}
	}
	return nil, false
}

// Operation looks up an operation by ID.
func (s *Schema) Operation(id string) (*Operation, bool) {
	for i := range s.Operations {
		if s.Operations[i].ID == id {
			return &s.Operations[i], true
		}
	}
	return nil, false
}

// ClientAuthentication is the stored credential for one (client, scheme)
// pair. For "basic" both fields are used; for "bearer" Password holds the token.
type ClientAuthentication struct {
	ClientID         string `yaml:"client_id" json:"clientId"`
	SecuritySchemeID string `yaml:"security_scheme_id" json:"securitySchemeId"`
	Username         string `yaml:"username,omitempty" json:"username,omitempty"`
	Password         string `yaml:"password,omitempty" json:"password,omitempty"`
}

// CacheConfig is the per-client response cache policy.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	TTL     int  `yaml:"ttl" json:"ttl"` // seconds
}

// HTTPClient is a project's configured integration with one upstream API.
type HTTPClient struct {
	ID          string      `yaml:"id" json:"id"`
	Slug        string      `yaml:"slug,omitempty" json:"slug,omitempty"`
	SchemaID    string      `yaml:"schema_id" json:"schemaId"`
	CacheConfig CacheConfig `yaml:"cache" json:"cacheConfig"`
}

// Project owns the API key callers authenticate with and the clients they
// may call through the gateway.
type Project struct {
	ID            string       `yaml:"id" json:"id"`
	Key           string       `yaml:"key" json:"-"`
	Slug          string       `yaml:"slug,omitempty" json:"slug,omitempty"`
	WorkspaceSlug string       `yaml:"workspace_slug,omitempty" json:"workspaceSlug,omitempty"`
	Clients       []HTTPClient `yaml:"clients,omitempty" json:"clients,omitempty"`
}

// Client looks up a project's client by ID.
func (p *Project) Client(id string) (*HTTPClient, bool) {
	for i := range p.Clients {
		if p.Clients[i].ID == id {
			return &p.Clients[i], true
		}
	}
	return nil, false
}

// OperationData is an operation together with the schema that declares it.
type OperationData struct {
	Schema    *Schema
	Operation *Operation
}
