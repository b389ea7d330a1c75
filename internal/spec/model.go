package spec

import "strings"

// Extraction model shared by the scanner, renderer and emitters.

type HTTPMethod string

const (
    GET    HTTPMethod = "GET"
    POST   HTTPMethod = "POST"
    PUT    HTTPMethod = "PUT"
    DELETE HTTPMethod = "DELETE"
    PATCH  HTTPMethod = "PATCH"
)

// ParseMethod maps a case-insensitive method name onto HTTPMethod.
func ParseMethod(s string) (HTTPMethod, bool) {
    switch HTTPMethod(strings.ToUpper(strings.TrimSpace(s))) {
    case GET:
        return GET, true
    case POST:
        return POST, true
    case PUT:
        return PUT, true
    case DELETE:
        return DELETE, true
    case PATCH:
        return PATCH, true
    }
    return "", false
}

// HasBody reports whether sample requests for the method carry a JSON body.
func (m HTTPMethod) HasBody() bool {
    return m == POST || m == PUT || m == PATCH
}

type Location string

const (
    InPath  Location = "path"
    InQuery Location = "query"
    InBody  Location = "body"
)

// Locations lists parameter locations in rendering order.
var Locations = []Location{InPath, InQuery, InBody}

type ParamType string

const (
    TypeString  ParamType = "string"
    TypeInteger ParamType = "integer"
    TypeNumber  ParamType = "number"
    TypeBoolean ParamType = "boolean"
    TypeArray   ParamType = "array"
)

type Origin string

const (
    OriginPath      Origin = "path-syntax"
    OriginHeuristic Origin = "heuristic"
    OriginTag       Origin = "declared-tag"
)

const (
    // NoDescription is the placeholder carried by code-derived parameters.
    NoDescription = "No description"
    // NoRouteDescription is used when no comment precedes a declaration.
    NoRouteDescription = "No description provided."
)

type RouteDeclaration struct {
    Method   HTTPMethod
    Path     string
    Template string // Path with parameter tokens rewritten to {name}
    Handler  string // empty when it cannot be recovered
    Line     int    // zero-based source line index
}

type DescriptionBlock struct {
    Description string
    RawText     string
}

type Parameter struct {
    Name string
    In   Location
    Type ParamType
    // TypeInferred is false when Type is the string fallback rather than
    // something observed in code.
    TypeInferred bool
    Required     bool
    Default      *string
    Description  string
    Origin       Origin
}

// HasDefault reports whether a default value was recovered.
func (p Parameter) HasDefault() bool { return p.Default != nil }

// TagParameter is a parameter documented in a comment tag.
type TagParameter struct {
    Name        string
    Type        ParamType // empty when the raw type is not recognized
    RawType     string
    Description string
}

type RouteDocument struct {
    Declaration    RouteDeclaration
    Description    DescriptionBlock
    Parameters     []Parameter // grouped by location: path, query, body
    SampleRequest  string
    SampleResponse string
}

// ParametersIn returns the route's parameters at one location, in order.
func (d RouteDocument) ParametersIn(loc Location) []Parameter {
    var out []Parameter
    for _, p := range d.Parameters {
        if p.In == loc {
            out = append(out, p)
        }
    }
    return out
}

type FileDocument struct {
    Source  string
    Dialect string
    Title   string
    Routes  []RouteDocument
}

// Empty reports whether no route declarations were found.
func (f FileDocument) Empty() bool { return len(f.Routes) == 0 }
