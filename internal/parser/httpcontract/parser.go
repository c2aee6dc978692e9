// Package httpcontract parses an OpenAPI v3 document into the IR using
// getkin/kin-openapi as the object-model loader, rather than a hand-rolled
// YAML/JSON walk.
package httpcontract

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/specforge/testgen/pkg/ir"
)

// Parser implements parser.Dialect for structured HTTP contract documents.
type Parser struct{}

// New returns an http-contract Parser.
func New() *Parser { return &Parser{} }

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Parse loads src as an OpenAPI v3 document and converts it to the IR.
func (p *Parser) Parse(ctx context.Context, src []byte) (*ir.Specification, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(src)
	if err != nil {
		return nil, &ir.ParseError{Kind: ir.ErrSyntax, Detail: err.Error()}
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, &ir.ParseError{Kind: ir.ErrInvariantViolation, Detail: err.Error()}
	}

	c := &converter{doc: doc, typeDeclIDs: make(map[string]string)}

	spec := &ir.Specification{
		Title:   doc.Info.Title,
		Version: doc.Info.Version,
		Dialect: ir.DialectHTTPContract,
	}

	paths := make([]string, 0)
	for path := range doc.Paths.Map() {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	methodOrder := []struct {
		method ir.HTTPMethod
		get    func(*openapi3.PathItem) *openapi3.Operation
	}{
		{ir.MethodGET, func(pi *openapi3.PathItem) *openapi3.Operation { return pi.Get }},
		{ir.MethodPOST, func(pi *openapi3.PathItem) *openapi3.Operation { return pi.Post }},
		{ir.MethodPUT, func(pi *openapi3.PathItem) *openapi3.Operation { return pi.Put }},
		{ir.MethodPATCH, func(pi *openapi3.PathItem) *openapi3.Operation { return pi.Patch }},
		{ir.MethodDELETE, func(pi *openapi3.PathItem) *openapi3.Operation { return pi.Delete }},
	}

	for _, path := range paths {
		item := doc.Paths.Find(path)
		for _, m := range methodOrder {
			op := m.get(item)
			if op == nil {
				continue
			}
			converted, err := c.convertOperation(path, m.method, op)
			if err != nil {
				return nil, err
			}
			spec.Operations = append(spec.Operations, converted)
		}
	}

	spec.TypeDecls = c.typeDecls
	return spec, nil
}

type converter struct {
	doc         *openapi3.T
	typeDecls   []*ir.TypeDecl
	typeDeclIDs map[string]string // $ref -> TypeDecl.ID
}

func (c *converter) convertOperation(path string, method ir.HTTPMethod, op *openapi3.Operation) (*ir.Operation, error) {
	id := op.OperationID
	if id == "" {
		id = synthesizeOperationID(method, path)
	}

	result := &ir.Operation{
		ID:          id,
		Kind:        ir.OperationHTTP,
		Method:      method,
		Path:        path,
		Description: op.Description,
		Metadata:    map[string]string{},
	}

	for _, pref := range op.Parameters {
		if pref.Value == nil {
			continue
		}
		param := &ir.Parameter{
			Name:     pref.Value.Name,
			Required: pref.Value.Required,
			Schema:   c.convertSchema(pref.Value.Schema),
		}
		switch pref.Value.In {
		case "path":
			param.Location = ir.LocationPath
			result.PathParams = append(result.PathParams, param)
		case "query":
			param.Location = ir.LocationQuery
			result.QueryParams = append(result.QueryParams, param)
		case "header":
			param.Location = ir.LocationHeader
			result.Headers = append(result.Headers, param)
		}
	}
	dedupeParams(&result.PathParams)
	dedupeParams(&result.QueryParams)
	dedupeParams(&result.Headers)

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if media := op.RequestBody.Value.Content.Get("application/json"); media != nil {
			result.Body = &ir.Parameter{
				Name:     "body",
				Required: op.RequestBody.Value.Required,
				Schema:   c.convertSchema(media.Schema),
			}
		}
	}

	responsesByCode := make(map[int]*openapi3.ResponseRef)
	if op.Responses != nil {
		for codeStr, respRef := range op.Responses.Map() {
			var code int
			if _, err := fmt.Sscanf(codeStr, "%d", &code); err != nil || code == 0 {
				continue
			}
			responsesByCode[code] = respRef
		}
	}
	codes := make([]int, 0, len(responsesByCode))
	for code := range responsesByCode {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		respRef := responsesByCode[code]
		var schema *ir.Schema
		if respRef != nil && respRef.Value != nil {
			if media := respRef.Value.Content.Get("application/json"); media != nil {
				schema = c.convertSchema(media.Schema)
			}
		}
		if schema == nil {
			schema = &ir.Schema{Kind: ir.SchemaAny}
		}
		resp := &ir.Response{StatusCode: code, Schema: schema}
		if code < 400 {
			result.Successes = append(result.Successes, resp)
		} else {
			result.Errors = append(result.Errors, resp)
		}
	}

	return result, nil
}

func dedupeParams(params *[]*ir.Parameter) {
	seen := make(map[string]bool)
	out := make([]*ir.Parameter, 0, len(*params))
	for _, p := range *params {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	*params = out
}

func synthesizeOperationID(method ir.HTTPMethod, path string) string {
	sanitized := nonAlnum.ReplaceAllString(path, "_")
	sanitized = strings.Trim(sanitized, "_")
	return fmt.Sprintf("%s_%s", strings.ToLower(string(method)), sanitized)
}
