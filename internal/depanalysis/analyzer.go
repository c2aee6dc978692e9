// Package depanalysis classifies HTTP operations as resource producers or
// consumers and builds the fixture setup/teardown program that makes
// consumer test cases runnable against a live backend.
package depanalysis

import (
	"sort"
	"strings"

	"github.com/specforge/testgen/pkg/ir"
)

// Role is how an operation relates to a resource type.
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
)

// ResourceRef names one resource an operation produces or consumes, and for
// consumers, which path parameter binds to it.
type ResourceRef struct {
	Resource  string
	PathParam string // empty for producers
}

// Classification is the analyzer's verdict for a single operation.
type Classification struct {
	Operation  *ir.Operation
	Role       Role
	Resources  []ResourceRef // producers: exactly one; consumers: outer-first
	NeedsSetup bool
}

// Analyze classifies every HTTP operation in the specification and, for each
// consumer, resolves which producer(s) can satisfy it.
func Analyze(spec *ir.Specification) ([]*Classification, map[string][]*Classification) {
	var classes []*Classification
	producersByResource := make(map[string][]*Classification)

	for _, op := range spec.Operations {
		if op.Kind != ir.OperationHTTP {
			continue
		}
		c := classify(op)
		if c == nil {
			continue
		}
		classes = append(classes, c)
		if c.Role == RoleProducer {
			res := c.Resources[0].Resource
			producersByResource[res] = append(producersByResource[res], c)
		}
	}

	// Deterministic: shortest-path producer wins when multiple match.
	for _, list := range producersByResource {
		sort.SliceStable(list, func(i, j int) bool {
			return len(list[i].Operation.Path) < len(list[j].Operation.Path)
		})
	}

	return classes, producersByResource
}

func classify(op *ir.Operation) *Classification {
	segments := pathSegments(op.Path)

	switch op.Method {
	case ir.MethodPOST:
		if op.Body == nil {
			return nil
		}
		if !hasIDBearingResponse(op) {
			return nil
		}
		resource := lastStaticSegment(segments)
		if resource == "" {
			return nil
		}
		return &Classification{Operation: op, Role: RoleProducer, Resources: []ResourceRef{{Resource: singular(resource)}}}

	case ir.MethodGET, ir.MethodPUT, ir.MethodPATCH, ir.MethodDELETE:
		refs := consumerResources(segments)
		if len(refs) == 0 {
			return nil
		}
		return &Classification{Operation: op, Role: RoleConsumer, Resources: refs, NeedsSetup: true}
	}
	return nil
}

// hasIDBearingResponse reports whether op declares a 2xx response whose
// object schema has an "id" property, per §4.5's Producer criterion. A POST
// that only echoes back a status ("sent", "accepted") is not a resource we
// can bind a created_<resource> placeholder against.
func hasIDBearingResponse(op *ir.Operation) bool {
	for _, resp := range op.Successes {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			continue
		}
		if schemaHasIDProperty(resp.Schema) {
			return true
		}
	}
	return false
}

func schemaHasIDProperty(schema *ir.Schema) bool {
	if schema == nil || schema.Kind != ir.SchemaObject || schema.Properties == nil {
		return false
	}
	_, ok := schema.Properties.Get("id")
	return ok
}

// pathSegments splits a URI template into its slash-delimited parts.
func pathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func paramName(seg string) string {
	return strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
}

func lastStaticSegment(segments []string) string {
	for i := len(segments) - 1; i >= 0; i-- {
		if !isPlaceholder(segments[i]) {
			return segments[i]
		}
	}
	return ""
}

// consumerResources walks the path outer-to-inner, pairing each static
// resource segment with the path param that immediately follows it.
func consumerResources(segments []string) []ResourceRef {
	var refs []ResourceRef
	for i := 0; i < len(segments)-1; i++ {
		if isPlaceholder(segments[i]) {
			continue
		}
		if isPlaceholder(segments[i+1]) {
			refs = append(refs, ResourceRef{Resource: singular(segments[i]), PathParam: paramName(segments[i+1])})
		}
	}
	return refs
}

// singular is a minimal plural stripper sufficient for the path vocabularies
// OpenAPI contracts use in practice (users -> user, categories -> category).
func singular(word string) string {
	switch {
	case strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	default:
		return word
	}
}
