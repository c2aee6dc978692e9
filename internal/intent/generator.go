package intent

import (
	"fmt"
	"strings"

	"github.com/specforge/testgen/pkg/ir"
)

// Config controls which intents the generator is willing to emit.
type Config struct {
	// TargetIntents is the allow-list. Empty means "allow everything".
	TargetIntents []ID
}

func (c *Config) allows(id ID) bool {
	if id == HappyPath {
		return true
	}
	if len(c.TargetIntents) == 0 {
		return true
	}
	for _, want := range c.TargetIntents {
		if want == id {
			return true
		}
	}
	return false
}

// Generate produces the ordered intent list for a single operation, following
// the dialect-agnostic strategy. The operation kind (HTTP endpoint or
// function) selects the required-field id (REQUIRED_FIELD_MISSING vs
// REQUIRED_ARG_MISSING), the undeclared-property id (AdditionalPropertyBanned
// vs UnexpectedArgument), the string-length ids (BoundaryMinLenMinusOne/
// BoundaryMaxLenPlusOne vs StringTooShort/StringTooLong), and whether
// HTTP-only strategies (header/path-param/resource intents) apply.
func Generate(op *ir.Operation, cfg Config) []*Intent {
	g := &generator{op: op, cfg: cfg}
	g.emit(&Intent{ID: HappyPath, Category: CategoryHappy, ExpectedStatus: g.happyStatus(), Description: "canonical valid request"})

	requiredMissingID := RequiredFieldMissing
	if op.Kind == ir.OperationFunction {
		requiredMissingID = RequiredArgMissing
	}

	if op.Body != nil && op.Body.Schema != nil {
		g.walkObject(op.Body.Schema, "", requiredMissingID)
	}

	if op.Kind == ir.OperationHTTP {
		g.pathParamIntents()
		g.headerIntents()
	}

	return g.intents
}

type generator struct {
	op      *ir.Operation
	cfg     Config
	intents []*Intent
}

func (g *generator) emit(i *Intent) {
	if !g.cfg.allows(i.ID) {
		return
	}
	g.intents = append(g.intents, i)
}

func (g *generator) happyStatus() int {
	if len(g.op.Successes) > 0 {
		return g.op.Successes[0].StatusCode
	}
	return 0
}

func (g *generator) negativeStatus(cat Category) int {
	switch cat {
	case CategoryValidation:
		for _, e := range g.op.Errors {
			if e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 404 {
				return e.StatusCode
			}
		}
	case CategoryResource:
		for _, e := range g.op.Errors {
			if e.StatusCode == 404 {
				return 404
			}
		}
	}
	for _, e := range g.op.Errors {
		if e.StatusCode == 400 {
			return 400
		}
	}
	if len(g.op.Errors) > 0 {
		return g.op.Errors[0].StatusCode
	}
	return 400
}

func join(prefix, field string) string {
	if prefix == "" {
		return field
	}
	return prefix + "." + field
}

// walkObject implements strategy steps 2-9: required/type/format/boundary
// intents, walked depth-first through nested objects in declaration order.
func (g *generator) walkObject(schema *ir.Schema, path string, requiredMissingID ID) {
	if schema == nil || schema.Kind != ir.SchemaObject {
		return
	}

	// Step 2: required fields, in declaration order.
	schema.Properties.Range(func(name string, prop *ir.Schema) {
		if schema.Required.Contains(name) {
			fieldPath := join(path, name)
			g.emit(&Intent{
				ID:             requiredMissingID,
				Category:       CategoryValidation,
				TargetPath:     fieldPath,
				Field:          name,
				ExpectedStatus: g.negativeStatus(CategoryValidation),
				Description:    fmt.Sprintf("omit required field %q", fieldPath),
				Schema:         prop,
			})
		}
	})

	// Steps 3-9: per-property checks, then recurse into nested objects.
	schema.Properties.Range(func(name string, prop *ir.Schema) {
		fieldPath := join(path, name)
		g.propertyIntents(prop, fieldPath, name)
		if prop.Kind == ir.SchemaObject {
			g.walkObject(prop, fieldPath, requiredMissingID)
		}
		if prop.Kind == ir.SchemaArray && prop.Items != nil && prop.Items.Kind == ir.SchemaObject {
			g.walkObject(prop.Items, join(fieldPath, "0"), requiredMissingID)
		}
	})

	if !schema.AdditionalAllowed {
		additionalID := AdditionalPropertyBanned
		desc := "add a property not declared by the schema"
		if g.op.Kind == ir.OperationFunction {
			additionalID = UnexpectedArgument
			desc = "pass an argument not declared by the signature"
		}
		g.emit(&Intent{
			ID:             additionalID,
			Category:       CategoryValidation,
			TargetPath:     path,
			ExpectedStatus: g.negativeStatus(CategoryValidation),
			Description:    desc,
			Schema:         schema,
		})
	}
}

// simple emits an intent with the fields common to every per-property check.
func (g *generator) simple(id ID, cat Category, fieldPath, name string, status int, schema *ir.Schema, desc string) {
	g.emit(&Intent{ID: id, Category: cat, TargetPath: fieldPath, Field: name, ExpectedStatus: status, Description: desc, Schema: schema})
}

func (g *generator) propertyIntents(prop *ir.Schema, fieldPath, name string) {
	status := g.negativeStatus(CategoryValidation)

	g.simple(TypeViolation, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("wrong type for %q", fieldPath))
	if !prop.IsNullable() {
		g.simple(NullNotAllowed, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("null for non-nullable %q", fieldPath))
	}

	switch prop.Kind {
	case ir.SchemaString:
		c := prop.Constraints
		if c.Format != "" {
			g.simple(FormatInvalid, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("invalid %s format for %q", c.Format, fieldPath))
		}
		if c.Pattern != "" {
			g.simple(PatternMismatch, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("value violating pattern for %q", fieldPath))
		}
		tooShortID, tooLongID := BoundaryMinLenMinusOne, BoundaryMaxLenPlusOne
		if g.op.Kind == ir.OperationFunction {
			tooShortID, tooLongID = StringTooShort, StringTooLong
		}
		if c.MinLen != nil {
			g.simple(tooShortID, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q one char shorter than min_len", fieldPath))
		}
		if c.MaxLen != nil {
			g.simple(tooLongID, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q one char longer than max_len", fieldPath))
		}
		if c.MinLen != nil && *c.MinLen > 0 {
			g.simple(EmptyString, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("empty string for %q", fieldPath))
		}
		g.simple(WhitespaceOnly, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("whitespace-only string for %q", fieldPath))
		if c.Format == "" && c.Pattern == "" {
			g.simple(SQLInjection, CategorySecurity, fieldPath, name, status, prop, fmt.Sprintf("SQL injection payload for %q", fieldPath))
			g.simple(XSSInjection, CategorySecurity, fieldPath, name, status, prop, fmt.Sprintf("XSS payload for %q", fieldPath))
			g.simple(CommandInjection, CategorySecurity, fieldPath, name, status, prop, fmt.Sprintf("command injection payload for %q", fieldPath))
		}
		if c.Format == ir.FormatURI || strings.Contains(strings.ToLower(name), "path") || strings.Contains(strings.ToLower(name), "file") {
			g.simple(PathTraversal, CategorySecurity, fieldPath, name, status, prop, fmt.Sprintf("path traversal payload for %q", fieldPath))
		}

	case ir.SchemaInteger, ir.SchemaNumber:
		c := prop.Constraints
		if c.Min != nil {
			g.simple(BoundaryMinMinusOne, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q just below min", fieldPath))
		}
		if c.Max != nil {
			g.simple(BoundaryMaxPlusOne, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q just above max", fieldPath))
		}
		if c.MultipleOf != nil {
			g.simple(NotMultipleOf, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q off the multiple_of grid", fieldPath))
		}

	case ir.SchemaEnum:
		g.simple(EnumMismatch, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("value outside declared enum for %q", fieldPath))

	case ir.SchemaArray:
		c := prop.Constraints
		if c.MinItems != nil {
			g.simple(BoundaryMinItemsMinusOne, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q one item short of min_items", fieldPath))
		}
		if c.MaxItems != nil {
			g.simple(BoundaryMaxItemsPlusOne, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("%q one item past max_items", fieldPath))
		}
		if c.UniqueItems {
			g.simple(ArrayNotUnique, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("duplicate items in %q", fieldPath))
		}
		g.simple(ArrayItemTypeViolation, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("wrong item type in %q", fieldPath))

	case ir.SchemaUnion:
		g.simple(UnionNoMatch, CategoryValidation, fieldPath, name, status, prop, fmt.Sprintf("value matching no variant of %q", fieldPath))
	}
}

// pathParamIntents implements strategy step 10.
func (g *generator) pathParamIntents() {
	status404 := g.negativeStatus(CategoryResource)
	statusVal := g.negativeStatus(CategoryValidation)
	for _, p := range g.op.PathParams {
		if p.Required {
			g.simple(ResourceNotFound, CategoryResource, p.Name, p.Name, status404, p.Schema, fmt.Sprintf("path param %q referencing an absent resource", p.Name))
		}
		if p.Schema != nil && p.Schema.Constraints.Format != "" {
			g.simple(FormatInvalidPathParam, CategoryValidation, p.Name, p.Name, statusVal, p.Schema, fmt.Sprintf("path param %q violating its format", p.Name))
		}
	}
}

// headerIntents implements strategy step 12.
func (g *generator) headerIntents() {
	status := g.negativeStatus(CategoryValidation)
	for _, h := range g.op.Headers {
		if h.Required {
			g.simple(HeaderMissing, CategoryValidation, h.Name, h.Name, status, h.Schema, fmt.Sprintf("omit required header %q", h.Name))
		}
		if h.Schema != nil {
			if h.Schema.Kind == ir.SchemaEnum {
				g.simple(HeaderEnumMismatch, CategoryValidation, h.Name, h.Name, status, h.Schema, fmt.Sprintf("header %q outside its enum", h.Name))
			} else {
				g.simple(HeaderInjection, CategorySecurity, h.Name, h.Name, status, h.Schema, fmt.Sprintf("CRLF injection in header %q", h.Name))
			}
		}
	}
}
