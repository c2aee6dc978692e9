package httpcontract

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/specforge/testgen/pkg/ir"
)

// convertSchema maps an openapi3.SchemaRef to the IR, resolving $ref through
// a TypeDecl and merging allOf intersections into a single Object.
func (c *converter) convertSchema(ref *openapi3.SchemaRef) *ir.Schema {
	if ref == nil {
		return &ir.Schema{Kind: ir.SchemaAny}
	}

	if ref.Ref != "" {
		return c.convertNamedRef(ref)
	}

	return c.convertInline(ref.Value)
}

func (c *converter) convertNamedRef(ref *openapi3.SchemaRef) *ir.Schema {
	if id, ok := c.typeDeclIDs[ref.Ref]; ok {
		return &ir.Schema{Kind: ir.SchemaRef, RefTo: id}
	}

	name := refName(ref.Ref)
	id := name
	c.typeDeclIDs[ref.Ref] = id

	decl := &ir.TypeDecl{ID: id, Name: name}
	c.typeDecls = append(c.typeDecls, decl)

	inner := c.convertInline(ref.Value)
	inner.NamedType = name
	decl.Schema = inner
	if inner.Kind == ir.SchemaEnum {
		decl.Kind = ir.TypeDeclEnum
		inner.EnumNamedType = name
	} else if inner.Kind == ir.SchemaObject {
		decl.Kind = ir.TypeDeclObject
	} else {
		decl.Kind = ir.TypeDeclAlias
	}

	return &ir.Schema{Kind: ir.SchemaRef, RefTo: id}
}

func refName(ref string) string {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			return ref[i+1:]
		}
	}
	return ref
}

func (c *converter) convertInline(s *openapi3.Schema) *ir.Schema {
	if s == nil {
		return &ir.Schema{Kind: ir.SchemaAny}
	}

	if len(s.AllOf) > 0 {
		return c.mergeAllOf(s)
	}

	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 {
		variants := s.OneOf
		if len(variants) == 0 {
			variants = s.AnyOf
		}
		union := &ir.Schema{Kind: ir.SchemaUnion}
		for _, v := range variants {
			union.Variants = append(union.Variants, c.convertSchema(v))
		}
		return union
	}

	if len(s.Enum) > 0 {
		return c.convertEnum(s)
	}

	typeName := ""
	if s.Type != nil && len(s.Type.Slice()) > 0 {
		typeName = s.Type.Slice()[0]
	}

	switch typeName {
	case "string":
		return &ir.Schema{Kind: ir.SchemaString, Constraints: stringConstraints(s)}
	case "integer":
		return &ir.Schema{Kind: ir.SchemaInteger, Constraints: numericConstraints(s)}
	case "number":
		return &ir.Schema{Kind: ir.SchemaNumber, Constraints: numericConstraints(s)}
	case "boolean":
		return &ir.Schema{Kind: ir.SchemaBoolean, Constraints: ir.Constraints{Nullable: s.Nullable}}
	case "array":
		items := &ir.Schema{Kind: ir.SchemaAny}
		if s.Items != nil {
			items = c.convertSchema(s.Items)
		}
		return &ir.Schema{Kind: ir.SchemaArray, Items: items, Constraints: arrayConstraints(s)}
	case "object":
		return c.convertObject(s)
	case "":
		if len(s.Properties) > 0 || s.AdditionalProperties.Schema != nil {
			return c.convertObject(s)
		}
		return &ir.Schema{Kind: ir.SchemaAny}
	default:
		return &ir.Schema{Kind: ir.SchemaAny}
	}
}

func (c *converter) convertObject(s *openapi3.Schema) *ir.Schema {
	obj := ir.NewObjectSchema()
	obj.Constraints = objectConstraints(s)
	obj.AdditionalAllowed = additionalAllowed(s)

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sortStable(names)

	for _, name := range names {
		obj.Properties.Set(name, c.convertSchema(s.Properties[name]))
	}
	for _, name := range s.Required {
		obj.Required.Add(name)
	}

	return obj
}

// mergeAllOf intersects allOf branches into a single Object: required is the
// union, properties are right-biased (later branches win on key collision),
// and constraints are tightened to the stricter bound.
func (c *converter) mergeAllOf(s *openapi3.Schema) *ir.Schema {
	merged := ir.NewObjectSchema()
	merged.AdditionalAllowed = true

	for _, branchRef := range s.AllOf {
		branch := c.convertSchema(branchRef)
		if branch.Kind == ir.SchemaRef {
			if decl, ok := c.resolveRefSchema(branch.RefTo); ok {
				branch = decl
			}
		}
		if branch.Kind != ir.SchemaObject {
			continue
		}
		branch.Properties.Range(func(name string, prop *ir.Schema) {
			merged.Properties.Set(name, prop)
		})
		for _, name := range branch.Required.Items() {
			merged.Required.Add(name)
		}
		if !branch.AdditionalAllowed {
			merged.AdditionalAllowed = false
		}
		merged.Constraints = tighten(merged.Constraints, branch.Constraints)
	}

	if len(s.Properties) > 0 {
		direct := c.convertObject(s)
		direct.Properties.Range(func(name string, prop *ir.Schema) {
			merged.Properties.Set(name, prop)
		})
		for _, name := range direct.Required.Items() {
			merged.Required.Add(name)
		}
	}

	return merged
}

func (c *converter) resolveRefSchema(id string) (*ir.Schema, bool) {
	for _, decl := range c.typeDecls {
		if decl.ID == id {
			return decl.Schema, true
		}
	}
	return nil, false
}

// tighten keeps the stricter bound between two Constraints records, used
// when merging allOf branches.
func tighten(a, b ir.Constraints) ir.Constraints {
	out := a
	out.MinLen = tighterIntLower(a.MinLen, b.MinLen)
	out.MaxLen = tighterIntUpper(a.MaxLen, b.MaxLen)
	out.MinItems = tighterIntLower(a.MinItems, b.MinItems)
	out.MaxItems = tighterIntUpper(a.MaxItems, b.MaxItems)
	out.Min = tighterFloatLower(a.Min, b.Min)
	out.Max = tighterFloatUpper(a.Max, b.Max)
	if b.Pattern != "" {
		out.Pattern = b.Pattern
	}
	if b.Format != "" {
		out.Format = b.Format
	}
	out.Nullable = a.Nullable || b.Nullable
	return out
}

func tighterIntLower(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a > *b {
		return a
	}
	return b
}

func tighterIntUpper(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a < *b {
		return a
	}
	return b
}

func tighterFloatLower(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a > *b {
		return a
	}
	return b
}

func tighterFloatUpper(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *a < *b {
		return a
	}
	return b
}

func (c *converter) convertEnum(s *openapi3.Schema) *ir.Schema {
	base := ir.SchemaString
	if s.Type != nil && len(s.Type.Slice()) > 0 {
		switch s.Type.Slice()[0] {
		case "integer":
			base = ir.SchemaInteger
		case "number":
			base = ir.SchemaNumber
		case "boolean":
			base = ir.SchemaBoolean
		}
	}
	return &ir.Schema{Kind: ir.SchemaEnum, EnumValues: s.Enum, EnumBaseType: base}
}

func additionalAllowed(s *openapi3.Schema) bool {
	if s.AdditionalProperties.Has != nil {
		return *s.AdditionalProperties.Has
	}
	return s.AdditionalProperties.Schema != nil
}

func stringConstraints(s *openapi3.Schema) ir.Constraints {
	c := ir.Constraints{Pattern: s.Pattern, Nullable: s.Nullable, Format: mapFormat(s.Format)}
	if s.MinLength > 0 {
		v := int(s.MinLength)
		c.MinLen = &v
	}
	if s.MaxLength != nil {
		v := int(*s.MaxLength)
		c.MaxLen = &v
	}
	return c
}

func mapFormat(f string) ir.StringFormat {
	switch f {
	case "email":
		return ir.FormatEmail
	case "uuid":
		return ir.FormatUUID
	case "date":
		return ir.FormatDate
	case "date-time":
		return ir.FormatDateTime
	case "ipv4":
		return ir.FormatIPv4
	case "ipv6":
		return ir.FormatIPv6
	case "uri":
		return ir.FormatURI
	case "":
		return ir.FormatNone
	default:
		return ir.FormatOther
	}
}

func numericConstraints(s *openapi3.Schema) ir.Constraints {
	c := ir.Constraints{Nullable: s.Nullable, ExclusiveMin: s.ExclusiveMin, ExclusiveMax: s.ExclusiveMax}
	if s.Min != nil {
		v := *s.Min
		c.Min = &v
	}
	if s.Max != nil {
		v := *s.Max
		c.Max = &v
	}
	if s.MultipleOf != nil {
		v := *s.MultipleOf
		c.MultipleOf = &v
	}
	return c
}

func arrayConstraints(s *openapi3.Schema) ir.Constraints {
	c := ir.Constraints{UniqueItems: s.UniqueItems, Nullable: s.Nullable}
	if s.MinItems > 0 {
		v := int(s.MinItems)
		c.MinItems = &v
	}
	if s.MaxItems != nil {
		v := int(*s.MaxItems)
		c.MaxItems = &v
	}
	return c
}

func objectConstraints(s *openapi3.Schema) ir.Constraints {
	c := ir.Constraints{Nullable: s.Nullable}
	if s.MinProps > 0 {
		v := int(s.MinProps)
		c.MinProps = &v
	}
	if s.MaxProps != nil {
		v := int(*s.MaxProps)
		c.MaxProps = &v
	}
	return c
}

// sortStable is a tiny insertion sort kept local to avoid importing sort
// twice for a handful of property names; clarity over micro-optimization.
func sortStable(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}
