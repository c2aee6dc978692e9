// Package typedsource parses a statically-typed function source file
// (TypeScript-shaped: interfaces, string-literal unions, generics) into the
// IR, using the go-tree-sitter TypeScript grammar.
package typedsource

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/specforge/testgen/pkg/ir"
)

// Parser implements parser.Dialect for statically-typed source files.
type Parser struct {
	sp *sitter.Parser
}

// New returns a typed-source Parser.
func New() *Parser {
	sp := sitter.NewParser()
	sp.SetLanguage(typescript.GetLanguage())
	return &Parser{sp: sp}
}

// Parse walks src as a TypeScript-shaped module: a first pass collects
// interfaces and type aliases, a second collects function declarations.
func (p *Parser) Parse(ctx context.Context, src []byte) (*ir.Specification, error) {
	tree, err := p.sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ir.ParseError{Kind: ir.ErrSyntax, Detail: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &ir.ParseError{Kind: ir.ErrSyntax, Detail: "empty parse tree"}
	}
	if root.HasError() {
		return nil, &ir.ParseError{Kind: ir.ErrSyntax, Detail: "syntax error in source"}
	}

	c := &converter{src: src, types: make(map[string]*ir.TypeDecl)}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		c.collectType(root.NamedChild(i))
	}

	spec := &ir.Specification{
		Dialect:   ir.DialectTypedSource,
		Title:     "typed-source specification",
		TypeDecls: c.order,
	}

	seenIDs := make(map[string]int)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		op := c.collectFunction(root.NamedChild(i))
		if op == nil {
			continue
		}
		seenIDs[op.ID]++
		if n := seenIDs[op.ID]; n > 1 {
			op.ID = fmt.Sprintf("%s_%d", op.ID, n)
		}
		spec.Operations = append(spec.Operations, op)
	}

	return spec, nil
}

type converter struct {
	src   []byte
	types map[string]*ir.TypeDecl
	order []*ir.TypeDecl
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

func (c *converter) register(decl *ir.TypeDecl) {
	if _, exists := c.types[decl.Name]; exists {
		return
	}
	c.types[decl.Name] = decl
	c.order = append(c.order, decl)
}

func interfaceBody(node *sitter.Node) *sitter.Node {
	if body := node.ChildByFieldName("body"); body != nil {
		return body
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "interface_body" || node.Child(i).Type() == "object_type" {
			return node.Child(i)
		}
	}
	return nil
}

func (c *converter) collectType(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "interface_declaration":
		c.collectInterface(n)
	case "type_alias_declaration":
		c.collectTypeAlias(n)
	}
}

func (c *converter) collectInterface(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)

	body := interfaceBody(n)
	obj := ir.NewObjectSchema()
	obj.NamedType = name

	if body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			if member.Type() != "property_signature" {
				continue
			}
			propName, schema, optional := c.propertySignature(member)
			if propName == "" {
				continue
			}
			if optional {
				clone := *schema
				clone.Constraints.Nullable = true
				schema = &clone
			}
			obj.Properties.Set(propName, schema)
			if !optional {
				obj.Required.Add(propName)
			}
		}
	}

	c.register(&ir.TypeDecl{ID: name, Kind: ir.TypeDeclObject, Name: name, Schema: obj})
}

func (c *converter) propertySignature(member *sitter.Node) (string, *ir.Schema, bool) {
	nameNode := member.ChildByFieldName("name")
	if nameNode == nil {
		return "", nil, false
	}
	name := c.text(nameNode)

	optional := false
	for i := 0; i < int(member.ChildCount()); i++ {
		if member.Child(i).Type() == "?" {
			optional = true
			break
		}
	}

	typeText := ""
	if typeNode := member.ChildByFieldName("type"); typeNode != nil {
		typeText = c.text(typeNode)
	}

	schema, _ := c.mapType(typeText)
	return name, schema, optional
}

// collectTypeAlias handles `type Name = "a" | "b"` as an Enum and any other
// alias as a plain Alias TypeDecl wrapping the mapped structural type.
func (c *converter) collectTypeAlias(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	name := c.text(nameNode)
	schema, _ := c.mapType(c.text(valueNode))

	kind := ir.TypeDeclAlias
	if schema.Kind == ir.SchemaEnum {
		kind = ir.TypeDeclEnum
		schema.EnumNamedType = name
	} else if schema.Kind == ir.SchemaObject {
		kind = ir.TypeDeclObject
		schema.NamedType = name
	}

	c.register(&ir.TypeDecl{ID: name, Kind: kind, Name: name, Schema: schema})
}

type paramInfo struct {
	name     string
	typ      string
	optional bool
}

func formalParameters(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if p := node.ChildByFieldName("parameters"); p != nil {
		return p
	}
	return nil
}

func (c *converter) parseParams(node *sitter.Node) []paramInfo {
	var out []paramInfo
	if node == nil {
		return out
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "required_parameter", "optional_parameter":
			var name, typ string
			if pat := child.ChildByFieldName("pattern"); pat != nil {
				name = c.text(pat)
			}
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				typ = c.text(typeNode)
			}
			optional := child.Type() == "optional_parameter"
			if name != "" {
				out = append(out, paramInfo{name: name, typ: typ, optional: optional})
			}
		case "identifier":
			out = append(out, paramInfo{name: c.text(child)})
		}
	}
	return out
}

func (c *converter) buildOperation(name string, paramsNode, returnTypeNode *sitter.Node, isAsync bool) *ir.Operation {
	body := ir.NewObjectSchema()
	for _, p := range c.parseParams(paramsNode) {
		schema, _ := c.mapType(p.typ)
		if p.optional {
			clone := *schema
			clone.Constraints.Nullable = true
			schema = &clone
		}
		body.Properties.Set(p.name, schema)
		if !p.optional {
			body.Required.Add(p.name)
		}
	}

	op := &ir.Operation{
		ID:       name,
		Kind:     ir.OperationFunction,
		IsAsync:  isAsync,
		Metadata: map[string]string{},
		Body:     &ir.Parameter{Name: "body", Required: true, Schema: body},
	}

	successSchema := &ir.Schema{Kind: ir.SchemaAny}
	if returnTypeNode != nil {
		schema, unwrappedAsync := c.mapType(c.text(returnTypeNode))
		successSchema = schema
		op.IsAsync = op.IsAsync || unwrappedAsync
	}
	op.Successes = []*ir.Response{{StatusCode: 200, Schema: successSchema}}

	return op
}

func (c *converter) collectFunction(n *sitter.Node) *ir.Operation {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "function_declaration":
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			return nil
		}
		isAsync := false
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "async" {
				isAsync = true
				break
			}
		}
		return c.buildOperation(c.text(nameNode), formalParameters(n), n.ChildByFieldName("return_type"), isAsync)

	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			declarator := n.NamedChild(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			nameNode := declarator.ChildByFieldName("name")
			valueNode := declarator.ChildByFieldName("value")
			if nameNode == nil || valueNode == nil {
				continue
			}
			if valueNode.Type() != "arrow_function" {
				continue
			}
			isAsync := false
			for j := 0; j < int(valueNode.ChildCount()); j++ {
				if valueNode.Child(j).Type() == "async" {
					isAsync = true
					break
				}
			}
			return c.buildOperation(c.text(nameNode), formalParameters(valueNode), valueNode.ChildByFieldName("return_type"), isAsync)
		}
	}
	return nil
}
