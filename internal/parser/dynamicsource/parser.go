// Package dynamicsource parses a dynamically-typed function source file
// (Python-shaped: type hints, dataclasses, Enum subclasses) into the IR,
// using the same go-tree-sitter grammar the teacher's generic parser walks.
package dynamicsource

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/specforge/testgen/pkg/ir"
)

// Parser implements parser.Dialect for dynamically-typed source files.
type Parser struct {
	sp *sitter.Parser
}

// New returns a dynamic-source Parser.
func New() *Parser {
	sp := sitter.NewParser()
	sp.SetLanguage(python.GetLanguage())
	return &Parser{sp: sp}
}

// Parse walks src as a Python-shaped module: a first pass collects type
// declarations (Enum subclasses, annotated classes), a second collects
// function declarations. Constraints are never inferred from function
// bodies, only from annotations, per §4.1.2.
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

	// Pass 1: type declarations, in source order.
	for i := 0; i < int(root.NamedChildCount()); i++ {
		c.collectType(root.NamedChild(i))
	}

	spec := &ir.Specification{
		Dialect:   ir.DialectDynamicSource,
		Title:     "dynamic-source specification",
		TypeDecls: c.order,
	}

	// Pass 2: function declarations, in source order.
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

// unwrapDecorated strips a decorated_definition wrapper, returning the inner
// class_definition/function_definition node and the decorator names found.
func (c *converter) unwrapDecorated(n *sitter.Node) (*sitter.Node, []string) {
	if n.Type() != "decorated_definition" {
		return n, nil
	}
	var decorators []string
	var inner *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "decorator":
			decorators = append(decorators, c.text(child))
		case "class_definition", "function_definition":
			inner = child
		}
	}
	return inner, decorators
}

func (c *converter) collectType(n *sitter.Node) {
	if n == nil {
		return
	}
	node, _ := c.unwrapDecorated(n)
	if node == nil || node.Type() != "class_definition" {
		return
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := c.text(nameNode)

	if c.isEnumClass(node) {
		decl := c.buildEnum(node, name)
		if decl != nil {
			c.register(decl)
		}
		return
	}

	decl := c.buildModel(node, name)
	if decl != nil {
		c.register(decl)
	}
}

func (c *converter) register(decl *ir.TypeDecl) {
	if _, exists := c.types[decl.Name]; exists {
		return
	}
	c.types[decl.Name] = decl
	c.order = append(c.order, decl)
}

func (c *converter) isEnumClass(classNode *sitter.Node) bool {
	bases := classNode.ChildByFieldName("superclasses")
	if bases == nil {
		return false
	}
	text := c.text(bases)
	return containsWord(text, "Enum") || containsWord(text, "IntEnum") || containsWord(text, "StrEnum")
}

func containsWord(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// buildEnum extracts NAME = literal assignments from a class body into an
// Enum TypeDecl. Value type drives base_type inference.
func (c *converter) buildEnum(classNode *sitter.Node, name string) *ir.TypeDecl {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	schema := &ir.Schema{Kind: ir.SchemaEnum, EnumBaseType: ir.SchemaString, EnumNamedType: name}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		assign := unwrapExpressionStatement(stmt)
		if assign == nil || assign.Type() != "assignment" {
			continue
		}
		right := assign.ChildByFieldName("right")
		if right == nil {
			continue
		}
		val := parseLiteralValue(c.text(right))
		schema.EnumValues = append(schema.EnumValues, val)
	}
	if len(schema.EnumValues) == 0 {
		return nil
	}
	switch schema.EnumValues[0].(type) {
	case int64:
		schema.EnumBaseType = ir.SchemaInteger
	case float64:
		schema.EnumBaseType = ir.SchemaNumber
	case bool:
		schema.EnumBaseType = ir.SchemaBoolean
	}

	return &ir.TypeDecl{ID: name, Kind: ir.TypeDeclEnum, Name: name, Schema: schema}
}

// buildModel extracts `field: Type [= default]` annotated assignments from a
// class body into an Object TypeDecl. A class with no annotated fields is
// not a model (likely a plain helper class) and is skipped.
func (c *converter) buildModel(classNode *sitter.Node, name string) *ir.TypeDecl {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	obj := ir.NewObjectSchema()
	obj.NamedType = name
	found := false

	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		assign := unwrapExpressionStatement(stmt)
		if assign == nil || assign.Type() != "assignment" {
			continue
		}
		typeNode := assign.ChildByFieldName("type")
		leftNode := assign.ChildByFieldName("left")
		if typeNode == nil || leftNode == nil {
			continue
		}
		found = true
		fieldName := c.text(leftNode)
		fieldSchema := c.mapAnnotation(c.text(typeNode))
		obj.Properties.Set(fieldName, fieldSchema)
		if assign.ChildByFieldName("right") == nil {
			obj.Required.Add(fieldName)
		}
	}

	if !found {
		return nil
	}
	return &ir.TypeDecl{ID: name, Kind: ir.TypeDeclObject, Name: name, Schema: obj}
}

func unwrapExpressionStatement(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "expression_statement" && n.NamedChildCount() > 0 {
		return n.NamedChild(0)
	}
	return n
}

type paramInfo struct {
	name       string
	typ        string
	hasDefault bool
}

func (c *converter) parseParams(node *sitter.Node) []paramInfo {
	var out []paramInfo
	if node == nil {
		return out
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name := c.text(child)
			if name == "self" || name == "cls" {
				continue
			}
			out = append(out, paramInfo{name: name})
		case "typed_parameter", "typed_default_parameter":
			var name, typ string
			hasDefault := child.Type() == "typed_default_parameter"
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				switch sub.Type() {
				case "identifier":
					if name == "" {
						name = c.text(sub)
					}
				case "type":
					typ = c.text(sub)
				}
			}
			if name == "self" || name == "cls" {
				continue
			}
			out = append(out, paramInfo{name: name, typ: typ, hasDefault: hasDefault})
		case "default_parameter":
			var name string
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				if sub.Type() == "identifier" {
					name = c.text(sub)
					break
				}
			}
			if name == "self" || name == "cls" {
				continue
			}
			out = append(out, paramInfo{name: name, hasDefault: true})
		}
	}
	return out
}

func (c *converter) collectFunction(n *sitter.Node) *ir.Operation {
	if n == nil {
		return nil
	}
	node, _ := c.unwrapDecorated(n)
	if node == nil || node.Type() != "function_definition" {
		return nil
	}

	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := c.text(nameNode)

	isAsync := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "async" {
			isAsync = true
			break
		}
	}

	body := ir.NewObjectSchema()
	paramsNode := node.ChildByFieldName("parameters")
	for _, p := range c.parseParams(paramsNode) {
		schema := c.mapAnnotation(p.typ)
		body.Properties.Set(p.name, schema)
		if !p.hasDefault {
			body.Required.Add(p.name)
		}
	}

	op := &ir.Operation{
		ID:         name,
		Kind:       ir.OperationFunction,
		IsAsync:    isAsync,
		ModuleHint: "",
		Metadata:   map[string]string{},
		Body:       &ir.Parameter{Name: "body", Required: true, Schema: body},
	}

	successSchema := &ir.Schema{Kind: ir.SchemaAny}
	if retNode := node.ChildByFieldName("return_type"); retNode != nil {
		successSchema = c.mapAnnotation(c.text(retNode))
	}
	op.Successes = []*ir.Response{{StatusCode: 200, Schema: successSchema}}

	return op
}
