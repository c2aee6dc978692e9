package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/specforge/testgen/internal/depanalysis"
	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

type functionCaseData struct {
	Name          string
	ArgLiterals   []string
	ExpectFailure bool
}

type functionTemplateData struct {
	FuncName string
	IsAsync  bool
	Cases    []functionCaseData
}

const functionDirectTemplate = `{{.Header}}package generated

import "testing"

func Test{{.Data.FuncName}}(t *testing.T) {
{{range .Data.Cases}}
	t.Run("{{.Name}}", func(t *testing.T) {
{{if .ExpectFailure}}
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected a failure, call succeeded")
			}
		}()
		_ = {{$.Data.FuncName}}({{range $i, $a := .ArgLiterals}}{{if $i}}, {{end}}{{$a}}{{end}})
{{else}}
		_ = {{$.Data.FuncName}}({{range $i, $a := .ArgLiterals}}{{if $i}}, {{end}}{{$a}}{{end}})
{{end}}
	})
{{end}}
}
`

type functionDirectRenderer struct{}

func (r *functionDirectRenderer) Name() Target          { return TargetFunctionDirect }
func (r *functionDirectRenderer) FileExtension() string { return ".go" }

func (r *functionDirectRenderer) Render(op *ir.Operation, payloads []*payload.Payload, _ *depanalysis.FixtureProgram, _ string) (string, error) {
	var argOrder []string
	if op.Body != nil && op.Body.Schema != nil && op.Body.Schema.Properties != nil {
		argOrder = op.Body.Schema.Properties.Keys()
	}

	data := functionTemplateData{
		FuncName: toGoFunctionName(op.ID),
		IsAsync:  op.IsAsync,
	}

	for _, p := range payloads {
		bodyMap, _ := p.Body.(map[string]any)
		args := make([]string, 0, len(argOrder))
		for _, name := range argOrder {
			val, ok := bodyMap[name]
			if !ok {
				continue
			}
			args = append(args, argLiteral(val, p.IntentID == "HAPPY_PATH", op, name))
		}

		data.Cases = append(data.Cases, functionCaseData{
			Name:          sanitizeTestName(fmt.Sprintf("%s_%s", p.IntentID, p.TargetField)),
			ArgLiterals:   args,
			ExpectFailure: p.IntentID != "HAPPY_PATH",
		})
	}

	tmpl, err := template.New("function").Parse(functionDirectTemplate)
	if err != nil {
		return "", fmt.Errorf("render: parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Header string
		Data   functionTemplateData
	}{Header: generatedHeader, Data: data}); err != nil {
		return "", fmt.Errorf("render: executing template: %w", err)
	}

	return buf.String(), nil
}

// argLiteral renders one argument value as Go source. For happy-path cases,
// enum string values are converted to their named enum type at call time;
// negative cases pass the raw string through to trigger a failure.
func argLiteral(val any, happyPath bool, op *ir.Operation, argName string) string {
	if happyPath {
		if s, ok := val.(string); ok {
			if prop, found := propertySchema(op, argName); found && prop.Kind == ir.SchemaEnum && prop.EnumNamedType != "" {
				return fmt.Sprintf("%s(%q)", prop.EnumNamedType, s)
			}
		}
	}
	return formatGoValue(val)
}

func propertySchema(op *ir.Operation, name string) (*ir.Schema, bool) {
	if op.Body == nil || op.Body.Schema == nil || op.Body.Schema.Properties == nil {
		return nil, false
	}
	return op.Body.Schema.Properties.Get(name)
}
