package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/specforge/testgen/internal/depanalysis"
	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

type httpCaseData struct {
	Name           string
	Method         string
	PathParamExprs []string // one per {placeholder}, in path order, each a Go expression
	PathTemplate   string   // path with %s in place of each {placeholder}
	HasBody        bool
	BodyLiteral    string
	HeaderLiterals []string // "req.Header.Set(%q, %s)" lines
	ExpectedStatus int
	ExpectFailure  bool
}

type fixtureInstructionData struct {
	Method      string
	Path        string
	BodyLiteral string
	BindAs      string
}

type httpTemplateData struct {
	Package           string
	FuncName          string
	BaseURL           string
	SetupSteps        []fixtureInstructionData
	TeardownSteps     []fixtureInstructionData
	Cases             []httpCaseData
	Parallel          bool
	NeedsUniqueSuffix bool
}

const httpSyncTemplate = `{{.Header}}package generated

import (
	"bytes"
{{if .Data.NeedsUniqueSuffix}}	"crypto/rand"
{{end}}	"encoding/json"
{{if .Data.NeedsUniqueSuffix}}	"encoding/hex"
{{end}}	"fmt"
	"io"
	"net/http"
	"testing"
)
{{if .Data.NeedsUniqueSuffix}}
// uniqueSuffix returns a fresh short suffix identity-bearing fixture fields
// get appended with, drawn fresh every test run so repeated runs against the
// same backend never collide on a uniqueness constraint.
func uniqueSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "0"
	}
	return hex.EncodeToString(buf)
}
{{end}}
func Test{{.Data.FuncName}}(t *testing.T) {
	baseURL := "{{.Data.BaseURL}}"
	created := map[string]string{}

{{range .Data.SetupSteps}}
	{
		body, _ := json.Marshal({{.BodyLiteral}})
		resp, err := http.Post(baseURL+{{printf "%q" .Path}}, "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("fixture setup %s: %v", {{printf "%q" .Path}}, err)
		}
		defer resp.Body.Close()
		var decoded map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil {
			if id, ok := decoded["id"]; ok {
				created[{{printf "%q" .BindAs}}] = fmt.Sprintf("%v", id)
			}
		}
	}
{{end}}

	defer func() {
{{range .Data.TeardownSteps}}
		if id, ok := created[{{printf "%q" .BindAs}}]; ok {
			req, _ := http.NewRequest("DELETE", baseURL+{{printf "%q" .Path}}+"/"+id, nil)
			if resp, err := http.DefaultClient.Do(req); err == nil {
				resp.Body.Close()
			}
		}
{{end}}
	}()

{{range .Data.Cases}}
	t.Run("{{.Name}}", func(t *testing.T) {
		path := fmt.Sprintf({{printf "%q" .PathTemplate}}{{range .PathParamExprs}}, {{.}}{{end}})
{{if .HasBody}}
		body, _ := json.Marshal({{.BodyLiteral}})
		req, err := http.NewRequest({{printf "%q" .Method}}, baseURL+path, bytes.NewReader(body))
{{else}}
		req, err := http.NewRequest({{printf "%q" .Method}}, baseURL+path, nil)
{{end}}
		if err != nil {
			t.Fatalf("building request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
{{range .HeaderLiterals}}
		{{.}}
{{end}}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		io.ReadAll(resp.Body)

		if resp.StatusCode != {{.ExpectedStatus}} {
			t.Errorf("expected status {{.ExpectedStatus}}, got %d", resp.StatusCode)
		}
	})
{{end}}
}
`

type httpSyncRenderer struct{}

func (r *httpSyncRenderer) Name() Target         { return TargetHTTPSync }
func (r *httpSyncRenderer) FileExtension() string { return ".go" }

func (r *httpSyncRenderer) Render(op *ir.Operation, payloads []*payload.Payload, fixture *depanalysis.FixtureProgram, baseURL string) (string, error) {
	return renderHTTP(httpSyncTemplate, op, payloads, fixture, baseURL, false)
}

func renderHTTP(tmplText string, op *ir.Operation, payloads []*payload.Payload, fixture *depanalysis.FixtureProgram, baseURL string, parallel bool) (string, error) {
	data := httpTemplateData{
		Package:  "generated",
		FuncName: toGoFunctionName(op.ID),
		BaseURL:  baseURL,
		Parallel: parallel,
	}

	if fixture != nil {
		for _, inst := range fixture.Setup {
			if inst.Kind != depanalysis.InstructionCreateResource {
				continue
			}
			data.SetupSteps = append(data.SetupSteps, fixtureInstructionData{
				Method:      inst.Method,
				Path:        inst.Path,
				BodyLiteral: formatFixtureBody(inst.Body, inst.UniqueFields),
				BindAs:      inst.BindAs,
			})
			if len(inst.UniqueFields) > 0 {
				data.NeedsUniqueSuffix = true
			}
		}
		for _, inst := range fixture.Teardown {
			if inst.Kind != depanalysis.InstructionDeleteResource {
				continue
			}
			data.TeardownSteps = append(data.TeardownSteps, fixtureInstructionData{
				Method: inst.Method,
				Path:   inst.Path,
				BindAs: inst.BindAs,
			})
		}
	}

	for _, p := range payloads {
		pathTemplate, exprs := resolvePathExpr(op.Path, p.PathParams)

		// Header names are sorted so the rendered source is byte-identical
		// across runs.
		headerNames := make([]string, 0, len(p.Headers))
		for k := range p.Headers {
			headerNames = append(headerNames, k)
		}
		sort.Strings(headerNames)
		headerLiterals := make([]string, 0, len(p.Headers))
		for _, k := range headerNames {
			headerLiterals = append(headerLiterals, fmt.Sprintf("req.Header.Set(%q, %s)", k, formatGoValue(p.Headers[k])))
		}

		hasBody := p.Body != nil && (op.Method == ir.MethodPOST || op.Method == ir.MethodPUT || op.Method == ir.MethodPATCH)

		data.Cases = append(data.Cases, httpCaseData{
			Name:           sanitizeTestName(fmt.Sprintf("%s_%s", p.IntentID, p.TargetField)),
			Method:         string(op.Method),
			PathParamExprs: exprs,
			PathTemplate:   pathTemplate,
			HasBody:        hasBody,
			BodyLiteral:    formatGoValue(p.Body),
			HeaderLiterals: headerLiterals,
			ExpectedStatus: p.ExpectedStatus,
			ExpectFailure:  p.ExpectedStatus >= 400,
		})
	}

	tmpl, err := template.New("http").Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("render: parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Header string
		Data   httpTemplateData
	}{Header: generatedHeader, Data: data}); err != nil {
		return "", fmt.Errorf("render: executing template: %w", err)
	}

	return buf.String(), nil
}

// resolvePathExpr substitutes {name} placeholders in a URI template with Go
// expressions. A value of the form USE_CREATED_RESOURCE_<resource> becomes a
// lookup into the fixture's `created` map at test-execution time instead of a
// literal, per §4.8's binding contract.
func resolvePathExpr(pathTemplate string, params map[string]any) (string, []string) {
	var exprs []string
	var out strings.Builder

	i := 0
	for i < len(pathTemplate) {
		if pathTemplate[i] == '{' {
			end := strings.IndexByte(pathTemplate[i:], '}')
			if end < 0 {
				out.WriteByte(pathTemplate[i])
				i++
				continue
			}
			name := pathTemplate[i+1 : i+end]
			out.WriteString("%s")
			exprs = append(exprs, pathParamExpr(name, params[name]))
			i += end + 1
			continue
		}
		out.WriteByte(pathTemplate[i])
		i++
	}

	return out.String(), exprs
}

func pathParamExpr(name string, value any) string {
	if s, ok := value.(string); ok && strings.HasPrefix(s, "USE_CREATED_RESOURCE_") {
		resource := strings.TrimPrefix(s, "USE_CREATED_RESOURCE_")
		return fmt.Sprintf("created[%q]", strings.ToLower(resource))
	}
	return formatGoValue(value)
}
