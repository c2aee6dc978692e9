package render

import (
	"github.com/specforge/testgen/internal/depanalysis"
	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

// httpAsyncTemplate is identical in structure to the sync template but runs
// every case as an independent parallel subtest, the closest Go idiom to the
// "async-style" HTTP target other ecosystems express with async/await.
const httpAsyncTemplate = `{{.Header}}package generated

import (
	"bytes"
{{if .Data.NeedsUniqueSuffix}}	"crypto/rand"
{{end}}	"encoding/json"
{{if .Data.NeedsUniqueSuffix}}	"encoding/hex"
{{end}}	"fmt"
	"io"
	"net/http"
	"sync"
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
	var createdMu sync.Mutex

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
				createdMu.Lock()
				created[{{printf "%q" .BindAs}}] = fmt.Sprintf("%v", id)
				createdMu.Unlock()
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
		t.Parallel()
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

type httpAsyncRenderer struct{}

func (r *httpAsyncRenderer) Name() Target          { return TargetHTTPAsync }
func (r *httpAsyncRenderer) FileExtension() string { return ".go" }

func (r *httpAsyncRenderer) Render(op *ir.Operation, payloads []*payload.Payload, fixture *depanalysis.FixtureProgram, baseURL string) (string, error) {
	return renderHTTP(httpAsyncTemplate, op, payloads, fixture, baseURL, true)
}
