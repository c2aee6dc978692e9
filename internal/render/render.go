// Package render turns an Operation, its Payloads, and (for HTTP) a
// FixtureProgram into source text for one of the supported test frameworks.
package render

import (
	"fmt"

	"github.com/specforge/testgen/internal/depanalysis"
	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

// Target identifies a render target framework.
type Target string

const (
	TargetHTTPSync       Target = "http-sync"
	TargetHTTPAsync      Target = "http-async"
	TargetFunctionDirect Target = "function-direct"
)

// Renderer is a pure function from an operation's artifacts to source text.
type Renderer interface {
	Name() Target
	FileExtension() string
	Render(op *ir.Operation, payloads []*payload.Payload, fixture *depanalysis.FixtureProgram, baseURL string) (string, error)
}

// Registry resolves a Target to its Renderer, mirroring the teacher's
// emitter.Registry lookup-by-name pattern.
type Registry struct {
	renderers map[Target]Renderer
}

// NewRegistry returns a Registry pre-populated with all three targets.
func NewRegistry() *Registry {
	r := &Registry{renderers: make(map[Target]Renderer)}
	r.Register(&httpSyncRenderer{})
	r.Register(&httpAsyncRenderer{})
	r.Register(&functionDirectRenderer{})
	return r
}

// Register adds or replaces the renderer for its Name().
func (r *Registry) Register(renderer Renderer) {
	r.renderers[renderer.Name()] = renderer
}

// Get resolves a renderer by target name.
func (r *Registry) Get(target Target) (Renderer, error) {
	renderer, ok := r.renderers[target]
	if !ok {
		return nil, fmt.Errorf("render: unsupported target framework %q", target)
	}
	return renderer, nil
}

// RenderError scopes a template failure to the single operation that caused
// it, so the pipeline can continue with the rest of the job.
type RenderError struct {
	OperationID string
	Target      Target
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: operation %s (%s): %v", e.OperationID, e.Target, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
