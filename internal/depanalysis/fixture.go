package depanalysis

import (
	"sort"
	"strings"
)

// InstructionKind discriminates FixtureProgram instructions.
type InstructionKind string

const (
	InstructionCreateResource      InstructionKind = "create_resource"
	InstructionCaptureIDFrom       InstructionKind = "capture_id_from"
	InstructionBindPlaceholder     InstructionKind = "bind_placeholder"
	InstructionDeleteResource      InstructionKind = "delete_resource"
	InstructionHandleDeleteFailure InstructionKind = "handle_delete_failure"
)

// Instruction is one abstract step of a FixtureProgram. Not every field
// applies to every Kind; see the compiler below for which are populated.
type Instruction struct {
	Kind          InstructionKind
	Method        string
	Path          string
	Body          any
	UniqueFields  []string // dot-paths into Body needing a fresh suffix appended when the rendered test runs
	BindAs        string
	PathParamName string
}

// FixtureProgram is the ordered instruction sequence a render target
// executes before and after a consumer operation's test cases.
type FixtureProgram struct {
	Setup    []Instruction
	Teardown []Instruction
}

// uniquenessFields lists property-name substrings that mark a string value as
// identity-bearing and therefore in need of a runtime-unique suffix.
var uniquenessFields = []string{"email", "username", "code", "name"}

// Compile turns a SetupPlan into a FixtureProgram. Compile itself never
// generates a random value: per §4.7/§9, the actual suffix must be produced
// at fixture-execution time (inside the rendered test binary), not baked
// into the compiled artifact, or two generation runs over the same spec
// would emit different literal source text. Compile only records which
// fields need one, as dot-paths into Body; the renderer turns each marked
// field into a call expression instead of a literal.
func Compile(plan *SetupPlan) *FixtureProgram {
	prog := &FixtureProgram{}

	for _, step := range plan.Steps {
		prog.Setup = append(prog.Setup,
			Instruction{Kind: InstructionCreateResource, Method: "POST", Path: step.Producer.Path, Body: step.Body, UniqueFields: uniqueFieldPaths(step.Body, ""), BindAs: step.BindAs},
			Instruction{Kind: InstructionCaptureIDFrom, BindAs: step.BindAs},
			Instruction{Kind: InstructionBindPlaceholder, BindAs: step.BindAs, PathParamName: step.PathParamName},
		)
	}

	for _, step := range plan.TeardownSteps {
		prog.Teardown = append(prog.Teardown,
			Instruction{Kind: InstructionDeleteResource, Method: "DELETE", Path: step.CanonicalPath, BindAs: step.BindAs},
			Instruction{Kind: InstructionHandleDeleteFailure, BindAs: step.BindAs},
		)
	}

	return prog
}

// uniqueFieldPaths walks body depth-first and returns the sorted dot-paths of
// every identity-bearing string field, so the same plan always compiles to
// the same UniqueFields slice regardless of map iteration order.
func uniqueFieldPaths(body any, prefix string) []string {
	m, ok := body.(map[string]any)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var paths []string
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := m[k].(type) {
		case string:
			if needsUniqueSuffix(k) {
				paths = append(paths, path)
			}
		case map[string]any:
			paths = append(paths, uniqueFieldPaths(v, path)...)
		}
	}
	return paths
}

func needsUniqueSuffix(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range uniquenessFields {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
