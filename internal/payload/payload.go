package payload

import (
	"github.com/specforge/testgen/internal/intent"
	"github.com/specforge/testgen/pkg/ir"
)

// Payload is a single rendered test case's input: a body plus whichever
// path/query/header values the operation declares, tagged with the intent
// that produced it and the status the test should assert.
type Payload struct {
	OperationID    string
	IntentID       intent.ID
	TargetField    string
	Body           any
	PathParams     map[string]any
	QueryParams    map[string]any
	Headers        map[string]any
	ExpectedStatus int
}

func isPathParamIntent(id intent.ID) bool {
	return id == intent.ResourceNotFound || id == intent.FormatInvalidPathParam
}

func isHeaderIntent(id intent.ID) bool {
	return id == intent.HeaderMissing || id == intent.HeaderEnumMismatch || id == intent.HeaderInjection
}

// Build turns the ordered intent list for an operation into the ordered
// payload list. Each payload's body/path/query/header maps are independent
// deep copies; mutating one never affects another.
func Build(op *ir.Operation, intents []*intent.Intent) []*Payload {
	payloads := make([]*Payload, 0, len(intents))

	goldenBody := func() any {
		if op.Body == nil || op.Body.Schema == nil {
			return nil
		}
		return Golden(op.Body.Schema, "")
	}

	goldenParams := func(params []*ir.Parameter) map[string]any {
		out := make(map[string]any, len(params))
		for _, p := range params {
			out[p.Name] = Golden(p.Schema, p.Name)
		}
		return out
	}

	for _, it := range intents {
		p := &Payload{
			OperationID:    op.ID,
			IntentID:       it.ID,
			TargetField:    it.Field,
			Body:           goldenBody(),
			PathParams:     goldenParams(op.PathParams),
			QueryParams:    goldenParams(op.QueryParams),
			Headers:        goldenParams(op.Headers),
			ExpectedStatus: it.ExpectedStatus,
		}

		if it.ID != intent.HappyPath {
			switch {
			case isPathParamIntent(it.ID):
				p.PathParams = Mutate(p.PathParams, it.TargetPath, it.ID, it.Schema).(map[string]any)
			case isHeaderIntent(it.ID):
				p.Headers = Mutate(p.Headers, it.TargetPath, it.ID, it.Schema).(map[string]any)
			case it.ID == intent.UnexpectedArgument:
				if p.Body == nil {
					p.Body = map[string]any{}
				}
				p.Body = Mutate(p.Body, it.TargetPath, it.ID, it.Schema)
			default:
				if p.Body != nil {
					p.Body = Mutate(p.Body, it.TargetPath, it.ID, it.Schema)
				}
			}
		}

		payloads = append(payloads, p)
	}

	return payloads
}
