package depanalysis

import (
	"fmt"

	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

// SetupStep creates one resource a consumer operation needs to exist before
// its test case runs.
type SetupStep struct {
	Producer      *ir.Operation
	Body          any
	BindAs        string // "created_<resource>"
	PathParamName string
}

// TeardownStep deletes a resource created by a SetupStep. Failures here are
// logged, never fatal.
type TeardownStep struct {
	Resource      string
	BindAs        string
	CanonicalPath string
}

// SetupPlan is the ordered create/delete program a consumer operation's
// fixture needs, independent of any rendering target.
type SetupPlan struct {
	Steps               []*SetupStep
	TeardownSteps        []*TeardownStep
	PlaceholderBindings map[string]string // path param name -> bind name
}

func fmtPlaceholder(resource string) string {
	return fmt.Sprintf("created_%s", resource)
}

// Plan builds the SetupPlan for one consumer classification, given the
// producers resolved by Analyze.
func Plan(consumer *Classification, producersByResource map[string][]*Classification) *SetupPlan {
	plan := &SetupPlan{PlaceholderBindings: make(map[string]string)}

	for _, ref := range consumer.Resources {
		producers := producersByResource[ref.Resource]
		if len(producers) == 0 {
			continue
		}
		producer := producers[0] // shortest-prefix, already sorted by Analyze

		bindAs := fmtPlaceholder(ref.Resource)
		plan.Steps = append(plan.Steps, &SetupStep{
			Producer:      producer.Operation,
			Body:          payload.Golden(producer.Operation.Body.Schema, ref.Resource),
			BindAs:        bindAs,
			PathParamName: ref.PathParam,
		})
		plan.PlaceholderBindings[ref.PathParam] = bindAs
	}

	// Teardown is the exact reverse of setup.
	for i := len(plan.Steps) - 1; i >= 0; i-- {
		step := plan.Steps[i]
		plan.TeardownSteps = append(plan.TeardownSteps, &TeardownStep{
			Resource:      step.PathParamName,
			BindAs:        step.BindAs,
			CanonicalPath: step.Producer.Path,
		})
	}

	return plan
}
