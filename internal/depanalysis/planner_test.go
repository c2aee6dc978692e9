package depanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specforge/testgen/pkg/ir"
)

func producerClassification(path string) *Classification {
	schema := ir.NewObjectSchema()
	schema.Properties.Set("name", &ir.Schema{Kind: ir.SchemaString})
	schema.Required.Add("name")
	op := &ir.Operation{Kind: ir.OperationHTTP, Method: ir.MethodPOST, Path: path, Body: &ir.Parameter{Schema: schema}}
	return &Classification{Operation: op, Role: RoleProducer, Resources: []ResourceRef{{Resource: "user"}}}
}

func TestPlan_BuildsOneSetupStepPerResolvedResource(t *testing.T) {
	producer := producerClassification("/users")
	consumer := &Classification{
		Operation: &ir.Operation{Method: ir.MethodGET, Path: "/users/{id}"},
		Role:      RoleConsumer,
		Resources: []ResourceRef{{Resource: "user", PathParam: "id"}},
	}
	producers := map[string][]*Classification{"user": {producer}}

	plan := Plan(consumer, producers)

	require.Len(t, plan.Steps, 1)
	assert.Same(t, producer.Operation, plan.Steps[0].Producer)
	assert.Equal(t, "created_user", plan.Steps[0].BindAs)
	assert.Equal(t, "id", plan.Steps[0].PathParamName)
	assert.Equal(t, "created_user", plan.PlaceholderBindings["id"])
}

func TestPlan_SkipsResourcesWithNoProducer(t *testing.T) {
	consumer := &Classification{
		Operation: &ir.Operation{Method: ir.MethodGET, Path: "/orphans/{id}"},
		Role:      RoleConsumer,
		Resources: []ResourceRef{{Resource: "orphan", PathParam: "id"}},
	}

	plan := Plan(consumer, map[string][]*Classification{})
	assert.Empty(t, plan.Steps)
	assert.Empty(t, plan.PlaceholderBindings)
}

func TestPlan_TeardownIsExactReverseOfSetup(t *testing.T) {
	userProducer := producerClassification("/users")
	postProducer := &Classification{
		Operation: &ir.Operation{Method: ir.MethodPOST, Path: "/users/{userId}/posts", Body: &ir.Parameter{Schema: ir.NewObjectSchema()}},
		Role:      RoleProducer,
		Resources: []ResourceRef{{Resource: "post"}},
	}
	consumer := &Classification{
		Operation: &ir.Operation{Method: ir.MethodGET, Path: "/users/{userId}/posts/{postId}"},
		Role:      RoleConsumer,
		Resources: []ResourceRef{
			{Resource: "user", PathParam: "userId"},
			{Resource: "post", PathParam: "postId"},
		},
	}
	producers := map[string][]*Classification{
		"user": {userProducer},
		"post": {postProducer},
	}

	plan := Plan(consumer, producers)
	require.Len(t, plan.Steps, 2)
	require.Len(t, plan.TeardownSteps, 2)

	assert.Equal(t, plan.Steps[1].BindAs, plan.TeardownSteps[0].BindAs, "teardown starts with the last thing created")
	assert.Equal(t, plan.Steps[0].BindAs, plan.TeardownSteps[1].BindAs)
}

func TestPlan_SetupBodyIsGoldenRecordForProducerSchema(t *testing.T) {
	producer := producerClassification("/users")
	consumer := &Classification{
		Operation: &ir.Operation{Method: ir.MethodGET, Path: "/users/{id}"},
		Role:      RoleConsumer,
		Resources: []ResourceRef{{Resource: "user", PathParam: "id"}},
	}

	plan := Plan(consumer, map[string][]*Classification{"user": {producer}})
	body, ok := plan.Steps[0].Body.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, body, "name")
}
