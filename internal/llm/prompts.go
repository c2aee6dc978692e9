package llm

import (
	"fmt"
	"strings"
)

// SystemPromptPayloadEnrichment is the system prompt for the payload
// enrichment pass (§4.9): the model only replaces placeholder values inside
// an already-fixed JSON shape, never decides which fields exist or what the
// test intent is.
const SystemPromptPayloadEnrichment = `You enrich placeholder JSON test payloads with realistic values.
You MUST preserve every key, every nesting level, and every value's JSON type exactly.
You never add, remove, or rename a field, and you never change the intent a payload was built for.
Respond with JSON only, no prose, no markdown fences.`

// PayloadEnrichmentPrompt builds the user-turn prompt for one enrichment
// call: a lightweight schema descriptor paired with the placeholder body to
// replace values in.
func PayloadEnrichmentPrompt(schemaDescriptor, placeholderJSON []byte) string {
	return fmt.Sprintf(
		"Schema:\n%s\n\nPlaceholder payload to enrich:\n%s\n\nReturn the same JSON shape with placeholder strings replaced by realistic values.",
		schemaDescriptor, placeholderJSON,
	)
}

// ParseJSONOutput strips markdown code fences a provider adds around a JSON
// response despite being asked for JSON-only output.
func ParseJSONOutput(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}

	if strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(response, "```")
	}

	return strings.TrimSpace(response)
}
