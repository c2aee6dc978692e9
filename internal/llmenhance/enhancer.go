// Package llmenhance wraps the teacher's Router/Client/Tier LLM abstractions
// with the enhancement pass described in §4.9: happy-path payload bodies are
// sent to a provider for enrichment, validated structurally with gjson, and
// protected by a circuit breaker so a failing provider degrades to the
// original placeholder payload rather than blocking generation.
package llmenhance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/specforge/testgen/internal/config"
	"github.com/specforge/testgen/internal/intent"
	"github.com/specforge/testgen/internal/llm"
	"github.com/specforge/testgen/internal/payload"
	"github.com/specforge/testgen/pkg/ir"
)

// completer is satisfied by *llm.Router and by *llm.TrackedRouter, so the
// enhancer can run against either a bare router or one instrumented with
// usage tracking.
type completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Enhancer applies best-effort value enrichment to HAPPY_PATH payload
// bodies. It never changes intent, structure, or expected status: a failed
// or rejected enhancement simply keeps the pre-existing placeholder value.
type Enhancer struct {
	router      completer
	cache       *llm.CachedRouter
	tracker     *llm.UsageTracker
	breaker     *CircuitBreaker
	tier        llm.Tier
	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
	callTimeout time.Duration
}

// New builds an Enhancer from application config and an already-constructed
// Router (the router owns provider clients; the breaker here is the
// enhancement-specific circuit the teacher's router itself doesn't have).
// The router is wrapped first in a UsageTracker, so every call is metered
// against the configured budget, and then in a CachedRouter, so repeated
// enrichment requests for the same schema and placeholder body (common
// across operations sharing a resource type) are served from memory instead
// of hitting the provider again.
func New(cfg *config.Config, router *llm.Router) *Enhancer {
	tracker := llm.NewUsageTracker(llm.UsageTrackerConfig{
		Budget: llm.BudgetConfig{
			HourlyTokenLimit:  cfg.LLM.HourlyTokenLimit,
			DailyTokenLimit:   cfg.LLM.DailyTokenLimit,
			MonthlyBudgetUSD:  cfg.LLM.MonthlyBudgetUSD,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		},
	})
	tracked := llm.NewTrackedRouter(router, tracker)
	cached := llm.NewCachedRouter(tracked, llm.NewMemoryCache(cfg.LLM.CacheSize, cfg.LLM.CacheTTL), cfg.LLM.CacheTTL)
	return &Enhancer{
		router:      cached,
		cache:       cached,
		tracker:     tracker,
		breaker:     NewCircuitBreaker(cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown),
		tier:        llm.Tier2,
		maxAttempts: cfg.LLM.MaxAttempts,
		backoffBase: cfg.LLM.BackoffBase,
		backoffMax:  cfg.LLM.BackoffMax,
		callTimeout: cfg.LLM.CallTimeout,
	}
}

// UsageStats reports the enhancer's month-to-date token and cost totals, for
// callers (job status, admin endpoints) that want to surface spend.
func (e *Enhancer) UsageStats() llm.UsageStats {
	if e == nil || e.tracker == nil {
		return llm.UsageStats{}
	}
	return e.tracker.GetStats()
}

// CacheStats reports enrichment cache hit/miss counts.
func (e *Enhancer) CacheStats() llm.CacheStats {
	if e == nil || e.cache == nil {
		return llm.CacheStats{}
	}
	return e.cache.CacheStats()
}

// EnhancePayloads mutates the Body of every HAPPY_PATH payload in place with
// an enriched value when the provider returns one that passes validation;
// every other intent's payload is returned unchanged.
func (e *Enhancer) EnhancePayloads(ctx context.Context, schema *ir.Schema, payloads []*payload.Payload) []*payload.Payload {
	if e == nil || e.router == nil || schema == nil {
		return payloads
	}

	for _, p := range payloads {
		if p.IntentID != intent.HappyPath || p.Body == nil {
			continue
		}
		enriched, ok := e.enhanceOne(ctx, schema, p.Body)
		if ok {
			p.Body = enriched
		}
	}
	return payloads
}

// enhanceOne attempts to enrich a single body value, honoring the circuit
// breaker and retrying transient failures with exponential backoff. Any
// failure, breaker trip, or validation rejection falls back to (nil, false)
// so the caller keeps the placeholder payload.
func (e *Enhancer) enhanceOne(ctx context.Context, schema *ir.Schema, orig any) (any, bool) {
	if !e.breaker.Allow() {
		return nil, false
	}

	origJSON, err := json.Marshal(orig)
	if err != nil {
		return nil, false
	}

	req := &llm.Request{
		Tier:      e.tier,
		JSONMode:  true,
		MaxTokens: 1024,
		System:    llm.SystemPromptPayloadEnrichment,
		Messages: []llm.Message{
			{Role: "user", Content: e.buildPrompt(schema, origJSON)},
		},
	}

	backoff := e.backoffBase
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, false
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > e.backoffMax {
				backoff = e.backoffMax
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		resp, err := e.router.Complete(callCtx, req)
		cancel()
		if err != nil {
			if errors.Is(err, llm.ErrBudgetExceeded) || errors.Is(err, llm.ErrRateLimited) {
				// Not a provider failure, so it shouldn't trip the breaker;
				// retrying immediately would just fail the same way.
				log.Debug().Err(err).Msg("llm usage budget exhausted, keeping placeholder payload")
				return nil, false
			}
			lastErr = err
			continue
		}

		enriched, ok := Validate(schema, orig, llm.ParseJSONOutput(resp.Content))
		if !ok {
			// A structurally-invalid response counts as a provider
			// failure: record it on the breaker and fall back.
			e.breaker.RecordFailure()
			return nil, false
		}

		e.breaker.RecordSuccess()
		return enriched, true
	}

	e.breaker.RecordFailure()
	log.Debug().Err(lastErr).Msg("llm enhancement exhausted retries, keeping placeholder payload")
	return nil, false
}

func (e *Enhancer) buildPrompt(schema *ir.Schema, origJSON []byte) string {
	descriptor, _ := json.Marshal(describeSchema(schema))
	return llm.PayloadEnrichmentPrompt(descriptor, origJSON)
}

// describeSchema renders a lightweight JSON-schema-like descriptor so the
// provider understands field types and enum bounds without needing the IR's
// Go types.
func describeSchema(schema *ir.Schema) map[string]any {
	if schema == nil {
		return map[string]any{"type": "any"}
	}
	switch schema.Kind {
	case ir.SchemaObject:
		props := map[string]any{}
		schema.Properties.Range(func(name string, prop *ir.Schema) {
			props[name] = describeSchema(prop)
		})
		return map[string]any{"type": "object", "properties": props, "required": schema.Required.Items()}
	case ir.SchemaArray:
		return map[string]any{"type": "array", "items": describeSchema(schema.Items)}
	case ir.SchemaEnum:
		return map[string]any{"type": "enum", "values": schema.EnumValues}
	case ir.SchemaUnion:
		variants := make([]any, 0, len(schema.Variants))
		for _, v := range schema.Variants {
			variants = append(variants, describeSchema(v))
		}
		return map[string]any{"type": "union", "variants": variants}
	case ir.SchemaString:
		return map[string]any{"type": "string", "format": string(schema.Constraints.Format)}
	case ir.SchemaInteger:
		return map[string]any{"type": "integer"}
	case ir.SchemaNumber:
		return map[string]any{"type": "number"}
	case ir.SchemaBoolean:
		return map[string]any{"type": "boolean"}
	case ir.SchemaNull:
		return map[string]any{"type": "null"}
	default:
		return map[string]any{"type": "any"}
	}
}
