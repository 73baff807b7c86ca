// Package model holds the static model registry and the family-specific
// request shaping for the inference call.
package model

import (
	"sort"
)

// Family selects the request payload shape a model expects.
type Family string

const (
	FamilyNova   Family = "nova"
	FamilyClaude Family = "claude"
)

// DefaultKey is the model used when a request does not name one.
const DefaultKey = "nova-lite"

// Descriptor describes one backend model. Costs are USD per 1K tokens.
type Descriptor struct {
	ID                   string
	Name                 string
	Family               Family
	InputCostPerKTokens  float64
	OutputCostPerKTokens float64
	Speed                string
	BestFor              string
}

// Registry maps short model keys to descriptors. It is populated once at
// startup and read-only afterwards, so lookups need no synchronization.
type Registry struct {
	models map[string]Descriptor
}

// NewRegistry returns the registry of supported models.
func NewRegistry() *Registry {
	return &Registry{models: map[string]Descriptor{
		"nova-lite": {
			ID:                   "us.amazon.nova-lite-v1:0",
			Name:                 "Amazon Nova Lite",
			Family:               FamilyNova,
			InputCostPerKTokens:  0.00006,
			OutputCostPerKTokens: 0.00024,
			Speed:                "Very Fast",
			BestFor:              "Simple queries, high volume",
		},
		"nova-pro": {
			ID:                   "us.amazon.nova-pro-v1:0",
			Name:                 "Amazon Nova Pro",
			Family:               FamilyNova,
			InputCostPerKTokens:  0.0008,
			OutputCostPerKTokens: 0.0032,
			Speed:                "Fast",
			BestFor:              "Complex reasoning, longer context",
		},
		"claude-sonnet": {
			ID:                   "us.anthropic.claude-3-5-sonnet-20241022-v2:0",
			Name:                 "Claude 3.5 Sonnet",
			Family:               FamilyClaude,
			InputCostPerKTokens:  0.003,
			OutputCostPerKTokens: 0.015,
			Speed:                "Medium",
			BestFor:              "Complex reasoning, coding, analysis",
		},
		"claude-haiku": {
			ID:                   "us.anthropic.claude-3-haiku-20240307-v1:0",
			Name:                 "Claude 3 Haiku",
			Family:               FamilyClaude,
			InputCostPerKTokens:  0.00025,
			OutputCostPerKTokens: 0.00125,
			Speed:                "Fast",
			BestFor:              "Simple tasks, cost-sensitive",
		},
	}}
}

// Lookup resolves a model key.
func (r *Registry) Lookup(key string) (Descriptor, bool) {
	desc, ok := r.models[key]
	return desc, ok
}

// Keys returns the registered model keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.models))
	for k := range r.models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
