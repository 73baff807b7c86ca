package model

import (
	"encoding/json"
	"fmt"

	"github.com/kaystudios/assistant-gateway/internal/domain"
)

// Bedrock message formats carry content as a list of text blocks for both
// supported families.
type wireContent struct {
	Text string `json:"text"`
}

type wireMessage struct {
	Role    string        `json:"role"`
	Content []wireContent `json:"content"`
}

type claudeRequest struct {
	Messages         []wireMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	AnthropicVersion string        `json:"anthropic_version"`
}

type novaInferenceConfig struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

type novaRequest struct {
	Messages        []wireMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

// BuildRequestBody serializes the generation request in the shape the
// model's family expects.
func BuildRequestBody(desc Descriptor, messages []domain.Message, maxTokens int) ([]byte, error) {
	wire := make([]wireMessage, len(messages))
	for i, msg := range messages {
		wire[i] = wireMessage{
			Role:    msg.Role,
			Content: []wireContent{{Text: msg.Content}},
		}
	}

	switch desc.Family {
	case FamilyClaude:
		return json.Marshal(claudeRequest{
			Messages:         wire,
			MaxTokens:        maxTokens,
			AnthropicVersion: "bedrock-2023-05-31",
		})
	case FamilyNova:
		return json.Marshal(novaRequest{
			Messages:        wire,
			InferenceConfig: novaInferenceConfig{MaxNewTokens: maxTokens},
		})
	default:
		return nil, fmt.Errorf("no request shape for model family %q", desc.Family)
	}
}
