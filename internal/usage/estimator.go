// Package usage derives approximate token counts and a cost estimate from a
// model's pricing metadata. The 4-characters-per-token heuristic is a
// deliberate approximation, not a tokenizer.
package usage

import (
	"math"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/model"
)

const charsPerToken = 4

// Tokens estimates the token count of text.
func Tokens(text string) int {
	return len(text) / charsPerToken
}

// Estimate computes the usage for one exchange. Input tokens cover the new
// prompt plus the history text that went into the context; output tokens
// cover the generated response. The cost is rounded to six decimal places.
func Estimate(prompt, historyText, response string, desc model.Descriptor) domain.Usage {
	inputTokens := (len(prompt) + len(historyText)) / charsPerToken
	outputTokens := Tokens(response)

	cost := float64(inputTokens)/1000*desc.InputCostPerKTokens +
		float64(outputTokens)/1000*desc.OutputCostPerKTokens

	return domain.Usage{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: math.Round(cost*1e6) / 1e6,
	}
}
