// Package domain holds the core types shared across the assistant gateway:
// conversation turns, chat messages, usage accounting and the caller-facing
// outcome envelope.
package domain

// Message roles understood by the context builder and the inference backends.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Dependency names used to key circuit-breaker and retry state.
const (
	DependencyInference = "inference"
	DependencyStore     = "store"
)

// Message is a single role-tagged message handed to the inference call.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one persisted message within a conversation session. Turns are
// append-only: the gateway writes them and reads them back for context, it
// never updates or deletes.
type Turn struct {
	SessionID string  `json:"sessionId"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Role      string  `json:"role"`
	Message   string  `json:"message"`
	ModelKey  string  `json:"model,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}

// Usage is the per-request token and cost estimate. Token counts come from a
// coarse character heuristic, not a tokenizer.
type Usage struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// Performance carries request timing for the response envelope, in seconds.
type Performance struct {
	InferenceDuration float64 `json:"inferenceDuration"`
	TotalDuration     float64 `json:"totalDuration"`
}

// FailureCode classifies a failed outcome for the transport layer. It is not
// serialized; the HTTP handler maps it to a status code.
type FailureCode string

const (
	FailNone        FailureCode = ""
	FailValidation  FailureCode = "validation"
	FailUnavailable FailureCode = "unavailable"
	FailInternal    FailureCode = "internal"
)

// Outcome is the result of one end-to-end "answer this prompt" operation.
// A successful outcome may still carry a Warning when persistence degraded.
type Outcome struct {
	Success            bool         `json:"success"`
	SessionID          string       `json:"sessionId,omitempty"`
	Prompt             string       `json:"prompt,omitempty"`
	Response           string       `json:"response,omitempty"`
	Model              string       `json:"model,omitempty"`
	ModelKey           string       `json:"modelKey,omitempty"`
	ConversationLength int          `json:"conversationLength,omitempty"`
	Usage              *Usage       `json:"usage,omitempty"`
	Performance        *Performance `json:"performance,omitempty"`
	Warning            string       `json:"warning,omitempty"`
	Error              string       `json:"error,omitempty"`
	CanRetry           bool         `json:"canRetry,omitempty"`
	Code               FailureCode  `json:"-"`
}
