// Package orchestrator performs one end-to-end "answer this prompt"
// operation: context assembly, the circuit-breaker-gated retried inference
// call, streaming aggregation, usage estimation, and best-effort persistence
// of the exchange.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/history"
	"github.com/kaystudios/assistant-gateway/internal/inference"
	"github.com/kaystudios/assistant-gateway/internal/metrics"
	"github.com/kaystudios/assistant-gateway/internal/model"
	"github.com/kaystudios/assistant-gateway/internal/resilience"
	"github.com/kaystudios/assistant-gateway/internal/usage"
)

const (
	maxPromptChars = 10000

	defaultSessionID = "default-session"
	defaultWindow    = 10
	defaultMaxTokens = 1000
)

// User-facing messages for degraded or failed requests.
const (
	msgUnavailable = "I'm having trouble connecting to my AI brain right now. Please try again in a moment."
	msgNotSaved    = "I can answer your question, but I might not remember this conversation."
	msgUnexpected  = "Something unexpected happened. Our team has been notified."
)

// Request is one inbound prompt. SessionID and ModelKey fall back to
// defaults when empty.
type Request struct {
	SessionID string
	Prompt    string
	ModelKey  string
}

// Config tunes the orchestrator.
type Config struct {
	// Window is the number of prior exchanges loaded as context. The raw
	// store query fetches twice this many turns, since each exchange is
	// two rows.
	Window int

	// MaxOutputTokens caps the model's generation length.
	MaxOutputTokens int
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Registry *model.Registry
	Store    history.Store
	Invoker  inference.Invoker
	Executor *resilience.Executor
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// Orchestrator handles prompts. Each call is an independent unit of work;
// the only state shared between concurrent calls lives in the executor's
// circuit breaker and the read-only model registry.
type Orchestrator struct {
	registry  *model.Registry
	store     history.Store
	invoker   inference.Invoker
	exec      *resilience.Executor
	metrics   metrics.Recorder
	logger    *slog.Logger
	window    int
	maxTokens int
	now       func() time.Time
}

// New creates an orchestrator.
func New(deps Deps, cfg Config) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxTokens
	}
	return &Orchestrator{
		registry:  deps.Registry,
		store:     deps.Store,
		invoker:   deps.Invoker,
		exec:      deps.Executor,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		window:    cfg.Window,
		maxTokens: cfg.MaxOutputTokens,
		now:       time.Now,
	}
}

// Handle answers one prompt. It always returns an outcome: dependency
// failures surface as retryable error outcomes, persistence failures degrade
// to a warning on a successful answer, and anything unexpected is caught at
// this boundary rather than propagated.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (out *domain.Outcome) {
	start := o.now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = defaultSessionID
	}
	modelKey := req.ModelKey
	if modelKey == "" {
		modelKey = model.DefaultKey
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("request failed",
				slog.String("session_id", sessionID),
				slog.String("model", modelKey),
				slog.Any("panic", r),
				slog.Duration("duration", o.now().Sub(start)),
			)
			o.metrics.Record(ctx, "Errors", map[string]string{"model": modelKey}, 1, "Count")
			out = &domain.Outcome{
				Success:   false,
				SessionID: sessionID,
				Error:     msgUnexpected,
				CanRetry:  true,
				Code:      domain.FailInternal,
			}
		}
	}()

	o.logger.Info("request started",
		slog.String("session_id", sessionID),
		slog.String("model", modelKey),
		slog.Int("prompt_length", len(req.Prompt)),
	)

	if err := o.validate(req.Prompt, modelKey); err != nil {
		o.logger.Warn("validation failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return &domain.Outcome{
			Success:   false,
			SessionID: sessionID,
			Error:     err.Message,
			Code:      domain.FailValidation,
		}
	}
	desc, _ := o.registry.Lookup(modelKey)

	// A context fetch failure is recoverable: answer without memory
	// rather than failing the request.
	prior, err := o.store.Query(ctx, sessionID, o.window*2)
	if err != nil {
		o.logger.Warn("history fetch failed, continuing without context",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		prior = nil
	}
	history.SortAscending(prior)

	messages := history.BuildMessages(prior, req.Prompt)
	body, err := model.BuildRequestBody(desc, messages, o.maxTokens)
	if err != nil {
		o.logger.Error("failed to build request payload",
			slog.String("model", modelKey),
			slog.String("error", err.Error()),
		)
		o.metrics.Record(ctx, "Errors", map[string]string{"model": modelKey}, 1, "Count")
		return &domain.Outcome{
			Success:   false,
			SessionID: sessionID,
			Error:     msgUnexpected,
			CanRetry:  true,
			Code:      domain.FailInternal,
		}
	}

	// The retried operation covers invoke plus drain: a partially
	// consumed stream cannot be resumed, so the whole call repeats.
	inferenceStart := o.now()
	answer, err := resilience.Do(ctx, o.exec, domain.DependencyInference, func(ctx context.Context) (string, error) {
		stream, err := o.invoker.Invoke(ctx, &inference.Request{ModelID: desc.ID, Body: body})
		if err != nil {
			return "", err
		}
		return inference.Collect(stream)
	})
	if err != nil {
		o.logger.Error("inference failed",
			slog.String("session_id", sessionID),
			slog.String("model", modelKey),
			slog.String("error", err.Error()),
		)
		o.metrics.Record(ctx, "Errors", map[string]string{"model": modelKey}, 1, "Count")
		return &domain.Outcome{
			Success:   false,
			SessionID: sessionID,
			Error:     msgUnavailable,
			CanRetry:  true,
			Code:      domain.FailUnavailable,
		}
	}
	inferenceDuration := o.now().Sub(inferenceStart)

	est := usage.Estimate(req.Prompt, history.Text(prior), answer, desc)

	saved := o.persistExchange(ctx, sessionID, modelKey, req.Prompt, answer, est.EstimatedCost)

	o.emitMetrics(ctx, modelKey, est, inferenceDuration)

	totalDuration := o.now().Sub(start)
	o.logger.Info("request completed",
		slog.String("session_id", sessionID),
		slog.String("model", modelKey),
		slog.Float64("cost", est.EstimatedCost),
		slog.Duration("inference_duration", inferenceDuration),
		slog.Duration("total_duration", totalDuration),
		slog.Bool("saved", saved),
	)

	outcome := &domain.Outcome{
		Success:            true,
		SessionID:          sessionID,
		Prompt:             req.Prompt,
		Response:           answer,
		Model:              desc.Name,
		ModelKey:           modelKey,
		ConversationLength: len(prior) + 1,
		Usage:              &est,
		Performance: &domain.Performance{
			InferenceDuration: inferenceDuration.Seconds(),
			TotalDuration:     totalDuration.Seconds(),
		},
	}
	if !saved {
		outcome.Warning = msgNotSaved
	}
	return outcome
}

func (o *Orchestrator) validate(prompt, modelKey string) *domain.ValidationError {
	if prompt == "" {
		return &domain.ValidationError{Field: "prompt", Message: "Prompt is required"}
	}
	if len(prompt) > maxPromptChars {
		return &domain.ValidationError{Field: "prompt", Message: "Prompt too long (max 10,000 characters)"}
	}
	if _, ok := o.registry.Lookup(modelKey); !ok {
		return &domain.ValidationError{
			Field:   "model",
			Message: fmt.Sprintf("Invalid model %q. Choose from: %s", modelKey, strings.Join(o.registry.Keys(), ", ")),
		}
	}
	return nil
}

// persistExchange writes the user turn at ts and the assistant turn at ts+1,
// guaranteeing retrieval order without a tie-break key. The two writes are
// not transactional; a failure between them leaves a partial exchange, which
// is accepted. The whole write goes through the retry wrapper, and on
// exhaustion the request still succeeds without saved history.
func (o *Orchestrator) persistExchange(ctx context.Context, sessionID, modelKey, prompt, answer string, cost float64) bool {
	ts := o.now().UnixMilli()
	_, err := resilience.Do(ctx, o.exec, domain.DependencyStore, func(ctx context.Context) (struct{}, error) {
		if err := o.store.Put(ctx, domain.Turn{
			SessionID: sessionID,
			Timestamp: ts,
			Role:      domain.RoleUser,
			Message:   prompt,
			ModelKey:  modelKey,
		}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, o.store.Put(ctx, domain.Turn{
			SessionID: sessionID,
			Timestamp: ts + 1,
			Role:      domain.RoleAssistant,
			Message:   answer,
			ModelKey:  modelKey,
			Cost:      cost,
		})
	})
	if err != nil {
		o.logger.Warn("conversation not saved",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (o *Orchestrator) emitMetrics(ctx context.Context, modelKey string, est domain.Usage, inferenceDuration time.Duration) {
	dims := map[string]string{"model": modelKey}
	o.metrics.Record(ctx, "RequestCount", dims, 1, "Count")
	o.metrics.Record(ctx, "EstimatedCost", dims, est.EstimatedCost, "None")
	o.metrics.Record(ctx, "InferenceDuration", dims, inferenceDuration.Seconds(), "Seconds")
	o.metrics.Record(ctx, "InputTokens", dims, float64(est.InputTokens), "Count")
	o.metrics.Record(ctx, "OutputTokens", dims, float64(est.OutputTokens), "Count")
}
