package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/history"
	"github.com/kaystudios/assistant-gateway/internal/inference"
	"github.com/kaystudios/assistant-gateway/internal/model"
	"github.com/kaystudios/assistant-gateway/internal/resilience"
	"github.com/kaystudios/assistant-gateway/internal/storage/memory"
)

// fakeInvoker replays scripted errors, then streams the configured deltas.
type fakeInvoker struct {
	errs   []error
	deltas []string
	calls  int
}

func (f *fakeInvoker) Invoke(ctx context.Context, req *inference.Request) (inference.Stream, error) {
	call := f.calls
	f.calls++
	if call < len(f.errs) {
		return nil, f.errs[call]
	}
	ch := make(chan inference.Event, len(f.deltas))
	for _, d := range f.deltas {
		ch <- inference.Event{Delta: d}
	}
	close(ch)
	return ch, nil
}

// failingStore rejects every read and write.
type failingStore struct{}

func (failingStore) Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	return nil, errors.New("store down")
}
func (failingStore) Put(ctx context.Context, turn domain.Turn) error {
	return errors.New("store down")
}
func (failingStore) Close() error { return nil }

func newTestOrchestrator(t *testing.T, store history.Store, invoker inference.Invoker, threshold int) *Orchestrator {
	t.Helper()
	breaker := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: threshold, Cooldown: time.Minute}, nil)
	exec := resilience.NewExecutor(
		resilience.Policy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 16 * time.Second},
		breaker,
		nil,
		resilience.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }),
	)
	return New(Deps{
		Registry: model.NewRegistry(),
		Store:    store,
		Invoker:  invoker,
		Executor: exec,
	}, Config{})
}

func TestHandle_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty prompt", Request{SessionID: "s1", ModelKey: "nova-lite"}},
		{"prompt too long", Request{SessionID: "s1", Prompt: strings.Repeat("x", 10001), ModelKey: "nova-lite"}},
		{"unknown model", Request{SessionID: "s1", Prompt: "hi", ModelKey: "gpt-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := &fakeInvoker{deltas: []string{"never"}}
			o := newTestOrchestrator(t, memory.New(), invoker, 5)

			out := o.Handle(context.Background(), tt.req)
			if out.Success {
				t.Fatal("Handle() succeeded on invalid input")
			}
			if out.Code != domain.FailValidation {
				t.Errorf("Code = %q, want validation", out.Code)
			}
			if out.CanRetry {
				t.Error("validation failures must not be marked retryable")
			}
			if invoker.calls != 0 {
				t.Errorf("inference called %d times on invalid input", invoker.calls)
			}
		})
	}
}

func TestHandle_EndToEnd(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.Put(ctx, domain.Turn{SessionID: "s1", Timestamp: 100, Role: domain.RoleUser, Message: "hi"})
	store.Put(ctx, domain.Turn{SessionID: "s1", Timestamp: 101, Role: domain.RoleAssistant, Message: "hello"})

	invoker := &fakeInvoker{deltas: []string{"I'm ", "well"}}
	o := newTestOrchestrator(t, store, invoker, 5)

	out := o.Handle(ctx, Request{SessionID: "s1", Prompt: "how are you?", ModelKey: "nova-lite"})
	if !out.Success {
		t.Fatalf("Handle() failed: %s", out.Error)
	}
	if out.Response != "I'm well" {
		t.Errorf("Response = %q, want %q", out.Response, "I'm well")
	}
	if out.ConversationLength != 3 {
		t.Errorf("ConversationLength = %d, want 3", out.ConversationLength)
	}
	if out.Model != "Amazon Nova Lite" || out.ModelKey != "nova-lite" {
		t.Errorf("model fields = %q/%q", out.Model, out.ModelKey)
	}
	if out.Warning != "" || out.Error != "" {
		t.Errorf("unexpected warning/error: %q / %q", out.Warning, out.Error)
	}
	if out.Usage == nil || out.Usage.InputTokens == 0 {
		t.Errorf("usage estimate missing: %+v", out.Usage)
	}

	// The exchange was persisted as two turns at ts and ts+1.
	turns, err := store.Query(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("store holds %d turns, want 4", len(turns))
	}
	history.SortAscending(turns)
	userTurn, assistantTurn := turns[2], turns[3]
	if userTurn.Role != domain.RoleUser || userTurn.Message != "how are you?" {
		t.Errorf("user turn = %+v", userTurn)
	}
	if assistantTurn.Role != domain.RoleAssistant || assistantTurn.Message != "I'm well" {
		t.Errorf("assistant turn = %+v", assistantTurn)
	}
	if assistantTurn.Timestamp != userTurn.Timestamp+1 {
		t.Errorf("timestamps %d/%d, want assistant = user+1", userTurn.Timestamp, assistantTurn.Timestamp)
	}
	if assistantTurn.Cost != out.Usage.EstimatedCost {
		t.Errorf("assistant turn cost = %v, want %v", assistantTurn.Cost, out.Usage.EstimatedCost)
	}
}

func TestHandle_RecoversAfterTransientInferenceFailure(t *testing.T) {
	invoker := &fakeInvoker{
		errs: []error{
			domain.RetryableDependency("inference", "ThrottlingException", errors.New("throttled")),
		},
		deltas: []string{"answer"},
	}
	o := newTestOrchestrator(t, memory.New(), invoker, 5)

	out := o.Handle(context.Background(), Request{SessionID: "s1", Prompt: "hi", ModelKey: "nova-lite"})
	if !out.Success {
		t.Fatalf("Handle() failed after a recoverable error: %s", out.Error)
	}
	if invoker.calls != 2 {
		t.Errorf("inference called %d times, want 2", invoker.calls)
	}
}

func TestHandle_HardInferenceFailure(t *testing.T) {
	throttled := domain.RetryableDependency("inference", "ThrottlingException", errors.New("throttled"))
	invoker := &fakeInvoker{errs: []error{throttled, throttled, throttled}}
	store := memory.New()
	o := newTestOrchestrator(t, store, invoker, 1)

	out := o.Handle(context.Background(), Request{SessionID: "s1", Prompt: "hi", ModelKey: "nova-lite"})
	if out.Success {
		t.Fatal("Handle() succeeded despite exhausted retries")
	}
	if !out.CanRetry {
		t.Error("CanRetry = false, want true for an unavailable dependency")
	}
	if out.Code != domain.FailUnavailable {
		t.Errorf("Code = %q, want unavailable", out.Code)
	}
	if invoker.calls != 3 {
		t.Errorf("inference called %d times, want 3", invoker.calls)
	}
	// Exhaustion tripped the breaker, so the next request fails without
	// a single attempt.
	out = o.Handle(context.Background(), Request{SessionID: "s1", Prompt: "hi", ModelKey: "nova-lite"})
	if out.Success || invoker.calls != 3 {
		t.Errorf("open circuit did not block the next attempt (calls = %d)", invoker.calls)
	}

	// Nothing was persisted for the failed exchanges.
	turns, _ := store.Query(context.Background(), "s1", 10)
	if len(turns) != 0 {
		t.Errorf("store holds %d turns after failed requests, want 0", len(turns))
	}
}

func TestHandle_DegradedPersistence(t *testing.T) {
	invoker := &fakeInvoker{deltas: []string{"the answer"}}
	o := newTestOrchestrator(t, failingStore{}, invoker, 5)

	out := o.Handle(context.Background(), Request{SessionID: "s1", Prompt: "hi", ModelKey: "nova-lite"})
	if !out.Success {
		t.Fatalf("Handle() failed, want degraded success: %s", out.Error)
	}
	if out.Response != "the answer" {
		t.Errorf("Response = %q", out.Response)
	}
	if out.Warning == "" {
		t.Error("Warning missing on degraded persistence")
	}
	if out.Error != "" {
		t.Errorf("Error = %q, want empty on degraded success", out.Error)
	}
}

func TestHandle_DegradedHistoryFetch(t *testing.T) {
	// Reads fail but the request still completes with empty context.
	invoker := &fakeInvoker{deltas: []string{"ok"}}
	o := newTestOrchestrator(t, failingStore{}, invoker, 5)

	out := o.Handle(context.Background(), Request{SessionID: "s1", Prompt: "hi", ModelKey: "nova-lite"})
	if !out.Success {
		t.Fatalf("Handle() failed on a history fetch error: %s", out.Error)
	}
	if out.ConversationLength != 1 {
		t.Errorf("ConversationLength = %d, want 1 with empty history", out.ConversationLength)
	}
}

func TestHandle_Defaults(t *testing.T) {
	invoker := &fakeInvoker{deltas: []string{"ok"}}
	store := memory.New()
	o := newTestOrchestrator(t, store, invoker, 5)

	out := o.Handle(context.Background(), Request{Prompt: "hi"})
	if !out.Success {
		t.Fatalf("Handle() failed: %s", out.Error)
	}
	if out.SessionID != "default-session" {
		t.Errorf("SessionID = %q, want default-session", out.SessionID)
	}
	if out.ModelKey != "nova-lite" {
		t.Errorf("ModelKey = %q, want nova-lite", out.ModelKey)
	}
}

// panicInvoker simulates an unexpected internal failure.
type panicInvoker struct{}

func (panicInvoker) Invoke(ctx context.Context, req *inference.Request) (inference.Stream, error) {
	panic("boom")
}

func TestHandle_PanicBecomesInternalFailure(t *testing.T) {
	o := newTestOrchestrator(t, memory.New(), panicInvoker{}, 5)

	out := o.Handle(context.Background(), Request{SessionID: "s1", Prompt: "hi", ModelKey: "nova-lite"})
	if out == nil {
		t.Fatal("Handle() returned nil after a panic")
	}
	if out.Success {
		t.Fatal("Handle() reported success after a panic")
	}
	if out.Code != domain.FailInternal {
		t.Errorf("Code = %q, want internal", out.Code)
	}
	if out.Error == "" || !out.CanRetry {
		t.Errorf("outcome = %+v, want generic retryable error", out)
	}
}
