package memory

import (
	"context"
	"testing"

	"github.com/kaystudios/assistant-gateway/internal/domain"
)

func TestStore_QueryReturnsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i, msg := range []string{"first", "second", "third"} {
		err := s.Put(ctx, domain.Turn{
			SessionID: "s1",
			Timestamp: int64(i + 1),
			Role:      domain.RoleUser,
			Message:   msg,
		})
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	got, err := s.Query(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query() returned %d turns, want 2", len(got))
	}
	if got[0].Message != "third" || got[1].Message != "second" {
		t.Errorf("Query() order = [%s, %s], want newest first", got[0].Message, got[1].Message)
	}
}

func TestStore_QueryUnknownSession(t *testing.T) {
	got, err := New().Query(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() = %v, want empty", got)
	}
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.Put(ctx, domain.Turn{SessionID: "a", Timestamp: 1, Role: domain.RoleUser, Message: "for a"})
	s.Put(ctx, domain.Turn{SessionID: "b", Timestamp: 1, Role: domain.RoleUser, Message: "for b"})

	got, err := s.Query(ctx, "a", 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Message != "for a" {
		t.Errorf("Query(a) = %v, want only session a's turn", got)
	}
}
