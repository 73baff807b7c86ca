// Package history assembles conversation context: it defines the turn store
// port and builds the ordered message list handed to the inference call.
package history

import (
	"context"
	"sort"
	"strings"

	"github.com/kaystudios/assistant-gateway/internal/domain"
)

// Store is the persistence port for conversation turns. Query returns up to
// limit turns for a session in reverse insertion order (newest first);
// callers re-sort ascending before building context. Put appends a single
// turn; there is no update or delete.
type Store interface {
	Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	Put(ctx context.Context, turn domain.Turn) error
	Close() error
}

// SortAscending orders turns oldest-first by timestamp, in place.
func SortAscending(turns []domain.Turn) {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp < turns[j].Timestamp
	})
}

// BuildMessages converts a time-ordered window of prior turns plus the new
// prompt into the message list for the inference call. Turns with a role
// other than user or assistant are dropped. The input is never mutated.
func BuildMessages(turns []domain.Turn, newPrompt string) []domain.Message {
	messages := make([]domain.Message, 0, len(turns)+1)
	for _, turn := range turns {
		switch turn.Role {
		case domain.RoleUser, domain.RoleAssistant:
			messages = append(messages, domain.Message{Role: turn.Role, Content: turn.Message})
		}
	}
	return append(messages, domain.Message{Role: domain.RoleUser, Content: newPrompt})
}

// Text concatenates the message text of all turns, used for the input-token
// estimate.
func Text(turns []domain.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(turn.Message)
	}
	return b.String()
}
