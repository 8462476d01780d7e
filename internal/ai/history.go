package ai

import (
	"strings"

	"github.com/rexmirak/Chat-app/internal/domain"
)

// BuildHistory converts chronological chat messages into a role-tagged
// history window. Empty and whitespace-only entries are dropped. When the
// last remaining entry is a user turn whose text exactly equals the trimmed
// trigger, it is dropped as well: it is the just-persisted copy of the
// trigger, and the provider would otherwise see its own prompt twice.
//
// The trailing-duplicate check is a textual heuristic, not a structural
// guarantee; two distinct user turns with identical text will lose one
// history entry.
func BuildHistory(messages []domain.Message, trigger string) []Turn {
	trimmedTrigger := strings.TrimSpace(trigger)

	kept := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		kept = append(kept, msg)
	}

	if trimmedTrigger != "" && len(kept) > 0 {
		last := kept[len(kept)-1]
		fromBot := last.Sender != nil && last.Sender.IsAIBot
		if !fromBot && strings.TrimSpace(last.Content) == trimmedTrigger {
			kept = kept[:len(kept)-1]
		}
	}

	history := make([]Turn, 0, len(kept))
	for _, msg := range kept {
		role := RoleUser
		if msg.Sender != nil && msg.Sender.IsAIBot {
			role = RoleModel
		}
		history = append(history, Turn{Role: role, Text: msg.Content})
	}
	return history
}
