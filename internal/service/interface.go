package service

import (
	"context"

	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/registry"
)

// Relay is the protocol handler for inbound client events. Every method
// reports failures to the originating connection itself; returned errors
// are for logging only and never reach other clients.
type Relay interface {
	HandleInbound(ctx context.Context, conn registry.Connection, senderID string, raw []byte)
	HandleChatMessage(ctx context.Context, conn registry.Connection, senderID string, payload *domain.ChatMessagePayload) error
	HandleTyping(ctx context.Context, conn registry.Connection, senderID string, payload *domain.TypingPayload) error
	HandleAIPrompt(ctx context.Context, conn registry.Connection, senderID string, payload *domain.AIPromptPayload) error
}
