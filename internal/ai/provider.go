package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// History roles. RoleModel marks turns authored by the automated identity.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

var (
	ErrMissingAPIKey   = errors.New("missing generation API key")
	ErrEmptyResponse   = errors.New("empty response from provider")
	ErrBlockedResponse = errors.New("provider returned no candidates")
)

// Turn is one role-tagged entry of the conversation history window.
type Turn struct {
	Role string
	Text string
}

// Generator produces a reply for role-tagged history plus a new user turn.
// Implementations must honour ctx cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, history []Turn, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API. Constructed once at startup and
// shared; the client is safe for concurrent use.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: strings.TrimSpace(apiKey),
	})
	if err != nil {
		return nil, err
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate sends the history window plus the prompt as a new user turn and
// returns the concatenated candidate text.
func (g *GeminiGenerator) Generate(ctx context.Context, history []Turn, prompt string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, &genai.Content{
			Role:  turn.Role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrBlockedResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
