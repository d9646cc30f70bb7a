package llm

import (
	"context"

	"folio/internal/models"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single model call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	JSONMode    bool
}

// Completion is the model reply plus provider-reported accounting.
type Completion struct {
	Content string
	Usage   models.TokenUsage
}

// ChatProvider produces completions.
type ChatProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Embedder generates embedding vectors, one per input, in input order.
type Embedder interface {
	Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error)
}
