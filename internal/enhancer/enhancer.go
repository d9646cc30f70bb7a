package enhancer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"folio/internal/llm"
	"folio/internal/log"
	"folio/internal/models"
	"folio/internal/retriever"
)

// ErrNoEnhancement marks a model call that failed or produced nothing
// usable. The enhancer never substitutes placeholder content: a fabricated
// explanation is worse than an explicit failure, so the caller decides what
// to show.
var ErrNoEnhancement = errors.New("no enhancement produced")

// defaultConfidence is reported when the model does not assert its own.
const defaultConfidence = 0.8

// Rough blended price per 1K tokens, used for the cost estimate only.
const costPer1KTokens = 0.002

type EventType string

const (
	EventSources     EventType = "sources"
	EventEnhancement EventType = "enhancement"
	EventUsage       EventType = "usage"
	EventError       EventType = "error"
)

// Event is one element of the enhancement stream. The caller may stop
// consuming after EventSources; every send honors ctx cancellation.
type Event struct {
	Type        EventType
	Sources     []models.RetrievalResult
	Enhancement *models.EnhancementResult
	Usage       *models.TokenUsage
	Cost        float64
	Err         error
}

// ContextRetriever is the capability the enhancer needs from retrieval.
type ContextRetriever interface {
	Retrieve(ctx context.Context, bookID, queryText string, p retriever.Params) ([]models.RetrievalResult, error)
}

// Enhancer turns a text selection plus retrieved book context into a
// structured knowledge enhancement.
type Enhancer struct {
	retr   ContextRetriever
	chat   llm.ChatProvider
	model  string
	logger *log.Logger
}

func New(retr ContextRetriever, chat llm.ChatProvider, model string, logger *log.Logger) *Enhancer {
	if logger == nil {
		logger = log.New()
	}
	return &Enhancer{retr: retr, chat: chat, model: model, logger: logger}
}

// Enhance streams sources, then the enhancement, then usage. Validation
// errors surface immediately; provider errors arrive as an EventError on
// the stream.
func (e *Enhancer) Enhance(ctx context.Context, bookID, selection string, cat models.EnhancementCategory) (<-chan Event, error) {
	if strings.TrimSpace(selection) == "" {
		return nil, errors.New("enhance: empty selection")
	}
	if !cat.Valid() {
		return nil, fmt.Errorf("enhance: unknown category %q", cat)
	}
	ch := make(chan Event)
	go e.run(ctx, ch, bookID, selection, cat)
	return ch, nil
}

func (e *Enhancer) run(ctx context.Context, ch chan<- Event, bookID, selection string, cat models.EnhancementCategory) {
	defer close(ch)
	sources, err := e.retr.Retrieve(ctx, bookID, selection, retriever.Params{
		Limit:     retriever.DefaultLimit,
		Threshold: retriever.ReadingThreshold,
	})
	if err != nil {
		e.send(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("enhance: retrieve context: %w", err)})
		return
	}
	if !e.send(ctx, ch, Event{Type: EventSources, Sources: sources}) {
		return
	}

	req := llm.CompletionRequest{
		Model:    e.model,
		Messages: buildPrompt(selection, sources, cat),
		JSONMode: true,
	}
	comp, err := e.chat.Complete(ctx, req)
	if err != nil {
		e.send(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("%w: %v", ErrNoEnhancement, err)})
		return
	}
	if strings.TrimSpace(comp.Content) == "" {
		e.send(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("%w: empty model reply", ErrNoEnhancement)})
		return
	}
	result, err := parseEnhancement(comp.Content, cat)
	if err != nil {
		e.logger.Warn("enhancement reply rejected", "category", string(cat), "err", err.Error())
		e.send(ctx, ch, Event{Type: EventError, Err: fmt.Errorf("%w: %v", ErrNoEnhancement, err)})
		return
	}
	if !isComplex(selection) {
		result.Data.Connections = nil
	}
	result.Usage = comp.Usage
	result.CostEstimate = float64(comp.Usage.TotalTokens) / 1000 * costPer1KTokens
	if !e.send(ctx, ch, Event{Type: EventEnhancement, Enhancement: result}) {
		return
	}
	e.send(ctx, ch, Event{Type: EventUsage, Usage: &result.Usage, Cost: result.CostEstimate})
}

func (e *Enhancer) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// isComplex decides whether the selection warrants cross-reference
// connections: several clauses or several capitalized entities.
func isComplex(selection string) bool {
	clauses := strings.Count(selection, ",") + strings.Count(selection, ";")
	if clauses >= 2 {
		return true
	}
	entities := 0
	for i, w := range strings.Fields(selection) {
		if i == 0 {
			continue // sentence-initial capital is not an entity
		}
		r := w[0]
		if r >= 'A' && r <= 'Z' {
			entities++
		}
	}
	return entities >= 2
}
