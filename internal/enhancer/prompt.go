package enhancer

import (
	"fmt"
	"strings"

	"folio/internal/llm"
	"folio/internal/models"
)

const systemPrompt = `You are a reading companion for an e-book reader.
Given a passage the reader selected and supporting context from the same
book, produce a knowledge enhancement. Reply with a single JSON object of
the shape:
{"concepts":[],"historical":[],"cultural":[],"connections":[],"summary":"","confidence":0.0}
Populate primarily the field matching the requested category. Fill
"connections" with cross-references when the material warrants them.
"confidence" is your own confidence in [0,1]. Do not invent facts absent
from the passage or the context.`

var categoryInstruction = map[models.EnhancementCategory]string{
	models.CategoryConcept:    "Explain the key concepts in the selection.",
	models.CategoryHistorical: "Explain the historical background of the selection.",
	models.CategoryCultural:   "Explain the cultural context and references in the selection.",
	models.CategoryGeneral:    "Give a general explanation of the selection, touching concepts, history and culture as relevant.",
}

// buildPrompt assembles the structured prompt from the selection, the
// retrieved context and the requested category.
func buildPrompt(selection string, sources []models.RetrievalResult, cat models.EnhancementCategory) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n%s\n\nSelection:\n%s\n", cat, categoryInstruction[cat], selection)
	if len(sources) > 0 {
		b.WriteString("\nSupporting context from the book:\n")
		for i, s := range sources {
			fmt.Fprintf(&b, "[%d] (chapter %d, similarity %.2f) %s\n", i+1, s.ChapterIndex, s.Similarity, s.Content)
		}
	} else {
		b.WriteString("\nNo supporting context was found; rely on the selection alone and say so in the summary if needed.\n")
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: b.String()},
	}
}
