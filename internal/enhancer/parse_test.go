package enhancer

import (
	"testing"

	"folio/internal/models"
)

func TestParseEnhancementFencedReply(t *testing.T) {
	content := "Here you go:\n```json\n{\"concepts\":[\"a\"],\"summary\":\"s\",\"confidence\":0.5}\n```"
	got, err := parseEnhancement(content, models.CategoryConcept)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Data.Concepts) != 1 || got.Confidence != 0.5 {
		t.Fatalf("unexpected parse: %+v", got)
	}
}

func TestParseEnhancementRejectsNonJSON(t *testing.T) {
	if _, err := parseEnhancement("just some prose, no structure", models.CategoryConcept); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestParseEnhancementRejectsWrongShape(t *testing.T) {
	// historical category with only concepts populated is off-shape
	content := `{"concepts":["a"],"historical":[],"summary":"s"}`
	if _, err := parseEnhancement(content, models.CategoryHistorical); err == nil {
		t.Fatal("expected rejection for missing historical notes")
	}
}

func TestParseEnhancementGeneralNeedsSummary(t *testing.T) {
	if _, err := parseEnhancement(`{"concepts":["a"],"summary":"  "}`, models.CategoryGeneral); err == nil {
		t.Fatal("expected rejection for empty summary")
	}
	got, err := parseEnhancement(`{"summary":"plain explanation"}`, models.CategoryGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary != "plain explanation" {
		t.Fatalf("summary lost: %q", got.Summary)
	}
}

func TestParseEnhancementClampsConfidence(t *testing.T) {
	got, err := parseEnhancement(`{"concepts":["a"],"summary":"s","confidence":3.5}`, models.CategoryConcept)
	if err != nil {
		t.Fatal(err)
	}
	if got.Confidence != 1 {
		t.Fatalf("confidence not clamped: %f", got.Confidence)
	}
}

func TestParseEnhancementDropsBlankEntries(t *testing.T) {
	got, err := parseEnhancement(`{"concepts":["a","  ",""],"summary":"s"}`, models.CategoryConcept)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Data.Concepts) != 1 {
		t.Fatalf("blank entries kept: %v", got.Data.Concepts)
	}
}
