package enhancer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"folio/internal/models"
)

// enhancementPayload is the expected model reply. Confidence is a pointer
// so "absent" is distinguishable from 0.
type enhancementPayload struct {
	Concepts    []string `json:"concepts"`
	Historical  []string `json:"historical"`
	Cultural    []string `json:"cultural"`
	Connections []string `json:"connections"`
	Summary     string   `json:"summary"`
	Confidence  *float64 `json:"confidence"`
}

// parseEnhancement validates the model reply strictly per category.
// Malformed or off-shape payloads are rejected, never guessed at.
func parseEnhancement(content string, cat models.EnhancementCategory) (*models.EnhancementResult, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var p enhancementPayload
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse enhancement: %w", err)
	}
	if err := validate(&p, cat); err != nil {
		return nil, err
	}
	conf := defaultConfidence
	if p.Confidence != nil {
		conf = *p.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
	}
	return &models.EnhancementResult{
		Category: cat,
		Data: models.EnhancementData{
			Concepts:    dropEmpty(p.Concepts),
			Historical:  dropEmpty(p.Historical),
			Cultural:    dropEmpty(p.Cultural),
			Connections: dropEmpty(p.Connections),
		},
		Summary:    strings.TrimSpace(p.Summary),
		Confidence: conf,
	}, nil
}

// validate checks that the field carrying the requested category's primary
// content is actually populated.
func validate(p *enhancementPayload, cat models.EnhancementCategory) error {
	switch cat {
	case models.CategoryConcept:
		if len(dropEmpty(p.Concepts)) == 0 {
			return errors.New("parse enhancement: concepts missing for concept category")
		}
	case models.CategoryHistorical:
		if len(dropEmpty(p.Historical)) == 0 {
			return errors.New("parse enhancement: historical notes missing for historical category")
		}
	case models.CategoryCultural:
		if len(dropEmpty(p.Cultural)) == 0 {
			return errors.New("parse enhancement: cultural notes missing for cultural category")
		}
	case models.CategoryGeneral:
		if strings.TrimSpace(p.Summary) == "" {
			return errors.New("parse enhancement: summary missing for general category")
		}
	}
	return nil
}

// extractJSON tolerates replies wrapped in prose or markdown fences by
// slicing out the outermost JSON object.
func extractJSON(content string) (string, error) {
	s := strings.TrimSpace(content)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errors.New("parse enhancement: no JSON object in reply")
	}
	return s[start : end+1], nil
}

func dropEmpty(xs []string) []string {
	out := xs[:0]
	for _, x := range xs {
		if strings.TrimSpace(x) != "" {
			out = append(out, x)
		}
	}
	return out
}
