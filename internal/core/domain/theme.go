package domain

import (
	"strings"
	"time"
)

const maxKeywordLen = 50

type Theme struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Keywords    []string          `json:"keywords"`
	DocumentIDs []string          `json:"document_ids"`
	Confidence  float64           `json:"confidence_score"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ThemePatch carries the mutable theme fields for an update. Nil fields
// are left unchanged.
type ThemePatch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Keywords    *[]string          `json:"keywords,omitempty"`
	DocumentIDs *[]string          `json:"document_ids,omitempty"`
	Confidence  *float64           `json:"confidence_score,omitempty"`
	Metadata    *map[string]string `json:"metadata,omitempty"`
}

// NormalizeKeywords lower-cases keywords and drops empty or oversized ones.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || len(kw) > maxKeywordLen {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// ClampConfidence keeps confidence scores inside [0, 1].
func ClampConfidence(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
