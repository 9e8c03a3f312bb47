package domain

// SearchResult is one vector index hit. Lower distance means more relevant.
type SearchResult struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}

type Citation struct {
	DocumentID   string `json:"document_id,omitempty"`
	DocumentName string `json:"document_name"`
	Page         int    `json:"page,omitempty"`
	Paragraph    int    `json:"paragraph,omitempty"`
	Quote        string `json:"quote"`
}

// DocumentAnswer is the per-document (or per-partition) query outcome.
type DocumentAnswer struct {
	DocumentID     string     `json:"document_id"`
	DocumentName   string     `json:"document_name"`
	Answer         string     `json:"extracted_answer"`
	Citations      []Citation `json:"citations"`
	RelevanceScore float64    `json:"relevance_score"`
	Failed         bool       `json:"failed,omitempty"`
}

// IdentifiedTheme is a cross-document theme produced by synthesis, before
// persistence.
type IdentifiedTheme struct {
	Name        string   `json:"theme_name"`
	Description string   `json:"description"`
	DocumentIDs []string `json:"supporting_documents"`
	Confidence  float64  `json:"confidence_score"`
}

type SynthesizedResponse struct {
	Query     string            `json:"query"`
	Answer    string            `json:"answer"`
	Themes    []IdentifiedTheme `json:"themes"`
	Documents []DocumentAnswer  `json:"document_responses"`
	Metadata  map[string]string `json:"metadata"`
}

type QueryResponse struct {
	Query       string               `json:"query"`
	Documents   []DocumentAnswer     `json:"document_responses"`
	Synthesized *SynthesizedResponse `json:"synthesized_response,omitempty"`
}
