package model

// RuleResult is the outcome of one rule for one (item, episode) pair.
type RuleResult struct {
	RuleID  string `json:"rule_id"`
	Pass    bool   `json:"pass"`
	Hard    bool   `json:"hard"`
	Because string `json:"because"`
}

// Candidate is a retrieved item with its similarity to the note.
type Candidate struct {
	Item           CatalogItem
	BaseSimilarity float64  // fused similarity used downstream, in [0,1]
	LexicalScore   float64  // weighted-Jaccard score
	SemanticScore  *float64 // normalized collaborator score, nil when absent
}

// SuggestionItem is the final output unit of the pipeline.
type SuggestionItem struct {
	Code        string         `json:"code"`
	Title       string         `json:"title"`
	Confidence  float64        `json:"confidence"`
	Reasoning   string         `json:"reasoning"`
	Evidence    []EvidenceSpan `json:"evidence"`
	RuleResults []RuleResult   `json:"rule_results"`
}

// SuggestMeta describes how a response was produced.
type SuggestMeta struct {
	RequestID     string   `json:"request_id"`
	RulesVersion  string   `json:"rules_version"`
	ItemsVersion  string   `json:"items_version"`
	DurationMS    float64  `json:"duration_ms"`
	PipelineFlags []string `json:"pipeline_flags"`
}

// SuggestResponse is returned by the suggestion pipeline.
type SuggestResponse struct {
	Items                []SuggestionItem `json:"items"`
	LowConfidenceMessage string           `json:"low_confidence_message,omitempty"`
	Meta                 SuggestMeta      `json:"meta"`
}

// Conflict is a selection-time violation between chosen codes.
type Conflict struct {
	RuleID string   `json:"rule_id"`
	Kind   RuleKind `json:"kind"`
	Codes  []string `json:"codes"`
	Hard   bool     `json:"hard"`
	Reason string   `json:"reason"`
}
