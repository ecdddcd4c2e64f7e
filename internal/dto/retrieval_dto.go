package dto

import "github.com/google/uuid"

// SearchRequest drives the retrieval debug endpoint: rank the corpus against
// a query with explicit knobs, without touching any chat session.
type SearchRequest struct {
	Query  string   `json:"query" validate:"required"`
	TopK   int      `json:"top_k" validate:"omitempty,min=1,max=50"`
	UseMMR *bool    `json:"use_mmr,omitempty"`
	Lambda *float64 `json:"lambda_param,omitempty" validate:"omitempty,min=0,max=1"`

	// Scope narrows the corpus to shared documents plus those bound to this
	// session, matching what a chat turn in that session would see.
	Scope *uuid.UUID `json:"scope,omitempty"`
}

type SearchResponse struct {
	Results []RetrievedChunkDTO `json:"results"`

	// WouldRetrieve reports what the retrieval decision engine would do for
	// this query in a chat turn, with the rule that matched.
	WouldRetrieve bool   `json:"would_retrieve"`
	DecisionRule  string `json:"decision_rule"`
}
