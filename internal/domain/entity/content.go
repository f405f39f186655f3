package entity

import (
	"encoding/json"
	"time"
)

// ContentDocument is one admin-managed content item. Body holds the JSON of
// the kind-specific document type.
type ContentDocument struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Position  int             `json:"position"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
