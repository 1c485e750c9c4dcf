package models

import "time"

// APIKey authenticates a trusted dashboard or export integration.
// Requests carrying an active key bypass rate limiting.
type APIKey struct {
	ID          int        `json:"id"`
	Key         string     `json:"key"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	IsActive    bool       `json:"is_active"`
}
