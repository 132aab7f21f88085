// api_key.go defines the APIKey model for the key registry, plus the per-endpoint
// usage aggregates surfaced by the key statistics endpoint.
package models

import "time"

// APIKey represents an API key owned by a user
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	KeyValue   string     `json:"key"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	UsageCount int        `json:"usage_count"`
}

// APIUsage is one recorded request made with an API key
type APIUsage struct {
	ID        string
	APIKeyID  string
	Endpoint  string
	CreatedAt time.Time
}

// EndpointUsage aggregates request counts per endpoint for one key
type EndpointUsage struct {
	Endpoint string `json:"endpoint" db:"endpoint"`
	Count    int    `json:"count" db:"count"`
}

// APIKeyStats is the usage summary returned for a single key
type APIKeyStats struct {
	KeyID         string          `json:"key_id"`
	TotalRequests int             `json:"total_requests"`
	LastUsed      *time.Time      `json:"last_used,omitempty"`
	Endpoints     []EndpointUsage `json:"endpoints"`
}
