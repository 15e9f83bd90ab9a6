package model

import (
	"time"
)

// Principal is an API credential holder identified by username.
// APISecret signs that principal's tokens and is never serialized;
// only SecretPrefix may appear in responses or logs.
type Principal struct {
	Username        string     `json:"username"`
	APIKey          string     `json:"api_key"`
	APISecret       string     `json:"-"`
	SecretPrefix    string     `json:"secret_prefix"`
	RateLimitMax    int        `json:"rate_limit_max"`
	RateLimitWindow int        `json:"rate_limit_window"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUsed        *time.Time `json:"last_used,omitempty"`
}
