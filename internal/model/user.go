package model

import "time"

// Auth providers recorded on a user row.
const (
	AuthProviderLocal  = "LOCAL"
	AuthProviderGoogle = "GOOGLE"
)

// User holds the account fields the authorization core reads and writes.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Enabled      bool      `json:"enabled"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
}
