package domain

import "time"

// User is keyed by username. The first connection with an unknown
// username registers it with the supplied credential.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
