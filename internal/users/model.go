// Package users holds the user directory: the records ledger reports are
// enriched against.
package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a directory record.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref is the denormalized projection used for enrichment and display.
type Ref struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// Ref projects the user to its display attributes.
func (u User) Ref() Ref {
	return Ref{Username: u.Username, Name: u.Name, Email: u.Email}
}

// ListFilters narrow a directory listing.
type ListFilters struct {
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}
