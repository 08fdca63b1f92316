package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Back-office roles.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// Profile represents user information that can be shared with other domains.
type Profile struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Role      string
	CreatedAt time.Time
}

// Directory lets other domains look up back-office users without
// depending on auth internals.
type Directory interface {
	// ListActiveUsersByRole returns all active users holding the role.
	ListActiveUsersByRole(ctx context.Context, role string) ([]Profile, error)
}
