// Package auth provides authentication and authorization functionality.
// This file defines the public API of the auth bounded context. Only
// types defined here should be imported by other domains; they alias
// the service layer's definitions so inner packages never import their
// parent.
package auth

import "gymops_backend/internal/auth/service"

// Back-office roles.
const (
	RoleAdmin = service.RoleAdmin
	RoleStaff = service.RoleStaff
)

// Profile represents user information that can be shared with other domains.
type Profile = service.Profile

// Directory lets other domains look up back-office users without
// depending on auth internals.
type Directory = service.Directory
