package identity

import (
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
)

// Role is the caller's role claim.
type Role string

const (
	RoleStudent    Role = models.RoleStudent
	RoleDepartment Role = models.RoleDepartment
	RoleAdmin      Role = models.RoleAdmin
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleDepartment, RoleAdmin:
		return true
	}
	return false
}

// Caller is the authenticated identity behind a request. The engine never
// authenticates; it authorizes using these claims.
type Caller struct {
	ID         uuid.UUID
	Role       Role
	Department string
}
