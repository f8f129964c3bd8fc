// Package access decides which complaints a caller may read or change and
// whether submitter identity is shown. Each role maps to one policy; there
// is no role branching outside For.
package access

import (
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/identity"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentinels substituted for submitter identity on redacted reads.
const (
	AnonymousName = "Anonymous"
	MaskedValue   = "***"
)

type Policy interface {
	// Scope restricts a complaints query to the readable set.
	Scope(db *gorm.DB) *gorm.DB
	CanRead(c *models.Complaint) bool
	CanTransition(c *models.Complaint) bool
	CanSubmitFeedback(c *models.Complaint) bool
	RevealsSubmitter(c *models.Complaint) bool
}

// For selects the policy for the caller's role. Unknown roles get a
// policy that denies everything.
func For(caller identity.Caller) Policy {
	base := owner{id: caller.ID}
	switch caller.Role {
	case identity.RoleStudent:
		return studentPolicy{base}
	case identity.RoleDepartment:
		return departmentPolicy{owner: base, department: caller.Department}
	case identity.RoleAdmin:
		return adminPolicy{base}
	default:
		return denyPolicy{}
	}
}

// owner carries rules shared by every role: only the submitter gives
// feedback, and the submitter always sees their own identity.
type owner struct {
	id uuid.UUID
}

func (o owner) owns(c *models.Complaint) bool {
	return o.id != uuid.Nil && c.SubmitterID == o.id
}

func (o owner) CanSubmitFeedback(c *models.Complaint) bool { return o.owns(c) }

func (o owner) RevealsSubmitter(c *models.Complaint) bool { return !c.Anonymous || o.owns(c) }

type studentPolicy struct{ owner }

func (p studentPolicy) Scope(db *gorm.DB) *gorm.DB {
	return db.Where("submitter_id = ?", p.id)
}

func (p studentPolicy) CanRead(c *models.Complaint) bool { return p.owns(c) }

func (p studentPolicy) CanTransition(*models.Complaint) bool { return false }

type departmentPolicy struct {
	owner
	department string
}

func (p departmentPolicy) Scope(db *gorm.DB) *gorm.DB {
	return db.Where("assigned_department = ?", p.department)
}

func (p departmentPolicy) CanRead(c *models.Complaint) bool {
	return p.department != "" && c.AssignedDepartment == p.department
}

func (p departmentPolicy) CanTransition(c *models.Complaint) bool { return p.CanRead(c) }

type adminPolicy struct{ owner }

func (adminPolicy) Scope(db *gorm.DB) *gorm.DB { return db }

func (adminPolicy) CanRead(*models.Complaint) bool { return true }

func (adminPolicy) CanTransition(*models.Complaint) bool { return true }

func (adminPolicy) RevealsSubmitter(*models.Complaint) bool { return true }

type denyPolicy struct{}

func (denyPolicy) Scope(db *gorm.DB) *gorm.DB { return db.Where("1 = 0") }

func (denyPolicy) CanRead(*models.Complaint) bool { return false }

func (denyPolicy) CanTransition(*models.Complaint) bool { return false }

func (denyPolicy) CanSubmitFeedback(*models.Complaint) bool { return false }

func (denyPolicy) RevealsSubmitter(*models.Complaint) bool { return false }
