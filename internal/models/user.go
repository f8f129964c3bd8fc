package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent    = "student"
	RoleDepartment = "department"
	RoleAdmin      = "admin"
)

// User is a directory entry. Credentials live with the identity provider;
// the engine only needs names for submitter display and department
// membership for notification fan-out.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	StudentID  string    `gorm:"size:50;index" json:"student_id,omitempty"`
	Role       string    `gorm:"size:20;not null;default:'student';index:idx_users_role_department,priority:1" json:"role"`
	Department string    `gorm:"size:50;index:idx_users_role_department,priority:2" json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
