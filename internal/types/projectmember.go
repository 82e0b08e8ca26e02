package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectRole string

const (
	RoleProjectManager ProjectRole = "PROJECT_MANAGER"
	RoleDeveloper      ProjectRole = "DEVELOPER"
	RoleViewer         ProjectRole = "VIEWER"
)

func (r ProjectRole) Valid() bool {
	switch r {
	case RoleProjectManager, RoleDeveloper, RoleViewer:
		return true
	}
	return false
}

// ProjectMember holds at most one (project, user) role. The owner is not
// required to have a row; ownership implies full access on its own.
type ProjectMember struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_project_user" json:"project_id"`
	Project   *Project    `gorm:"foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_project_user" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Role      ProjectRole `gorm:"type:varchar(32);not null" json:"role"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
