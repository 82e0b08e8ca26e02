package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

type ProjectInvitation struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"project_id"`
	Project       *Project         `gorm:"foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	InvitedUserID uuid.UUID        `gorm:"type:uuid;not null;index" json:"invited_user_id"`
	InvitedUser   *User            `gorm:"foreignKey:InvitedUserID;references:ID" json:"invited_user,omitempty"`
	Role          ProjectRole      `gorm:"type:varchar(32);not null" json:"role"`
	Status        InvitationStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	CreatedAt     time.Time        `gorm:"not null" json:"created_at"`
}

func (ProjectInvitation) TableName() string {
	return "project_invitations"
}

func (i *ProjectInvitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = InvitationPending
	}
	return nil
}
