package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IssueType string

const (
	IssueTypeStory   IssueType = "STORY"
	IssueTypeTask    IssueType = "TASK"
	IssueTypeBug     IssueType = "BUG"
	IssueTypeEpic    IssueType = "EPIC"
	IssueTypeSubtask IssueType = "SUBTASK"
)

func (t IssueType) Valid() bool {
	switch t {
	case IssueTypeStory, IssueTypeTask, IssueTypeBug, IssueTypeEpic, IssueTypeSubtask:
		return true
	}
	return false
}

type IssueStatus string

const (
	StatusToDo       IssueStatus = "TO_DO"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusInReview   IssueStatus = "IN_REVIEW"
	StatusDone       IssueStatus = "DONE"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

type IssuePriority string

const (
	PriorityLow      IssuePriority = "LOW"
	PriorityMedium   IssuePriority = "MEDIUM"
	PriorityHigh     IssuePriority = "HIGH"
	PriorityCritical IssuePriority = "CRITICAL"
)

func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Issue references its parent by id only; the subtask set is derived by query,
// never stored on the struct.
type Issue struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string        `gorm:"not null;column:title" json:"title"`
	Description   string        `gorm:"type:text;column:description" json:"description"`
	Type          IssueType     `gorm:"type:varchar(16);not null" json:"type"`
	Status        IssueStatus   `gorm:"type:varchar(16);not null;default:'TO_DO'" json:"status"`
	Priority      IssuePriority `gorm:"type:varchar(16);not null;default:'MEDIUM'" json:"priority"`
	ProjectID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"project_id"`
	Project       *Project      `gorm:"foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	ReporterID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Reporter      *User         `gorm:"foreignKey:ReporterID;references:ID" json:"reporter,omitempty"`
	AssigneeID    *uuid.UUID    `gorm:"type:uuid;index" json:"assignee_id,omitempty"`
	Assignee      *User         `gorm:"foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`
	ParentIssueID *uuid.UUID    `gorm:"type:uuid;index" json:"parent_issue_id,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (Issue) TableName() string {
	return "issues"
}

func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = StatusToDo
	}
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
	return nil
}

func (i *Issue) IsReportedBy(userID uuid.UUID) bool {
	return i.ReporterID == userID
}

func (i *Issue) IsAssignedTo(userID uuid.UUID) bool {
	return i.AssigneeID != nil && *i.AssigneeID == userID
}
