package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

// IssueFilter narrows a project listing. Nil fields are not applied.
// FilterByAssignee distinguishes "no assignee filter" from "filter matched no
// users", which must yield an empty result rather than an unfiltered one.
type IssueFilter struct {
	Status           *types.IssueStatus
	Type             *types.IssueType
	Priority         *types.IssuePriority
	FilterByAssignee bool
	AssigneeIDs      []uuid.UUID
}

type IssueRepo interface {
	Create(ctx context.Context, tx *gorm.DB, issues []*types.Issue) ([]*types.Issue, error)
	Save(ctx context.Context, tx *gorm.DB, issue *types.Issue) (*types.Issue, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, issueIDs []uuid.UUID) ([]*types.Issue, error)
	Search(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filter IssueFilter) ([]*types.Issue, error)
	GetByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) ([]*types.Issue, error)
	// DeleteWithSubtasks removes the issue and its direct subtasks in one
	// shot. Nesting depth is at most one, so no recursion is needed.
	DeleteWithSubtasks(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) error
}

type issueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIssueRepo(db *gorm.DB, baseLog *logger.Logger) IssueRepo {
	return &issueRepo{db: db, log: baseLog.With("repo", "IssueRepo")}
}

func (ir *issueRepo) Create(ctx context.Context, tx *gorm.DB, issues []*types.Issue) ([]*types.Issue, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if len(issues) == 0 {
		return []*types.Issue{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (ir *issueRepo) Save(ctx context.Context, tx *gorm.DB, issue *types.Issue) (*types.Issue, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).Save(issue).Error; err != nil {
		return nil, err
	}
	return issue, nil
}

func (ir *issueRepo) GetByIDs(ctx context.Context, tx *gorm.DB, issueIDs []uuid.UUID) ([]*types.Issue, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Issue
	if len(issueIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", issueIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *issueRepo) Search(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filter IssueFilter) ([]*types.Issue, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	q := transaction.WithContext(ctx).Where("project_id = ?", projectID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Priority != nil {
		q = q.Where("priority = ?", *filter.Priority)
	}
	if filter.FilterByAssignee {
		if len(filter.AssigneeIDs) == 0 {
			return []*types.Issue{}, nil
		}
		q = q.Where("assignee_id IN ?", filter.AssigneeIDs)
	}
	var results []*types.Issue
	if err := q.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *issueRepo) GetByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) ([]*types.Issue, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.Issue
	if len(parentIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("parent_issue_id IN ?", parentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *issueRepo) DeleteWithSubtasks(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	db := transaction.WithContext(ctx)
	if err := db.Where("parent_issue_id = ?", issueID).Delete(&types.Issue{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", issueID).Delete(&types.Issue{}).Error
}
