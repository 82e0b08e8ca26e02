package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

type ProjectMemberRepo interface {
	Create(ctx context.Context, tx *gorm.DB, members []*types.ProjectMember) ([]*types.ProjectMember, error)
	GetByProjectAndUser(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) (*types.ProjectMember, error)
	ExistsByProjectAndUser(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) (bool, error)
	GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectMember, error)
	GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.ProjectMember, error)
}

type projectMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectMemberRepo(db *gorm.DB, baseLog *logger.Logger) ProjectMemberRepo {
	return &projectMemberRepo{db: db, log: baseLog.With("repo", "ProjectMemberRepo")}
}

func (mr *projectMemberRepo) Create(ctx context.Context, tx *gorm.DB, members []*types.ProjectMember) ([]*types.ProjectMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if len(members) == 0 {
		return []*types.ProjectMember{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (mr *projectMemberRepo) GetByProjectAndUser(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) (*types.ProjectMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.ProjectMember
	if err := transaction.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (mr *projectMemberRepo) ExistsByProjectAndUser(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (mr *projectMemberRepo) GetByProjectIDs(ctx context.Context, tx *gorm.DB, projectIDs []uuid.UUID) ([]*types.ProjectMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.ProjectMember
	if len(projectIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("User").
		Where("project_id IN ?", projectIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *projectMemberRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.ProjectMember, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.ProjectMember
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
