package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

type ProjectInvitationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, invitations []*types.ProjectInvitation) ([]*types.ProjectInvitation, error)
	Save(ctx context.Context, tx *gorm.DB, invitation *types.ProjectInvitation) (*types.ProjectInvitation, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, invitationIDs []uuid.UUID) ([]*types.ProjectInvitation, error)
	GetByInvitedUserAndStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status types.InvitationStatus) ([]*types.ProjectInvitation, error)
}

type projectInvitationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectInvitationRepo(db *gorm.DB, baseLog *logger.Logger) ProjectInvitationRepo {
	return &projectInvitationRepo{db: db, log: baseLog.With("repo", "ProjectInvitationRepo")}
}

func (ir *projectInvitationRepo) Create(ctx context.Context, tx *gorm.DB, invitations []*types.ProjectInvitation) ([]*types.ProjectInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if len(invitations) == 0 {
		return []*types.ProjectInvitation{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

func (ir *projectInvitationRepo) Save(ctx context.Context, tx *gorm.DB, invitation *types.ProjectInvitation) (*types.ProjectInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).Save(invitation).Error; err != nil {
		return nil, err
	}
	return invitation, nil
}

func (ir *projectInvitationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, invitationIDs []uuid.UUID) ([]*types.ProjectInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.ProjectInvitation
	if len(invitationIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", invitationIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ir *projectInvitationRepo) GetByInvitedUserAndStatus(ctx context.Context, tx *gorm.DB, userID uuid.UUID, status types.InvitationStatus) ([]*types.ProjectInvitation, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var results []*types.ProjectInvitation
	if err := transaction.WithContext(ctx).
		Preload("Project").
		Where("invited_user_id = ? AND status = ?", userID, status).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
