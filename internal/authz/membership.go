// Package authz resolves a user's standing on a project and decides, per
// operation kind, whether an actor may proceed. Decisions are pure functions
// over explicit facts; the acting identity is always passed in, never read
// from ambient state.
package authz

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

// Membership is a user's resolved standing on a single project. The owner is
// treated as holding every role regardless of membership rows.
type Membership struct {
	IsOwner bool
	HasRole bool
	Role    types.ProjectRole
}

func (m Membership) MemberOrOwner() bool {
	return m.IsOwner || m.HasRole
}

// Has reports whether the membership satisfies any of the given roles.
// Ownership satisfies every role set.
func (m Membership) Has(roles ...types.ProjectRole) bool {
	if m.IsOwner {
		return true
	}
	if !m.HasRole {
		return false
	}
	for _, r := range roles {
		if m.Role == r {
			return true
		}
	}
	return false
}

type Resolver interface {
	RoleOf(ctx context.Context, tx *gorm.DB, project *types.Project, userID uuid.UUID) (Membership, error)
	IsMemberOrOwner(ctx context.Context, tx *gorm.DB, project *types.Project, userID uuid.UUID) (bool, error)
}

type resolver struct {
	memberRepo repos.ProjectMemberRepo
	log        *logger.Logger
}

func NewResolver(memberRepo repos.ProjectMemberRepo, baseLog *logger.Logger) Resolver {
	return &resolver{memberRepo: memberRepo, log: baseLog.With("component", "MembershipResolver")}
}

func (r *resolver) RoleOf(ctx context.Context, tx *gorm.DB, project *types.Project, userID uuid.UUID) (Membership, error) {
	if project.OwnerID == userID {
		return Membership{IsOwner: true}, nil
	}
	member, err := r.memberRepo.GetByProjectAndUser(ctx, tx, project.ID, userID)
	if err != nil {
		return Membership{}, err
	}
	if member == nil {
		return Membership{}, nil
	}
	return Membership{HasRole: true, Role: member.Role}, nil
}

func (r *resolver) IsMemberOrOwner(ctx context.Context, tx *gorm.DB, project *types.Project, userID uuid.UUID) (bool, error) {
	m, err := r.RoleOf(ctx, tx, project, userID)
	if err != nil {
		return false, err
	}
	return m.MemberOrOwner(), nil
}
