package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/authz"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/repos"
	"github.com/taskflowhq/taskflow-backend/internal/requestdata"
	"github.com/taskflowhq/taskflow-backend/internal/types"
	"github.com/taskflowhq/taskflow-backend/internal/utils"
)

type InvitationView struct {
	ID         uuid.UUID              `json:"id"`
	ProjectID  uuid.UUID              `json:"project_id"`
	ProjectKey string                 `json:"project_key"`
	Project    string                 `json:"project_name"`
	Role       types.ProjectRole      `json:"role"`
	Status     types.InvitationStatus `json:"status"`
}

type InvitationService interface {
	// Invite resolves identifier by exact username first, then exact email,
	// and creates a pending invitation. The notification is dispatched after
	// the transaction commits.
	Invite(ctx context.Context, projectID uuid.UUID, identifier string, role types.ProjectRole) (*types.ProjectInvitation, error)
	Accept(ctx context.Context, invitationID uuid.UUID) error
	Decline(ctx context.Context, invitationID uuid.UUID) error
	ListMyPending(ctx context.Context) ([]*InvitationView, error)
}

type invitationService struct {
	db             *gorm.DB
	log            *logger.Logger
	projectRepo    repos.ProjectRepo
	memberRepo     repos.ProjectMemberRepo
	invitationRepo repos.ProjectInvitationRepo
	userRepo       repos.UserRepo
	resolver       authz.Resolver
	notifier       InvitationNotifier
}

func NewInvitationService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	memberRepo repos.ProjectMemberRepo,
	invitationRepo repos.ProjectInvitationRepo,
	userRepo repos.UserRepo,
	resolver authz.Resolver,
	notifier InvitationNotifier,
) InvitationService {
	return &invitationService{
		db:             db,
		log:            log.With("service", "InvitationService"),
		projectRepo:    projectRepo,
		memberRepo:     memberRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		resolver:       resolver,
		notifier:       notifier,
	}
}

func (is *invitationService) Invite(ctx context.Context, projectID uuid.UUID, identifier string, role types.ProjectRole) (*types.ProjectInvitation, error) {
	actorID := requestdata.UserID(ctx)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apierr.InvalidInput("identifier is required")
	}
	if !role.Valid() {
		return nil, apierr.InvalidInput("unknown project role %q", string(role))
	}

	var invitation *types.ProjectInvitation
	var project *types.Project
	var invited *types.User

	if err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projects, err := is.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
		if err != nil {
			return fmt.Errorf("fetching project: %w", err)
		}
		if len(projects) == 0 {
			return apierr.NotFound("project %s not found", projectID)
		}
		project = projects[0]

		membership, err := is.resolver.RoleOf(ctx, tx, project, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanInvite(membership); err != nil {
			return err
		}

		invited, err = is.resolveIdentifier(ctx, tx, identifier)
		if err != nil {
			return err
		}
		if invited == nil {
			return apierr.NotFound("no user matches %q", identifier)
		}

		isMember, err := is.memberRepo.ExistsByProjectAndUser(ctx, tx, project.ID, invited.ID)
		if err != nil {
			return err
		}
		if isMember || project.OwnerID == invited.ID {
			return apierr.Conflict("user is already a project member")
		}

		invitation = &types.ProjectInvitation{
			ProjectID:     project.ID,
			InvitedUserID: invited.ID,
			Role:          role,
			Status:        types.InvitationPending,
		}
		_, err = is.invitationRepo.Create(ctx, tx, []*types.ProjectInvitation{invitation})
		return err
	}); err != nil {
		return nil, err
	}

	// Post-commit, at most once; notifier errors never unwind the invitation.
	is.notifier.NotifyInvitation(ctx, invitation, project, invited)

	is.log.Info("Invitation created", "invitation_id", invitation.ID, "project_id", project.ID)
	return invitation, nil
}

func (is *invitationService) Accept(ctx context.Context, invitationID uuid.UUID) error {
	actorID := requestdata.UserID(ctx)
	return is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := is.loadPendingFor(ctx, tx, invitationID, actorID)
		if err != nil {
			return err
		}
		// Idempotent against an existing membership row.
		exists, err := is.memberRepo.ExistsByProjectAndUser(ctx, tx, invitation.ProjectID, actorID)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := is.memberRepo.Create(ctx, tx, []*types.ProjectMember{{
				ProjectID: invitation.ProjectID,
				UserID:    actorID,
				Role:      invitation.Role,
			}}); err != nil {
				return err
			}
		}
		invitation.Status = types.InvitationAccepted
		_, err = is.invitationRepo.Save(ctx, tx, invitation)
		return err
	})
}

func (is *invitationService) Decline(ctx context.Context, invitationID uuid.UUID) error {
	actorID := requestdata.UserID(ctx)
	return is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := is.loadPendingFor(ctx, tx, invitationID, actorID)
		if err != nil {
			return err
		}
		invitation.Status = types.InvitationDeclined
		_, err = is.invitationRepo.Save(ctx, tx, invitation)
		return err
	})
}

func (is *invitationService) ListMyPending(ctx context.Context) ([]*InvitationView, error) {
	actorID := requestdata.UserID(ctx)
	if actorID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated user")
	}
	invitations, err := is.invitationRepo.GetByInvitedUserAndStatus(ctx, nil, actorID, types.InvitationPending)
	if err != nil {
		return nil, err
	}
	views := make([]*InvitationView, 0, len(invitations))
	for _, inv := range invitations {
		view := &InvitationView{
			ID:        inv.ID,
			ProjectID: inv.ProjectID,
			Role:      inv.Role,
			Status:    inv.Status,
		}
		if inv.Project != nil {
			view.ProjectKey = inv.Project.Key
			view.Project = inv.Project.Name
		}
		views = append(views, view)
	}
	return views, nil
}

func (is *invitationService) resolveIdentifier(ctx context.Context, tx *gorm.DB, identifier string) (*types.User, error) {
	byUsername, err := is.userRepo.GetByUsernames(ctx, tx, []string{utils.NormalizeUsername(identifier)})
	if err != nil {
		return nil, err
	}
	if len(byUsername) > 0 {
		return byUsername[0], nil
	}
	byEmail, err := is.userRepo.GetByEmails(ctx, tx, []string{utils.NormalizeEmail(identifier)})
	if err != nil {
		return nil, err
	}
	if len(byEmail) > 0 {
		return byEmail[0], nil
	}
	return nil, nil
}

func (is *invitationService) loadPendingFor(ctx context.Context, tx *gorm.DB, invitationID, actorID uuid.UUID) (*types.ProjectInvitation, error) {
	if actorID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated user")
	}
	found, err := is.invitationRepo.GetByIDs(ctx, tx, []uuid.UUID{invitationID})
	if err != nil {
		return nil, fmt.Errorf("fetching invitation: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("invitation %s not found", invitationID)
	}
	invitation := found[0]
	if invitation.InvitedUserID != actorID {
		return nil, apierr.NotAuthorized("you are not the invited user for this invitation")
	}
	if invitation.Status != types.InvitationPending {
		return nil, apierr.Conflict("invitation has already been %s", strings.ToLower(string(invitation.Status)))
	}
	return invitation, nil
}
