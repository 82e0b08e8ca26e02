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
	"github.com/taskflowhq/taskflow-backend/internal/workflow"
)

type IssueCreateInput struct {
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Type          types.IssueType      `json:"type"`
	Status        *types.IssueStatus   `json:"status,omitempty"`
	Priority      *types.IssuePriority `json:"priority,omitempty"`
	AssigneeID    *uuid.UUID           `json:"assignee_id,omitempty"`
	ParentIssueID *uuid.UUID           `json:"parent_issue_id,omitempty"`
}

type IssueUpdateInput struct {
	Title         *string              `json:"title,omitempty"`
	Description   *string              `json:"description,omitempty"`
	Type          *types.IssueType     `json:"type,omitempty"`
	Priority      *types.IssuePriority `json:"priority,omitempty"`
	AssigneeID    *uuid.UUID           `json:"assignee_id,omitempty"`
	ParentIssueID *uuid.UUID           `json:"parent_issue_id,omitempty"`
}

type IssueListFilter struct {
	Status       *types.IssueStatus
	Type         *types.IssueType
	Priority     *types.IssuePriority
	AssigneeName string
}

type IssueService interface {
	Create(ctx context.Context, projectID uuid.UUID, input IssueCreateInput) (*types.Issue, error)
	GetByID(ctx context.Context, issueID uuid.UUID) (*types.Issue, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, filter IssueListFilter) ([]*types.Issue, error)
	PartialUpdate(ctx context.Context, issueID uuid.UUID, input IssueUpdateInput) (*types.Issue, error)
	Delete(ctx context.Context, issueID uuid.UUID) error
	AssignToSelf(ctx context.Context, issueID uuid.UUID) (*types.Issue, error)
	Unassign(ctx context.Context, issueID uuid.UUID) (*types.Issue, error)
	ChangeStatus(ctx context.Context, issueID uuid.UUID, newStatus types.IssueStatus) (*types.Issue, error)
	Reopen(ctx context.Context, issueID uuid.UUID) (*types.Issue, error)
	CreateSubtask(ctx context.Context, parentID uuid.UUID, input IssueCreateInput) (*types.Issue, error)
	ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*types.Issue, error)
}

type issueService struct {
	db          *gorm.DB
	log         *logger.Logger
	issueRepo   repos.IssueRepo
	projectRepo repos.ProjectRepo
	userRepo    repos.UserRepo
	resolver    authz.Resolver
}

func NewIssueService(
	db *gorm.DB,
	log *logger.Logger,
	issueRepo repos.IssueRepo,
	projectRepo repos.ProjectRepo,
	userRepo repos.UserRepo,
	resolver authz.Resolver,
) IssueService {
	return &issueService{
		db:          db,
		log:         log.With("service", "IssueService"),
		issueRepo:   issueRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		resolver:    resolver,
	}
}

func (s *issueService) Create(ctx context.Context, projectID uuid.UUID, input IssueCreateInput) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)

	var issue *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := s.loadProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		membership, err := s.resolver.RoleOf(ctx, tx, project, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanCreateIssue(membership); err != nil {
			return err
		}

		if strings.TrimSpace(input.Title) == "" {
			return apierr.InvalidInput("title is required")
		}
		if !input.Type.Valid() {
			return apierr.InvalidInput("unknown issue type %q", string(input.Type))
		}
		if input.Type == types.IssueTypeSubtask && input.ParentIssueID == nil {
			return apierr.InvalidInput("subtasks must have a parent issue")
		}
		if input.ParentIssueID != nil && input.Type != types.IssueTypeSubtask {
			return apierr.InvalidInput("only subtasks can have a parent issue")
		}

		issue = &types.Issue{
			Title:       strings.TrimSpace(input.Title),
			Description: input.Description,
			Type:        input.Type,
			Status:      types.StatusToDo,
			Priority:    types.PriorityMedium,
			ProjectID:   project.ID,
			ReporterID:  actorID,
		}
		if input.Status != nil {
			if !input.Status.Valid() {
				return apierr.InvalidInput("unknown status %q", string(*input.Status))
			}
			issue.Status = *input.Status
		}
		if input.Priority != nil {
			if !input.Priority.Valid() {
				return apierr.InvalidInput("unknown priority %q", string(*input.Priority))
			}
			issue.Priority = *input.Priority
		}

		if input.AssigneeID != nil {
			if err := s.validateAssignee(ctx, tx, project, *input.AssigneeID); err != nil {
				return err
			}
			issue.AssigneeID = input.AssigneeID
		}

		if input.ParentIssueID != nil {
			parent, err := s.loadParent(ctx, tx, *input.ParentIssueID)
			if err != nil {
				return err
			}
			if parent.ProjectID != project.ID {
				return apierr.InvalidInput("parent issue belongs to a different project")
			}
			if parent.Type == types.IssueTypeSubtask {
				return apierr.InvalidInput("subtasks cannot have their own subtasks")
			}
			issue.ParentIssueID = &parent.ID
		}

		_, err = s.issueRepo.Create(ctx, tx, []*types.Issue{issue})
		return err
	}); err != nil {
		return nil, err
	}

	s.log.Info("Issue created", "issue_id", issue.ID, "project_id", projectID, "type", issue.Type)
	return issue, nil
}

func (s *issueService) GetByID(ctx context.Context, issueID uuid.UUID) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)
	issue, err := s.loadIssue(ctx, nil, issueID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, nil, issue.ProjectID)
	if err != nil {
		return nil, err
	}
	membership, err := s.resolver.RoleOf(ctx, nil, project, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewIssues(membership); err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *issueService) ListByProject(ctx context.Context, projectID uuid.UUID, filter IssueListFilter) ([]*types.Issue, error) {
	actorID := requestdata.UserID(ctx)
	project, err := s.loadProject(ctx, nil, projectID)
	if err != nil {
		return nil, err
	}
	membership, err := s.resolver.RoleOf(ctx, nil, project, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewIssues(membership); err != nil {
		return nil, err
	}

	repoFilter := repos.IssueFilter{
		Status:   filter.Status,
		Type:     filter.Type,
		Priority: filter.Priority,
	}
	if name := strings.TrimSpace(filter.AssigneeName); name != "" {
		// A name that matches no users yields an empty listing, not an error.
		matches, err := s.userRepo.SearchByName(ctx, nil, name)
		if err != nil {
			return nil, err
		}
		repoFilter.FilterByAssignee = true
		repoFilter.AssigneeIDs = make([]uuid.UUID, 0, len(matches))
		for _, u := range matches {
			repoFilter.AssigneeIDs = append(repoFilter.AssigneeIDs, u.ID)
		}
	}

	return s.issueRepo.Search(ctx, nil, projectID, repoFilter)
}

func (s *issueService) PartialUpdate(ctx context.Context, issueID uuid.UUID, input IssueUpdateInput) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)

	var updated *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, project, membership, err := s.loadForMutation(ctx, tx, issueID, actorID)
		if err != nil {
			return err
		}
		facts := authz.IssueFacts{
			IsReporter: issue.IsReportedBy(actorID),
			IsAssignee: issue.IsAssignedTo(actorID),
		}
		if err := authz.CanUpdateIssue(membership, facts); err != nil {
			return err
		}

		if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
			issue.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil && strings.TrimSpace(*input.Description) != "" {
			issue.Description = *input.Description
		}
		if input.Type != nil {
			if !input.Type.Valid() {
				return apierr.InvalidInput("unknown issue type %q", string(*input.Type))
			}
			issue.Type = *input.Type
		}
		if input.Priority != nil {
			if !input.Priority.Valid() {
				return apierr.InvalidInput("unknown priority %q", string(*input.Priority))
			}
			issue.Priority = *input.Priority
		}
		if input.AssigneeID != nil {
			if err := s.validateAssignee(ctx, tx, project, *input.AssigneeID); err != nil {
				return err
			}
			issue.AssigneeID = input.AssigneeID
		}
		if input.ParentIssueID != nil {
			parent, err := s.loadParent(ctx, tx, *input.ParentIssueID)
			if err != nil {
				return err
			}
			if parent.ProjectID != issue.ProjectID {
				return apierr.InvalidInput("parent issue belongs to a different project")
			}
			if parent.Type == types.IssueTypeSubtask {
				return apierr.InvalidInput("subtasks cannot have their own subtasks")
			}
			if parent.ID == issue.ID {
				return apierr.InvalidInput("an issue cannot be its own parent")
			}
			issue.ParentIssueID = &parent.ID
		}

		// The type/parent pairing must hold after every update, whichever
		// side the patch touched.
		if issue.Type == types.IssueTypeSubtask && issue.ParentIssueID == nil {
			return apierr.InvalidInput("subtasks must have a parent issue")
		}
		if issue.Type != types.IssueTypeSubtask && issue.ParentIssueID != nil {
			return apierr.InvalidInput("only subtasks can have a parent issue")
		}
		// Retyping an issue that already has children would leave them
		// parented to a subtask, nesting two levels deep.
		if (input.Type != nil || input.ParentIssueID != nil) && issue.Type == types.IssueTypeSubtask {
			children, err := s.issueRepo.GetByParentIDs(ctx, tx, []uuid.UUID{issue.ID})
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return apierr.InvalidInput("issues with subtasks cannot become subtasks")
			}
		}

		updated, err = s.issueRepo.Save(ctx, tx, issue)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *issueService) Delete(ctx context.Context, issueID uuid.UUID) error {
	actorID := requestdata.UserID(ctx)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, _, membership, err := s.loadForMutation(ctx, tx, issueID, actorID)
		if err != nil {
			return err
		}
		facts := authz.IssueFacts{IsReporter: issue.IsReportedBy(actorID)}
		if err := authz.CanDeleteIssue(membership, facts); err != nil {
			return err
		}
		return s.issueRepo.DeleteWithSubtasks(ctx, tx, issue.ID)
	})
}

func (s *issueService) AssignToSelf(ctx context.Context, issueID uuid.UUID) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)

	var updated *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, _, membership, err := s.loadForMutation(ctx, tx, issueID, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanAssignSelf(membership); err != nil {
			return err
		}
		issue.AssigneeID = &actorID
		updated, err = s.issueRepo.Save(ctx, tx, issue)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *issueService) Unassign(ctx context.Context, issueID uuid.UUID) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)

	var updated *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, _, membership, err := s.loadForMutation(ctx, tx, issueID, actorID)
		if err != nil {
			return err
		}
		facts := authz.IssueFacts{
			IsReporter: issue.IsReportedBy(actorID),
			IsAssignee: issue.IsAssignedTo(actorID),
		}
		if err := authz.CanUnassign(membership, facts); err != nil {
			return err
		}
		// Idempotent when already unassigned.
		issue.AssigneeID = nil
		updated, err = s.issueRepo.Save(ctx, tx, issue)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *issueService) ChangeStatus(ctx context.Context, issueID uuid.UUID, newStatus types.IssueStatus) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)
	if newStatus == "" {
		return nil, apierr.InvalidInput("status must not be empty")
	}

	var updated *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, _, membership, err := s.loadForMutation(ctx, tx, issueID, actorID)
		if err != nil {
			return err
		}
		facts := authz.IssueFacts{IsAssignee: issue.IsAssignedTo(actorID)}
		if err := authz.CanChangeStatus(membership, facts); err != nil {
			return err
		}

		subtasks, err := s.issueRepo.GetByParentIDs(ctx, tx, []uuid.UUID{issue.ID})
		if err != nil {
			return err
		}
		if err := workflow.ValidateTransition(issue.Status, newStatus, subtasks); err != nil {
			return err
		}

		issue.Status = newStatus
		updated, err = s.issueRepo.Save(ctx, tx, issue)
		return err
	}); err != nil {
		return nil, err
	}

	s.log.Debug("Issue status changed", "issue_id", issueID, "status", newStatus)
	return updated, nil
}

func (s *issueService) Reopen(ctx context.Context, issueID uuid.UUID) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)

	var updated *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issue, _, membership, err := s.loadForMutation(ctx, tx, issueID, actorID)
		if err != nil {
			return err
		}
		facts := authz.IssueFacts{IsAssignee: issue.IsAssignedTo(actorID)}
		if err := authz.CanChangeStatus(membership, facts); err != nil {
			return err
		}
		if err := workflow.ValidateReopen(issue.Status); err != nil {
			return err
		}
		issue.Status = workflow.ReopenTarget
		updated, err = s.issueRepo.Save(ctx, tx, issue)
		return err
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *issueService) CreateSubtask(ctx context.Context, parentID uuid.UUID, input IssueCreateInput) (*types.Issue, error) {
	actorID := requestdata.UserID(ctx)

	var subtask *types.Issue
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parent, err := s.loadParent(ctx, tx, parentID)
		if err != nil {
			return err
		}
		project, err := s.loadProject(ctx, tx, parent.ProjectID)
		if err != nil {
			return err
		}
		membership, err := s.resolver.RoleOf(ctx, tx, project, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanCreateIssue(membership); err != nil {
			return err
		}
		if parent.Type == types.IssueTypeSubtask {
			return apierr.InvalidInput("subtasks cannot have their own subtasks")
		}
		if strings.TrimSpace(input.Title) == "" {
			return apierr.InvalidInput("title is required")
		}

		subtask = &types.Issue{
			Title:         strings.TrimSpace(input.Title),
			Description:   input.Description,
			Type:          types.IssueTypeSubtask,
			Status:        types.StatusToDo,
			Priority:      types.PriorityMedium,
			ProjectID:     project.ID,
			ReporterID:    actorID,
			ParentIssueID: &parent.ID,
		}
		if input.Status != nil {
			if !input.Status.Valid() {
				return apierr.InvalidInput("unknown status %q", string(*input.Status))
			}
			subtask.Status = *input.Status
		}
		if input.Priority != nil {
			if !input.Priority.Valid() {
				return apierr.InvalidInput("unknown priority %q", string(*input.Priority))
			}
			subtask.Priority = *input.Priority
		}
		if input.AssigneeID != nil {
			if err := s.validateAssignee(ctx, tx, project, *input.AssigneeID); err != nil {
				return err
			}
			subtask.AssigneeID = input.AssigneeID
		}

		_, err = s.issueRepo.Create(ctx, tx, []*types.Issue{subtask})
		return err
	}); err != nil {
		return nil, err
	}

	s.log.Info("Subtask created", "issue_id", subtask.ID, "parent_issue_id", parentID)
	return subtask, nil
}

func (s *issueService) ListSubtasks(ctx context.Context, parentID uuid.UUID) ([]*types.Issue, error) {
	actorID := requestdata.UserID(ctx)
	parent, err := s.loadParent(ctx, nil, parentID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, nil, parent.ProjectID)
	if err != nil {
		return nil, err
	}
	membership, err := s.resolver.RoleOf(ctx, nil, project, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewIssues(membership); err != nil {
		return nil, err
	}
	return s.issueRepo.GetByParentIDs(ctx, nil, []uuid.UUID{parent.ID})
}

// --- helpers ---

func (s *issueService) loadIssue(ctx context.Context, tx *gorm.DB, issueID uuid.UUID) (*types.Issue, error) {
	found, err := s.issueRepo.GetByIDs(ctx, tx, []uuid.UUID{issueID})
	if err != nil {
		return nil, fmt.Errorf("fetching issue: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("issue %s not found", issueID)
	}
	return found[0], nil
}

func (s *issueService) loadParent(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) (*types.Issue, error) {
	found, err := s.issueRepo.GetByIDs(ctx, tx, []uuid.UUID{parentID})
	if err != nil {
		return nil, fmt.Errorf("fetching parent issue: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("parent issue %s not found", parentID)
	}
	return found[0], nil
}

func (s *issueService) loadProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error) {
	found, err := s.projectRepo.GetByIDs(ctx, tx, []uuid.UUID{projectID})
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.NotFound("project %s not found", projectID)
	}
	return found[0], nil
}

func (s *issueService) loadForMutation(ctx context.Context, tx *gorm.DB, issueID, actorID uuid.UUID) (*types.Issue, *types.Project, authz.Membership, error) {
	issue, err := s.loadIssue(ctx, tx, issueID)
	if err != nil {
		return nil, nil, authz.Membership{}, err
	}
	project, err := s.loadProject(ctx, tx, issue.ProjectID)
	if err != nil {
		return nil, nil, authz.Membership{}, err
	}
	membership, err := s.resolver.RoleOf(ctx, tx, project, actorID)
	if err != nil {
		return nil, nil, authz.Membership{}, err
	}
	return issue, project, membership, nil
}

func (s *issueService) validateAssignee(ctx context.Context, tx *gorm.DB, project *types.Project, assigneeID uuid.UUID) error {
	users, err := s.userRepo.GetByIDs(ctx, tx, []uuid.UUID{assigneeID})
	if err != nil {
		return fmt.Errorf("fetching assignee: %w", err)
	}
	if len(users) == 0 {
		return apierr.NotFound("assignee %s not found", assigneeID)
	}
	ok, err := s.resolver.IsMemberOrOwner(ctx, tx, project, assigneeID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.InvalidInput("assignee is not a member of this project")
	}
	return nil
}
