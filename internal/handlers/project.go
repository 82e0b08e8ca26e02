package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/services"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

type ProjectHandler struct {
	log               *logger.Logger
	projectService    services.ProjectService
	invitationService services.InvitationService
}

func NewProjectHandler(
	log *logger.Logger,
	projectService services.ProjectService,
	invitationService services.InvitationService,
) *ProjectHandler {
	return &ProjectHandler{
		log:               log.With("handler", "ProjectHandler"),
		projectService:    projectService,
		invitationService: invitationService,
	}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.InvalidInput("invalid %s", name)
	}
	return id, nil
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var input services.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	project, err := h.projectService.Create(c.Request.Context(), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, project)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, err := pathUUID(c, "projectId")
	if err != nil {
		RespondError(c, err)
		return
	}
	project, err := h.projectService.GetByID(c.Request.Context(), projectID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, project)
}

func (h *ProjectHandler) ListMine(c *gin.Context) {
	projects, err := h.projectService.ListMine(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, projects)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, err := pathUUID(c, "projectId")
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	project, err := h.projectService.PartialUpdate(c.Request.Context(), projectID, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, err := pathUUID(c, "projectId")
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.projectService.Delete(c.Request.Context(), projectID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusNoContent, nil)
}

type inviteRequest struct {
	Identifier string            `json:"identifier"`
	Role       types.ProjectRole `json:"role"`
}

func (h *ProjectHandler) Invite(c *gin.Context) {
	projectID, err := pathUUID(c, "projectId")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	invitation, err := h.invitationService.Invite(c.Request.Context(), projectID, req.Identifier, req.Role)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, invitation)
}

func (h *ProjectHandler) AcceptInvitation(c *gin.Context) {
	invitationID, err := pathUUID(c, "invitationId")
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.invitationService.Accept(c.Request.Context(), invitationID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusNoContent, nil)
}

func (h *ProjectHandler) DeclineInvitation(c *gin.Context) {
	invitationID, err := pathUUID(c, "invitationId")
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.invitationService.Decline(c.Request.Context(), invitationID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusNoContent, nil)
}

func (h *ProjectHandler) ListMyInvitations(c *gin.Context) {
	invitations, err := h.invitationService.ListMyPending(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, invitations)
}
