package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/services"
	"github.com/taskflowhq/taskflow-backend/internal/types"
)

type IssueHandler struct {
	log          *logger.Logger
	issueService services.IssueService
}

func NewIssueHandler(log *logger.Logger, issueService services.IssueService) *IssueHandler {
	return &IssueHandler{
		log:          log.With("handler", "IssueHandler"),
		issueService: issueService,
	}
}

func (h *IssueHandler) Create(c *gin.Context) {
	projectID, err := pathUUID(c, "projectId")
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.IssueCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	issue, err := h.issueService.Create(c.Request.Context(), projectID, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, issue)
}

func (h *IssueHandler) Get(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	issue, err := h.issueService.GetByID(c.Request.Context(), issueID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issue)
}

func (h *IssueHandler) ListByProject(c *gin.Context) {
	projectID, err := pathUUID(c, "projectId")
	if err != nil {
		RespondError(c, err)
		return
	}
	filter, err := parseIssueFilter(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	issues, err := h.issueService.ListByProject(c.Request.Context(), projectID, filter)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issues)
}

func parseIssueFilter(c *gin.Context) (services.IssueListFilter, error) {
	var filter services.IssueListFilter
	if raw := c.Query("status"); raw != "" {
		status := types.IssueStatus(raw)
		if !status.Valid() {
			return filter, apierr.InvalidInput("unknown status %q", raw)
		}
		filter.Status = &status
	}
	if raw := c.Query("type"); raw != "" {
		issueType := types.IssueType(raw)
		if !issueType.Valid() {
			return filter, apierr.InvalidInput("unknown issue type %q", raw)
		}
		filter.Type = &issueType
	}
	if raw := c.Query("priority"); raw != "" {
		priority := types.IssuePriority(raw)
		if !priority.Valid() {
			return filter, apierr.InvalidInput("unknown priority %q", raw)
		}
		filter.Priority = &priority
	}
	filter.AssigneeName = c.Query("assignee_name")
	return filter, nil
}

func (h *IssueHandler) Update(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.IssueUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	issue, err := h.issueService.PartialUpdate(c.Request.Context(), issueID, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issue)
}

func (h *IssueHandler) Delete(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.issueService.Delete(c.Request.Context(), issueID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusNoContent, nil)
}

func (h *IssueHandler) AssignToSelf(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	issue, err := h.issueService.AssignToSelf(c.Request.Context(), issueID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issue)
}

func (h *IssueHandler) Unassign(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	issue, err := h.issueService.Unassign(c.Request.Context(), issueID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issue)
}

type changeStatusRequest struct {
	Status types.IssueStatus `json:"status"`
}

func (h *IssueHandler) ChangeStatus(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	issue, err := h.issueService.ChangeStatus(c.Request.Context(), issueID, req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issue)
}

func (h *IssueHandler) Reopen(c *gin.Context) {
	issueID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	issue, err := h.issueService.Reopen(c.Request.Context(), issueID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, issue)
}

func (h *IssueHandler) CreateSubtask(c *gin.Context) {
	parentID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	var input services.IssueCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	subtask, err := h.issueService.CreateSubtask(c.Request.Context(), parentID, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, subtask)
}

func (h *IssueHandler) ListSubtasks(c *gin.Context) {
	parentID, err := pathUUID(c, "issueId")
	if err != nil {
		RespondError(c, err)
		return
	}
	subtasks, err := h.issueService.ListSubtasks(c.Request.Context(), parentID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, subtasks)
}
