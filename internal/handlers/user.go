package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
	"github.com/taskflowhq/taskflow-backend/internal/logger"
	"github.com/taskflowhq/taskflow-backend/internal/services"
)

type UserHandler struct {
	log         *logger.Logger
	userService services.UserService
}

func NewUserHandler(log *logger.Logger, userService services.UserService) *UserHandler {
	return &UserHandler{
		log:         log.With("handler", "UserHandler"),
		userService: userService,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetMe(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, toUserView(user))
}

type updateNameRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *UserHandler) UpdateName(c *gin.Context) {
	var req updateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	user, err := h.userService.UpdateName(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, toUserView(user))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidInput("invalid request body"))
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusNoContent, nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		RespondError(c, apierr.InvalidInput("name query parameter is required"))
		return
	}
	users, err := h.userService.SearchByName(c.Request.Context(), name)
	if err != nil {
		RespondError(c, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	RespondOK(c, http.StatusOK, views)
}
