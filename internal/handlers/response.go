package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskflowhq/taskflow-backend/internal/apierr"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func RespondOK(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func RespondError(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, errorEnvelope{Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Error(),
		}})
		return
	}
	c.JSON(http.StatusInternalServerError, errorEnvelope{Error: errorBody{
		Code:    "internal",
		Message: "internal server error",
	}})
}
