package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/models"
)

// respondError writes err as a failed ActionResponse. Internal details never
// reach the client; system errors are attached to the context for RequestLogger.
func respondError(c *gin.Context, err error) {
	catErr := apperrors.Categorize(err)
	if apperrors.IsSystemError(catErr) {
		_ = c.Error(err)
	}
	c.JSON(catErr.StatusCode, models.ActionResponse{
		Success: false,
		Error:   catErr.PublicMessage(),
		Code:    catErr.Code,
	})
}

// abortWithError is respondError for middleware
func abortWithError(c *gin.Context, err error) {
	respondError(c, err)
	c.Abort()
}

// respondOK writes a bare success ActionResponse
func respondOK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, models.ActionResponse{Success: true, Message: message})
}

// bindJSON binds the request body, answering with a validation error on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperrors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}
