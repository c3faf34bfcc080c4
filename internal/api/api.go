package api

import (
	"net/http"

	apperrors "support-inbox/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps application error codes onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeValidation, apperrors.ErrCodeMissingContactInfo, apperrors.ErrCodeDecode:
		status = http.StatusBadRequest
	case apperrors.ErrCodeConfiguration:
		status = http.StatusServiceUnavailable
	case apperrors.ErrCodeTransport:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
