package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/pkg/response"
)

const internalErrorMessage = "Internal server error"

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(kind application.Kind) int {
	switch kind {
	case application.KindValidation:
		return http.StatusBadRequest
	case application.KindConflict:
		return http.StatusConflict
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindUnauthorized:
		return http.StatusUnauthorized
	case application.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Internal causes never reach the client.
func writeError(c *gin.Context, err error) {
	var ae *application.Error
	if !errors.As(err, &ae) || ae.Kind == application.KindInternal {
		response.Error(c, http.StatusInternalServerError, internalErrorMessage, nil)
		return
	}
	response.Error(c, StatusFor(ae.Kind), ae.Message, nil)
}
