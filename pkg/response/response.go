package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func envelope(c *gin.Context, status, message string, data gin.H) gin.H {
	body := gin.H{}
	for k, v := range data {
		body[k] = v
	}
	body["status"] = status
	body["message"] = message
	if rid := c.GetString("request_id"); rid != "" {
		body["request_id"] = rid
	}
	return body
}

// Success writes {"status":"success","message":...} with data merged at the top level.
func Success(c *gin.Context, code int, message string, data gin.H) {
	if code == 0 {
		code = http.StatusOK
	}
	c.JSON(code, envelope(c, StatusSuccess, message, data))
}

// Error writes an error envelope. details, when non-nil, is exposed under "errors".
func Error(c *gin.Context, code int, message string, details any) {
	if code == 0 {
		code = http.StatusBadRequest
	}
	c.JSON(code, errorBody(c, message, details))
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, errorBody(c, message, nil))
}

func errorBody(c *gin.Context, message string, details any) gin.H {
	var data gin.H
	if details != nil {
		data = gin.H{"errors": details}
	}
	return envelope(c, StatusError, message, data)
}
