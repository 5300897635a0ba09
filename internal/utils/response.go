package utils

import (
	"net/http"
	"strconv"
	"time"

	"confessly/internal/apperrors"
	"confessly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries the failure class and a caller-safe message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse sends a successful response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// CreatedResponse sends a successful creation response
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// SuccessResponseWithMessage sends a successful response with message
func SuccessResponseWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// ErrorResponse maps a domain error onto the envelope. Rate-limit
// denials additionally carry a Retry-After header in whole seconds,
// rounded up.
func ErrorResponse(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)

	if code == apperrors.CodeInternal {
		logger.LogError(err, "Unhandled error in request", map[string]interface{}{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		})
	}

	if retryAfter := apperrors.RetryAfterOf(err); retryAfter > 0 {
		seconds := int64((retryAfter + time.Second - 1) / time.Second)
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
	}

	c.JSON(statusForCode(code), APIResponse{
		Success: false,
		Error: &APIError{
			Code:    string(code),
			Message: apperrors.UserMessage(err),
		},
		Timestamp: time.Now(),
	})
}

// BadRequestResponse reports a malformed request body or parameter.
func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, apperrors.Validation("%s", message))
}

// UnauthorizedResponse sends an unauthorized response
func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	c.JSON(http.StatusUnauthorized, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    "UNAUTHORIZED",
			Message: message,
		},
		Timestamp: time.Now(),
	})
}

func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeMalformedCursor, apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
