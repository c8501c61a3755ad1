package dto

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应
// Errors that are not AppErrors are reported as internal_error without leaking their text.
func ErrorResponse(err error, traceID string) *APIResponse {
	appErr := errors.AsAppError(err)
	if appErr == nil {
		appErr = errors.ErrInternalServer
	}
	return &APIResponse{
		Success: false,
		Error: &ErrorDTO{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// SendSuccess writes a success envelope.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data, c.GetString(constants.ContextKeyTraceID)))
}

// SendError writes an error envelope with the status carried by err.
func SendError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorResponse(err, c.GetString(constants.ContextKeyTraceID)))
}

// AbortWithError writes an error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	SendError(c, err)
	c.Abort()
}

// BindingError converts a gin binding failure into ErrInvalidRequest with one
// detail per offending field.
func BindingError(err error) *errors.AppError {
	appErr := errors.ErrInvalidRequest.WithError(err)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr.WithDetail("body", "malformed request body")
	}
	for _, fe := range verrs {
		appErr = appErr.WithDetail(fieldName(fe), validationMessage(fe))
	}
	return appErr
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case TagNonDisposableEmail:
		return "disposable email addresses are not allowed"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
