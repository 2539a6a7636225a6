package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/vladimiradmaev/chronic-care/internal/errors"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Code   string                 `json:"code"`
	Fields []apperrors.FieldError `json:"fields,omitempty"`
}

func statusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypePermission:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes err as JSON and stops the handler chain
func abortWithError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError(err)
	}
	apperrors.NewHandler(logger.WithContext(ctx)).Handle(ctx, appErr)

	resp := ErrorResponse{Error: appErr.Message, Code: appErr.Code, Fields: appErr.Fields}
	if appErr.Type == apperrors.ErrorTypeInternal || appErr.Type == apperrors.ErrorTypeDatabase {
		resp.Error = apperrors.ErrInternalServer.Message
	}
	c.AbortWithStatusJSON(statusFor(appErr.Type), resp)
}

// badRequest reports a body or path that could not be decoded
func badRequest(c *gin.Context, field string, err error) {
	abortWithError(c, apperrors.NewFieldError(field, err.Error()))
}
