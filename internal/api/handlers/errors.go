package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/bundleapp/internal/config"
	"github.com/jafarshop/bundleapp/pkg/errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   bool        `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: true, Message: message, Code: code, Details: details})
}

// respondError maps a service error to a status and error code. Unknown
// errors become a generic 500; their text is only exposed outside production.
func respondError(c *gin.Context, cfg *config.Config, logger *zap.Logger, err error) {
	var (
		validation *errors.ErrValidation
		limit      *errors.ErrLimitExceeded
		exhausted  *errors.ErrSlotsExhausted
		notFound   *errors.ErrNotFound
		conflict   *errors.ErrConflict
		external   *errors.ErrExternalWrite
		unauth     *errors.ErrUnauthorized
	)
	switch {
	case stderrors.As(err, &validation):
		var details interface{}
		if len(validation.Invalid) > 0 {
			details = gin.H{"invalid": validation.Invalid}
		} else if len(validation.Fields) > 0 {
			details = gin.H{"fields": validation.Fields}
		}
		abortWithError(c, http.StatusBadRequest, errors.CodeValidation, validation.Error(), details)
	case stderrors.As(err, &limit):
		abortWithError(c, http.StatusBadRequest, errors.CodeLimitExceeded, limit.Error(), gin.H{"limit": limit.Limit, "received": limit.Got})
	case stderrors.As(err, &exhausted):
		abortWithError(c, http.StatusBadRequest, errors.CodeLimitExceeded, exhausted.Error(), gin.H{"limit": exhausted.Limit})
	case stderrors.As(err, &notFound):
		abortWithError(c, http.StatusNotFound, errors.CodeNotFound, notFound.Error(), nil)
	case stderrors.As(err, &conflict):
		abortWithError(c, http.StatusConflict, errors.CodeConflict, conflict.Error(), nil)
	case stderrors.As(err, &unauth):
		abortWithError(c, http.StatusUnauthorized, errors.CodeUnauthorized, unauth.Error(), nil)
	case stderrors.As(err, &external):
		var details interface{}
		if len(external.UserErrors) > 0 {
			details = gin.H{"userErrors": external.UserErrors}
		}
		logger.Error("Shopify write failed", zap.String("path", c.FullPath()), zap.Error(err))
		abortWithError(c, http.StatusBadGateway, errors.CodeExternalWrite, external.Error(), details)
	default:
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		var details interface{}
		if !cfg.IsProduction() {
			details = err.Error()
		}
		abortWithError(c, http.StatusInternalServerError, errors.CodeInternal, "internal server error", details)
	}
}

// bindError reports a malformed JSON body as a validation error.
func bindError(c *gin.Context, err error) {
	abortWithError(c, http.StatusBadRequest, errors.CodeValidation, "invalid request body", err.Error())
}
