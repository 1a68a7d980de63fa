// Package handlers implements the HTTP request handlers of the API.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/pkg/errors"
)

// ErrorResponse is the error body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an error to its HTTP status via the error-code registry
// and writes the structured body. Server-side failures are masked.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{
		Code:    string(code),
		Message: err.Error(),
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Detail = appErr.Detail
	}
	if status >= http.StatusInternalServerError {
		resp.Message = "internal server error"
		resp.Detail = ""
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// respondBindError reports a malformed or invalid request body.
func respondBindError(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.CodeInvalidParam, "invalid request body"))
}

// uuidParam parses a UUID path parameter.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, errors.Newf(errors.CodeInvalidParam, "path parameter %q must be a UUID", name))
		return uuid.Nil, false
	}
	return id, true
}
