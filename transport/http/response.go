package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
)

// envelope is the uniform response shape: success carries data, failure
// carries error; never both.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Message string         `json:"message"`
	Code    core.ErrorCode `json:"code"`
	Status  int            `json:"status"`
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// respondErr maps any error to the envelope. Untyped errors come out as
// 500 with a generic message so internals never leak to clients.
func respondErr(c *gin.Context, err error) {
	e := core.AsError(err)
	logError(c, e)
	c.JSON(e.Status, envelope{Success: false, Error: &errorBody{
		Message: e.Message,
		Code:    e.Code,
		Status:  e.Status,
	}})
}

func abortErr(c *gin.Context, err error) {
	e := core.AsError(err)
	logError(c, e)
	c.AbortWithStatusJSON(e.Status, envelope{Success: false, Error: &errorBody{
		Message: e.Message,
		Code:    e.Code,
		Status:  e.Status,
	}})
}

// logError records the failure with request context before the envelope is
// written. The cause an internal error retains only surfaces here; clients
// get the generic message.
func logError(c *gin.Context, e *core.Error) {
	log := logctx.From(c.Request.Context())
	attrs := []any{
		"code", string(e.Code),
		"status", e.Status,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if cause := e.Unwrap(); cause != nil {
		log.Error(e.Message, append(attrs, "err", cause)...)
		return
	}
	log.Warn(e.Message, attrs...)
}
