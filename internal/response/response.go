// Package response writes the JSON envelopes shared by every handler:
// {"success": true, ...} on success and {"success": false, "message", "code"}
// on failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/logger"
)

// OK writes a success envelope with the given top-level fields.
func OK(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// Data writes {"success": true, "data": data}.
func Data(c *gin.Context, data any) {
	OK(c, http.StatusOK, gin.H{"data": data})
}

// Fail maps err onto its HTTP status and aborts the chain. Internal details are
// only exposed in gin debug mode.
func Fail(c *gin.Context, err error) {
	err = svcErr.Map(err)
	kind := svcErr.KindOf(err)

	body := gin.H{
		"success": false,
		"message": svcErr.Message(err),
		"code":    kind.Code(),
	}
	if kind == svcErr.KindInternal {
		logger.FromContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(), "err", err)
		if gin.IsDebugging() {
			body["error"] = err.Error()
		}
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), body)
}
