package server

import (
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/devconnect/internal/errors"
)

// ParamID parses a positive numeric path parameter.
func ParamID(c *gin.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument("Invalid " + name)
	}
	return id, nil
}

// Cursor returns the "cursor" query parameter, nil when absent.
func Cursor(c *gin.Context) *string {
	if raw := c.Query("cursor"); raw != "" {
		return &raw
	}
	return nil
}
