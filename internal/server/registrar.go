package server

import "github.com/gin-gonic/gin"

// Registrar is a common interface for all HTTP service registrars. Each one
// mounts its routes under the shared /api group.
type Registrar interface {
	Register(api *gin.RouterGroup, guard *Guard)
}
