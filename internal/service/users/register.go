package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/devconnect/internal/app"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/response"
	"github.com/oggyb/devconnect/internal/server"
	"github.com/oggyb/devconnect/internal/storage"
)

// Registrar ties the user service into the HTTP API.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext, avatars *storage.AvatarStore) *Registrar {
	return &Registrar{service: NewUserService(appCtx, avatars)}
}

// Register attaches /users routes. The avatar upload route only exists when
// an object store is configured.
func (r *Registrar) Register(api *gin.RouterGroup, guard *server.Guard) {
	g := api.Group("/users", guard.RequireAuth())
	g.GET("/profile", r.profile)
	g.GET("/profile/:userId", r.profile)
	g.PUT("/profile", r.updateProfile)
	g.DELETE("/profile", r.deactivate)
	g.GET("/search", r.search)
	if r.service.AvatarUploadsEnabled() {
		g.POST("/avatar/upload-url", r.avatarUploadURL)
	}
}

type uploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

func (r *Registrar) profile(c *gin.Context) {
	id, _ := server.Identity(c)
	target := id.UserID
	if c.Param("userId") != "" {
		var err error
		if target, err = server.ParamID(c, "userId"); err != nil {
			response.Fail(c, err)
			return
		}
	}
	u, err := r.service.Profile(c.Request.Context(), id.UserID, target)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, u)
}

func (r *Registrar) updateProfile(c *gin.Context) {
	var in ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}
	id, _ := server.Identity(c)
	u, err := r.service.UpdateProfile(c.Request.Context(), id.UserID, in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Profile updated successfully", "data": u})
}

func (r *Registrar) deactivate(c *gin.Context) {
	id, _ := server.Identity(c)
	if err := r.service.Deactivate(c.Request.Context(), id.UserID); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Account deactivated"})
}

func (r *Registrar) search(c *gin.Context) {
	id, _ := server.Identity(c)
	out, err := r.service.Search(c.Request.Context(), id.UserID, c.Query("q"), c.Query("skill"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, out)
}

func (r *Registrar) avatarUploadURL(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Content type is required"))
		return
	}
	id, _ := server.Identity(c)
	up, err := r.service.AvatarUploadURL(c.Request.Context(), id.UserID, req.ContentType)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, up)
}
