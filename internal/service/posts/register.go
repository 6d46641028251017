package posts

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/devconnect/internal/app"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/response"
	"github.com/oggyb/devconnect/internal/server"
	"github.com/oggyb/devconnect/internal/utils/pagination"
)

// Registrar ties the post service into the HTTP API.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewPostService(appCtx)}
}

// Register attaches /posts routes. Reading is open to anonymous users.
func (r *Registrar) Register(api *gin.RouterGroup, guard *server.Guard) {
	g := api.Group("/posts")
	g.GET("", guard.OptionalAuth(), r.list)
	g.GET("/:id", guard.OptionalAuth(), r.get)
	g.POST("", guard.RequireAuth(), r.create)
	g.PUT("/:id", guard.RequireAuth(), r.update)
	g.DELETE("/:id", guard.RequireAuth(), r.delete)
	g.POST("/:id/like", guard.RequireAuth(), r.like)
}

func (r *Registrar) list(c *gin.Context) {
	id, _ := server.Identity(c)
	out, next, err := r.service.List(c.Request.Context(), id.UserID, server.Cursor(c), pagination.Limit(c.Query("limit")))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"data": out, "nextCursor": next})
}

func (r *Registrar) get(c *gin.Context) {
	postID, err := server.ParamID(c, "id")
	if err != nil {
		response.Fail(c, err)
		return
	}
	id, _ := server.Identity(c)
	p, err := r.service.Get(c.Request.Context(), id.UserID, postID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, p)
}

func (r *Registrar) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}
	id, _ := server.Identity(c)
	p, err := r.service.Create(c.Request.Context(), id.UserID, in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"message": "Post created successfully", "data": p})
}

func (r *Registrar) update(c *gin.Context) {
	postID, err := server.ParamID(c, "id")
	if err != nil {
		response.Fail(c, err)
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}
	id, _ := server.Identity(c)
	p, err := r.service.Update(c.Request.Context(), id.UserID, postID, in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Post updated successfully", "data": p})
}

func (r *Registrar) delete(c *gin.Context) {
	postID, err := server.ParamID(c, "id")
	if err != nil {
		response.Fail(c, err)
		return
	}
	id, _ := server.Identity(c)
	if err := r.service.Delete(c.Request.Context(), id.UserID, postID); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (r *Registrar) like(c *gin.Context) {
	postID, err := server.ParamID(c, "id")
	if err != nil {
		response.Fail(c, err)
		return
	}
	id, _ := server.Identity(c)
	res, err := r.service.ToggleLike(c.Request.Context(), id.UserID, postID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"liked": res.Liked, "likes": res.Likes})
}
