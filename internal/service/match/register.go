package match

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/response"
	"github.com/oggyb/devconnect/internal/server"
	"github.com/oggyb/devconnect/internal/utils/pagination"
)

// Registrar ties the match service into the HTTP API.
type Registrar struct {
	service *Service
}

// NewRegistrar creates a new Registrar for the match service.
func NewRegistrar(appCtx *app.AppContext, notifier Notifier) *Registrar {
	return &Registrar{service: NewMatchService(appCtx, notifier)}
}

// Register attaches the /match routes. Every route requires authentication.
func (r *Registrar) Register(api *gin.RouterGroup, guard *server.Guard) {
	g := api.Group("/match", guard.RequireAuth())
	g.GET("/recommendations", r.recommendations)
	g.POST("", r.decide)
	g.GET("", r.matches)
	g.GET("/pending", r.pending)
	g.GET("/pending/count", r.pendingCount)
}

type decideRequest struct {
	MatchedUserID uint64 `json:"matchedUserId"`
	Status        string `json:"status"`
}

func (r *Registrar) decide(c *gin.Context) {
	id, _ := server.Identity(c)

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}

	res, err := r.service.Decide(c.Request.Context(), id.UserID, req.MatchedUserID, req.Status)
	if err != nil {
		response.Fail(c, err)
		return
	}

	msg := "Preference saved"
	if req.Status == db.StatusAccepted {
		msg = "Match recorded"
	}
	response.OK(c, http.StatusCreated, gin.H{"message": msg, "data": res})
}

func (r *Registrar) recommendations(c *gin.Context) {
	id, _ := server.Identity(c)
	out, err := r.service.Recommend(c.Request.Context(), id.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, out)
}

func (r *Registrar) matches(c *gin.Context) {
	id, _ := server.Identity(c)
	out, err := r.service.Matches(c.Request.Context(), id.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, out)
}

func (r *Registrar) pending(c *gin.Context) {
	id, _ := server.Identity(c)

	out, next, err := r.service.Pending(c.Request.Context(), id.UserID, server.Cursor(c), pagination.Limit(c.Query("limit")))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"data": out, "nextCursor": next})
}

func (r *Registrar) pendingCount(c *gin.Context) {
	id, _ := server.Identity(c)
	n, err := r.service.PendingCount(c.Request.Context(), id.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, gin.H{"count": n})
}
