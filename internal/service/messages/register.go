package messages

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/devconnect/internal/app"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/response"
	"github.com/oggyb/devconnect/internal/server"
)

// Registrar ties the message service into the HTTP API.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext, chat Chat) *Registrar {
	return &Registrar{service: NewMessageService(appCtx, chat)}
}

// Register attaches /messages and /conversations. Every route requires
// authentication.
func (r *Registrar) Register(api *gin.RouterGroup, guard *server.Guard) {
	g := api.Group("/messages", guard.RequireAuth())
	g.GET("/:userId", r.history)
	g.POST("", r.send)
	g.PUT("/:userId/read", r.markRead)

	api.GET("/conversations", guard.RequireAuth(), r.conversations)
}

type sendRequest struct {
	ReceiverID uint64 `json:"receiverId"`
	Content    string `json:"content"`
}

func (r *Registrar) history(c *gin.Context) {
	other, err := server.ParamID(c, "userId")
	if err != nil {
		response.Fail(c, err)
		return
	}
	id, _ := server.Identity(c)
	out, err := r.service.History(c.Request.Context(), id.UserID, other)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, out)
}

func (r *Registrar) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}
	id, _ := server.Identity(c)
	msg, err := r.service.Send(c.Request.Context(), id, req.ReceiverID, req.Content)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"data": msg})
}

func (r *Registrar) markRead(c *gin.Context) {
	other, err := server.ParamID(c, "userId")
	if err != nil {
		response.Fail(c, err)
		return
	}
	id, _ := server.Identity(c)
	n, err := r.service.MarkRead(c.Request.Context(), id.UserID, other)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"count": n})
}

func (r *Registrar) conversations(c *gin.Context) {
	id, _ := server.Identity(c)
	out, err := r.service.Conversations(c.Request.Context(), id.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Data(c, out)
}
