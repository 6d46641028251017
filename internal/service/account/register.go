package account

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/devconnect/internal/app"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/response"
	"github.com/oggyb/devconnect/internal/server"
)

// Registrar ties the account service into the HTTP API.
type Registrar struct {
	service *Service
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{service: NewAccountService(appCtx)}
}

// Register attaches /auth routes. Register and login are public.
func (r *Registrar) Register(api *gin.RouterGroup, guard *server.Guard) {
	g := api.Group("/auth")
	g.POST("/register", r.register)
	g.POST("/login", r.login)
	g.GET("/me", guard.RequireAuth(), r.me)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Registrar) register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}
	sess, err := r.service.Register(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   sess.Token,
		"user":    sess.User,
	})
}

func (r *Registrar) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, svcErr.InvalidArgument("Invalid request body"))
		return
	}
	sess, err := r.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   sess.Token,
		"user":    sess.User,
	})
}

func (r *Registrar) me(c *gin.Context) {
	id, _ := server.Identity(c)
	u, err := r.service.Me(c.Request.Context(), id.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"user": u})
}
