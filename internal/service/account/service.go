package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/auth"
	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/views"
)

var validate = validator.New()

// Service handles registration, login and the current-user lookup.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	now      func() time.Time
}

func NewAccountService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		now:      time.Now,
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Username   string   `json:"username"`
	Skills     []string `json:"skills"`
	LookingFor []string `json:"lookingFor"`
}

// Session is what register and login hand back to the client.
type Session struct {
	Token string     `json:"token"`
	User  views.User `json:"user"`
}

// Register creates an account and signs a token for it.
//
// Behavior:
//   - Email, username and password are required; password needs at least
//     auth.MinPasswordLength characters.
//   - Email is stored lowercased. Duplicate email or username is a conflict,
//     also when a concurrent registration wins the unique index.
//   - New accounts get a generated avatar and the light theme.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if email == "" || in.Password == "" || username == "" {
		return nil, svcErr.InvalidArgument("Email, username, and password are required")
	}
	if err := validate.Var(email, "email,max=128"); err != nil {
		return nil, svcErr.InvalidArgument("Invalid email address")
	}
	if err := validate.Var(username, "max=64"); err != nil {
		return nil, svcErr.InvalidArgument("Username is too long")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, svcErr.InvalidArgument("Password must be at least 6 characters")
	}

	existing, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	switch {
	case err == nil:
		if existing.Email == email {
			return nil, svcErr.AlreadyExists("Email already registered")
		}
		return nil, svcErr.AlreadyExists("Username already taken")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, svcErr.Map(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost())
	if err != nil {
		return nil, svcErr.Internal("Server error during registration", err)
	}

	u := &db.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Skills:       in.Skills,
		LookingFor:   in.LookingFor,
		AvatarURL:    db.DefaultAvatarURL(username),
		Theme:        "light",
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if svcErr.IsUniqueViolation(err) {
			return nil, svcErr.AlreadyExists("Email or username already taken")
		}
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("user registered", "user", u.ID, "username", u.Username)
	return s.session(u)
}

// Login checks credentials. Unknown email and wrong password look the same to
// the caller; deactivated accounts are refused after a correct password.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, svcErr.InvalidArgument("Email and password are required")
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Unauthenticated("Invalid credentials")
		}
		return nil, svcErr.Map(err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, svcErr.Unauthenticated("Invalid credentials")
	}
	if !u.Active {
		return nil, svcErr.PermissionDenied("Account is deactivated")
	}

	if err := s.userRepo.TouchLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.appCtx.Logger.Warn("last login update failed", "user", u.ID, "err", err)
	}
	return s.session(u)
}

// Me returns the full profile of the authenticated user.
func (s *Service) Me(ctx context.Context, userID uint64) (*views.User, error) {
	u, err := s.userRepo.GetActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("User not found")
		}
		return nil, svcErr.Map(err)
	}
	v := views.FromUser(u)
	return &v, nil
}

func (s *Service) session(u *db.User) (*Session, error) {
	token, err := s.appCtx.Tokens.Generate(u.ID, u.Email, u.Username)
	if err != nil {
		return nil, svcErr.Internal("Server error", err)
	}
	return &Session{Token: token, User: views.FromUser(u)}, nil
}

func (s *Service) bcryptCost() int {
	if s.appCtx.Config == nil {
		return 0
	}
	return s.appCtx.Config.Auth.BcryptCost
}
