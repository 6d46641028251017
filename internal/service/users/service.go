package users

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/app"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/storage"
	"github.com/oggyb/devconnect/internal/views"
)

// SearchLimit caps the directory search result.
const SearchLimit = 20

var validate = validator.New()

// Service implements profile reads and edits, deactivation, directory search
// and avatar uploads.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	avatars  *storage.AvatarStore
}

// NewUserService creates the service. avatars may be nil when uploads are
// not configured.
func NewUserService(appCtx *app.AppContext, avatars *storage.AvatarStore) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		avatars:  avatars,
	}
}

// ProfileInput carries editable profile fields; nil keeps the stored value.
type ProfileInput struct {
	Username   *string  `json:"username"`
	Bio        *string  `json:"bio"`
	Skills     []string `json:"skills"`
	LookingFor []string `json:"lookingFor"`
	GithubURL  *string  `json:"githubUrl"`
	AvatarURL  *string  `json:"avatarUrl"`
	Theme      *string  `json:"theme"`
}

// Profile returns an active user's profile. The email address is only
// included when viewerID looks at their own profile.
func (s *Service) Profile(ctx context.Context, viewerID, userID uint64) (*views.User, error) {
	u, err := s.userRepo.GetActiveByID(ctx, userID)
	if err != nil {
		return nil, userNotFound(err)
	}
	v := views.PublicUser(u)
	if viewerID == userID {
		v = views.FromUser(u)
	}
	return &v, nil
}

// UpdateProfile edits the caller's own profile.
//
// Behavior:
//   - a changed username must not belong to anyone else (409)
//   - theme is light or dark
//   - githubUrl and avatarUrl must be empty or absolute URLs
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (*views.User, error) {
	u := repository.ProfileUpdate{
		Bio:        in.Bio,
		Skills:     in.Skills,
		LookingFor: in.LookingFor,
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, svcErr.InvalidArgument("Username cannot be empty")
		}
		if err := validate.Var(username, "max=64"); err != nil {
			return nil, svcErr.InvalidArgument("Username is too long")
		}
		taken, err := s.userRepo.UsernameTaken(ctx, username, userID)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if taken {
			return nil, svcErr.AlreadyExists("Username already taken")
		}
		u.Username = &username
	}
	if in.Theme != nil {
		if err := validate.Var(*in.Theme, "oneof=light dark"); err != nil {
			return nil, svcErr.InvalidArgument("Theme must be light or dark")
		}
		u.Theme = in.Theme
	}
	if in.GithubURL != nil {
		if err := validate.Var(*in.GithubURL, "omitempty,url"); err != nil {
			return nil, svcErr.InvalidArgument("Invalid GitHub URL")
		}
		u.GithubURL = in.GithubURL
	}
	if in.AvatarURL != nil {
		if err := validate.Var(*in.AvatarURL, "omitempty,url"); err != nil {
			return nil, svcErr.InvalidArgument("Invalid avatar URL")
		}
		u.AvatarURL = in.AvatarURL
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, u)
	if err != nil {
		if svcErr.IsUniqueViolation(err) {
			return nil, svcErr.AlreadyExists("Username already taken")
		}
		return nil, userNotFound(err)
	}
	v := views.FromUser(user)
	return &v, nil
}

// Deactivate soft-disables the caller's account. Existing tokens stop
// working because the auth middleware re-checks the active flag.
func (s *Service) Deactivate(ctx context.Context, userID uint64) error {
	if err := s.userRepo.Deactivate(ctx, userID); err != nil {
		return userNotFound(err)
	}
	s.appCtx.Logger.Info("user deactivated", "user", userID)
	return nil
}

// Search looks for other active users by free text and skill, both optional.
func (s *Service) Search(ctx context.Context, requesterID uint64, q, skill string) ([]views.Summary, error) {
	found, err := s.userRepo.Search(ctx, requesterID, q, skill, SearchLimit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]views.Summary, 0, len(found))
	for i := range found {
		out = append(out, views.SummaryOf(&found[i]))
	}
	return out, nil
}

// AvatarUploadsEnabled reports whether an object store is configured.
func (s *Service) AvatarUploadsEnabled() bool {
	return s.avatars != nil
}

// AvatarUploadURL presigns an avatar upload for userID.
func (s *Service) AvatarUploadURL(ctx context.Context, userID uint64, contentType string) (*storage.Upload, error) {
	if s.avatars == nil {
		return nil, svcErr.NotFound("Avatar uploads are not enabled")
	}
	return s.avatars.UploadURL(ctx, userID, contentType)
}

func userNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("User not found")
	}
	return svcErr.Map(err)
}
