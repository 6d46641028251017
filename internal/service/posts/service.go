package posts

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/app"
	"github.com/oggyb/devconnect/internal/db"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/utils/pagination"
	"github.com/oggyb/devconnect/internal/views"
)

// MaxTitleLength is the longest accepted post title, in characters.
const MaxTitleLength = 200

// Service implements the post feed, post CRUD and likes.
type Service struct {
	appCtx   *app.AppContext
	postRepo *repository.PostRepository
}

func NewPostService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx, postRepo: repository.NewPostRepository(appCtx.DB)}
}

// Input carries post fields. On update nil pointers keep the stored value.
type Input struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// List returns the active feed, newest first. viewerID may be 0 for anonymous
// readers; otherwise likedByMe is filled in.
func (s *Service) List(ctx context.Context, viewerID uint64, paginationToken *string, limit int) ([]views.Post, *string, error) {
	posts, next, err := s.postRepo.List(ctx, paginationToken, limit)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidToken) {
			return nil, nil, svcErr.InvalidArgument("invalid pagination token")
		}
		return nil, nil, svcErr.Map(err)
	}

	ids := make([]uint64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := s.postRepo.LikedBy(ctx, viewerID, ids)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	out := make([]views.Post, 0, len(posts))
	for i := range posts {
		out = append(out, views.FromPost(&posts[i], liked[posts[i].ID]))
	}
	return out, next, nil
}

// Get returns one active post.
func (s *Service) Get(ctx context.Context, viewerID, id uint64) (*views.Post, error) {
	p, err := s.postRepo.GetActive(ctx, id)
	if err != nil {
		return nil, notFound(err, "Post not found")
	}
	liked, err := s.postRepo.LikedBy(ctx, viewerID, []uint64{id})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	v := views.FromPost(p, liked[id])
	return &v, nil
}

// Create publishes a post by ownerID. Title and content are required.
func (s *Service) Create(ctx context.Context, ownerID uint64, in Input) (*views.Post, error) {
	title, content := trimmed(in.Title), trimmed(in.Content)
	if title == "" || content == "" {
		return nil, svcErr.InvalidArgument("Title and content are required")
	}
	if err := checkTitle(title); err != nil {
		return nil, err
	}

	p := &db.Post{UserID: ownerID, Title: title, Content: content, Tags: in.Tags}
	if err := s.postRepo.Create(ctx, p); err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.Debug("post created", "post", p.ID, "user", ownerID)

	v := views.FromPost(p, false)
	return &v, nil
}

// Update edits an owned, active post. Foreign and deleted posts are reported
// as not found.
func (s *Service) Update(ctx context.Context, ownerID, id uint64, in Input) (*views.Post, error) {
	u := repository.PostUpdate{Tags: in.Tags}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, svcErr.InvalidArgument("Title cannot be empty")
		}
		if err := checkTitle(title); err != nil {
			return nil, err
		}
		u.Title = &title
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if content == "" {
			return nil, svcErr.InvalidArgument("Content cannot be empty")
		}
		u.Content = &content
	}

	p, err := s.postRepo.Update(ctx, id, ownerID, u)
	if err != nil {
		return nil, notFound(err, "Post not found or unauthorized")
	}
	liked, err := s.postRepo.LikedBy(ctx, ownerID, []uint64{id})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	v := views.FromPost(p, liked[id])
	return &v, nil
}

// Delete soft-deletes an owned post.
func (s *Service) Delete(ctx context.Context, ownerID, id uint64) error {
	if err := s.postRepo.SoftDelete(ctx, id, ownerID); err != nil {
		return notFound(err, "Post not found or unauthorized")
	}
	return nil
}

// ToggleLike likes or unlikes a post for userID. Two toggles in a row leave
// the count where it started.
func (s *Service) ToggleLike(ctx context.Context, userID, postID uint64) (*LikeResult, error) {
	liked, likes, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, notFound(err, "Post not found")
	}
	return &LikeResult{Liked: liked, Likes: likes}, nil
}

func checkTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return svcErr.InvalidArgument("Title too long (max 200 characters)")
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound(msg)
	}
	return svcErr.Map(err)
}
