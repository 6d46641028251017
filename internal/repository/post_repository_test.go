package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/devconnect/internal/db"
	"github.com/oggyb/devconnect/internal/repository"
	"github.com/oggyb/devconnect/internal/testutil"
)

func newPost(t *testing.T, repo *repository.PostRepository, userID uint64, title string) *db.Post {
	t.Helper()
	p := &db.Post{UserID: userID, Title: title, Content: "body", Tags: []string{"go", "go", "sql"}}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPostCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPostRepository(testutil.NewSeededDB(t))

	p := newPost(t, repo, 1, "hello")
	assert.Equal(t, "user1", p.User.Username)
	assert.Equal(t, []string{"go", "sql"}, []string(p.Tags))
	assert.True(t, p.IsActive)

	got, err := repo.GetActive(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, "user1", got.User.Username)
}

func TestPostUpdate_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPostRepository(testutil.NewSeededDB(t))
	p := newPost(t, repo, 1, "hello")

	title := "edited"
	_, err := repo.Update(ctx, p.ID, 2, repository.PostUpdate{Title: &title})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	updated, err := repo.Update(ctx, p.ID, 1, repository.PostUpdate{Title: &title, Tags: []string{"rust"}})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.Equal(t, []string{"rust"}, []string(updated.Tags))
	assert.Equal(t, uint64(1), updated.UserID)
}

func TestPostSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPostRepository(testutil.NewSeededDB(t))
	p := newPost(t, repo, 1, "hello")

	assert.ErrorIs(t, repo.SoftDelete(ctx, p.ID, 2), gorm.ErrRecordNotFound)
	require.NoError(t, repo.SoftDelete(ctx, p.ID, 1))

	_, err := repo.GetActive(ctx, p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	posts, _, err := repo.List(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostList_Pagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPostRepository(testutil.NewSeededDB(t))
	for _, title := range []string{"one", "two", "three"} {
		newPost(t, repo, 2, title)
	}

	first, next, err := repo.List(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, next)
	assert.Equal(t, "three", first[0].Title)
	assert.Equal(t, "user2", first[0].User.Username)

	rest, next, err := repo.List(ctx, next, 2)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, rest, 1)
	assert.Equal(t, "one", rest[0].Title)
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewPostRepository(testutil.NewSeededDB(t))
	p := newPost(t, repo, 1, "hello")

	liked, likes, err := repo.ToggleLike(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), likes)

	liked, likes, err = repo.ToggleLike(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(2), likes)

	liked, likes, err = repo.ToggleLike(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(1), likes)

	likedBy, err := repo.LikedBy(ctx, 3, []uint64{p.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{p.ID: true}, likedBy)

	_, _, err = repo.ToggleLike(ctx, 999, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestToggleLike_CounterNeverNegative(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewSeededDB(t)
	repo := repository.NewPostRepository(dbase)
	p := newPost(t, repo, 1, "hello")

	// a like row without the matching counter bump
	require.NoError(t, dbase.Create(&db.PostLike{PostID: p.ID, UserID: 2}).Error)

	liked, likes, err := repo.ToggleLike(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Zero(t, likes)
}
