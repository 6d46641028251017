package storage_test

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devconnect/internal/config"
	svcErr "github.com/oggyb/devconnect/internal/errors"
	"github.com/oggyb/devconnect/internal/storage"
)

func newStore(t *testing.T, bucket string) *storage.AvatarStore {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))

	cfg := &config.Config{}
	cfg.S3.Bucket = bucket
	cfg.S3.Region = "eu-west-1"
	cfg.S3.PresignTTL = 2 * time.Minute

	store, err := storage.NewAvatarStore(context.Background(), cfg,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIDTEST", "secret", "")),
	)
	require.NoError(t, err)
	return store
}

func TestNewAvatarStoreDisabledWithoutBucket(t *testing.T) {
	store := newStore(t, "")
	assert.Nil(t, store)
}

func TestUploadURL(t *testing.T) {
	store := newStore(t, "devconnect-avatars")
	require.NotNil(t, store)

	up, err := store.UploadURL(context.Background(), 42, "Image/PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.Key, "avatars/42/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "https://devconnect-avatars.s3.eu-west-1.amazonaws.com/"+up.Key, up.PublicURL)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), up.ExpiresAt, 5*time.Second)

	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Contains(t, u.Host, "devconnect-avatars")
	assert.Equal(t, "/"+up.Key, u.Path)
	q := u.Query()
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
	assert.Equal(t, "120", q.Get("X-Amz-Expires"))
	assert.Contains(t, q.Get("X-Amz-Credential"), "AKIDTEST")

	again, err := store.UploadURL(context.Background(), 42, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, up.Key, again.Key)
}

func TestUploadURLRejectsNonImages(t *testing.T) {
	store := newStore(t, "devconnect-avatars")

	_, err := store.UploadURL(context.Background(), 1, "application/pdf")
	require.Error(t, err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}
