// Package storage hands out presigned S3 upload URLs for profile pictures.
// The API never proxies image bytes; browsers PUT straight to the bucket and
// then save the public URL on their profile.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/oggyb/devconnect/internal/config"
	svcErr "github.com/oggyb/devconnect/internal/errors"
)

const defaultPresignTTL = 5 * time.Minute

// avatarTypes maps accepted content types to object key extensions.
var avatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload is what a client needs to send one avatar to the bucket.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AvatarStore struct {
	presign *s3.PresignClient
	bucket  string
	region  string
	ttl     time.Duration
}

// NewAvatarStore builds a store from cfg.S3. It returns nil, nil when no
// bucket is configured so callers can leave uploads switched off.
//
// Credentials come from the default AWS chain unless opts override them.
func NewAvatarStore(ctx context.Context, cfg *config.Config, opts ...func(*awsconfig.LoadOptions) error) (*AvatarStore, error) {
	if strings.TrimSpace(cfg.S3.Bucket) == "" {
		return nil, nil
	}

	region := cfg.S3.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, append([]func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	ttl := cfg.S3.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &AvatarStore{
		presign: s3.NewPresignClient(s3.NewFromConfig(awsCfg)),
		bucket:  cfg.S3.Bucket,
		region:  region,
		ttl:     ttl,
	}, nil
}

// UploadURL presigns a PUT for a new avatar object owned by userID.
//
// Behavior:
//   - contentType must be one of the image types in avatarTypes
//   - every call yields a fresh object key, so old avatars are never overwritten
//
// Example key: avatars/42/6f1c...e2.png
func (s *AvatarStore) UploadURL(ctx context.Context, userID uint64, contentType string) (*Upload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, svcErr.InvalidArgument("Unsupported image type")
	}

	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, svcErr.Internal("Failed to create upload URL", err)
	}

	return &Upload{
		UploadURL: req.URL,
		Key:       key,
		PublicURL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}, nil
}
