// Package storage issues presigned S3 URLs for profile pictures.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"socialnet/backend/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// KeyPrefix is where profile pictures live in the bucket.
const KeyPrefix = "profile-pics/"

// ProfilePictures presigns uploads and downloads of profile pictures.
type ProfilePictures struct {
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
	now       func() time.Time
}

// NewProfilePictures loads the default AWS credential chain for region.
func NewProfilePictures(ctx context.Context, region, bucket string, ttl time.Duration) (*ProfilePictures, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewProfilePicturesFromConfig(cfg, bucket, ttl), nil
}

// NewProfilePicturesFromConfig builds a ProfilePictures from an existing AWS config.
func NewProfilePicturesFromConfig(cfg aws.Config, bucket string, ttl time.Duration) *ProfilePictures {
	return &ProfilePictures{
		presigner: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:    bucket,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Upload is a presigned PUT and the object key it writes.
type Upload struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// UploadURL presigns a PUT of an image for userID. The key is namespaced by user.
func (p *ProfilePictures) UploadURL(ctx context.Context, userID uuid.UUID, fileName, contentType string) (*Upload, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.New(apperr.InvalidArgument, "Profile picture must be an image")
	}
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, apperr.New(apperr.InvalidArgument, "File name is required")
	}

	now := p.now()
	key := KeyPrefix + userID.String() + "/" + now.UTC().Format("20060102150405") + "-" + name
	request, err := p.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, apperr.Internalf("Failed to presign upload", err)
	}
	return &Upload{URL: request.URL, Key: key, ExpiresAt: now.Add(p.ttl)}, nil
}

// OwnsKey reports whether key was issued to userID by UploadURL.
func OwnsKey(userID uuid.UUID, key string) bool {
	return strings.HasPrefix(key, KeyPrefix+userID.String()+"/")
}

// ReadURL presigns a GET of key.
func (p *ProfilePictures) ReadURL(ctx context.Context, key string) (string, error) {
	request, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", apperr.Internalf("Failed to presign download", err)
	}
	return request.URL, nil
}
