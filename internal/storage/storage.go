// Package storage keeps product images in an S3 bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"storefront/internal/apperror"
)

const (
	maxWidth    = 800
	maxHeight   = 600
	jpegQuality = 80
	keyPrefix   = "products/"
)

var ErrDisabled = errors.New("object storage is not configured")

// ImageStore is what the catalog needs from object storage.
type ImageStore interface {
	Upload(ctx context.Context, image io.Reader) (string, error)
	Delete(ctx context.Context, imageURL string) error
	Owns(imageURL string) bool
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	api    objectAPI
	bucket string
	region string
	host   string
}

// NewS3Store loads AWS credentials from the default chain (environment,
// shared config, instance role).
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return newS3Store(s3.NewFromConfig(cfg), bucket, region), nil
}

func newS3Store(api objectAPI, bucket, region string) *S3Store {
	return &S3Store{
		api:    api,
		bucket: bucket,
		region: region,
		host:   fmt.Sprintf("%s.s3.%s.amazonaws.com", bucket, region),
	}
}

// Upload resizes the image and stores it as JPEG under a fresh key.
func (s *S3Store) Upload(ctx context.Context, image io.Reader) (string, error) {
	data, err := PrepareImage(image)
	if err != nil {
		return "", err
	}

	key := keyPrefix + uuid.NewString() + ".jpg"
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		log.Printf("[UPLOAD] [ERROR] put %s failed: %v", key, err)
		return "", apperror.Infrastructure(err, "image storage unavailable, please retry")
	}

	log.Printf("[UPLOAD] [INFO] stored %s (%d bytes)", key, len(data))
	return s.URL(key), nil
}

func (s *S3Store) URL(key string) string {
	return "https://" + s.host + "/" + key
}

// Owns reports whether imageURL points into this bucket.
func (s *S3Store) Owns(imageURL string) bool {
	_, ok := s.keyOf(imageURL)
	return ok
}

func (s *S3Store) keyOf(imageURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || u.Scheme != "https" || !strings.EqualFold(u.Host, s.host) {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", false
	}
	return key, true
}

// Delete removes the object behind imageURL. URLs outside the bucket are
// refused rather than ignored.
func (s *S3Store) Delete(ctx context.Context, imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return nil
	}
	key, ok := s.keyOf(imageURL)
	if !ok {
		return fmt.Errorf("refusing to delete object outside bucket: %s", imageURL)
	}
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return errors.Wrapf(err, "delete %s", key)
	}
	log.Printf("[UPLOAD] [INFO] deleted %s", key)
	return nil
}

// Disabled is used when no bucket is configured. It stores nothing and owns
// no URL.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader) (string, error) {
	return "", apperror.Infrastructure(ErrDisabled, "image uploads are not available")
}

func (Disabled) Delete(context.Context, string) error { return nil }

func (Disabled) Owns(string) bool { return false }

// PrepareImage decodes an uploaded image, scales it down to fit 800x600 and
// re-encodes it as JPEG.
func PrepareImage(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "image could not be decoded")
	}

	resized := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}
