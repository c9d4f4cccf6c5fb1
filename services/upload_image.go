package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/devduo/studio-backend/errs"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AllowedImageTypes maps accepted content types to the extension used for the object key
var AllowedImageTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/webp":    ".webp",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
}

// ObjectPutter is the part of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ImageUploader stores project images in S3 and returns their public URL
type ImageUploader struct {
	client        ObjectPutter
	bucket        string
	publicBaseURL string
}

// NewImageUploader loads the default AWS credentials chain for region
func NewImageUploader(ctx context.Context, region, bucket, publicBaseURL string) (*ImageUploader, error) {
	if bucket == "" {
		return nil, errs.NewEnvironmentVariableError("S3_BUCKET")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.NewConfigError("aws", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, awsCfg.Region)
	}
	return NewImageUploaderWith(s3.NewFromConfig(awsCfg), bucket, publicBaseURL), nil
}

func NewImageUploaderWith(client ObjectPutter, bucket, publicBaseURL string) *ImageUploader {
	return &ImageUploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Upload writes body under projects/<uuid><ext> and returns the public URL
func (u *ImageUploader) Upload(ctx context.Context, contentType string, body io.Reader, size int64) (string, error) {
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		allowed := make([]string, 0, len(AllowedImageTypes))
		for t := range AllowedImageTypes {
			allowed = append(allowed, t)
		}
		return "", errs.NewUnsupportedMediaTypeError(contentType, allowed)
	}

	key := path.Join("projects", uuid.NewString()+ext)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", errs.NewServiceUnreachableError("s3", err)
	}

	log.Info().Str("bucket", u.bucket).Str("key", key).Msg("Uploaded project image")
	return u.publicBaseURL + "/" + key, nil
}
