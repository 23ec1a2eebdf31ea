// utils/s3.go
package utils

import (
	"context"
	"fmt"
	"time"

	"sk8-backend/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

var s3Client *s3.Client
var presignClient *s3.PresignClient
var s3Bucket string
var s3Region string
var s3EndpointURL string

// InitS3 configures the S3 client used for clip storage. Supports
// S3-compatible endpoints (R2, minio) via S3_ENDPOINT_URL with path-style
// addressing.
func InitS3(cfg config.Config) error {
	s3Bucket = cfg.S3Bucket
	s3Region = cfg.S3Region
	s3EndpointURL = cfg.S3EndpointURL

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID, cfg.AWSSecretKey, "",
		)),
	)
	if err != nil {
		return fmt.Errorf("failed to load S3 config: %w", err)
	}

	s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
			o.UsePathStyle = true
		}
	})
	presignClient = s3.NewPresignClient(s3Client)
	return nil
}

// ClipKey builds the object key for a clip. The trick name is slugged into
// the key so bucket listings stay human-readable.
func ClipKey(clipID, trickName string) string {
	if trickName == "" {
		return fmt.Sprintf("clips/%s.mp4", clipID)
	}
	return fmt.Sprintf("clips/%s-%s.mp4", slug.Make(trickName), clipID)
}

// GenerateClipUploadURL returns a time-limited presigned PUT URL. The client
// uploads the video directly to S3 with it.
func GenerateClipUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String("video/mp4"),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return req.URL, nil
}

// ClipPlaybackURL returns the retrievable URL for a stored clip.
func ClipPlaybackURL(key string) string {
	if s3EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", s3EndpointURL, s3Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s3Bucket, s3Region, key)
}

// DeleteClipObject removes a clip's video from S3.
func DeleteClipObject(ctx context.Context, key string) error {
	_, err := s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete clip object %s: %w", key, err)
	}
	return nil
}
