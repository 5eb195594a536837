package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rohits-web03/chatvault/internal/config"
	"github.com/rs/zerolog/log"
)

// BackupBucket stores conversation backups in Cloudflare R2. Only stored
// envelopes are uploaded, never decrypted content.
type BackupBucket struct {
	client *s3.Client
	bucket string
}

// NewBackupBucket initializes the R2 client using static credentials and custom endpoint.
func NewBackupBucket(cfg config.R2Config) *BackupBucket {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.Info().Str("bucket", cfg.BucketName).Msg("Successfully initialized R2 client")
	return &BackupBucket{client: client, bucket: cfg.BucketName}
}

// BackupKey is the object key for a conversation backup.
func BackupKey(userID, conversationID string) string {
	return fmt.Sprintf("backups/%s/%s.json", userID, conversationID)
}

func (b *BackupBucket) Put(ctx context.Context, key string, body []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

// PresignGet creates a presigned URL for downloading an object.
func (b *BackupBucket) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	presigner := s3.NewPresignClient(b.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Exists checks if a given object key exists in the bucket.
func (b *BackupBucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
