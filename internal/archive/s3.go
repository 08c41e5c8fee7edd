package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	config "github.com/thirdweb-dev/eth-ingest/configs"
	"github.com/thirdweb-dev/eth-ingest/internal/types"
)

// ObjectPutter is the subset of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Uploader(ctx context.Context, cfg *config.S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3UploaderWithClient(client ObjectPutter, bucket string, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Object is one archived file.
type Object struct {
	Kind     string
	Key      string
	Rows     int
	Checksum string
	Size     int64
}

// Upload streams file to key. Metadata is extended with the checksum and size.
func (u *S3Uploader) Upload(ctx context.Context, file *os.File, key string, contentType string, metadata map[string]string) (Object, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("failed to get file info: %w", err)
	}

	checksum, err := calculateFileChecksum(file)
	if err != nil {
		return Object{}, fmt.Errorf("failed to calculate file checksum: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Object{}, fmt.Errorf("failed to seek to beginning of file: %w", err)
	}

	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["checksum"] = checksum
	meta["file_size"] = strconv.FormatInt(fileInfo.Size(), 10)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(fileInfo.Size()),
		ContentType:   aws.String(contentType),
		Metadata:      meta,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	log.Debug().Str("bucket", u.bucket).Str("key", key).Int64("size", fileInfo.Size()).Msg("Uploaded archive object")
	return Object{Key: key, Checksum: checksum, Size: fileInfo.Size()}, nil
}

// GenerateS3Key builds chain_<id>/<kind>_<start>_<end>.<ext> under the configured prefix.
func (u *S3Uploader) GenerateS3Key(chainID uint64, kind string, r types.BlockRange, ext string) string {
	name := fmt.Sprintf("chain_%d/%s_%d_%d.%s", chainID, kind, r.Start, r.End, ext)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// calculateFileChecksum computes SHA256 checksum of the file content
func calculateFileChecksum(file *os.File) (string, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to seek to beginning of file: %w", err)
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to read file for checksum: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
