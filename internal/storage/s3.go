package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"claims-portal/internal/domain"
)

type S3Options struct {
	Bucket     string
	KeyPrefix  string
	Region     string
	Endpoint   string
	Profile    string
	PresignTTL time.Duration
	MaxBytes   int64
}

// S3Service uploads claim documents to Amazon S3 (or compatible APIs). Claims
// keep an s3:// reference; Link turns it into a presigned GET URL.
type S3Service struct {
	opts     S3Options
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
}

func NewS3Service(client *s3.Client, opts S3Options) *S3Service {
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	opts.KeyPrefix = strings.Trim(opts.KeyPrefix, "/")
	return &S3Service{
		opts:     opts,
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
	}
}

// NewS3FromConfig loads the default AWS config chain and builds the service.
func NewS3FromConfig(ctx context.Context, opts S3Options) (*S3Service, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(opts.Region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(opts.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Service(client, opts), nil
}

func (s *S3Service) Bucket() string { return s.opts.Bucket }

func (s *S3Service) Put(ctx context.Context, owner string, u Upload) (domain.ClaimFile, error) {
	size := int64(len(u.Data))
	if s.opts.MaxBytes > 0 && size > s.opts.MaxBytes {
		return domain.ClaimFile{}, fmt.Errorf("%s: %w", displayName(u), ErrTooLarge)
	}

	name := displayName(u)
	ct := contentType(u)
	key := s.objectKey(owner, uuid.NewString()+strings.ToLower(path.Ext(name)))

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.opts.Bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(u.Data),
		ContentType:        aws.String(ct),
		ContentDisposition: aws.String(fmt.Sprintf("inline; filename=%q", name)),
		ACL:                types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return domain.ClaimFile{}, fmt.Errorf("upload %s: %w", name, err)
	}

	return domain.ClaimFile{
		Name: name,
		Type: ct,
		Size: size,
		URL:  fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key),
	}, nil
}

func (s *S3Service) Link(ctx context.Context, file domain.ClaimFile) (string, error) {
	key, ok := s.keyFromRef(file.URL)
	if !ok {
		if file.URL != "" {
			return file.URL, nil
		}
		return file.DataURL, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// OwnerPrefix is the key prefix holding every document uploaded by owner.
// An empty owner yields the prefix of all documents.
func (s *S3Service) OwnerPrefix(owner string) string {
	if strings.Trim(owner, "/ ") == "" {
		if s.opts.KeyPrefix == "" {
			return ""
		}
		return s.opts.KeyPrefix + "/"
	}
	return s.objectKey(owner, "")
}

func (s *S3Service) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.opts.Bucket),
	}
	if strings.TrimSpace(prefix) != "" {
		input.Prefix = aws.String(prefix)
	}

	for {
		output, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range output.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified,
			})
		}

		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return objects, nil
}

// DeletePrefix removes every object under prefix and returns how many were deleted.
func (s *S3Service) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return 0, fmt.Errorf("prefix is required")
	}

	objects, err := s.ListObjects(ctx, trimmed)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(objects); start += 1000 {
		end := min(start+1000, len(objects))
		identifiers := make([]types.ObjectIdentifier, 0, end-start)
		for _, obj := range objects[start:end] {
			identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(obj.Key)})
		}
		if _, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.opts.Bucket),
			Delete: &types.Delete{
				Objects: identifiers,
				Quiet:   aws.Bool(true),
			},
		}); err != nil {
			return deleted, fmt.Errorf("delete objects: %w", err)
		}
		deleted += len(identifiers)
	}
	return deleted, nil
}

func (s *S3Service) objectKey(owner, name string) string {
	parts := make([]string, 0, 3)
	if s.opts.KeyPrefix != "" {
		parts = append(parts, s.opts.KeyPrefix)
	}
	parts = append(parts, strings.Trim(owner, "/"))
	key := strings.Join(parts, "/") + "/"
	return key + name
}

func (s *S3Service) keyFromRef(ref string) (string, bool) {
	prefix := "s3://" + s.opts.Bucket + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, prefix)
	return key, key != ""
}

var _ Service = (*S3Service)(nil)
