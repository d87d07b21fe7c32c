package asset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"

	"zeptical/pkg/apperr"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config selects the bucket used by the S3 driver. Credentials come from the
// default AWS chain (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY or instance role).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// S3 stores assets as objects keyed images/<category>/<filename>.
type S3 struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3 builds the driver from the default AWS configuration.
func NewS3(ctx context.Context, cfg S3Config, baseURL string) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, apperr.New(apperr.KindAssetStorage, "s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindAssetStorage, "could not load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3WithClient(client, cfg.Bucket, baseURL), nil
}

func newS3WithClient(client *s3.Client, bucket, baseURL string) *S3 {
	return &S3{client: client, bucket: bucket, baseURL: baseURL}
}

func (s *S3) Put(ctx context.Context, cat Category, r io.Reader, ext string) (string, error) {
	if !cat.Valid() {
		return "", invalidCategory(cat)
	}
	// the SDK needs a seekable body to sign the payload
	body, ok := r.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not read the file")
		}
		body = bytes.NewReader(b)
	}
	name := newName(ext)
	key := publicPath(cat, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindAssetStorage, "could not store the file")
	}
	return name, nil
}

func (s *S3) Delete(ctx context.Context, cat Category, urlOrName string) error {
	if !cat.Valid() {
		return invalidCategory(cat)
	}
	name, err := NameFromURL(urlOrName)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicPath(cat, name)),
	})
	var nsk *types.NoSuchKey
	if err != nil && !errors.As(err, &nsk) {
		return apperr.Wrap(err, apperr.KindAssetStorage, "could not delete the file")
	}
	return nil
}

func (s *S3) URL(cat Category, name string) string {
	return buildURL(s.baseURL, cat, name)
}

func (s *S3) List(ctx context.Context, cat Category) ([]string, error) {
	if !cat.Valid() {
		return nil, invalidCategory(cat)
	}
	prefix := publicPath(cat, "")
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var out []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.KindAssetStorage, "could not list assets")
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if path.Dir(key)+"/" != prefix {
				continue
			}
			out = append(out, path.Base(key))
		}
	}
	sort.Strings(out)
	return out, nil
}
