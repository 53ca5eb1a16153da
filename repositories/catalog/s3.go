package catalog

import (
	"context"
	"fmt"
	"io"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/upb/procurement-agent/config"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/repositories/codec"
)

// ObjectGetter is the subset of the S3 client used by the catalog
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Catalog reads the vendor list from a single object in an S3-compatible bucket
type S3Catalog struct {
	client ObjectGetter
	bucket string
	key    string
	format codec.Format
}

// NewS3Catalog builds an S3 client from the default credential chain.
// Endpoint and path-style addressing allow MinIO and other S3-compatible stores.
func NewS3Catalog(ctx context.Context, cfg config.S3Config) (*S3Catalog, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3CatalogWithClient(client, cfg.Bucket, cfg.Key)
}

// NewS3CatalogWithClient wires an existing client. The encoding follows the key extension.
func NewS3CatalogWithClient(client ObjectGetter, bucket, key string) (*S3Catalog, error) {
	format, err := codec.FromPath(key)
	if err != nil {
		return nil, err
	}
	return &S3Catalog{client: client, bucket: bucket, key: key, format: format}, nil
}

var _ repositories.VendorCatalog = (*S3Catalog)(nil)

// Load fetches and decodes the catalog object
func (c *S3Catalog) Load(ctx context.Context) ([]models.Vendor, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get vendor catalog s3://%s/%s: %w", c.bucket, c.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read vendor catalog body: %w", err)
	}
	return decode(c.format, data)
}
