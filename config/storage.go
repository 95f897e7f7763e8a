package config

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveConfig holds the S3 bucket that receives generated weeks.
// An empty bucket disables archiving.
type ArchiveConfig struct {
	Bucket string `env:"S3_ARCHIVE_BUCKET"`
	Region string `env:"AWS_REGION" envDefault:"eu-central-1"`
}

// Enabled reports whether a bucket is configured
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// NewS3Client initializes the S3 client from the default AWS credential chain
func (a ArchiveConfig) NewS3Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}
