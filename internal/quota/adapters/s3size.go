package adapters

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	pquota "github.com/jittakal/quotaenforcer/pkg/quota"
)

// S3StorageEngineConfig mirrors the teacher's storage.S3Config shape,
// trimmed to what a read-only byte-size sampler needs.
type S3StorageEngineConfig struct {
	Bucket       string
	Region       string
	BasePath     string
	Endpoint     string
	UsePathStyle bool
}

// S3StorageEngine reports on-disk byte size per partition by summing the
// sizes of every object under a partition-scoped prefix. Each partition's
// prefix is BasePath/pid={partition}/, matching the Hive-style layout the
// teacher's storage.DefaultRouter already produces for partition data.
type S3StorageEngine struct {
	client   *s3.Client
	bucket   string
	basePath string
}

// NewS3StorageEngine creates an S3-backed storage engine using the default
// AWS credential chain.
func NewS3StorageEngine(ctx context.Context, cfg S3StorageEngineConfig) (*S3StorageEngine, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("adapters: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3StorageEngine{client: client, bucket: cfg.Bucket, basePath: cfg.BasePath}, nil
}

// PartitionSizeBytes pages through every object under the partition's
// prefix and sums their sizes.
func (e *S3StorageEngine) PartitionSizeBytes(partition pquota.PartitionID) (int64, error) {
	prefix := fmt.Sprintf("%s/pid=%d/", e.basePath, partition)

	var total int64
	paginator := s3.NewListObjectsV2Paginator(e.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(e.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			return 0, fmt.Errorf("adapters: listing objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Size != nil {
				total += *obj.Size
			}
		}
	}

	return total, nil
}

var _ pquota.StorageEngine = (*S3StorageEngine)(nil)
