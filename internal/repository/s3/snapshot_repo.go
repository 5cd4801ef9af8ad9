package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appConfig "github.com/investigate/case-graph/internal/config"
	"github.com/investigate/case-graph/internal/domain"
)

// SnapshotRepository archives signed call network snapshots
type SnapshotRepository struct {
	client *s3.Client
	bucket string
}

// NewSnapshotRepository creates a new S3 snapshot repository
func NewSnapshotRepository(ctx context.Context, cfg appConfig.S3Config) (*SnapshotRepository, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and Localstack
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &SnapshotRepository{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// SnapshotKey is the object key of a generation: cases/{case}/networks/{yyyy}/{mm}/{dd}/{generation}.json
func SnapshotKey(s domain.NetworkSnapshot) string {
	t := s.GeneratedAt.UTC()
	return fmt.Sprintf("cases/%d/networks/%d/%02d/%02d/%s.json",
		s.CaseID, t.Year(), t.Month(), t.Day(), s.GenerationID)
}

// ArchiveSnapshot uploads the snapshot as JSON. Digest and signature are duplicated into
// object metadata so custody can be checked without downloading the body.
func (r *SnapshotRepository) ArchiveSnapshot(ctx context.Context, snapshot domain.NetworkSnapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := SnapshotKey(snapshot)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"generation-id": snapshot.GenerationID.String(),
			"digest":        snapshot.Digest,
			"signature":     snapshot.Signature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot to s3: %w", err)
	}

	return key, nil
}

// ListSnapshots returns the archived snapshot keys of a case, oldest first
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, caseID int64) ([]string, error) {
	prefix := fmt.Sprintf("cases/%d/networks/", caseID)
	keys := []string{}

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}
