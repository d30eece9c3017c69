package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
}

// S3Log writes delivery records to an S3-compatible bucket (R2 in
// production).
type S3Log struct {
	client *s3.Client
	bucket string
}

func NewS3Log(cfg S3Config) (*S3Log, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Log{client: client, bucket: cfg.Bucket}, nil
}

func (l *S3Log) AppendDelivery(ctx context.Context, rec DeliveryRecord) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode delivery record: %w", err)
	}

	key := deliveryKey(rec)
	_, err = l.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(l.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put delivery record: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", l.bucket, key), nil
}

// deliveryKey partitions objects by delivery date; the unix-nanos suffix
// keeps redelivered reminders (at-least-once) from overwriting each other.
func deliveryKey(rec DeliveryRecord) string {
	return fmt.Sprintf("deliveries/%s/reminder-%d-%d.json",
		rec.DeliveredAt.UTC().Format("2006/01/02"),
		rec.ReminderID,
		rec.DeliveredAt.UTC().UnixNano(),
	)
}
