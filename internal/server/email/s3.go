package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/google/uuid"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Options configures the S3-compatible outbox bucket.
type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
}

// OutboxMessage is the document written per message. A downstream mailer
// picks these up and delivers them.
type OutboxMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// S3OutboxClient stores each message as a JSON object under
// outbox/2fa/YYYY/MM/DD/<uuid>.json.
type S3OutboxClient struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

func NewS3OutboxClient(ctx context.Context, o S3Options) (*S3OutboxClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKey,
			o.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
			opts.UsePathStyle = true
		}
	})

	return &S3OutboxClient{client: client, bucket: o.Bucket, now: time.Now}, nil
}

func (c *S3OutboxClient) key(id string, t time.Time) string {
	return fmt.Sprintf("outbox/2fa/%04d/%02d/%02d/%s.json", t.Year(), t.Month(), t.Day(), id)
}

func (c *S3OutboxClient) Send(ctx context.Context, to models.Email, subject, body string) error {
	msg := OutboxMessage{
		ID:        uuid.NewString(),
		To:        to.String(),
		Subject:   subject,
		Body:      body,
		CreatedAt: c.now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = putObject(c.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key(msg.ID, msg.CreatedAt)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 error: %w", err)
	}

	return nil
}
