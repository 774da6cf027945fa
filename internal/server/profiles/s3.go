package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	sc "github.com/luvhive/backend/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

type S3Store struct {
	config *sc.Config
}

func NewS3Store(config *sc.Config) *S3Store {
	return &S3Store{config: config}
}

func profileKey(externalID int64) string {
	return fmt.Sprintf("profiles/%d.json", externalID)
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// load returns the stored document or nil when no document exists yet.
func (s *S3Store) load(ctx context.Context, client *s3.Client, externalID int64) (*Document, error) {
	bucket := s.config.S3Bucket
	key := profileKey(externalID)

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *s3types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("profile store get error: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("profile store read error: %w", err)
	}

	doc := &Document{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("profile store decode error: %w", err)
	}

	return doc, nil
}

func (s *S3Store) save(ctx context.Context, client *s3.Client, doc *Document) error {
	bucket := s.config.S3Bucket
	key := profileKey(doc.TelegramID)
	contentType := "application/json"

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("profile store encode error: %w", err)
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("profile store put error: %w", err)
	}

	return nil
}

func (s *S3Store) Upsert(ctx context.Context, doc *Document) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	existing, err := s.load(ctx, client, doc.TelegramID)
	if err != nil {
		return err
	}

	next := *doc
	if existing != nil {
		// premium is owned by the payment flow, keep the stored value
		next.IsPremium = existing.IsPremium
	}
	next.UpdatedAt = time.Now().UTC()

	return s.save(ctx, client, &next)
}

func (s *S3Store) SetPremiumFlag(ctx context.Context, externalID int64, premium bool) error {
	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	doc, err := s.load(ctx, client, externalID)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &Document{TelegramID: externalID}
	}

	doc.IsPremium = premium
	doc.UpdatedAt = time.Now().UTC()

	return s.save(ctx, client, doc)
}
