// Package archive writes JSON snapshots of the core catalog to an
// S3-compatible bucket and hands back a presigned download link.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/paleolab/internal/logging"
	sc "github.com/dmitrijs2005/paleolab/internal/server/config"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/dmitrijs2005/paleolab/internal/server/services"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ErrDisabled is returned when no archive bucket is configured.
var ErrDisabled = errors.New("core archive is not configured")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// CoreLister is the part of the core service the archiver reads from.
type CoreLister interface {
	List(ctx context.Context, actor *models.Employee) ([]*models.Core, error)
}

// Snapshot is the document stored in the bucket.
type Snapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	GeneratedBy string         `json:"generated_by"`
	Cores       []*models.Core `json:"cores"`
}

// Result describes a stored snapshot.
type Result struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Archiver struct {
	cores  CoreLister
	config *sc.Config
	logger logging.Logger
	now    func() time.Time
}

func NewArchiver(cores CoreLister, config *sc.Config, logger logging.Logger) *Archiver {
	return &Archiver{cores: cores, config: config, logger: logger, now: time.Now}
}

// Key builds the object key for a snapshot taken by username at t.
func Key(username string, t time.Time) string {
	who := slug.Make(username)
	if who == "" {
		who = "unknown"
	}
	return fmt.Sprintf("cores/%s/%s-%s.json", t.UTC().Format("2006/01/02"), who, uuid.New())
}

func (a *Archiver) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.config.S3RootUser,
			a.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if a.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(a.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Archive stores every core as one JSON document. Only admins may call it.
func (a *Archiver) Archive(ctx context.Context, actor *models.Employee) (*Result, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !a.config.ArchiveEnabled() {
		return nil, ErrDisabled
	}

	cores, err := a.cores.List(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := a.now()
	body, err := json.Marshal(Snapshot{GeneratedAt: now.UTC(), GeneratedBy: actor.Username, Cores: cores})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	client, err := a.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	key := Key(actor.Username, now)
	bucket := a.config.S3Bucket

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.config.ArchivePresignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}

	a.logger.Info(ctx, "core archive stored", "key", key, "cores", len(cores), "actor_id", actor.ID)
	return &Result{Key: key, URL: req.URL, Count: len(cores), ExpiresAt: now.Add(a.config.ArchivePresignTTL)}, nil
}
