package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	blobPrefix  = "exports/"
	indexPrefix = "patients/"

	metaFileName  = "file-name"
	metaPatientID = "patient-id"
	metaKind      = "kind"
	metaHash      = "hash"
	metaCreatedAt = "created-at"
)

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds a client from the default AWS credential chain. A
// non-empty endpoint switches to path-style addressing for local S3
// servers.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3BlobStore keeps each blob at exports/<id> with its metadata as object
// metadata, plus an empty marker at patients/<patient>/<id> so a patient's
// exports can be listed by prefix.
type S3BlobStore struct {
	client S3API
	bucket string
	now    func() time.Time
}

func NewS3BlobStore(client S3API, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, now: time.Now}
}

func (s *S3BlobStore) Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error) {
	meta, data, err := prepare(meta, content, s.now())
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(blobPrefix + meta.ID),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(meta.ContentType),
		ContentLength: aws.Int64(meta.Size),
		ACL:           types.ObjectCannedACLPrivate,
		Metadata: map[string]string{
			metaFileName:  url.PathEscape(meta.FileName),
			metaPatientID: meta.PatientID,
			metaKind:      meta.Kind,
			metaHash:      meta.Hash,
			metaCreatedAt: meta.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", meta.ID, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(indexKey(meta.PatientID, meta.ID)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", meta.ID, err)
	}

	out := meta
	return &out, nil
}

func (s *S3BlobStore) Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobPrefix + id),
	})
	if err != nil {
		return nil, nil, translate(id, err)
	}
	meta := metadataFrom(id, out.ContentType, out.ContentLength, out.Metadata, out.LastModified)
	return out.Body, meta, nil
}

func (s *S3BlobStore) GetMetadata(ctx context.Context, id string) (*BlobMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(blobPrefix + id),
	})
	if err != nil {
		return nil, translate(id, err)
	}
	return metadataFrom(id, out.ContentType, out.ContentLength, out.Metadata, out.LastModified), nil
}

func (s *S3BlobStore) ListByPatient(ctx context.Context, patientID string) ([]*BlobMetadata, error) {
	prefix := indexPrefix + patientID + "/"
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	items := []*BlobMetadata{}
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			id := path.Base(aws.ToString(obj.Key))
			meta, err := s.GetMetadata(ctx, id)
			if errors.Is(err, ErrBlobNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			items = append(items, meta)
		}
	}
	sortNewestFirst(items)
	return items, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, id string) error {
	meta, err := s.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range []string{blobPrefix + id, indexKey(meta.PatientID, id)} {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func indexKey(patientID, id string) string {
	return indexPrefix + patientID + "/" + id
}

func translate(id string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return ErrBlobNotFound
	}
	return fmt.Errorf("fetch %s: %w", id, err)
}

func metadataFrom(id string, contentType *string, size *int64, md map[string]string, lastModified *time.Time) *BlobMetadata {
	meta := &BlobMetadata{
		ID:          id,
		FileName:    decodeFileName(md[metaFileName]),
		ContentType: aws.ToString(contentType),
		Size:        aws.ToInt64(size),
		PatientID:   md[metaPatientID],
		Kind:        md[metaKind],
		Hash:        md[metaHash],
	}
	if t, err := time.Parse(time.RFC3339Nano, md[metaCreatedAt]); err == nil {
		meta.CreatedAt = t
	} else if lastModified != nil {
		meta.CreatedAt = *lastModified
	}
	return meta
}

// S3 user metadata is ASCII only, so file names are stored percent-encoded.
func decodeFileName(v string) string {
	if name, err := url.PathUnescape(v); err == nil {
		return name
	}
	return v
}
