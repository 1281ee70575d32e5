package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"
)

// OSS stores objects in an Aliyun OSS bucket.
type OSS struct {
	bucket *oss.Bucket
	public prefixedURL
}

var _ Store = (*OSS)(nil)

// NewOSS connects to bucketName at endpoint. Without publicURL, objects are served
// from the virtual-hosted bucket domain (https://<bucket>.<endpoint host>).
func NewOSS(endpoint, accessKeyID, accessKeySecret, bucketName, publicURL string) (*OSS, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "creating oss client")
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, errors.Wrapf(err, "opening oss bucket %s", bucketName)
	}
	if publicURL == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		publicURL = fmt.Sprintf("https://%s.%s", bucketName, host)
	}
	return &OSS{bucket: bucket, public: prefixedURL(strings.TrimRight(publicURL, "/"))}, nil
}

func (s *OSS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	err := s.bucket.PutObject(key, r, oss.WithContext(ctx), oss.ContentType(contentType))
	return errors.Wrapf(err, "uploading %s", key)
}

func (s *OSS) Remove(ctx context.Context, key string) error {
	return errors.Wrapf(s.bucket.DeleteObject(key, oss.WithContext(ctx)), "removing %s", key)
}

func (s *OSS) PublicURL(key string) string {
	return s.public.url(key)
}

func (s *OSS) KeyFromURL(u string) (string, error) {
	return s.public.key(u)
}
