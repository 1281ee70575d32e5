// Package objectstore keeps uploaded files in a bucket and hands out their public URLs.
package objectstore

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
)

var ErrForeignURL = errors.New("url does not belong to this store")

// Store is a flat bucket of objects addressed by key (eg. materials/20240101-<uuid>-lesson.pdf).
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	// KeyFromURL is the inverse of PublicURL.
	KeyFromURL(u string) (string, error)
}

// New builds the Store selected by conf.Storage.Driver.
func New(conf *core.Config) (Store, error) {
	sc := conf.Storage
	switch sc.Driver {
	case "supabase":
		return NewSupabase(sc.PublicURL, sc.Bucket, sc.ServiceKey, nil), nil
	case "oss":
		return NewOSS(sc.Endpoint, sc.AccessKeyID, sc.AccessKeySecret, sc.Bucket, sc.PublicURL)
	case "local":
		return NewLocal(sc.LocalDir, sc.PublicURL)
	case "memory":
		return NewMemory(sc.PublicURL), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// prefixedURL maps keys to <base>/<escaped key> and back.
type prefixedURL string

func (base prefixedURL) url(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return string(base) + "/" + strings.Join(parts, "/")
}

func (base prefixedURL) key(u string) (string, error) {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	prefix := string(base) + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", ErrForeignURL
	}
	key, err := url.PathUnescape(strings.TrimPrefix(u, prefix))
	if err != nil {
		return "", errors.Wrap(err, "unescaping object key")
	}
	if key == "" {
		return "", ErrForeignURL
	}
	return key, nil
}
