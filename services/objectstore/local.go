package objectstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Local keeps objects on disk under dir; the API serves dir at publicURL.
type Local struct {
	dir    string
	public prefixedURL
}

var _ Store = (*Local)(nil)

func NewLocal(dir, publicURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &Local{dir: dir, public: prefixedURL(strings.TrimRight(publicURL, "/"))}, nil
}

// Dir is the root directory of the stored objects.
func (s *Local) Dir() string {
	return s.dir
}

func (s *Local) path(key string) (string, error) {
	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", errors.Errorf("invalid object key %q", key)
	}
	return p, nil
}

func (s *Local) Put(ctx context.Context, key, _ string, r io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "creating object dir")
	}
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "creating %s", key)
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return errors.Wrapf(err, "writing %s", key)
	}
	return errors.Wrapf(f.Close(), "closing %s", key)
}

func (s *Local) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.Remove(p), "removing %s", key)
}

func (s *Local) PublicURL(key string) string {
	return s.public.url(key)
}

func (s *Local) KeyFromURL(u string) (string, error) {
	return s.public.key(u)
}
