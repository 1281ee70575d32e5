package objectstore

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Supabase talks to the storage REST API of a Supabase project.
type Supabase struct {
	projectURL string
	bucket     string
	serviceKey string
	client     *http.Client
	public     prefixedURL
}

var _ Store = (*Supabase)(nil)

// NewSupabase returns a store for bucket of the project at projectURL.
// A nil client means http.DefaultClient.
func NewSupabase(projectURL, bucket, serviceKey string, client *http.Client) *Supabase {
	if client == nil {
		client = http.DefaultClient
	}
	projectURL = strings.TrimRight(projectURL, "/")
	return &Supabase{
		projectURL: projectURL,
		bucket:     bucket,
		serviceKey: serviceKey,
		client:     client,
		public:     prefixedURL(projectURL + "/storage/v1/object/public/" + bucket),
	}
}

func (s *Supabase) objectURL(key string) string {
	return s.projectURL + "/storage/v1/object/" + s.bucket + "/" + key
}

func (s *Supabase) do(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return errors.Errorf("supabase storage: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (s *Supabase) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), r)
	if err != nil {
		return errors.Wrap(err, "building upload request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	return errors.Wrapf(s.do(req), "uploading %s", key)
}

func (s *Supabase) Remove(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return errors.Wrap(err, "building delete request")
	}
	return errors.Wrapf(s.do(req), "removing %s", key)
}

func (s *Supabase) PublicURL(key string) string {
	return s.public.url(key)
}

func (s *Supabase) KeyFromURL(u string) (string, error) {
	return s.public.key(u)
}
