package objectstore

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/conectaebd/backend/core"
)

// Object is what Memory keeps for a key.
type Object struct {
	ContentType string
	Data        []byte
}

// Memory is an in-process Store for tests. FailPut and FailRemove make every Put or Remove fail.
type Memory struct {
	mutex      sync.RWMutex
	objects    map[string]Object
	public     prefixedURL
	FailPut    bool
	FailRemove bool
}

var _ Store = (*Memory)(nil)

func NewMemory(publicURL string) *Memory {
	return &Memory{objects: make(map[string]Object), public: prefixedURL(publicURL)}
}

func (s *Memory) Put(_ context.Context, key, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading %s", key)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.FailPut {
		return errors.Errorf("uploading %s: storage unavailable", key)
	}
	s.objects[key] = Object{ContentType: contentType, Data: data}
	return nil
}

func (s *Memory) Remove(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.FailRemove {
		return errors.Errorf("removing %s: storage unavailable", key)
	}
	if _, ok := s.objects[key]; !ok {
		return errors.Wrapf(core.ErrNotFound, "removing %s", key)
	}
	delete(s.objects, key)
	return nil
}

// Get returns the object stored at key.
func (s *Memory) Get(key string) (Object, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *Memory) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.objects)
}

func (s *Memory) PublicURL(key string) string {
	return s.public.url(key)
}

func (s *Memory) KeyFromURL(u string) (string, error) {
	return s.public.key(u)
}
