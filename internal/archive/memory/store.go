// Package memory implements an in-memory archive.Store for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"carecore/internal/archive"
)

var _ archive.Store = (*Store)(nil)

type entry struct {
	info archive.Info
	data []byte
}

// Store keeps artifacts in process memory. Intended for tests.
type Store struct {
	mu   sync.RWMutex
	objs map[string]entry
}

// New returns an empty in-memory archive.
func New() *Store { return &Store{objs: make(map[string]entry)} }

func (s *Store) Driver() archive.Driver { return archive.DriverMemory }

func (s *Store) Put(_ context.Context, key string, r io.Reader, opts archive.PutOptions) (archive.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return archive.Info{}, fmt.Errorf("artifact %s already exists", key)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return archive.Info{}, err
	}
	info := archive.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = entry{info: info, data: b}
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) (archive.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return archive.Info{}, nil, fmt.Errorf("artifact %s not found", key)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Head(_ context.Context, key string) (archive.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return archive.Info{}, fmt.Errorf("artifact %s not found", key)
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	if ok {
		delete(s.objs, key)
	}
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]archive.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]archive.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			info := v.info
			info.Metadata = cloneMetadata(info.Metadata)
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
