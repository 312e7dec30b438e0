// Package fs implements archive.Store on the local filesystem. Keys map to
// relative file paths under the root; a sidecar file (key + ".meta") stores
// content type and user metadata.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"carecore/internal/archive"
)

var _ archive.Store = (*Store)(nil)

type Store struct {
	root string
}

// New returns a filesystem-backed archive rooted at path, creating it if
// needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./archive"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Driver() archive.Driver { return archive.DriverFilesystem }

// sanitizeKey forbids traversal and absolute paths so a key cannot escape
// the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid key traversal")
	}
	return clean, nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, k)
	metaPath = dataPath + ".meta"
	return
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, opts archive.PutOptions) (archive.Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return archive.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return archive.Info{}, fmt.Errorf("artifact %s already exists", key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return archive.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return archive.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	size, copyErr := io.Copy(tmp, r)
	if copyErr != nil {
		_ = tmp.Close()
		return archive.Info{}, copyErr
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return archive.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return archive.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return archive.Info{}, err
	}
	now := time.Now().UTC()
	mf := metaFile{ContentType: opts.ContentType, Metadata: cloneMetadata(opts.Metadata), Size: size, CreatedAt: now}
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return archive.Info{}, err
	}
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return archive.Info{}, err
	}
	return archive.Info{Key: key, Size: size, ContentType: opts.ContentType, Metadata: cloneMetadata(opts.Metadata), LastModified: now}, nil
}

func (s *Store) Get(_ context.Context, key string) (archive.Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return archive.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if err != nil {
		return archive.Info{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return archive.Info{}, nil, err
	}
	return mf.info(key), file, nil
}

func (s *Store) Head(_ context.Context, key string) (archive.Info, error) {
	_, metaPath, err := s.pathFor(key)
	if err != nil {
		return archive.Info{}, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return archive.Info{}, err
	}
	return mf.info(key), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(dataPath); errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err := os.Remove(dataPath); err != nil {
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]archive.Info, error) {
	var infos []archive.Info
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".meta") {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, ".meta"))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			infos = append(infos, mf.info(key))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (mf metaFile) info(key string) archive.Info {
	return archive.Info{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
	}
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, err
	}
	return mf, nil
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
