package uploads

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStore writes uploads below a root directory and maps them to URLs.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore constructs a store rooted at dir. baseURL is the public prefix
// the static handler is mounted on.
func NewDiskStore(dir, baseURL string) *DiskStore {
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &DiskStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Put stores data as subdir/name, replacing any earlier file, and returns its URL.
func (s *DiskStore) Put(subdir, name string, data []byte) (string, error) {
	if strings.ContainsAny(subdir+name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("uploads: invalid name %q/%q", subdir, name)
	}
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("uploads: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("uploads: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("uploads: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("uploads: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("uploads: rename: %w", err)
	}
	return path.Join(s.baseURL, subdir, name), nil
}

// Handler serves stored files without directory listings.
func (s *DiskStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.StripPrefix(s.baseURL, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	}))
}
