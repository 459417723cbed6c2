// Package storage keeps uploaded images on local disk and serves them under
// a public URL prefix.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/slug"
)

type Local struct {
	root       string
	publicPath string
	baseURL    string
	maxBytes   int64
	now        func() time.Time
}

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = fmt.Errorf("upload exceeds size limit")

func NewLocal(root, publicPath, baseURL string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return &Local{
		root:       root,
		publicPath: publicPath,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxBytes:   maxBytes,
		now:        time.Now,
	}, nil
}

// ObjectName builds "<prefix>/<unix-millis>_<8 hex>_<name>". The random
// fragment keeps two uploads in the same millisecond apart.
func (s *Local) ObjectName(prefix, name string) string {
	base := sanitizeName(name)
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	file := fmt.Sprintf("%d_%s_%s", s.now().UnixMilli(), id, base)
	if p := sanitizePrefix(prefix); p != "" {
		return p + "/" + file
	}
	return file
}

// Upload stores r and returns the object path relative to the storage root.
func (s *Local) Upload(ctx context.Context, prefix, name string, r io.Reader) (string, error) {
	object := s.ObjectName(prefix, name)
	dst := filepath.Join(s.root, filepath.FromSlash(object))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: src})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(dst)
		return "", err
	}
	return object, nil
}

func (s *Local) PublicURL(object string) string {
	return s.baseURL + s.publicPath + object
}

func (s *Local) Delete(object string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+object))))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Handler serves stored objects. Mount it at the public path.
func (s *Local) Handler() http.Handler {
	return http.StripPrefix(s.publicPath, http.FileServer(noDirFS{http.Dir(s.root)}))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// noDirFS hides directory listings.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func sanitizePrefix(prefix string) string {
	var parts []string
	for _, p := range strings.Split(prefix, "/") {
		if s := slug.Make(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(name))
	stem := slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		stem = "file"
	}
	if slug.Make(strings.TrimPrefix(ext, ".")) == "" {
		ext = ""
	}
	return stem + ext
}
