// Package media stores uploaded images in an object bucket and hands back
// their public URLs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes = 5 << 20

// Upload errors.
var (
	ErrNotImage   = errors.New("please select an image file")
	ErrTooLarge   = errors.New("image is too large")
	ErrEmpty      = errors.New("image is empty")
	ErrBadFolder  = errors.New("invalid storage folder")
	ErrExists     = errors.New("object already exists")
	ErrBadObjName = errors.New("invalid object name")
)

// Bucket is object storage with public read URLs.
type Bucket interface {
	// Put stores an object. It never overwrites an existing object.
	Put(ctx context.Context, name, contentType string, r io.Reader) error
	// URL returns the public URL of an object.
	URL(name string) string
}

// LocalBucket stores objects under a directory on disk.
type LocalBucket struct {
	dir       string
	publicURL string
}

// NewLocalBucket returns a bucket rooted at dir whose objects are served
// under publicURL.
func NewLocalBucket(dir, publicURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalBucket{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (b *LocalBucket) path(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadObjName, name)
	}
	return filepath.Join(b.dir, filepath.FromSlash(clean[1:])), nil
}

// Put implements Bucket.
func (b *LocalBucket) Put(_ context.Context, name, _ string, r io.Reader) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, name)
		}
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

// URL implements Bucket.
func (b *LocalBucket) URL(name string) string {
	return b.publicURL + "/" + strings.TrimLeft(name, "/")
}

// Handler serves the bucket's objects. Mount it with http.StripPrefix at the
// public URL path.
func (b *LocalBucket) Handler() http.Handler {
	return http.FileServer(http.Dir(b.dir))
}

// Result describes a stored upload.
type Result struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Uploader validates images and writes them to a bucket.
type Uploader struct {
	bucket   Bucket
	maxBytes int64
	now      func() time.Time
	suffix   func() string
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithMaxBytes sets the size limit.
func WithMaxBytes(n int64) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.maxBytes = n
		}
	}
}

// WithClock sets the time source used in object names.
func WithClock(now func() time.Time) UploaderOption {
	return func(u *Uploader) { u.now = now }
}

// WithSuffix sets the random part of object names.
func WithSuffix(fn func() string) UploaderOption {
	return func(u *Uploader) { u.suffix = fn }
}

func randomSuffix() string {
	return strconv.FormatUint(rand.Uint64(), 36)
}

// NewUploader returns an uploader writing to b.
func NewUploader(b Bucket, opts ...UploaderOption) *Uploader {
	u := &Uploader{bucket: b, maxBytes: DefaultMaxBytes, now: time.Now, suffix: randomSuffix}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

var folderPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ObjectName returns folder/<unix-ms>-<suffix>.<ext>.
func ObjectName(folder string, at time.Time, suffix, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", folder, at.UnixMilli(), suffix, ext)
}

func extension(filename string, m *mimetype.MIME) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 && i < len(filename)-1 {
		ext := strings.ToLower(filename[i+1:])
		if isAlnum(ext) {
			return ext
		}
	}
	return strings.TrimPrefix(m.Extension(), ".")
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != ""
}

// Upload sniffs r, rejects anything that is not an image or exceeds the size
// limit, and stores it under folder. filename only contributes its
// extension.
func (u *Uploader) Upload(ctx context.Context, folder, filename string, r io.Reader) (Result, error) {
	if !folderPattern.MatchString(folder) {
		return Result{}, fmt.Errorf("%w: %q", ErrBadFolder, folder)
	}
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return Result{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Result{}, ErrEmpty
	}
	if int64(len(data)) > u.maxBytes {
		return Result{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, u.maxBytes)
	}

	m := mimetype.Detect(data)
	if !strings.HasPrefix(m.String(), "image/") {
		return Result{}, fmt.Errorf("%w: got %s", ErrNotImage, m.String())
	}

	name := ObjectName(folder, u.now(), u.suffix(), extension(filename, m))
	if err := u.bucket.Put(ctx, name, m.String(), bytes.NewReader(data)); err != nil {
		return Result{}, err
	}
	return Result{
		Name:        name,
		URL:         u.bucket.URL(name),
		ContentType: m.String(),
		Size:        len(data),
	}, nil
}
