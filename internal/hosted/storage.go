package hosted

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Bucket is one object storage bucket with public read access.
type Bucket struct {
	client *Client
	name   string
	// CacheSeconds is sent as the object's max-age.
	CacheSeconds int
}

// NewBucket returns the named bucket.
func NewBucket(c *Client, name string) *Bucket {
	return &Bucket{client: c, name: name, CacheSeconds: 3600}
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// Put uploads an object. An existing object with the same name is never
// overwritten; the backend rejects the upload instead.
func (b *Bucket) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	_, err := b.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/storage/v1/object/" + url.PathEscape(b.name) + "/" + escapePath(name),
		body:   r,
		headers: map[string]string{
			"Content-Type":  contentType,
			"Cache-Control": fmt.Sprintf("max-age=%d", b.CacheSeconds),
			"x-upsert":      "false",
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", b.name, name, err)
	}
	return nil
}

// URL returns the public URL of an object.
func (b *Bucket) URL(name string) string {
	return b.client.base + "/storage/v1/object/public/" + url.PathEscape(b.name) + "/" + escapePath(name)
}
