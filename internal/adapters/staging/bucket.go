// Package staging implements the staging port and the dry-run artifact
// sink on top of gocloud.dev/blob, so scratch space can live in memory,
// on local disk or in an object store.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/bft-labs/sheetshot/internal/domain"
)

// DefaultURL keeps staged entries in process memory.
const DefaultURL = "mem://"

// Bucket is a staging area backed by a blob bucket.
type Bucket struct {
	bucket *blob.Bucket
	owned  bool
}

// Open opens the bucket at url, e.g. mem://, file:///var/tmp/sheetshot or
// s3://bucket?region=eu-west-1. The returned Bucket owns it; call Close.
func Open(ctx context.Context, url string) (*Bucket, error) {
	if url == "" {
		url = DefaultURL
	}
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open staging bucket %q: %w", url, err)
	}
	return &Bucket{bucket: b, owned: true}, nil
}

// OpenDir opens a bucket rooted at dir on local disk, creating dir first.
// Used as the dry-run output directory.
func OpenDir(dir string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	b, err := fileblob.OpenBucket(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	return &Bucket{bucket: b, owned: true}, nil
}

// New wraps an already opened bucket. Close leaves it open.
func New(b *blob.Bucket) *Bucket {
	return &Bucket{bucket: b}
}

// Put stores data under key.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	opts := &blob.WriterOptions{ContentType: contentType(key)}
	if err := b.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Get returns the data stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key; a missing key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// WriteArtifact stores a rendered image under <runID>/<name>.
func (b *Bucket) WriteArtifact(ctx context.Context, runID string, art domain.Artifact) error {
	return b.Put(ctx, path.Join(runID, art.Name), art.Image)
}

// Sweep deletes entries last modified before now-maxAge and returns how
// many were removed. Entries of live runs are younger than maxAge as long
// as maxAge exceeds the longest run.
func (b *Bucket) Sweep(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-maxAge)
	removed := 0

	iter := b.bucket.List(nil)
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return removed, nil
		}
		if err != nil {
			return removed, fmt.Errorf("list staging: %w", err)
		}
		if obj.IsDir || !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := b.Delete(ctx, obj.Key); err != nil {
			return removed, err
		}
		removed++
	}
}

// Close releases the bucket when this Bucket opened it.
func (b *Bucket) Close() error {
	if !b.owned {
		return nil
	}
	return b.bucket.Close()
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
