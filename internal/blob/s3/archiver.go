package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// SnapshotArchiver writes each freshly fetched snapshot to object storage as
// one JSON document, partitioned by UTC day:
//
//	{prefix}/YYYY/MM/DD/HHMMSSmmm_odds.json
//	{prefix}/YYYY/MM/DD/HHMMSSmmm_arbitrage.json
type SnapshotArchiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
}

// NewSnapshotArchiver creates an archiver. reader may be nil when listing is
// not needed. An empty prefix defaults to "snapshots".
func NewSnapshotArchiver(writer domain.BlobWriter, reader domain.BlobReader, prefix string) *SnapshotArchiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "snapshots"
	}
	return &SnapshotArchiver{writer: writer, reader: reader, prefix: prefix}
}

// ArchiveOdds uploads the odds snapshot fetched at and returns its key.
func (a *SnapshotArchiver) ArchiveOdds(ctx context.Context, snap domain.OddsSnapshot, at time.Time) (string, error) {
	return a.put(ctx, "odds", snap, at)
}

// ArchiveArbitrage uploads the arbitrage snapshot fetched at and returns its key.
func (a *SnapshotArchiver) ArchiveArbitrage(ctx context.Context, snap domain.ArbitrageSnapshot, at time.Time) (string, error) {
	return a.put(ctx, "arbitrage", snap, at)
}

// ListDay returns the archived objects for the UTC day containing day.
func (a *SnapshotArchiver) ListDay(ctx context.Context, day time.Time) ([]domain.BlobInfo, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: list archive: no reader configured")
	}
	infos, err := a.reader.List(ctx, a.dayPrefix(day))
	if err != nil {
		return nil, fmt.Errorf("s3blob: list archive: %w", err)
	}
	return infos, nil
}

// Open returns the archived document at key. The caller closes it. Keys
// outside the archive prefix, or not ending in .json, are rejected with
// domain.ErrInvalidKey.
func (a *SnapshotArchiver) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: open archive: no reader configured")
	}
	if !strings.HasPrefix(key, a.prefix+"/") || !strings.HasSuffix(key, ".json") || strings.Contains(key, "..") {
		return nil, fmt.Errorf("s3blob: open archive %q: %w", key, domain.ErrInvalidKey)
	}
	rc, err := a.reader.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("s3blob: open archive: %w", err)
	}
	return rc, nil
}

func (a *SnapshotArchiver) put(ctx context.Context, kind string, v any, at time.Time) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	path := a.Path(kind, at)
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}
	return path, nil
}

// Path builds the object key for a snapshot kind fetched at.
func (a *SnapshotArchiver) Path(kind string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s%s%03d_%s.json", a.dayPrefix(at), at.Format("150405"), at.Nanosecond()/int(time.Millisecond), kind)
}

func (a *SnapshotArchiver) dayPrefix(day time.Time) string {
	day = day.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/", a.prefix, day.Year(), int(day.Month()), day.Day())
}
