package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/natgeo/internal/domain"
	"github.com/timmy/natgeo/internal/logger"
	"github.com/timmy/natgeo/internal/storage"
	_ "golang.org/x/image/webp"
)

// MirrorConfig holds configuration for the image mirror.
type MirrorConfig struct {
	Prefix     string        // key prefix inside the bucket
	RewriteURI bool          // publish the mirror URL as the persistent URI
	Timeout    time.Duration // download timeout
}

// MirrorPublisher copies artwork images into object storage before handing
// the artwork to the wrapped publisher. Mirroring is best effort: on failure
// the artwork is published with its original URI.
type MirrorPublisher struct {
	next       ArtworkPublisher
	storage    storage.ObjectStorage
	client     *resty.Client
	prefix     string
	rewriteURI bool
}

// NewMirrorPublisher wraps next with an image mirror backed by objectStorage.
func NewMirrorPublisher(next ArtworkPublisher, objectStorage storage.ObjectStorage, cfg *MirrorConfig) *MirrorPublisher {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &MirrorPublisher{
		next:       next,
		storage:    objectStorage,
		client:     client,
		prefix:     cfg.Prefix,
		rewriteURI: cfg.RewriteURI,
	}
}

// AddArtwork mirrors the image, then adds the artwork.
func (m *MirrorPublisher) AddArtwork(ctx context.Context, provider string, art *domain.Artwork) error {
	m.mirrorBestEffort(ctx, art)
	return m.next.AddArtwork(ctx, provider, art)
}

// SetArtwork mirrors the image, then replaces the provider's artwork.
func (m *MirrorPublisher) SetArtwork(ctx context.Context, provider string, art *domain.Artwork) error {
	m.mirrorBestEffort(ctx, art)
	return m.next.SetArtwork(ctx, provider, art)
}

func (m *MirrorPublisher) mirrorBestEffort(ctx context.Context, art *domain.Artwork) {
	if err := m.mirror(ctx, art); err != nil {
		logger.FromContext(ctx).WithField("persistent_uri", art.PersistentURI).
			WithError(err).Warn("Failed to mirror artwork image, publishing original URI")
	}
}

func (m *MirrorPublisher) mirror(ctx context.Context, art *domain.Artwork) error {
	resp, err := m.client.R().SetContext(ctx).Get(art.PersistentURI)
	if err != nil {
		return fmt.Errorf("failed to download image: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to download image: status %d", resp.StatusCode())
	}
	data := resp.Body()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	hash := md5.Sum(data)
	md5Hash := hex.EncodeToString(hash[:])
	key := path.Join(m.prefix, md5Hash[:2], md5Hash+"."+extensionFor(format))

	exists, err := m.storage.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check storage existence: %w", err)
	}
	if !exists {
		if err := m.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentTypeFor(format)); err != nil {
			return fmt.Errorf("failed to upload to storage: %w", err)
		}
	} else {
		logger.FromContext(ctx).WithField("storage_key", key).Debug("Image already mirrored, skipping upload")
	}

	art.StorageKey = key
	art.MirrorURL = m.storage.GetURL(key)
	art.Width = cfg.Width
	art.Height = cfg.Height
	if m.rewriteURI {
		art.PersistentURI = art.MirrorURL
	}
	return nil
}

func extensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func contentTypeFor(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
