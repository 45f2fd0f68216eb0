// AngelaMos | 2026
// service.go

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
	"github.com/carterperez-dev/mediahub/internal/user"
)

const tracerName = "github.com/carterperez-dev/mediahub/internal/media"

const maxExtLen = 16

var ErrTooLarge = errors.New("upload exceeds maximum size")

type Options struct {
	PublicBaseURL string
	// MaxUploadSize caps a single upload in bytes. Zero means unlimited.
	MaxUploadSize int64
}

type Service struct {
	repo    Repository
	store   BlobStore
	opts    Options
	logger  *slog.Logger
	newUUID func() string
}

func NewService(
	repo Repository,
	store BlobStore,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		store:   store,
		opts:    opts,
		logger:  logger,
		newUUID: uuid.NewString,
	}
}

// Ingest streams r into the blob store and records the asset. Bytes are
// stored before the record is written: a storage failure leaves nothing
// behind, a record failure leaves an orphaned blob that is only logged.
func (s *Service) Ingest(
	ctx context.Context,
	identity policy.Identity,
	r io.Reader,
	declaredMime string,
	originalName string,
) (*AssetResponse, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "media.Ingest",
		attribute.String("user.id", identity.ID),
		attribute.String("media.mime_type", declaredMime),
	)
	defer span.End()

	if !policy.CanPerform(identity, policy.ActionUploadMedia, nil) {
		return nil, fmt.Errorf("ingest media: %w", core.ErrForbidden)
	}

	name := cleanName(originalName)
	if name == "" {
		return nil, fmt.Errorf("ingest media: file name required: %w", core.ErrInvalidInput)
	}

	mimeType := strings.TrimSpace(declaredMime)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := s.newUUID() + extension(name)
	counter := &countingReader{r: r, limit: s.opts.MaxUploadSize}

	if err := s.store.Put(ctx, key, counter, mimeType); err != nil {
		core.SetSpanError(ctx, err)
		s.discard(ctx, key)
		if counter.exceeded {
			return nil, fmt.Errorf("ingest media: %w", ErrTooLarge)
		}
		return nil, fmt.Errorf("ingest media: store blob: %w", err)
	}

	core.AddSpanEvent(ctx, "blob stored",
		attribute.String("media.storage_key", key),
		attribute.Int64("media.size", counter.n),
	)

	asset := &Asset{
		ID:         s.newUUID(),
		Name:       name,
		StorageKey: key,
		MimeType:   mimeType,
		Type:       Classify(mimeType),
		Size:       counter.n,
		UploadedBy: identity.ID,
	}

	if err := s.repo.Insert(ctx, asset); err != nil {
		core.SetSpanError(ctx, err)
		s.logger.ErrorContext(ctx, "media record failed, blob orphaned",
			"storage_key", key,
			"size", counter.n,
			"error", err,
		)
		return nil, fmt.Errorf("ingest media: record asset: %w", err)
	}

	span.SetAttributes(
		attribute.String("media.type", string(asset.Type)),
		attribute.Int64("media.size", asset.Size),
	)
	s.logger.InfoContext(ctx, "media uploaded",
		"media_id", asset.ID,
		"storage_key", key,
		"type", asset.Type,
		"size", asset.Size,
		"uploaded_by", identity.ID,
	)

	resp := toAssetResponse(s.withUploader(ctx, asset, identity), s.opts.PublicBaseURL)
	return &resp, nil
}

// withUploader reads the asset back through the uploader join. The asset is
// already stored, so a failed join degrades to the token's claims.
func (s *Service) withUploader(
	ctx context.Context,
	asset *Asset,
	identity policy.Identity,
) *AssetWithUploader {
	joined, err := s.repo.GetWithUploader(ctx, asset.StorageKey)
	if err != nil {
		s.logger.WarnContext(ctx, "uploader join failed after write",
			"media_id", asset.ID,
			"error", err,
		)
		return &AssetWithUploader{
			Asset:    *asset,
			Uploader: user.Summary{ID: identity.ID, Email: identity.Email},
		}
	}
	return joined
}

// List returns every asset newest first with absolute URLs.
func (s *Service) List(
	ctx context.Context,
	identity policy.Identity,
) ([]AssetResponse, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "media.List")
	defer span.End()

	if !policy.CanPerform(identity, policy.ActionReadMedia, nil) {
		return nil, fmt.Errorf("list media: %w", core.ErrForbidden)
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	out := make([]AssetResponse, len(items))
	for i := range items {
		out[i] = toAssetResponse(&items[i], s.opts.PublicBaseURL)
	}

	span.SetAttributes(attribute.Int("media.count", len(out)))
	return out, nil
}

// Stream is what the uploads route needs to answer a read: either a local
// seekable blob or a URL to redirect to.
type Stream struct {
	Asset       *Asset
	Blob        *Blob
	RedirectURL string
}

// Open resolves the asset record for key, then its bytes.
func (s *Service) Open(ctx context.Context, key string) (*Stream, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "media.Open",
		attribute.String("media.storage_key", key),
	)
	defer span.End()

	if !ValidKey(key) {
		return nil, fmt.Errorf("open media: %w", core.ErrNotFound)
	}

	asset, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}

	switch store := s.store.(type) {
	case Opener:
		blob, err := store.Open(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("open media: %w", err)
		}
		return &Stream{Asset: asset, Blob: blob}, nil
	case URLSigner:
		u, err := store.PresignGet(ctx, key, DeliveryFor(asset))
		if err != nil {
			return nil, fmt.Errorf("open media: %w", err)
		}
		return &Stream{Asset: asset, RedirectURL: u}, nil
	default:
		return nil, fmt.Errorf("open media: store cannot serve reads")
	}
}

func (s *Service) CountByType(ctx context.Context) (map[Type]int, error) {
	return s.repo.CountByType(ctx)
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "partial blob cleanup failed",
			"storage_key", key,
			"error", err,
		)
	}
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// extension keeps a short alphanumeric extension from the original name so
// stored keys stay recognisable; anything else is dropped.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

type countingReader struct {
	r        io.Reader
	n        int64
	limit    int64
	exceeded bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		c.exceeded = true
		return n, ErrTooLarge
	}
	return n, err
}
