// AngelaMos | 2026
// service.go

package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/mediahub/internal/core"
	"github.com/carterperez-dev/mediahub/internal/policy"
	"github.com/carterperez-dev/mediahub/internal/presence"
)

const tracerName = "github.com/carterperez-dev/mediahub/internal/content"

// maxUpdateAttempts bounds how often Update re-reads a row that another
// writer changed between the read and the conditional write.
const maxUpdateAttempts = 3

type Options struct {
	// RejectStatusElevation turns the silent clamp to draft into
	// ErrForbidden for callers without the set-status capability.
	RejectStatusElevation bool
}

type Service struct {
	repo    Repository
	events  presence.Publisher
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
	newUUID func() string
}

func NewService(
	repo Repository,
	events presence.Publisher,
	opts Options,
	logger *slog.Logger,
) *Service {
	if events == nil {
		events = presence.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		events:  events,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		newUUID: uuid.NewString,
	}
}

func (s *Service) Create(
	ctx context.Context,
	identity policy.Identity,
	in CreateInput,
) (*ContentWithAuthor, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "content.Create",
		attribute.String("user.id", identity.ID),
	)
	defer span.End()

	if !policy.CanPerform(identity, policy.ActionCreateContent, nil) {
		return nil, fmt.Errorf("create content: %w", core.ErrForbidden)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("create content: title required: %w", core.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("create content: body required: %w", core.ErrInvalidInput)
	}

	requested := in.Status
	if requested == "" {
		requested = StatusDraft
	}

	status, err := s.resolveStatus(ctx, identity, requested)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	if status == StatusScheduled {
		if err := s.checkSchedule(in.PublishDate); err != nil {
			return nil, fmt.Errorf("create content: %w", err)
		}
	}

	c := &Content{
		ID:          s.newUUID(),
		Title:       title,
		Body:        in.Body,
		Status:      status,
		AuthorID:    identity.ID,
		PublishDate: in.PublishDate,
		Tags:        NormalizeTags(in.Tags),
	}

	if err := s.repo.Insert(ctx, c); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("create content: %w", err)
	}

	s.logger.InfoContext(ctx, "content created",
		"content_id", c.ID,
		"author_id", c.AuthorID,
		"status", c.Status,
	)
	s.emit(ctx, identity, c.ID, "created")

	return s.withAuthor(ctx, c)
}

func (s *Service) Update(
	ctx context.Context,
	identity policy.Identity,
	id string,
	patch Patch,
) (*ContentWithAuthor, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "content.Update",
		attribute.String("user.id", identity.ID),
		attribute.String("content.id", id),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("update content: %w", core.ErrInvalidID)
	}

	var next *Content
	for attempt := 1; ; attempt++ {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("update content: %w", err)
		}

		if !policy.CanPerform(identity, policy.ActionUpdateContent, existing.Resource()) {
			return nil, fmt.Errorf("update content: %w", core.ErrForbidden)
		}

		next, err = s.applyPatch(ctx, identity, *existing, patch)
		if err != nil {
			return nil, fmt.Errorf("update content: %w", err)
		}

		err = s.repo.Update(ctx, next)
		if err == nil {
			break
		}
		if !errors.Is(err, core.ErrConflict) || attempt == maxUpdateAttempts {
			core.SetSpanError(ctx, err)
			return nil, fmt.Errorf("update content: %w", err)
		}
		s.logger.DebugContext(ctx, "content changed underneath update, retrying",
			"content_id", id,
			"attempt", attempt,
		)
	}

	s.logger.InfoContext(ctx, "content updated",
		"content_id", next.ID,
		"user_id", identity.ID,
		"status", next.Status,
	)
	s.emit(ctx, identity, next.ID, "updated")

	return s.withAuthor(ctx, next)
}

// applyPatch folds patch into a copy of the stored row. Only the scheduled
// invariant is checked against the result; status moves are flat overwrites.
func (s *Service) applyPatch(
	ctx context.Context,
	identity policy.Identity,
	next Content,
	patch Patch,
) (*Content, error) {
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
		if next.Title == "" {
			return nil, fmt.Errorf("title required: %w", core.ErrInvalidInput)
		}
	}

	if patch.Body != nil {
		if strings.TrimSpace(*patch.Body) == "" {
			return nil, fmt.Errorf("body required: %w", core.ErrInvalidInput)
		}
		next.Body = *patch.Body
	}

	if patch.Tags != nil {
		next.Tags = NormalizeTags(*patch.Tags)
	}

	if patch.PublishDate != nil {
		next.PublishDate = patch.PublishDate
	}

	if patch.Status != nil {
		status, err := s.resolveStatus(ctx, identity, *patch.Status)
		if err != nil {
			return nil, err
		}
		next.Status = status
	}

	if next.Status == StatusScheduled &&
		(patch.Status != nil || patch.PublishDate != nil) {
		if err := s.checkSchedule(next.PublishDate); err != nil {
			return nil, err
		}
	}

	return &next, nil
}

// Delete checks id syntax before touching the repository, then existence,
// then ownership.
func (s *Service) Delete(
	ctx context.Context,
	identity policy.Identity,
	id string,
) error {
	ctx, span := core.StartSpan(ctx, tracerName, "content.Delete",
		attribute.String("user.id", identity.ID),
		attribute.String("content.id", id),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("delete content: %w", core.ErrInvalidID)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}

	if !policy.CanPerform(identity, policy.ActionDeleteContent, existing.Resource()) {
		return fmt.Errorf("delete content: %w", core.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("delete content: %w", err)
	}

	s.logger.InfoContext(ctx, "content deleted",
		"content_id", id,
		"user_id", identity.ID,
	)
	s.emit(ctx, identity, id, "deleted")

	return nil
}

// List returns all content, newest update first. Reading is unrestricted
// for every role, so no ownership filter applies.
func (s *Service) List(
	ctx context.Context,
	identity policy.Identity,
) ([]ContentWithAuthor, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "content.List")
	defer span.End()

	if !policy.CanPerform(identity, policy.ActionReadContent, nil) {
		return nil, fmt.Errorf("list content: %w", core.ErrForbidden)
	}

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	span.SetAttributes(attribute.Int("content.count", len(items)))
	return items, nil
}

func (s *Service) Get(
	ctx context.Context,
	identity policy.Identity,
	id string,
) (*ContentWithAuthor, error) {
	if !policy.CanPerform(identity, policy.ActionReadContent, nil) {
		return nil, fmt.Errorf("get content: %w", core.ErrForbidden)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("get content: %w", core.ErrInvalidID)
	}

	return s.repo.GetWithAuthor(ctx, id)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// resolveStatus applies the set-status capability: elevated statuses from
// callers without it become draft, or ErrForbidden when configured.
func (s *Service) resolveStatus(
	ctx context.Context,
	identity policy.Identity,
	requested Status,
) (Status, error) {
	if !requested.Valid() {
		return "", fmt.Errorf("unknown status %q: %w", requested, core.ErrInvalidInput)
	}

	if !requested.Elevated() || policy.CanSetStatus(identity) {
		return requested, nil
	}

	if s.opts.RejectStatusElevation {
		return "", fmt.Errorf("status %q requires editor or admin: %w", requested, core.ErrForbidden)
	}

	s.logger.DebugContext(ctx, "status clamped to draft",
		"user_id", identity.ID,
		"requested", requested,
	)
	return StatusDraft, nil
}

func (s *Service) checkSchedule(publishDate *time.Time) error {
	if publishDate == nil {
		return fmt.Errorf("scheduled content needs a publish date: %w", core.ErrInvalidInput)
	}
	if !publishDate.After(s.now()) {
		return fmt.Errorf("publish date must be in the future: %w", core.ErrInvalidInput)
	}
	return nil
}

func (s *Service) withAuthor(ctx context.Context, c *Content) (*ContentWithAuthor, error) {
	joined, err := s.repo.GetWithAuthor(ctx, c.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "author join failed after write",
			"content_id", c.ID,
			"error", err,
		)
		return &ContentWithAuthor{Content: *c}, nil
	}
	return joined, nil
}

func (s *Service) emit(
	ctx context.Context,
	identity policy.Identity,
	contentID, action string,
) {
	err := s.events.Publish(ctx, presence.Event{
		Name:   presence.EventContentUpdate,
		Room:   presence.ContentRoom(contentID),
		UserID: identity.ID,
		Payload: map[string]string{
			"action":     action,
			"content_id": contentID,
		},
		At: s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "presence publish failed",
			"content_id", contentID,
			"error", err,
		)
	}
}
