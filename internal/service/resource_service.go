package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"campus/internal/featureflags"
	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/notifications"
	"campus/internal/observability"
	"campus/internal/repository"
	"campus/internal/storage"
	"campus/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	resourceServiceName = "ResourceService"
	defaultKeyExt       = ".pdf"
)

var keyExtPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// UploadInput is a resource upload. File is nil when no file part was sent.
type UploadInput struct {
	VariantID   uint   `validate:"required"`
	Type        string `validate:"notblank"`
	Title       string `validate:"notblank"`
	Description string `validate:"notblank"`
	FileName    string
	Size        int64
	File        io.ReaderAt
}

// Download is an opened payload. Callers must close Body.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	Name        string
	ContentType string
}

// ResourceServiceConfig holds the tunables of ResourceService.
type ResourceServiceConfig struct {
	MaxUploadBytes int64
	Flags          *featureflags.Manager
	Events         EventPublisher
}

// ResourceService keeps resource rows and payloads consistent.
// Writes stage the payload, commit the row, then publish the payload; the
// sweeper collects whatever a crash leaves behind.
type ResourceService struct {
	resources      repository.ResourceRepository
	authority      Authority
	blobs          storage.BlobStore
	events         EventPublisher
	flags          *featureflags.Manager
	maxUploadBytes int64
	now            func() time.Time
}

func NewResourceService(
	resources repository.ResourceRepository,
	authority Authority,
	blobs storage.BlobStore,
	cfg ResourceServiceConfig,
) *ResourceService {
	return &ResourceService{
		resources:      resources,
		authority:      authority,
		blobs:          blobs,
		events:         cfg.Events,
		flags:          cfg.Flags,
		maxUploadBytes: cfg.MaxUploadBytes,
		now:            time.Now,
	}
}

// CreateResource stores a new resource in variantID on behalf of an admin.
func (s *ResourceService) CreateResource(ctx context.Context, actorID uint, in UploadInput) (resource *models.Resource, err error) {
	ctx, span := observability.StartServiceSpan(ctx, resourceServiceName, "CreateResource",
		attribute.Int64("variant.id", int64(in.VariantID)),
		attribute.Int64("payload.size", in.Size))
	defer func() {
		observability.EndSpan(span, err)
		recordResourceOp("create", err)
	}()

	in.Type = strings.TrimSpace(in.Type)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, models.ErrMissingFields
	}
	if in.File == nil || in.Size <= 0 {
		return nil, models.ErrFileRequired
	}
	if s.maxUploadBytes > 0 && in.Size > s.maxUploadBytes {
		return nil, models.ErrFileTooLarge
	}

	if err := s.requireAdmin(ctx, actorID, in.VariantID); err != nil {
		return nil, err
	}

	info, err := storage.Inspect(in.File, in.Size)
	if err != nil {
		return nil, models.ErrFileRequired
	}
	// Downloads are always served as PDF.
	if !info.IsPDF() {
		return nil, models.ErrInvalidFileType
	}

	key := s.newKey(in.FileName)
	if _, err := s.blobs.Stage(ctx, key, io.NewSectionReader(in.File, 0, in.Size)); err != nil {
		return nil, models.NewStorageError(fmt.Errorf("stage %s: %w", key, err))
	}

	resource = &models.Resource{
		VariantID:    in.VariantID,
		Type:         in.Type,
		Title:        in.Title,
		Description:  in.Description,
		FilePath:     models.FilePathForKey(key),
		CreatedBy:    actorID,
		OriginalName: displayName(in.FileName),
		ContentType:  info.ContentType,
		SizeBytes:    in.Size,
		PageCount:    info.PageCount,
	}
	if err := s.resources.Create(ctx, resource); err != nil {
		s.discardStage(ctx, key)
		return nil, err
	}

	if err := s.blobs.Publish(ctx, key); err != nil {
		// Undo the row so no reader ever sees a resource without a payload.
		cleanupCtx := context.WithoutCancel(ctx)
		if delErr := s.resources.Delete(cleanupCtx, resource.ID); delErr != nil {
			middleware.Logger.ErrorContext(ctx, "failed to remove resource row after publish failure",
				"resource_id", resource.ID, "error", delErr)
		}
		s.discardStage(cleanupCtx, key)
		return nil, models.NewStorageError(fmt.Errorf("publish %s: %w", key, err))
	}

	middleware.Logger.InfoContext(ctx, "resource created",
		"resource_id", resource.ID, "variant_id", resource.VariantID, "key", key,
		"size_bytes", resource.SizeBytes, "pages", resource.PageCount)
	emitVariantEvent(ctx, s.events, s.flags, actorID, resource.VariantID, notifications.Event{
		Type: notifications.EventResourceCreated,
		Payload: resourceEvent{
			ResourceID: resource.ID,
			VariantID:  resource.VariantID,
			Title:      resource.Title,
			ActorID:    actorID,
		},
	})
	return resource, nil
}

// ListByVariant lists a variant's resources for its admins and subscribers.
func (s *ResourceService) ListByVariant(ctx context.Context, actorID, variantID uint) ([]models.Resource, error) {
	if variantID == 0 {
		return nil, models.ErrMissingFields
	}
	if err := s.requireAccess(ctx, actorID, variantID); err != nil {
		return nil, err
	}
	return s.resources.ListByVariant(ctx, variantID)
}

// ListByCreator lists resources uploaded by queryUserID, which must be the caller.
// Zero means the caller.
func (s *ResourceService) ListByCreator(ctx context.Context, actorID, queryUserID uint) ([]models.Resource, error) {
	if queryUserID == 0 {
		queryUserID = actorID
	}
	if queryUserID != actorID {
		return nil, models.NewForbiddenError("resources of other users are not listable")
	}
	return s.resources.ListByCreator(ctx, queryUserID)
}

// DeleteResource removes the row, then the payload on a best-effort basis.
func (s *ResourceService) DeleteResource(ctx context.Context, actorID, resourceID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, resourceServiceName, "DeleteResource",
		attribute.Int64("resource.id", int64(resourceID)))
	defer func() {
		observability.EndSpan(span, err)
		recordResourceOp("delete", err)
	}()

	if resourceID == 0 {
		return models.ErrMissingFields
	}
	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, actorID, resource.VariantID); err != nil {
		return err
	}
	if err := s.resources.Delete(ctx, resource.ID); err != nil {
		return err
	}

	if delErr := s.blobs.Delete(ctx, resource.StorageKey()); delErr != nil {
		// The row is gone; the sweeper removes the unreferenced payload later.
		middleware.Logger.WarnContext(ctx, "failed to delete resource payload",
			"resource_id", resource.ID, "key", resource.StorageKey(), "error", delErr)
	}

	emitVariantEvent(ctx, s.events, s.flags, actorID, resource.VariantID, notifications.Event{
		Type: notifications.EventResourceDeleted,
		Payload: resourceEvent{
			ResourceID: resource.ID,
			VariantID:  resource.VariantID,
			ActorID:    actorID,
		},
	})
	return nil
}

// DownloadResource opens a resource's payload for an admin or subscriber of its variant.
func (s *ResourceService) DownloadResource(ctx context.Context, actorID, resourceID uint) (dl *Download, err error) {
	ctx, span := observability.StartServiceSpan(ctx, resourceServiceName, "DownloadResource",
		attribute.Int64("resource.id", int64(resourceID)))
	defer func() {
		observability.EndSpan(span, err)
		recordResourceOp("download", err)
	}()

	if resourceID == 0 {
		return nil, models.ErrMissingFields
	}
	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, actorID, resource.VariantID); err != nil {
		return nil, err
	}

	key := resource.StorageKey()
	obj, err := s.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.Logger.WarnContext(ctx, "resource payload missing",
				"resource_id", resource.ID, "key", key)
			return nil, models.ErrFileMissing
		}
		return nil, models.NewStorageError(err)
	}
	return &Download{
		Body:        obj.Body,
		Size:        obj.Size,
		Name:        key,
		ContentType: storage.PDFContentType,
	}, nil
}

func (s *ResourceService) requireAdmin(ctx context.Context, actorID, variantID uint) error {
	ok, err := s.authority.IsAdmin(ctx, actorID, variantID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("variant admin role required")
	}
	return nil
}

func (s *ResourceService) requireAccess(ctx context.Context, actorID, variantID uint) error {
	ok, err := s.authority.HasAccess(ctx, actorID, variantID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("variant membership required")
	}
	return nil
}

func (s *ResourceService) discardStage(ctx context.Context, key string) {
	if err := s.blobs.Discard(ctx, key); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to discard staged payload", "key", key, "error", err)
	}
}

// newKey builds r_<unix-millis>_<8 hex><ext>. The caller's filename only
// contributes a sanitized extension.
func (s *ResourceService) newKey(fileName string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("r_%d_%s%s", s.now().UnixMilli(), suffix, keyExt(fileName))
}

// displayName keeps the last path element of the client filename for display.
func displayName(fileName string) string {
	fileName = strings.TrimSpace(fileName)
	if i := strings.LastIndexAny(fileName, `/\`); i >= 0 {
		fileName = fileName[i+1:]
	}
	if len(fileName) > 255 {
		fileName = fileName[:255]
	}
	return fileName
}

func keyExt(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if !keyExtPattern.MatchString(ext) {
		return defaultKeyExt
	}
	return "." + ext
}

func recordResourceOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = models.AsAppError(err).Code
	}
	observability.ResourceOperations.WithLabelValues(operation, outcome).Inc()
}
