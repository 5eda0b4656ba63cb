package files

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/retention"
	"vetdocs/pkg/platform/middleware/auth"
	"vetdocs/pkg/platform/middleware/metadata"
)

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".rtf": true,
	".dcm": true,
	".zip": true, ".rar": true, ".7z": true,
}

// expectedMIMEPrefix guards against content/extension mismatch for the
// formats the sniffer can identify reliably.
var expectedMIMEPrefix = map[string]string{
	".pdf":  "application",
	".jpg":  "image",
	".jpeg": "image",
	".png":  "image",
	".gif":  "image",
	".doc":  "application",
	".docx": "application",
	".zip":  "application",
}

var medicalKeywords = []string{
	"medical", "record", "diagnosis", "treatment", "prescription",
	"lab", "xray", "mri", "ct",
}

var serviceKeywords = []string{"service", "military", "dd214", "discharge", "veteran"}

// UploadInput describes one inbound file.
type UploadInput struct {
	Filename  string
	Category  string
	ContactID *uuid.UUID
	Body      io.Reader
}

// Service moves file bodies to the object store and metadata to the
// database, with the PHI treatment (retention, audit) applied to medical
// and service records.
type Service struct {
	store     Store
	objects   ObjectStore
	auditor   *audit.Logger
	scheduler *retention.Scheduler
	log       *slog.Logger
	maxBytes  int64
}

func NewService(
	store Store,
	objects ObjectStore,
	auditor *audit.Logger,
	scheduler *retention.Scheduler,
	maxBytes int64,
	log *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		objects:   objects,
		auditor:   auditor,
		scheduler: scheduler,
		log:       log,
		maxBytes:  maxBytes,
	}
}

// Upload validates, stores and registers one file. The whole body is read
// into memory; maxBytes bounds that.
func (s *Service) Upload(ctx context.Context, input UploadInput) (*File, error) {
	ext := strings.ToLower(path.Ext(input.Filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	body, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}

	contentType := http.DetectContentType(body)
	if prefix, ok := expectedMIMEPrefix[ext]; ok {
		// text/plain sniffs are inconclusive for office formats, let them by.
		if !strings.HasPrefix(contentType, prefix) && !strings.HasPrefix(contentType, "text/plain") {
			return nil, fmt.Errorf("%w: %s sniffed as %s", ErrContentMismatch, ext, contentType)
		}
	}

	derived := categorize(input.Filename, contentType)
	category := derived
	if input.Category != "" {
		if !knownCategories[input.Category] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, input.Category)
		}
		category = input.Category
		// A client label never downgrades the PHI treatment the filename
		// itself calls for.
		if PHICategory(derived) && !PHICategory(category) {
			category = derived
		}
	}

	digest := sha256.Sum256(body)
	file := File{
		ID:               uuid.New(),
		OriginalFilename: input.Filename,
		StoredKey:        category + "/" + strings.ReplaceAll(uuid.New().String(), "-", "") + ext,
		ContentType:      contentType,
		Category:         category,
		SizeBytes:        int64(len(body)),
		SHA256:           hex.EncodeToString(digest[:]),
		ContactID:        input.ContactID,
		PHIInvolved:      PHICategory(category),
		UploadedAt:       time.Now().UTC(),
	}

	if err := s.objects.Put(ctx, file.StoredKey, bytes.NewReader(body), contentType); err != nil {
		return nil, fmt.Errorf("store file body: %w", err)
	}
	if err := s.store.Insert(ctx, file); err != nil {
		s.removeObject(ctx, file.StoredKey)
		return nil, fmt.Errorf("store file metadata: %w", err)
	}

	if file.PHIInvolved {
		_, err := s.scheduler.Schedule(ctx, ResourceFiles, file.ID.String(), file.UploadedAt)
		if err != nil && !errors.Is(err, retention.ErrDuplicateSchedule) {
			s.log.Error("failed to schedule file retention", "file_id", file.ID, "error", err)
		}
	}

	if err := s.auditUpload(ctx, file); err != nil {
		if s.auditor.FailClosed(audit.EventCreate) {
			s.removeObject(ctx, file.StoredKey)
			if delErr := s.store.Delete(ctx, file.ID); delErr != nil {
				s.log.Error("compensating file delete failed", "file_id", file.ID, "error", delErr)
			}
			return nil, err
		}
		s.log.Warn("file stored without audit trail", "file_id", file.ID, "error", err)
	}

	return &file, nil
}

// Get returns the metadata for one file and audits the access when the
// file is PHI-sensitive.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*File, error) {
	file, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.PHIInvolved {
		if err := s.auditAccess(ctx, *file, "viewed file metadata"); err != nil {
			if s.auditor.FailClosed(audit.EventAccess) {
				return nil, err
			}
			s.log.Warn("file read without audit trail", "file_id", id, "error", err)
		}
	}
	return file, nil
}

// Download returns the metadata plus a reader over the stored body. The
// caller owns closing the reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*File, io.ReadCloser, error) {
	file, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.objects.Get(ctx, file.StoredKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch file body: %w", err)
	}
	if file.PHIInvolved {
		if err := s.auditAccess(ctx, *file, "downloaded file"); err != nil {
			if s.auditor.FailClosed(audit.EventAccess) {
				body.Close()
				return nil, nil, err
			}
			s.log.Warn("file downloaded without audit trail", "file_id", id, "error", err)
		}
	}
	return file, body, nil
}

// ListByContact returns the files attached to one contact submission.
func (s *Service) ListByContact(ctx context.Context, contactID uuid.UUID) ([]File, error) {
	return s.store.ListByContact(ctx, contactID)
}

// Delete removes a file ahead of its retention due-date. The active
// retention entry, if any, is cancelled so the sweep does not chase a
// ghost.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	file, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	s.removeObject(ctx, file.StoredKey)
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}

	if file.PHIInvolved {
		if err := s.scheduler.Cancel(ctx, ResourceFiles, id.String()); err != nil &&
			!errors.Is(err, retention.ErrNotFound) {
			s.log.Warn("cancel file retention failed", "file_id", id, "error", err)
		}
	}

	record := audit.Record{
		EventType:    audit.EventDelete,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: "file",
		ResourceID:   id.String(),
		Action:       "deleted uploaded file",
		PHIInvolved:  file.PHIInvolved,
	}
	if actor, ok := auth.GetActor(ctx); ok {
		record.ActorID = actor.ID
		record.ActorEmail = actor.Email
	}
	if _, err := s.auditor.Log(ctx, record); err != nil {
		// The file is already gone; closed-policy rollback is not possible.
		s.log.Error("file deletion not audited", "file_id", id, "error", err)
	}
	return nil
}

// Purge implements the retention purger for uploaded files: both the
// object and its metadata row go.
func (s *Service) Purge(ctx context.Context, resourceID string) error {
	id, err := uuid.Parse(resourceID)
	if err != nil {
		return fmt.Errorf("parse file id: %w", err)
	}
	file, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	s.removeObject(ctx, file.StoredKey)
	return s.store.Delete(ctx, id)
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Error("failed to delete stored object", "key", key, "error", err)
	}
}

func (s *Service) auditUpload(ctx context.Context, file File) error {
	record := audit.Record{
		EventType:    audit.EventCreate,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: "file",
		ResourceID:   file.ID.String(),
		Action:       "uploaded file",
		PHIInvolved:  file.PHIInvolved,
		Detail: map[string]any{
			"file_category": file.Category,
			"content_type":  file.ContentType,
			"size_bytes":    file.SizeBytes,
		},
	}
	if actor, ok := auth.GetActor(ctx); ok {
		record.ActorID = actor.ID
		record.ActorEmail = actor.Email
	}
	_, err := s.auditor.Log(ctx, record)
	return err
}

func (s *Service) auditAccess(ctx context.Context, file File, action string) error {
	record := audit.Record{
		EventType:    audit.EventAccess,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: "file",
		ResourceID:   file.ID.String(),
		Action:       action,
		PHIInvolved:  true,
	}
	if actor, ok := auth.GetActor(ctx); ok {
		record.ActorID = actor.ID
		record.ActorEmail = actor.Email
	}
	_, err := s.auditor.Log(ctx, record)
	return err
}

func categorize(filename, contentType string) string {
	lower := strings.ToLower(filename)
	for _, keyword := range medicalKeywords {
		if strings.Contains(lower, keyword) {
			return CategoryMedicalRecord
		}
	}
	for _, keyword := range serviceKeywords {
		if strings.Contains(lower, keyword) {
			return CategoryServiceRecord
		}
	}
	if strings.HasPrefix(contentType, "image/") {
		return CategoryPhoto
	}
	switch {
	case strings.HasPrefix(contentType, "application/pdf"),
		strings.HasPrefix(contentType, "application/msword"),
		strings.HasPrefix(contentType, "text/plain"):
		return CategoryDocument
	}
	return CategoryOther
}
