package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/crypto"
	"vetdocs/internal/hipaa/phi"
	"vetdocs/internal/hipaa/retention"
	"vetdocs/pkg/platform/middleware/auth"
	"vetdocs/pkg/platform/middleware/metadata"
)

// ErrValidation marks a rejected submission payload.
var ErrValidation = errors.New("intake: invalid input")

// Service runs the intake pipeline: scan for PHI, encrypt flagged fields,
// persist, schedule retention, audit. Submissions that carry PHI cannot be
// accepted while the encryption engine is unavailable.
type Service struct {
	contacts      ContactStore
	consultations ConsultationStore
	engine        *crypto.Engine
	detector      *phi.Detector
	auditor       *audit.Logger
	scheduler     *retention.Scheduler
	log           *slog.Logger
}

func NewService(
	contacts ContactStore,
	consultations ConsultationStore,
	engine *crypto.Engine,
	detector *phi.Detector,
	auditor *audit.Logger,
	scheduler *retention.Scheduler,
	log *slog.Logger,
) *Service {
	return &Service{
		contacts:      contacts,
		consultations: consultations,
		engine:        engine,
		detector:      detector,
		auditor:       auditor,
		scheduler:     scheduler,
		log:           log,
	}
}

// CreateContact accepts a contact form submission. When the submission
// contains PHI the identity and free-text fields are encrypted before
// the row is written; the returned Contact always carries plaintext.
func (s *Service) CreateContact(ctx context.Context, input ContactInput) (*Contact, error) {
	if err := validateContact(input); err != nil {
		return nil, err
	}

	// Classification is content-based: a plain name or email does not make
	// a submission PHI on its own, but a diagnosis or SSN anywhere does.
	scan := s.scanValues(map[string]string{
		"name":    input.Name,
		"email":   input.Email,
		"phone":   input.Phone,
		"subject": input.Subject,
		"message": input.Message,
	})
	phiInvolved := anyPHI(scan)

	contact := Contact{
		ID:          uuid.New(),
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		Subject:     input.Subject,
		Message:     input.Message,
		Status:      StatusNew,
		PHIInvolved: phiInvolved,
		CreatedAt:   time.Now().UTC(),
	}

	stored := contact
	if phiInvolved {
		if !s.engine.Enabled() {
			return nil, fmt.Errorf("contact contains PHI: %w", crypto.ErrUnavailable)
		}
		hash, err := s.engine.SearchHash(input.Email)
		if err != nil {
			return nil, fmt.Errorf("hash contact email: %w", err)
		}
		stored.EmailHash = hash
		contact.EmailHash = hash

		if err := encryptFields(s.engine,
			&stored.Name, &stored.Email, &stored.Phone, &stored.Subject, &stored.Message); err != nil {
			return nil, fmt.Errorf("encrypt contact: %w", err)
		}
	}

	if err := s.contacts.Insert(ctx, stored); err != nil {
		s.auditFailure(ctx, "contact", "failed to create contact submission", phiInvolved, err)
		return nil, fmt.Errorf("create contact: %w", err)
	}

	s.scheduleRetention(ctx, ResourceContacts, contact.ID, contact.CreatedAt)

	if err := s.auditCreate(ctx, "contact", contact.ID, "created contact form submission", phiInvolved, scan); err != nil {
		if s.auditor.FailClosed(audit.EventCreate) {
			if delErr := s.contacts.Delete(ctx, contact.ID); delErr != nil {
				s.log.Error("compensating contact delete failed",
					"contact_id", contact.ID, "error", delErr)
			}
			if cancelErr := s.scheduler.Cancel(ctx, ResourceContacts, contact.ID.String()); cancelErr != nil {
				s.log.Warn("cancel retention after rollback failed",
					"contact_id", contact.ID, "error", cancelErr)
			}
			return nil, err
		}
		s.log.Warn("contact created without audit trail", "contact_id", contact.ID, "error", err)
	}

	return &contact, nil
}

// GetContact returns one submission with encrypted fields decrypted, and
// audits the access. Reads follow the open policy: an audit outage logs a
// warning but does not block the read.
func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	contact, err := s.contacts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if contact.PHIInvolved {
		if !s.engine.Enabled() {
			return nil, fmt.Errorf("contact %s is encrypted: %w", id, crypto.ErrUnavailable)
		}
		if err := decryptFields(s.engine,
			&contact.Name, &contact.Email, &contact.Phone, &contact.Subject, &contact.Message); err != nil {
			return nil, fmt.Errorf("decrypt contact %s: %w", id, err)
		}
	}

	if err := s.auditAccess(ctx, "contact", id, "viewed contact submission", contact.PHIInvolved); err != nil {
		if s.auditor.FailClosed(audit.EventAccess) {
			return nil, err
		}
		s.log.Warn("contact read without audit trail", "contact_id", id, "error", err)
	}

	return contact, nil
}

// CreateConsultation accepts a consultation request. The condition
// description is a medical narrative, so the request is always treated as
// PHI-bearing and requires the encryption engine.
func (s *Service) CreateConsultation(ctx context.Context, input ConsultationInput) (*ConsultationRequest, error) {
	if err := validateConsultation(input); err != nil {
		return nil, err
	}
	if !s.engine.Enabled() {
		return nil, fmt.Errorf("consultation requests carry PHI: %w", crypto.ErrUnavailable)
	}

	scan := s.scanValues(map[string]string{
		"name":                  input.Name,
		"email":                 input.Email,
		"phone":                 input.Phone,
		"condition_description": input.ConditionDescription,
	})

	req := ConsultationRequest{
		ID:                   uuid.New(),
		Name:                 input.Name,
		Email:                input.Email,
		Phone:                input.Phone,
		ServiceBranch:        input.ServiceBranch,
		DischargeYear:        input.DischargeYear,
		ConditionDescription: input.ConditionDescription,
		Status:               StatusNew,
		PHIInvolved:          true,
		CreatedAt:            time.Now().UTC(),
	}

	hash, err := s.engine.SearchHash(input.Email)
	if err != nil {
		return nil, fmt.Errorf("hash consultation email: %w", err)
	}
	req.EmailHash = hash

	stored := req
	if err := encryptFields(s.engine,
		&stored.Name, &stored.Email, &stored.Phone, &stored.ConditionDescription); err != nil {
		return nil, fmt.Errorf("encrypt consultation request: %w", err)
	}

	if err := s.consultations.Insert(ctx, stored); err != nil {
		s.auditFailure(ctx, "consultation_request", "failed to create consultation request", true, err)
		return nil, fmt.Errorf("create consultation request: %w", err)
	}

	s.scheduleRetention(ctx, ResourceConsultations, req.ID, req.CreatedAt)

	if err := s.auditCreate(ctx, "consultation_request", req.ID, "created consultation request", true, scan); err != nil {
		if s.auditor.FailClosed(audit.EventCreate) {
			if delErr := s.consultations.Delete(ctx, req.ID); delErr != nil {
				s.log.Error("compensating consultation delete failed",
					"request_id", req.ID, "error", delErr)
			}
			if cancelErr := s.scheduler.Cancel(ctx, ResourceConsultations, req.ID.String()); cancelErr != nil {
				s.log.Warn("cancel retention after rollback failed",
					"request_id", req.ID, "error", cancelErr)
			}
			return nil, err
		}
		s.log.Warn("consultation created without audit trail", "request_id", req.ID, "error", err)
	}

	return &req, nil
}

// GetConsultation returns one decrypted consultation request and audits
// the access.
func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*ConsultationRequest, error) {
	req, err := s.consultations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.engine.Enabled() {
		return nil, fmt.Errorf("consultation %s is encrypted: %w", id, crypto.ErrUnavailable)
	}
	if err := decryptFields(s.engine,
		&req.Name, &req.Email, &req.Phone, &req.ConditionDescription); err != nil {
		return nil, fmt.Errorf("decrypt consultation %s: %w", id, err)
	}

	if err := s.auditAccess(ctx, "consultation_request", id, "viewed consultation request", true); err != nil {
		if s.auditor.FailClosed(audit.EventAccess) {
			return nil, err
		}
		s.log.Warn("consultation read without audit trail", "request_id", id, "error", err)
	}

	return req, nil
}

// DeleteContact removes one contact row. Registered as the retention
// purger for the contacts resource type.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse contact id: %w", err)
	}
	return s.contacts.Delete(ctx, parsed)
}

// DeleteConsultation removes one consultation row. Registered as the
// retention purger for the consultation_requests resource type.
func (s *Service) DeleteConsultation(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse consultation id: %w", err)
	}
	return s.consultations.Delete(ctx, parsed)
}

func (s *Service) scheduleRetention(ctx context.Context, resourceType string, id uuid.UUID, createdAt time.Time) {
	_, err := s.scheduler.Schedule(ctx, resourceType, id.String(), createdAt)
	if err != nil && !errors.Is(err, retention.ErrDuplicateSchedule) {
		// The sweep can only delete what it knows about, so a failed
		// schedule is loud even though the submission itself succeeded.
		s.log.Error("failed to schedule retention",
			"resource_type", resourceType, "resource_id", id, "error", err)
	}
}

func (s *Service) auditCreate(ctx context.Context, resourceType string, id uuid.UUID, action string, phiInvolved bool, scan map[string]phi.Result) error {
	detail := map[string]any{}
	if categories := flaggedCategories(scan); len(categories) > 0 {
		detail["phi_categories"] = categories
	}
	_, err := s.auditor.Log(ctx, audit.Record{
		EventType:    audit.EventCreate,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: resourceType,
		ResourceID:   id.String(),
		Action:       action,
		PHIInvolved:  phiInvolved,
		Detail:       detail,
	})
	return err
}

func (s *Service) auditAccess(ctx context.Context, resourceType string, id uuid.UUID, action string, phiInvolved bool) error {
	record := audit.Record{
		EventType:    audit.EventAccess,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: resourceType,
		ResourceID:   id.String(),
		Action:       action,
		PHIInvolved:  phiInvolved,
	}
	if actor, ok := auth.GetActor(ctx); ok {
		record.ActorID = actor.ID
		record.ActorEmail = actor.Email
	}
	_, err := s.auditor.Log(ctx, record)
	return err
}

// auditFailure records a failed business write. Best effort: the caller is
// already returning the original error.
func (s *Service) auditFailure(ctx context.Context, resourceType, action string, phiInvolved bool, cause error) {
	if _, err := s.auditor.Log(ctx, audit.Record{
		EventType:    audit.EventCreate,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: resourceType,
		Action:       action,
		Outcome:      audit.OutcomeFailure,
		PHIInvolved:  phiInvolved,
		Detail:       map[string]any{"error": cause.Error()},
	}); err != nil {
		s.log.Error("failed to audit rejected submission", "resource_type", resourceType, "error", err)
	}
}

func validateContact(input ContactInput) error {
	switch {
	case strings.TrimSpace(input.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case !validEmail(input.Email):
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	case strings.TrimSpace(input.Subject) == "":
		return fmt.Errorf("%w: subject is required", ErrValidation)
	case strings.TrimSpace(input.Message) == "":
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	return nil
}

func validateConsultation(input ConsultationInput) error {
	switch {
	case strings.TrimSpace(input.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case !validEmail(input.Email):
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	case strings.TrimSpace(input.ConditionDescription) == "":
		return fmt.Errorf("%w: condition description is required", ErrValidation)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

func (s *Service) scanValues(fields map[string]string) map[string]phi.Result {
	results := make(map[string]phi.Result, len(fields))
	for name, value := range fields {
		results[name] = s.detector.Scan(value)
	}
	return results
}

func anyPHI(scan map[string]phi.Result) bool {
	for _, result := range scan {
		if result.IsPHI {
			return true
		}
	}
	return false
}

func flaggedCategories(scan map[string]phi.Result) []string {
	seen := map[phi.Category]bool{}
	var categories []string
	for _, result := range scan {
		for _, category := range result.Categories {
			if !seen[category] {
				seen[category] = true
				categories = append(categories, string(category))
			}
		}
	}
	return categories
}

func encryptFields(engine *crypto.Engine, fields ...*string) error {
	for _, field := range fields {
		if *field == "" {
			continue
		}
		encrypted, err := engine.Encrypt(*field)
		if err != nil {
			return err
		}
		*field = encrypted
	}
	return nil
}

func decryptFields(engine *crypto.Engine, fields ...*string) error {
	for _, field := range fields {
		if *field == "" {
			continue
		}
		decrypted, err := engine.Decrypt(*field)
		if err != nil {
			return err
		}
		*field = decrypted
	}
	return nil
}
