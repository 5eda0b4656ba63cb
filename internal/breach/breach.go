// Package breach records HIPAA breach incidents. Reports come from
// administrators; each one is persisted and leaves an audit trail.
package breach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/pkg/platform/middleware/auth"
	"vetdocs/pkg/platform/middleware/metadata"
)

// Severity levels for an incident.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// StatusInvestigating is the initial state of every reported incident.
const StatusInvestigating = "investigating"

var (
	ErrNotFound   = errors.New("breach: incident not found")
	ErrValidation = errors.New("breach: invalid report")
)

// Input is an administrator's breach report.
type Input struct {
	IncidentDate             time.Time `json:"incident_date"`
	IncidentType             string    `json:"incident_type"`
	Description              string    `json:"description"`
	AffectedIndividualsCount int       `json:"affected_individuals_count"`
	PHITypesInvolved         []string  `json:"phi_types_involved"`
	Cause                    string    `json:"cause"`
	Severity                 string    `json:"severity"`
}

// Incident is a persisted breach record.
type Incident struct {
	ID                       uuid.UUID `json:"id"`
	IncidentDate             time.Time `json:"incident_date"`
	DiscoveredDate           time.Time `json:"discovered_date"`
	IncidentType             string    `json:"incident_type"`
	Description              string    `json:"description"`
	AffectedIndividualsCount int       `json:"affected_individuals_count"`
	PHITypesInvolved         []string  `json:"phi_types_involved"`
	Cause                    string    `json:"cause,omitempty"`
	Severity                 string    `json:"severity"`
	Status                   string    `json:"status"`
}

// Store persists incidents.
type Store interface {
	Insert(ctx context.Context, incident Incident) error
	FindByID(ctx context.Context, id uuid.UUID) (*Incident, error)
	List(ctx context.Context) ([]Incident, error)
}

// Service validates and records incidents. Breach reports are themselves
// compliance evidence, so a failed audit write fails the report.
type Service struct {
	store   Store
	auditor *audit.Logger
	log     *slog.Logger
}

func NewService(store Store, auditor *audit.Logger, log *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, log: log}
}

// Report persists a new incident and audits the report.
func (s *Service) Report(ctx context.Context, input Input) (*Incident, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	incident := Incident{
		ID:                       uuid.New(),
		IncidentDate:             input.IncidentDate,
		DiscoveredDate:           time.Now().UTC(),
		IncidentType:             input.IncidentType,
		Description:              input.Description,
		AffectedIndividualsCount: input.AffectedIndividualsCount,
		PHITypesInvolved:         input.PHITypesInvolved,
		Cause:                    input.Cause,
		Severity:                 input.Severity,
		Status:                   StatusInvestigating,
	}
	if incident.Severity == "" {
		incident.Severity = SeverityMedium
	}

	if err := s.store.Insert(ctx, incident); err != nil {
		return nil, fmt.Errorf("record breach incident: %w", err)
	}

	record := audit.Record{
		EventType:    audit.EventCreate,
		ClientIP:     metadata.GetClientIP(ctx),
		UserAgent:    metadata.GetUserAgent(ctx),
		ResourceType: "breach_incident",
		ResourceID:   incident.ID.String(),
		Action:       "reported HIPAA breach incident",
		PHIInvolved:  true,
		Detail: map[string]any{
			"incident_type": incident.IncidentType,
			"severity":      incident.Severity,
		},
	}
	if actor, ok := auth.GetActor(ctx); ok {
		record.ActorID = actor.ID
		record.ActorEmail = actor.Email
	}
	if _, err := s.auditor.Log(ctx, record); err != nil {
		if s.auditor.FailClosed(audit.EventCreate) {
			return nil, err
		}
		s.log.Warn("breach incident recorded without audit trail",
			"incident_id", incident.ID, "error", err)
	}

	return &incident, nil
}

// Get returns one incident.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Incident, error) {
	return s.store.FindByID(ctx, id)
}

// List returns all incidents, newest discovery first.
func (s *Service) List(ctx context.Context) ([]Incident, error) {
	return s.store.List(ctx)
}

func validate(input Input) error {
	switch {
	case input.IncidentDate.IsZero():
		return fmt.Errorf("%w: incident_date is required", ErrValidation)
	case strings.TrimSpace(input.IncidentType) == "":
		return fmt.Errorf("%w: incident_type is required", ErrValidation)
	case strings.TrimSpace(input.Description) == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case input.AffectedIndividualsCount < 0:
		return fmt.Errorf("%w: affected_individuals_count cannot be negative", ErrValidation)
	}
	switch input.Severity {
	case "", SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return nil
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrValidation, input.Severity)
	}
}
