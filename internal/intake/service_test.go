package intake

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/crypto"
	"vetdocs/internal/hipaa/phi"
	"vetdocs/internal/hipaa/retention"
)

type testEnv struct {
	service        *Service
	contacts       *MemoryContactStore
	consultations  *MemoryConsultationStore
	auditStore     *audit.MemoryStore
	retentionStore *retention.MemoryStore
	engine         *crypto.Engine
}

func newTestEnv(t *testing.T, opts ...audit.Option) *testEnv {
	t.Helper()

	engine, err := crypto.New("test-encryption-secret", 100000)
	require.NoError(t, err)
	return newTestEnvWithEngine(t, engine, opts...)
}

func newTestEnvWithEngine(t *testing.T, engine *crypto.Engine, opts ...audit.Option) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	detector := phi.NewDetector()
	auditStore := audit.NewMemoryStore()
	auditor := audit.NewLogger(auditStore, detector, log, opts...)
	retentionStore := retention.NewMemoryStore()
	scheduler := retention.NewScheduler(retentionStore, auditor, 6, log)

	contacts := NewMemoryContactStore()
	consultations := NewMemoryConsultationStore()
	service := NewService(contacts, consultations, engine, detector, auditor, scheduler, log)
	scheduler.RegisterPurger(ResourceContacts, retention.PurgeFunc(service.DeleteContact))
	scheduler.RegisterPurger(ResourceConsultations, retention.PurgeFunc(service.DeleteConsultation))

	return &testEnv{
		service:        service,
		contacts:       contacts,
		consultations:  consultations,
		auditStore:     auditStore,
		retentionStore: retentionStore,
		engine:         engine,
	}
}

func phiContactInput() ContactInput {
	return ContactInput{
		Name:    "Jane Veteran",
		Email:   "jane@example.com",
		Phone:   "555-0100",
		Subject: "Nexus letter request",
		Message: "I was diagnosed with PTSD. My SSN is 123-45-6789.",
	}
}

func TestCreateContactWithPHI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contact, err := env.service.CreateContact(ctx, phiContactInput())
	require.NoError(t, err)

	// The caller gets plaintext back.
	assert.Equal(t, "Jane Veteran", contact.Name)
	assert.True(t, contact.PHIInvolved)
	assert.Len(t, contact.EmailHash, 64)

	// The stored row holds ciphertext for identity and free-text fields.
	stored, err := env.contacts.FindByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Name, "v1:"))
	assert.True(t, strings.HasPrefix(stored.Email, "v1:"))
	assert.True(t, strings.HasPrefix(stored.Phone, "v1:"))
	assert.True(t, strings.HasPrefix(stored.Subject, "v1:"))
	assert.True(t, strings.HasPrefix(stored.Message, "v1:"))
	assert.NotContains(t, stored.Message, "123-45-6789")

	decrypted, err := env.engine.Decrypt(stored.Email)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", decrypted)

	// A creation audit record exists and carries no raw identifiers.
	records, err := env.auditStore.Query(ctx, audit.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, audit.EventCreate, records[0].EventType)
	assert.Equal(t, "contact", records[0].ResourceType)
	assert.Equal(t, contact.ID.String(), records[0].ResourceID)
	assert.True(t, records[0].PHIInvolved)

	raw, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "123-45-6789")
	assert.NotContains(t, string(raw), "jane@example.com")

	// Retention was scheduled six years out.
	due, err := env.retentionStore.FindDue(ctx, contact.CreatedAt.AddDate(6, 0, 1))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ResourceContacts, due[0].ResourceType)
	assert.Equal(t, contact.ID.String(), due[0].ResourceID)
}

func TestCreateContactWithoutPHI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contact, err := env.service.CreateContact(ctx, ContactInput{
		Name:    "John Smith",
		Email:   "john@example.com",
		Subject: "General question",
		Message: "What are your office hours?",
	})
	require.NoError(t, err)
	assert.False(t, contact.PHIInvolved)
	assert.Empty(t, contact.EmailHash)

	// Nothing scanned positive, so the row is stored in plaintext.
	stored, err := env.contacts.FindByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", stored.Name)
	assert.Equal(t, "john@example.com", stored.Email)
	assert.False(t, stored.PHIInvolved)

	records, err := env.auditStore.Query(ctx, audit.Filter{EventType: audit.EventCreate})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].PHIInvolved)
}

func TestCreateContactPHIInSubjectOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// PHI appears only in the subject line; every free-text field must
	// still reach the store encrypted.
	contact, err := env.service.CreateContact(ctx, ContactInput{
		Name:    "Jane Veteran",
		Email:   "jane@example.com",
		Subject: "My SSN is 123-45-6789, diagnosis PTSD",
		Message: "Please call me back.",
	})
	require.NoError(t, err)
	assert.True(t, contact.PHIInvolved)

	stored, err := env.contacts.FindByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Subject, "v1:"))
	assert.NotContains(t, stored.Subject, "123-45-6789")
	assert.True(t, strings.HasPrefix(stored.Message, "v1:"))

	fetched, err := env.service.GetContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "My SSN is 123-45-6789, diagnosis PTSD", fetched.Subject)
}

func TestCreateContactPHIRequiresEncryption(t *testing.T) {
	var disabled *crypto.Engine
	env := newTestEnvWithEngine(t, disabled)

	_, err := env.service.CreateContact(context.Background(), phiContactInput())
	assert.ErrorIs(t, err, crypto.ErrUnavailable)
}

func TestCreateContactValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input ContactInput
	}{
		{"missing name", ContactInput{Email: "a@b.com", Subject: "s", Message: "m"}},
		{"bad email", ContactInput{Name: "n", Email: "not-an-email", Subject: "s", Message: "m"}},
		{"missing subject", ContactInput{Name: "n", Email: "a@b.com", Message: "m"}},
		{"missing message", ContactInput{Name: "n", Email: "a@b.com", Subject: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.CreateContact(ctx, tc.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateContactAuditFailureClosed(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	detector := phi.NewDetector()
	engine, err := crypto.New("test-encryption-secret", 100000)
	require.NoError(t, err)

	auditor := audit.NewLogger(failingAuditStore{}, detector, log)
	retentionStore := retention.NewMemoryStore()
	scheduler := retention.NewScheduler(retentionStore, auditor, 6, log)
	contacts := NewMemoryContactStore()
	service := NewService(contacts, NewMemoryConsultationStore(), engine, detector, auditor, scheduler, log)

	contact, err := service.CreateContact(context.Background(), phiContactInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrAuditWrite)
	assert.Nil(t, contact)

	// The business row was rolled back: no record without its trail.
	assert.Empty(t, contacts.contacts)
}

func TestGetContactDecryptsAndAudits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateContact(ctx, phiContactInput())
	require.NoError(t, err)

	contact, err := env.service.GetContact(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Veteran", contact.Name)
	assert.Equal(t, "jane@example.com", contact.Email)
	assert.Equal(t, "Nexus letter request", contact.Subject)
	assert.Contains(t, contact.Message, "PTSD")

	records, err := env.auditStore.Query(ctx, audit.Filter{EventType: audit.EventAccess})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, created.ID.String(), records[0].ResourceID)
	assert.True(t, records[0].PHIInvolved)
}

func TestGetContactReadsSurviveAuditOutage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.service.CreateContact(ctx, phiContactInput())
	require.NoError(t, err)

	// Swap the working auditor for one whose store always fails; with the
	// default open read policy the read still succeeds.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	detector := phi.NewDetector()
	broken := audit.NewLogger(failingAuditStore{}, detector, log)
	scheduler := retention.NewScheduler(retention.NewMemoryStore(), broken, 6, log)
	service := NewService(env.contacts, env.consultations, env.engine, detector, broken, scheduler, log)

	contact, err := service.GetContact(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Veteran", contact.Name)
}

func TestGetContactNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.GetContact(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConsultationAlwaysPHI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req, err := env.service.CreateConsultation(ctx, ConsultationInput{
		Name:                 "Sam Veteran",
		Email:                "sam@example.com",
		ServiceBranch:        "Army",
		DischargeYear:        2015,
		ConditionDescription: "Chronic knee pain since deployment.",
	})
	require.NoError(t, err)
	assert.True(t, req.PHIInvolved)
	assert.Equal(t, "Sam Veteran", req.Name)

	stored, err := env.consultations.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Name, "v1:"))
	assert.True(t, strings.HasPrefix(stored.ConditionDescription, "v1:"))
	assert.Equal(t, "Army", stored.ServiceBranch, "structured non-identity field stays readable")

	fetched, err := env.service.GetConsultation(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chronic knee pain since deployment.", fetched.ConditionDescription)
}

func TestCreateConsultationRequiresEncryption(t *testing.T) {
	var disabled *crypto.Engine
	env := newTestEnvWithEngine(t, disabled)

	_, err := env.service.CreateConsultation(context.Background(), ConsultationInput{
		Name:                 "Sam Veteran",
		Email:                "sam@example.com",
		ConditionDescription: "Chronic knee pain.",
	})
	assert.ErrorIs(t, err, crypto.ErrUnavailable)
}

func TestRetentionPurgeDeletesContact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contact, err := env.service.CreateContact(ctx, phiContactInput())
	require.NoError(t, err)

	scheduler := retention.NewScheduler(env.retentionStore,
		audit.NewLogger(env.auditStore, phi.NewDetector(), slog.New(slog.NewTextHandler(io.Discard, nil))),
		6, slog.New(slog.NewTextHandler(io.Discard, nil)))
	scheduler.RegisterPurger(ResourceContacts, retention.PurgeFunc(env.service.DeleteContact))

	results, err := scheduler.ExecuteDue(ctx, contact.CreatedAt.AddDate(6, 0, 1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Err)

	_, err = env.contacts.FindByID(ctx, contact.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Record) error {
	return assert.AnError
}

func (failingAuditStore) Query(context.Context, audit.Filter) ([]audit.Record, error) {
	return nil, assert.AnError
}

func (failingAuditStore) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, assert.AnError
}
