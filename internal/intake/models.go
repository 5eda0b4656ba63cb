// Package intake handles inbound contact form submissions and
// consultation requests. This is where visitor-supplied PHI enters the
// system, so every write runs the full compliance pipeline: detection,
// field encryption, retention scheduling, and audit.
package intake

import (
	"time"

	"github.com/google/uuid"
)

// StatusNew is the initial workflow state for any submission.
const StatusNew = "new"

const (
	// ResourceContacts is the retention resource type for contacts.
	ResourceContacts = "contacts"
	// ResourceConsultations is the retention resource type for
	// consultation requests.
	ResourceConsultations = "consultation_requests"
)

// ContactInput is the visitor-supplied contact form payload.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Contact is a stored contact submission. When PHIInvolved is set the
// identity and free-text fields hold encrypted blobs at rest; the
// service decrypts them on read.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	PHIInvolved bool      `json:"phi_involved"`
	EmailHash   string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ConsultationInput is the consultation request payload.
type ConsultationInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Phone                string `json:"phone,omitempty"`
	ServiceBranch        string `json:"serviceBranch"`
	DischargeYear        int    `json:"dischargeYear,omitempty"`
	ConditionDescription string `json:"conditionDescription"`
}

// ConsultationRequest is a stored consultation request. The condition
// description is a medical narrative, so these are always treated as
// PHI-bearing regardless of what the detector finds.
type ConsultationRequest struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone,omitempty"`
	ServiceBranch        string    `json:"serviceBranch"`
	DischargeYear        int       `json:"dischargeYear,omitempty"`
	ConditionDescription string    `json:"conditionDescription"`
	Status               string    `json:"status"`
	PHIInvolved          bool      `json:"phi_involved"`
	EmailHash            string    `json:"-"`
	CreatedAt            time.Time `json:"createdAt"`
}
