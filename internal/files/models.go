// Package files handles document uploads: veterans attach medical and
// service records to their requests. Objects live in S3, metadata in
// Postgres. Files categorized as medical or service records are PHI and
// get the full retention and audit treatment.
package files

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// File categories. Medical and service records are PHI-sensitive.
const (
	CategoryMedicalRecord = "medical_record"
	CategoryServiceRecord = "service_record"
	CategoryPhoto         = "photo"
	CategoryDocument      = "document"
	CategoryOther         = "other"
)

// knownCategories is the closed set a client may supply.
var knownCategories = map[string]bool{
	CategoryMedicalRecord: true,
	CategoryServiceRecord: true,
	CategoryPhoto:         true,
	CategoryDocument:      true,
	CategoryOther:         true,
}

// ResourceFiles is the retention resource type for uploaded files.
const ResourceFiles = "files"

var (
	ErrNotFound        = errors.New("files: not found")
	ErrTooLarge        = errors.New("files: file exceeds size limit")
	ErrUnsupportedType = errors.New("files: file type not allowed")
	ErrContentMismatch = errors.New("files: file content does not match extension")
	ErrUnknownCategory = errors.New("files: unknown file category")
)

// File is the stored metadata for one uploaded object.
type File struct {
	ID               uuid.UUID  `json:"id"`
	OriginalFilename string     `json:"original_filename"`
	StoredKey        string     `json:"-"`
	ContentType      string     `json:"mime_type"`
	Category         string     `json:"file_category"`
	SizeBytes        int64      `json:"file_size"`
	SHA256           string     `json:"sha256"`
	ContactID        *uuid.UUID `json:"contact_id,omitempty"`
	PHIInvolved      bool       `json:"is_phi"`
	UploadedAt       time.Time  `json:"created_at"`
}

// phiCategories are treated as PHI regardless of content.
var phiCategories = map[string]bool{
	CategoryMedicalRecord: true,
	CategoryServiceRecord: true,
}

// PHICategory reports whether files in the category are PHI-sensitive.
func PHICategory(category string) bool {
	return phiCategories[category]
}
