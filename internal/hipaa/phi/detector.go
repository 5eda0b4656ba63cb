// Package phi detects protected health information in free-form text and
// structured payloads. Detection is pattern and keyword based and is biased
// toward over-flagging: encrypting a harmless field is cheap, persisting an
// unflagged SSN is not.
package phi

import (
	"regexp"
	"sort"
	"strings"

	"vetdocs/internal/platform/metrics"
)

// Category classifies what kind of PHI a match resembles.
type Category string

const (
	CategorySSN               Category = "SSN"
	CategoryDateOfBirth       Category = "DATE_OF_BIRTH"
	CategoryMedicalRecordNum  Category = "MEDICAL_RECORD_NUMBER"
	CategoryDiagnosisKeyword  Category = "DIAGNOSIS_KEYWORD"
	CategoryMedicationKeyword Category = "MEDICATION_KEYWORD"
)

// Result reports whether text resembles PHI and which categories matched.
type Result struct {
	IsPHI      bool
	Categories []Category
}

// RedactedPlaceholder replaces PHI values in anything destined for a log.
const RedactedPlaceholder = "[PHI_REDACTED]"

// sensitiveFieldNames are flagged by name regardless of content.
var sensitiveFieldNames = map[string]struct{}{
	"name": {}, "email": {}, "phone": {}, "address": {},
	"ssn": {}, "medical_record_number": {}, "date_of_birth": {},
	"medical_condition": {}, "diagnosis": {}, "treatment": {},
	"medication": {}, "condition": {}, "doctor_name": {},
	"hospital_name": {}, "insurance_info": {},
}

type pattern struct {
	category Category
	re       *regexp.Regexp
}

// Detector holds the compiled pattern set. Construct once, share freely;
// scanning never mutates detector state.
type Detector struct {
	patterns []pattern
	keywords map[Category][]string
	metrics  *metrics.Metrics
}

type DetectorOption func(*Detector)

// WithMetrics counts detector positives by category.
func WithMetrics(m *metrics.Metrics) DetectorOption {
	return func(d *Detector) { d.metrics = m }
}

func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		patterns: []pattern{
			{CategorySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
			{CategorySSN, regexp.MustCompile(`\bssn\W{0,3}\d{9}\b`)},
			{CategoryDateOfBirth, regexp.MustCompile(`\b(0?[1-9]|1[0-2])[/-](0?[1-9]|[12]\d|3[01])[/-](19|20)\d{2}\b`)},
			{CategoryDateOfBirth, regexp.MustCompile(`\b(date of birth|dob|born on)\b`)},
			{CategoryMedicalRecordNum, regexp.MustCompile(`\bmrn\W{0,3}[a-z0-9-]{4,}\b`)},
			{CategoryMedicalRecordNum, regexp.MustCompile(`\bmedical record (number|no\.?)\b`)},
		},
		keywords: map[Category][]string{
			CategoryDiagnosisKeyword: {
				"diagnosis", "diagnosed", "ptsd", "tbi", "diabetes",
				"tinnitus", "hypertension", "cancer", "depression",
				"anxiety", "sleep apnea", "chronic pain", "migraine",
				"asthma", "arthritis", "disability rating",
			},
			CategoryMedicationKeyword: {
				"medication", "prescribed", "prescription", "dosage",
				"sertraline", "lisinopril", "metformin", "gabapentin",
				"ibuprofen", "prazosin", "omeprazole",
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Scan inspects free-form text. Deterministic in its input; the only side
// effect is the optional detection counter.
func (d *Detector) Scan(text string) Result {
	normalized := strings.ToLower(text)
	matched := map[Category]struct{}{}

	for _, p := range d.patterns {
		if p.re.MatchString(normalized) {
			matched[p.category] = struct{}{}
		}
	}
	for category, words := range d.keywords {
		for _, word := range words {
			if strings.Contains(normalized, word) {
				matched[category] = struct{}{}
				break
			}
		}
	}

	if len(matched) == 0 {
		return Result{}
	}
	if d.metrics != nil {
		for category := range matched {
			d.metrics.PHIDetections.WithLabelValues(string(category)).Inc()
		}
	}
	categories := make([]Category, 0, len(matched))
	for c := range matched {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return Result{IsPHI: true, Categories: categories}
}

// ScanRecord applies Scan per field and additionally flags fields whose
// names are on the always-sensitive list, whatever their content.
func (d *Detector) ScanRecord(fields map[string]string) map[string]Result {
	results := make(map[string]Result, len(fields))
	for name, value := range fields {
		result := d.Scan(value)
		if _, sensitive := sensitiveFieldNames[strings.ToLower(name)]; sensitive {
			result.IsPHI = true
		}
		results[name] = result
	}
	return results
}

// SensitiveField reports whether a field name is always treated as PHI.
func SensitiveField(name string) bool {
	_, ok := sensitiveFieldNames[strings.ToLower(name)]
	return ok
}

// Redact returns a copy of detail safe for logs: values under sensitive
// names and string values that scan positive are replaced with the
// placeholder. Non-string values under non-sensitive names pass through.
func (d *Detector) Redact(detail map[string]any) map[string]any {
	if detail == nil {
		return nil
	}
	redacted := make(map[string]any, len(detail))
	for key, value := range detail {
		if SensitiveField(key) {
			redacted[key] = RedactedPlaceholder
			continue
		}
		if s, ok := value.(string); ok && d.Scan(s).IsPHI {
			redacted[key] = RedactedPlaceholder
			continue
		}
		redacted[key] = value
	}
	return redacted
}
