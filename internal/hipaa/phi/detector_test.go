package phi

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"vetdocs/internal/platform/metrics"
)

func TestScan(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		text       string
		isPHI      bool
		categories []Category
	}{
		{
			name:       "ssn with dashes",
			text:       "SSN: 123-45-6789",
			isPHI:      true,
			categories: []Category{CategorySSN},
		},
		{
			name:  "plain greeting",
			text:  "Hello, how are you?",
			isPHI: false,
		},
		{
			name:  "business question",
			text:  "What are your hours?",
			isPHI: false,
		},
		{
			name:       "diagnosis plus ssn",
			text:       "My diagnosis is diabetes, SSN 123-45-6789",
			isPHI:      true,
			categories: []Category{CategoryDiagnosisKeyword, CategorySSN},
		},
		{
			name:       "date of birth numeric",
			text:       "I was born 04/17/1969 in Ohio",
			isPHI:      true,
			categories: []Category{CategoryDateOfBirth},
		},
		{
			name:       "dob keyword",
			text:       "my date of birth is on file",
			isPHI:      true,
			categories: []Category{CategoryDateOfBirth},
		},
		{
			name:       "medical record number",
			text:       "MRN: A4418-22 from the VA hospital",
			isPHI:      true,
			categories: []Category{CategoryMedicalRecordNum},
		},
		{
			name:       "medication mention",
			text:       "I take sertraline daily, the dosage was raised last year",
			isPHI:      true,
			categories: []Category{CategoryMedicationKeyword},
		},
		{
			name:       "case insensitive",
			text:       "DIAGNOSED with PTSD after deployment",
			isPHI:      true,
			categories: []Category{CategoryDiagnosisKeyword},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := d.Scan(tt.text)
			assert.Equal(t, tt.isPHI, result.IsPHI)
			if tt.categories != nil {
				assert.ElementsMatch(t, tt.categories, result.Categories)
			}
		})
	}
}

func TestScanRecord(t *testing.T) {
	d := NewDetector()

	results := d.ScanRecord(map[string]string{
		"name":         "John",
		"email":        "john@example.com",
		"message":      "What are your hours?",
		"service_type": "consultation",
	})

	// Sensitive field names are flagged regardless of content.
	assert.True(t, results["name"].IsPHI)
	assert.True(t, results["email"].IsPHI)
	// Content-only fields follow the scanner.
	assert.False(t, results["message"].IsPHI)
	assert.False(t, results["service_type"].IsPHI)

	results = d.ScanRecord(map[string]string{
		"message": "My diagnosis is diabetes, SSN 123-45-6789",
	})
	assert.True(t, results["message"].IsPHI)
	assert.ElementsMatch(t, []Category{CategorySSN, CategoryDiagnosisKeyword}, results["message"].Categories)
}

func TestScanRecordFieldNameCaseInsensitive(t *testing.T) {
	d := NewDetector()
	results := d.ScanRecord(map[string]string{"SSN": "on file"})
	assert.True(t, results["SSN"].IsPHI)
}

func TestRedact(t *testing.T) {
	d := NewDetector()

	detail := map[string]any{
		"name":         "John Doe",
		"email":        "john@example.com",
		"service_type": "consultation",
		"price":        100,
		"note":         "patient diagnosed with diabetes",
	}

	redacted := d.Redact(detail)

	assert.Equal(t, RedactedPlaceholder, redacted["name"])
	assert.Equal(t, RedactedPlaceholder, redacted["email"])
	assert.Equal(t, "consultation", redacted["service_type"])
	assert.Equal(t, 100, redacted["price"])
	// Free-text value caught by content scanning.
	assert.Equal(t, RedactedPlaceholder, redacted["note"])

	// Input map is untouched.
	assert.Equal(t, "John Doe", detail["name"])

	assert.Nil(t, d.Redact(nil))
}

func TestScanIsPure(t *testing.T) {
	d := NewDetector()
	first := d.Scan("SSN: 123-45-6789")
	second := d.Scan("SSN: 123-45-6789")
	assert.Equal(t, first, second)
}

func TestScanCountsDetectionsByCategory(t *testing.T) {
	met := &metrics.Metrics{
		PHIDetections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phi_detections_test_total",
		}, []string{"category"}),
	}
	d := NewDetector(WithMetrics(met))

	d.Scan("My diagnosis is diabetes, SSN 123-45-6789")
	d.Scan("SSN: 987-65-4321")
	d.Scan("What are your hours?")

	assert.Equal(t, 2.0, testutil.ToFloat64(met.PHIDetections.WithLabelValues(string(CategorySSN))))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.PHIDetections.WithLabelValues(string(CategoryDiagnosisKeyword))))
	assert.Equal(t, 0.0, testutil.ToFloat64(met.PHIDetections.WithLabelValues(string(CategoryMedicationKeyword))))
}
