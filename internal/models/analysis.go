package models

import (
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StringList normalizes tag-style columns that arrive from PostgREST-era data
// either as a real JSON array or as a JSON-encoded string ("[\"a\",\"b\"]").
// Downstream consumers always see a plain []string.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err == nil {
		*s = values
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &values); err == nil {
			*s = values
			return nil
		}
	}
	// Plain comma-separated fallback
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	*s = values
	return nil
}

// NormalizeStringList converts a loosely-typed row value (JSON string,
// []any, []string or nil) into a StringList at the store boundary.
func NormalizeStringList(v any) StringList {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []any:
		out := make(StringList, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var list StringList
		quoted, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		if err := list.UnmarshalJSON(quoted); err != nil {
			return nil
		}
		return list
	default:
		return nil
	}
}

// CleanLanguage strips wrapping single quotes and whitespace from language
// values; dirty variants like "'Spanish'" and "Spanish" collapse together.
func CleanLanguage(val string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(val), "'"))
}

// AnalysisResult is the typed view of one analyzed call. Fields mirror the
// analysis_results columns served to the dashboard; detail-only columns are
// fetched on demand and stay in the raw row.
type AnalysisResult struct {
	SourceTranscriptID   string     `json:"source_transcript_id"`
	CaseType             string     `json:"case_type"`
	QualityScore         *int       `json:"quality_score"`
	EmotionalTone        string     `json:"emotional_tone"`
	Outcome              string     `json:"outcome"`
	OriginalLanguage     string     `json:"original_language"`
	KeyQuote             string     `json:"key_quote"`
	Summary              string     `json:"summary"`
	PrimaryTopic         string     `json:"primary_topic"`
	SuggestedTags        StringList `json:"suggested_tags"`
	ContentWorthy        bool       `json:"content_generation_flag"`
	TestimonialCandidate bool       `json:"testimonial_candidate"`
	TestimonialType      string     `json:"testimonial_type"`
	ConfidenceScore      *float64   `json:"confidence_score"`
	CaseValueCategory    string     `json:"estimated_case_value_category"`
	AnalyzedAt           *time.Time `json:"analyzed_at"`
}

// Testimonial pipeline states, in triage order.
var TestimonialStatuses = []string{
	"flagged",
	"contacted",
	"scheduled",
	"recorded",
	"published",
	"declined",
}

func ValidTestimonialStatus(status string) bool {
	for _, s := range TestimonialStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// TestimonialEntry is a row of the testimonial_pipeline table.
type TestimonialEntry struct {
	SourceTranscriptID string     `json:"source_transcript_id"`
	Status             string     `json:"status"`
	TestimonialType    string     `json:"testimonial_type"`
	QualityScore       *int       `json:"quality_score"`
	KeyQuote           string     `json:"key_quote"`
	Notes              string     `json:"notes"`
	StatusUpdatedAt    *time.Time `json:"status_updated_at"`
	StatusUpdatedBy    string     `json:"status_updated_by"`
}

// MetricCounts feeds the dashboard metric cards for one time window.
type MetricCounts struct {
	Quotes        int `json:"quotes"`
	Testimonials  int `json:"testimonials"`
	ContentWorthy int `json:"content_worthy"`
	MedianQuality int `json:"median_quality"`
}

// DailyVolume is one point of the call-volume trend.
type DailyVolume struct {
	Date       string  `json:"date"`
	Count      int     `json:"count"`
	AvgQuality float64 `json:"avg_quality"`
}

// PipelineStats backs the orientation billboard.
type PipelineStats struct {
	Total  int    `json:"total"`
	Since  string `json:"since"`
	Active bool   `json:"active"`
}
