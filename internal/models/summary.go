package models

import (
	"fmt"
	"strings"
	"time"
)

// SummaryMode selects how the raw input is acquired.
type SummaryMode string

const (
	ModeText    SummaryMode = "text"
	ModeURL     SummaryMode = "url"
	ModeYouTube SummaryMode = "youtube"
)

// ParseSummaryMode validates a mode string coming from the API layer.
func ParseSummaryMode(raw string) (SummaryMode, error) {
	switch SummaryMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeText:
		return ModeText, nil
	case ModeURL:
		return ModeURL, nil
	case ModeYouTube:
		return ModeYouTube, nil
	}
	return "", fmt.Errorf("unsupported mode: %q", raw)
}

// DetailLevel is the coarse knob controlling prompt choice and output budget.
type DetailLevel string

const (
	DetailShort  DetailLevel = "short"
	DetailMedium DetailLevel = "medium"
	DetailLong   DetailLevel = "long"
)

// ParseDetailLevel validates a detail string coming from the API layer.
func ParseDetailLevel(raw string) (DetailLevel, error) {
	switch DetailLevel(strings.ToLower(strings.TrimSpace(raw))) {
	case DetailShort:
		return DetailShort, nil
	case DetailMedium, "":
		return DetailMedium, nil
	case DetailLong:
		return DetailLong, nil
	}
	return "", fmt.Errorf("unsupported detail level: %q", raw)
}

// SummaryOptions is the immutable option set for a single summarization.
// Model has the form "<provider>:<model-name>".
type SummaryOptions struct {
	Mode           SummaryMode `json:"mode"`
	Detail         DetailLevel `json:"detail"`
	Model          string      `json:"model"`
	WithTimestamps bool        `json:"with_timestamps"`
	Locale         string      `json:"locale"`
}

// Provider returns the provider prefix of the model selector.
// A selector without a prefix defaults to "openai".
func (o SummaryOptions) Provider() string {
	if idx := strings.Index(o.Model, ":"); idx >= 0 {
		return o.Model[:idx]
	}
	return "openai"
}

// ModelName returns the model part of the selector, empty if absent.
func (o SummaryOptions) ModelName() string {
	if idx := strings.Index(o.Model, ":"); idx >= 0 {
		return o.Model[idx+1:]
	}
	return ""
}

// Metadata keys attached to SummaryResult.Meta by content acquisition.
const (
	MetaHasTimestamps = "has_timestamps"
	MetaTimestamps    = "timestamps"
	MetaSource        = "source"
	MetaVideoID       = "video_id"
	MetaURL           = "url"
)

// TimestampEntry is one caption segment recorded in result metadata.
type TimestampEntry struct {
	Time      float64 `json:"time"`
	Timestamp string  `json:"timestamp"`
	Text      string  `json:"text"`
}

// SummaryResult is the cached artifact of one successful pipeline run.
// It is immutable after creation and addressed either by ID or by
// InputFingerprint.
type SummaryResult struct {
	ID               string                 `json:"id"`
	CreatedAt        time.Time              `json:"created_at"`
	Mode             SummaryMode            `json:"mode"`
	Options          SummaryOptions         `json:"options"`
	InputFingerprint string                 `json:"input_fingerprint"`
	ContentMD        string                 `json:"content_md"`
	Source           string                 `json:"source,omitempty"`
	Meta             map[string]interface{} `json:"meta,omitempty"`
}
