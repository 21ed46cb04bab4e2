package models

import "fmt"

// ConfigurationError signals an unknown provider or a missing required
// setting. It is fatal and never worth retrying.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// AcquisitionError signals a content acquisition failure (fetch, captions,
// transcription). The underlying cause is preserved for diagnostics.
type AcquisitionError struct {
	Reason string
	Cause  error
}

func (e *AcquisitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("acquisition failed: %s: %v", e.Reason, e.Cause)
	}
	return "acquisition failed: " + e.Reason
}

func (e *AcquisitionError) Unwrap() error { return e.Cause }

// BackendError signals an LLM call failure, carrying the provider name and
// the underlying cause. The backend never retries on its own.
type BackendError struct {
	Provider string
	Cause    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Provider, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }
