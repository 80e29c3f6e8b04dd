package model

import (
	"fmt"
	"strings"
	"time"
)

// Stable machine-readable error codes used in StructuredError.Code.
const (
	CodeDownloadFailed   = "DOWNLOAD_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeDNSFailure       = "DNS_FAILURE"
	CodeAuthRequired     = "AUTH_REQUIRED"
	CodeNotFound         = "CONTENT_NOT_FOUND"
	CodeAdapterTimeout   = "ADAPTER_TIMEOUT"
	CodeSessionExpired   = "SESSION_EXPIRED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodePipelineFailed   = "PIPELINE_FAILED"
)

// StructuredError is the wire form of any stage failure: a stable code,
// a human-readable reason, and a remediation hint.
type StructuredError struct {
	Code       string    `json:"code"`
	Reason     string    `json:"reason"`
	NextAction string    `json:"next_action"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewStructuredError(code, reason, nextAction string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Reason:     reason,
		NextAction: nextAction,
		Timestamp:  time.Now().UTC(),
	}
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s: %s (next: %s)", e.Code, e.Reason, e.NextAction)
}

// FetchError is the terminal failure of an exhausted adapter chain.
// Recoverable upstream by re-authentication or a corrected URL, never by
// the pipeline itself.
type FetchError struct {
	StructuredError
	Attempts []string // adapter IDs tried, in order
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed after [%s]: %s", strings.Join(e.Attempts, ", "), e.StructuredError.Error())
}

// SessionExpiredError signals that the platform rejected the current
// session handle; recovered by re-running acquisition.
type SessionExpiredError struct {
	Platform Platform
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired for %s: re-run login and retry", e.Platform)
}

// CapabilityAbsentError marks a degraded extraction sub-operation. It is
// absorbed into a limitation entry, never propagated as fatal.
type CapabilityAbsentError struct {
	Capability string
	Detail     string
}

func (e *CapabilityAbsentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("capability absent: %s", e.Capability)
	}
	return fmt.Sprintf("capability absent: %s (%s)", e.Capability, e.Detail)
}

// ValidationError is fatal: the assembled report violated the schema or an
// invariant, and no report file is emitted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report validation failed: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Structured() *StructuredError {
	return NewStructuredError(CodeValidationFailed, strings.Join(e.Problems, "; "),
		"this is a bug in report assembly; re-run with --verbose and file an issue")
}
