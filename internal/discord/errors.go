package discord

import (
	"errors"
	"fmt"
	"net/http"
)

// Discord JSON error codes the delivery loop classifies on.
const (
	CodeUnknownChannel     = 10003
	CodeUnknownMessage     = 10008
	CodeMissingAccess      = 50001
	CodeMissingPermissions = 50013
)

// APIError is a non-2xx response from the Discord API, carrying both the
// HTTP status and Discord's own error code.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api: status %d code %d: %s", e.Status, e.Code, e.Message)
}

func apiCode(err error) (int, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return 0, false
}

func IsUnknownChannel(err error) bool {
	code, ok := apiCode(err)
	return ok && code == CodeUnknownChannel
}

func IsUnknownMessage(err error) bool {
	code, ok := apiCode(err)
	return ok && code == CodeUnknownMessage
}

func IsMissingAccess(err error) bool {
	code, ok := apiCode(err)
	return ok && code == CodeMissingAccess
}

func IsMissingPermissions(err error) bool {
	code, ok := apiCode(err)
	return ok && code == CodeMissingPermissions
}

func IsRateLimited(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusTooManyRequests
}

// FailureReason buckets a dispatch error for logging and retain decisions.
type FailureReason string

const (
	FailureUnknownChannel     FailureReason = "unknown_channel"
	FailureMissingAccess      FailureReason = "missing_access"
	FailureMissingPermissions FailureReason = "missing_permissions"
	FailureRateLimited        FailureReason = "rate_limited"
	FailureNetwork            FailureReason = "network"
	FailureUnknown            FailureReason = "unknown"
)

// ClassifyFailure maps a dispatch error to its reason bucket. Errors that
// are not APIErrors are transport-level and count as network failures.
func ClassifyFailure(err error) FailureReason {
	var ae *APIError
	if !errors.As(err, &ae) {
		return FailureNetwork
	}
	switch ae.Code {
	case CodeUnknownChannel:
		return FailureUnknownChannel
	case CodeMissingAccess:
		return FailureMissingAccess
	case CodeMissingPermissions:
		return FailureMissingPermissions
	}
	if ae.Status == http.StatusTooManyRequests {
		return FailureRateLimited
	}
	return FailureUnknown
}
