package service

import "errors"

// Reason classifies a rejected request.
type Reason string

const (
	ReasonInvalidAuth   Reason = "invalid-auth"
	ReasonInvalidTarget Reason = "invalid-target"
	ReasonInvalidParams Reason = "invalid-params"
	ReasonRateLimited   Reason = "rate-limited"
	ReasonDisabled      Reason = "disabled"
	ReasonForbidden     Reason = "forbidden"
)

// Failure is a soft rejection reported to the caller. Nothing is computed or
// cached for a request that fails.
type Failure struct {
	Reason  Reason
	Message string
}

func (f *Failure) Error() string {
	return string(f.Reason) + ": " + f.Message
}

func fail(reason Reason, message string) *Failure {
	return &Failure{Reason: reason, Message: message}
}

var (
	errNotLoggedIn   = fail(ReasonInvalidAuth, "You must be logged in to view mutual friends.")
	errInvalidUserID = fail(ReasonInvalidTarget, "Invalid user ID")
	errUserNotFound  = fail(ReasonInvalidTarget, "User not found")
	errRateLimited   = fail(ReasonRateLimited, "Too many requests. Please try again later.")
	errInvalidParams = fail(ReasonInvalidParams, "Invalid parameters")
	errDisabled      = fail(ReasonDisabled, "Mutual friends are disabled.")
)

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
