package cluster

import (
	kubeerr "k8s.io/apimachinery/pkg/api/errors"

	"github.com/poddle/poddle/pkg/domain"
)

// ClassifyError maps a cluster API error onto the domain error taxonomy.
//
// Timeouts, conflicts, throttling, and server-side unavailability are
// transient; a retry may succeed. Invalid specs, forbidden operations,
// and exhausted quotas are fatal; retries cannot fix them. Anything
// unrecognized is treated as transient so it is at least retried.
func ClassifyError(message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case kubeerr.IsInvalid(err),
		kubeerr.IsBadRequest(err),
		kubeerr.IsForbidden(err),
		kubeerr.IsRequestEntityTooLargeError(err):
		return domain.NewFatalProvisionCausedBy(message, err)

	case kubeerr.IsTimeout(err),
		kubeerr.IsServerTimeout(err),
		kubeerr.IsConflict(err),
		kubeerr.IsTooManyRequests(err),
		kubeerr.IsServiceUnavailable(err),
		kubeerr.IsInternalError(err),
		kubeerr.IsUnexpectedServerError(err):
		return domain.NewTransientCausedBy(message, err)

	default:
		return domain.NewTransientCausedBy(message, err)
	}
}
