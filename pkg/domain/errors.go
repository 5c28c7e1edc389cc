package domain

import (
	"errors"
	"fmt"

	xe "github.com/poddle/poddle/pkg/errors"
)

type wrappingError struct {
	message  string
	causedBy error
}

func as[E error](err error) bool {
	if err == nil {
		return false
	}
	p := new(E)
	return errors.As(err, p)
}

func format(e struct {
	message  string
	causedBy error
}) string {
	if e.causedBy == nil {
		return e.message
	}
	if e.message == "" {
		return fmt.Sprintf("caused by: %+v", e.causedBy)
	}

	return fmt.Sprintf("%s / caused by: %+v", e.message, e.causedBy)
}

// A command or spec did not pass validation. Never retried.
type ErrInvalid wrappingError

var AsInvalid = as[*ErrInvalid]

func NewInvalid(message string) error {
	return xe.WrapAsOuter(&ErrInvalid{message: message}, 1)
}

func NewInvalidCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrInvalid{message: message, causedBy: err}, 1)
}

func (e *ErrInvalid) Error() string {
	return format(*e)
}

func (e *ErrInvalid) Unwrap() error {
	return e.causedBy
}

// An external collaborator failed in a way that may heal on its own
// (timeout, conflict, server unavailable). Safe to retry.
type ErrTransient wrappingError

var AsTransient = as[*ErrTransient]

func NewTransient(message string) error {
	return xe.WrapAsOuter(&ErrTransient{message: message}, 1)
}

func NewTransientCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrTransient{message: message, causedBy: err}, 1)
}

func (e *ErrTransient) Error() string {
	return format(*e)
}

func (e *ErrTransient) Unwrap() error {
	return e.causedBy
}

// Provisioning was rejected for a reason retries cannot fix
// (invalid resource, forbidden, quota exceeded).
type ErrFatalProvision wrappingError

var AsFatalProvision = as[*ErrFatalProvision]

func NewFatalProvision(message string) error {
	return xe.WrapAsOuter(&ErrFatalProvision{message: message}, 1)
}

func NewFatalProvisionCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrFatalProvision{message: message, causedBy: err}, 1)
}

func (e *ErrFatalProvision) Error() string {
	return format(*e)
}

func (e *ErrFatalProvision) Unwrap() error {
	return e.causedBy
}

// The referenced deployment does not exist.
type ErrDeploymentMissing wrappingError

var AsDeploymentMissing = as[*ErrDeploymentMissing]

func NewDeploymentMissing(message string) error {
	return xe.WrapAsOuter(&ErrDeploymentMissing{message: message}, 1)
}

func NewDeploymentMissingCausedBy(message string, err error) error {
	return xe.WrapAsOuter(&ErrDeploymentMissing{message: message, causedBy: err}, 1)
}

func (e *ErrDeploymentMissing) Error() string {
	return format(*e)
}

func (e *ErrDeploymentMissing) Unwrap() error {
	return e.causedBy
}

// An accrual window was already charged for this deployment.
// Replays hit this and are skipped.
var ErrDuplicateAccrualWindow = errors.New("accrual window already charged")
