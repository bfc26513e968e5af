package main

import (
	"errors"

	"github.com/xi-lua/sentinel/pkg/errs"
)

// Exit codes. 0 on success is cobra's default; everything else maps a
// sentinel error kind to a distinct code so scripts can branch on it
// without parsing stderr.
const (
	exitAdmissionDenied    = 2
	exitKillSwitchTripped  = 3
	exitChainIntegrity     = 4
	exitConfigError        = 5
	exitUnexpected         = 1
)

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrAdmissionDenied):
		return exitAdmissionDenied
	case errors.Is(err, errs.ErrKillSwitchTripped):
		return exitKillSwitchTripped
	case errors.Is(err, errs.ErrChainIntegrity):
		return exitChainIntegrity
	case errors.Is(err, errs.ErrConfig):
		return exitConfigError
	default:
		return exitUnexpected
	}
}
