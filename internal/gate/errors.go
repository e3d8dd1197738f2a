package gate

import "errors"

var (
	ErrNotEnrolled           = errors.New("gate: no face enrolled")
	ErrLocationNotAllowed    = errors.New("gate: location not allowed")
	ErrAlreadyClockedIn      = errors.New("gate: already clocked in today")
	ErrAttemptPending        = errors.New("gate: a scan is already in progress")
	ErrZoneSelectionRequired = errors.New("gate: several zones match, pick one")
	ErrUnknownZone           = errors.New("gate: zone is not available here")
	ErrClosed                = errors.New("gate: session closed")
	ErrNoActiveScan          = errors.New("gate: no scan in progress")
	ErrNotWatching           = errors.New("gate: position watch is not running")
)
