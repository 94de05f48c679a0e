package jobs

import "errors"

var (
	ErrNotFound = errors.New("job not found")
	// ErrValidation wraps every rejected input; nothing was written.
	ErrValidation           = errors.New("invalid job input")
	ErrActiveJobExists      = errors.New("actor already has an active job")
	ErrProviderBusy         = errors.New("provider already has an active job")
	ErrSecurityCodeMismatch = errors.New("security code does not match")
	ErrJobClosed            = errors.New("job is no longer active")
)
