package job

import "errors"

var (
	// ErrAborted is the cancellation cause set when a job is aborted by
	// the user. The manager maps it to the aborted terminal status
	// instead of failed.
	ErrAborted = errors.New("job aborted by user")

	// ErrJobNotFound is returned when looking up an unknown job ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrManagerClosed is returned when starting a job on a closed manager.
	ErrManagerClosed = errors.New("job manager is closed")
)
