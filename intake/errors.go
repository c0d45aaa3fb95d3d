package intake

import "errors"

var (
	// ErrDraftCorrupt marks a stored draft that could not be decoded. It is logged, never returned.
	ErrDraftCorrupt = errors.New("stored draft is corrupt")
	// ErrStepLocked is returned when a jump would skip a step that has not been validated
	ErrStepLocked = errors.New("cannot jump forward past an unvalidated step")
	// ErrAlreadySubmitted is returned by every mutation after a successful submit or cancel
	ErrAlreadySubmitted = errors.New("intake already finished")
	// ErrNotAtReview is returned when submit is called before the review step
	ErrNotAtReview = errors.New("submit is only allowed from the review step")
	// ErrUnknownStep is returned for a step name outside the wizard
	ErrUnknownStep = errors.New("unknown step")
	// ErrNoSession is returned by the manager when no intake is in progress
	ErrNoSession = errors.New("no intake in progress")
)
