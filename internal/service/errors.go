package service

import "errors"

var (
	ErrEmptyCart           = errors.New("cart has no priced items, nothing to submit")
	ErrStoreRequired       = errors.New("a store must be selected before submitting")
	ErrSubmissionInFlight  = errors.New("a submission is already in progress for this session")
	ErrProductNotFound     = errors.New("product not found in this session's search results")
	ErrSessionNotFound     = errors.New("sale session not found")
	IllegalTransitionError = errors.New("illegal transition of session status")
)

// GenericSubmissionMessage is shown when the API rejects a sale without saying why.
const GenericSubmissionMessage = "The sale could not be registered"

// SubmissionError is a failed submission. Message is safe to show the cashier.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	return "sale submission failed: " + e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
