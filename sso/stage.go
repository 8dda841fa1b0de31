package sso

import "fmt"

// Stage is a step of a login attempt. Attempts move through the stages in
// declaration order and stop at the first failure. Only the stages a
// rejection can follow are named; an attempt that mints a token returns it.
type Stage string

const (
	StageReceived          Stage = "received"
	StageClaimsExtracted   Stage = "claims_extracted"
	StageIdentityValidated Stage = "identity_validated"
	StageUserResolved      Stage = "user_resolved"
)

// RejectedError is the terminal state of a failed attempt. Stage is the last
// stage the attempt reached; Err carries the failure kind.
type RejectedError struct {
	Stage Stage
	Err   error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sso login rejected after %s: %v", e.Stage, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

func reject(stage Stage, err error) error {
	return &RejectedError{Stage: stage, Err: err}
}
