package worker

import (
	"fmt"

	"proxy-checker/internal/domain"
)

// CheckError represents a failure while checking one record of a batch
type CheckError struct {
	Stage string          // The stage where the error occurred
	ID    domain.RecordID // Record being checked
	Err   error           // Original error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: record %d: %v", e.Stage, e.ID, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

func NewCheckError(stage string, id domain.RecordID, err error) error {
	return &CheckError{
		Stage: stage,
		ID:    id,
		Err:   err,
	}
}
