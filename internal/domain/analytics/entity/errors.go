package entity

import (
	"errors"
	"fmt"
)

// Domain errors for analytics
var (
	ErrMissingWorkspaceID = errors.New("workspace_id is required")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("not a member of this workspace")
	ErrAggregationFailure = errors.New("analytics aggregation failed")
	ErrExportFailure      = errors.New("analytics export failed")
)

// Aggregation stages, used to identify which read failed
const (
	StageWidgets        = "widgets"
	StageCurrentEvents  = "current events"
	StagePreviousEvents = "previous events"
	StageCurrentUsers   = "current users"
	StagePreviousUsers  = "previous users"
	StageDailyUsers     = "daily users"
)

// AggregationError wraps a data store failure with the stage that produced it
type AggregationError struct {
	Stage string
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s: reading %s: %v", ErrAggregationFailure, e.Stage, e.Err)
}

// Unwrap lets errors.Is match both the failure class and the cause
func (e *AggregationError) Unwrap() []error {
	return []error{ErrAggregationFailure, e.Err}
}
