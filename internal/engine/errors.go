package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an engine-level failure: a call that could not be
// journaled at all, or a journal that does not replay. Protocol
// rejections are not RuntimeErrors; they complete with their code as the
// output case.
type RuntimeError struct {
	Code RuntimeErrorCode

	Message string

	// Action is the action URI involved, if any.
	Action string

	// FlowToken identifies the affected flow.
	FlowToken string

	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownAction: the action URI is not in the action table.
	ErrCodeUnknownAction RuntimeErrorCode = "UNKNOWN_ACTION"

	// ErrCodeInvalidArgs: args do not match the action signature.
	ErrCodeInvalidArgs RuntimeErrorCode = "INVALID_ARGS"

	// ErrCodeInvalidSender: the caller address is missing or malformed.
	ErrCodeInvalidSender RuntimeErrorCode = "INVALID_SENDER"

	// ErrCodeTimeRegression: the block time is behind the last journaled call.
	ErrCodeTimeRegression RuntimeErrorCode = "TIME_REGRESSION"

	// ErrCodeStopped: the engine queue was closed.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeReplayMismatch: re-execution diverged from the journal.
	ErrCodeReplayMismatch RuntimeErrorCode = "REPLAY_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Action != "" && e.FlowToken != "" {
		return fmt.Sprintf("%s: %s (action=%s, flow=%s)", e.Code, e.Message, e.Action, e.FlowToken)
	}
	if e.Action != "" {
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isRuntimeCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownAction reports whether err is an unknown-action error.
func IsUnknownAction(err error) bool { return isRuntimeCode(err, ErrCodeUnknownAction) }

// IsInvalidArgs reports whether err is an argument validation error.
func IsInvalidArgs(err error) bool { return isRuntimeCode(err, ErrCodeInvalidArgs) }

// IsInvalidSender reports whether err rejects the caller address.
func IsInvalidSender(err error) bool { return isRuntimeCode(err, ErrCodeInvalidSender) }

// IsTimeRegression reports whether err refused a block time in the past.
func IsTimeRegression(err error) bool { return isRuntimeCode(err, ErrCodeTimeRegression) }

// IsStopped reports whether err comes from a stopped engine.
func IsStopped(err error) bool { return isRuntimeCode(err, ErrCodeStopped) }

// IsReplayMismatch reports whether err is a replay divergence.
func IsReplayMismatch(err error) bool { return isRuntimeCode(err, ErrCodeReplayMismatch) }

// NewUnknownActionError creates a RuntimeError for an unregistered action.
func NewUnknownActionError(action string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownAction,
		Message: "no such action",
		Action:  action,
	}
}

// NewInvalidArgsError wraps an argument decoding failure.
func NewInvalidArgsError(action string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidArgs,
		Message: err.Error(),
		Action:  action,
	}
}

// NewInvalidSenderError rejects a malformed caller address.
func NewInvalidSenderError(action, sender string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidSender,
		Message: fmt.Sprintf("invalid sender %q", sender),
		Action:  action,
	}
}

// NewTimeRegressionError refuses a call whose block time now is earlier
// than last.
func NewTimeRegressionError(action string, now, last int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTimeRegression,
		Message: fmt.Sprintf("block time %d is before the last journaled block time %d", now, last),
		Action:  action,
		Details: map[string]string{
			"block_time": fmt.Sprintf("%d", now),
			"last":       fmt.Sprintf("%d", last),
		},
	}
}

// NewReplayMismatchError describes the first divergence found by Replay.
func NewReplayMismatchError(m Mismatch) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeReplayMismatch,
		Message:   m.Reason,
		Action:    string(m.Action),
		FlowToken: m.FlowToken,
		Details: map[string]string{
			"invocation_id": m.InvocationID,
			"seq":           fmt.Sprintf("%d", m.Seq),
			"want":          m.Want,
			"got":           m.Got,
		},
	}
}
