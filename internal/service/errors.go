package service

import "errors"

var (
	// ErrPlanTooLarge is returned when the effective step count exceeds the action ceiling.
	ErrPlanTooLarge = errors.New("plan exceeds max actions")
	// ErrEmptyPlan is returned for plans with nothing to execute.
	ErrEmptyPlan = errors.New("plan has no actions")
	// ErrEmptyInstruction is returned by the planner for a blank instruction.
	ErrEmptyInstruction = errors.New("instruction is required")
)

// IsValidation reports whether err is a plan validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPlanTooLarge) || errors.Is(err, ErrEmptyPlan) || errors.Is(err, ErrEmptyInstruction)
}
