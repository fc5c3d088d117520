package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for rule validation and engine operations.
var (
	// ErrUnknownField indicates a condition references a field outside the
	// fixed candidate enumeration.
	ErrUnknownField = errors.New("unknown condition field")

	// ErrInvalidOperator indicates an operator incompatible with the field kind.
	ErrInvalidOperator = errors.New("invalid operator for field type")

	// ErrInvalidValueType indicates a condition value whose type does not
	// match the field kind (e.g. string value on a numeric field).
	ErrInvalidValueType = errors.New("condition value type does not match field")

	// ErrValueOutOfRange indicates a score value outside [0, 100].
	ErrValueOutOfRange = errors.New("condition value out of range")

	// ErrInvalidAvailability indicates an availability value outside its enum.
	ErrInvalidAvailability = errors.New("invalid availability value")

	// ErrEmptyComposite indicates a composite condition with no children.
	ErrEmptyComposite = errors.New("composite condition has no children")

	// ErrInvalidCompositeType indicates a composite type other than AND/OR.
	ErrInvalidCompositeType = errors.New("composite type must be AND or OR")

	// ErrConditionTooDeep indicates nesting beyond MaxConditionDepth.
	ErrConditionTooDeep = errors.New("condition tree exceeds maximum depth")

	// ErrTooManyChildren indicates a composite beyond MaxCompositeChildren.
	ErrTooManyChildren = errors.New("composite condition has too many children")

	// ErrTooManySkillValues indicates a skills list beyond MaxSkillValues.
	ErrTooManySkillValues = errors.New("skills condition has too many values")

	// ErrUnknownAction indicates an action type outside the fixed enumeration.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrMissingActionParam indicates a required action parameter is absent or empty.
	ErrMissingActionParam = errors.New("missing required action parameter")

	// ErrEmptyActionParam indicates an optional parameter present but empty.
	ErrEmptyActionParam = errors.New("action parameter must not be empty")

	// ErrInvalidChannel indicates a notify channel outside {email, telegram, sms}.
	ErrInvalidChannel = errors.New("invalid notification channel")

	// ErrInvalidAutonomyLevel indicates a level outside {advise, confirm, autonomous}.
	ErrInvalidAutonomyLevel = errors.New("invalid autonomy level")

	// ErrMissingCondition indicates a rule without a condition.
	ErrMissingCondition = errors.New("rule has no condition")

	// ErrEmptyRuleName indicates a rule without a human-readable name.
	ErrEmptyRuleName = errors.New("rule name must not be empty")

	// ErrMissingTenant indicates a rule without a tenant scope.
	ErrMissingTenant = errors.New("rule tenant id must not be empty")
)

// ValidationError is the hard failure raised when a rule definition fails
// add-time checks. It wraps one of the sentinel errors above so callers can
// branch with errors.Is while surfacing the specific reason to the author.
type ValidationError struct {
	Reason error  // sentinel category
	Detail string // human-readable specifics
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Detail)
}

// Unwrap exposes the sentinel category for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// NewValidationError builds a ValidationError from a sentinel and detail.
func NewValidationError(reason error, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
