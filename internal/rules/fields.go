// internal/rules/fields.go
package rules

import (
	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Field registry for condition evaluation and validation.
 *
 * Every condition field has a declared kind that determines which operators
 * apply and how its value is read off a candidate snapshot:
 *   - numeric: fitScore, resumeScore, interviewScore, salaryExpectation, experience
 *   - enum:    availability (fixed string enumeration)
 *   - set:     skills (string set membership)
 *
 * Lookup returns (value, false) for absent optional fields. Absence is
 * distinct from zero: a missing interviewScore never matches any condition,
 * a zero score is an ordinary numeric value.
 */

// FieldKind classifies a condition field for operator dispatch.
type FieldKind int

const (
	FieldKindNumeric FieldKind = iota
	FieldKindEnum
	FieldKindSet
)

var fieldKinds = map[types.Field]FieldKind{
	types.FieldFitScore:          FieldKindNumeric,
	types.FieldResumeScore:       FieldKindNumeric,
	types.FieldInterviewScore:    FieldKindNumeric,
	types.FieldSalaryExpectation: FieldKindNumeric,
	types.FieldExperience:        FieldKindNumeric,
	types.FieldAvailability:      FieldKindEnum,
	types.FieldSkills:            FieldKindSet,
}

// numericOps are the six comparison operators numeric fields accept.
var numericOps = map[types.Operator]bool{
	types.OpGt:  true,
	types.OpLt:  true,
	types.OpEq:  true,
	types.OpGte: true,
	types.OpLte: true,
	types.OpNeq: true,
}

// enumOps are the operators string/enum fields accept.
var enumOps = map[types.Operator]bool{
	types.OpEq:          true,
	types.OpNeq:         true,
	types.OpContains:    true,
	types.OpNotContains: true,
}

// setOps are the operators set fields accept.
var setOps = map[types.Operator]bool{
	types.OpContains:    true,
	types.OpNotContains: true,
}

// KindOf returns the declared kind of a field and whether the field exists.
func KindOf(f types.Field) (FieldKind, bool) {
	k, ok := fieldKinds[f]
	return k, ok
}

// OperatorAllowed reports whether op is compatible with the field kind.
func OperatorAllowed(kind FieldKind, op types.Operator) bool {
	switch kind {
	case FieldKindNumeric:
		return numericOps[op]
	case FieldKindEnum:
		return enumOps[op]
	case FieldKindSet:
		return setOps[op]
	default:
		return false
	}
}

// lookupField reads the named field off a snapshot.
// Returns (nil, false) for absent optional fields and unknown field names.
// Numeric fields yield float64, availability yields string, skills []string.
func lookupField(c *types.CandidateSnapshot, f types.Field) (any, bool) {
	if c == nil {
		return nil, false
	}
	switch f {
	case types.FieldFitScore:
		return c.FitScore, true
	case types.FieldResumeScore:
		return c.ResumeScore, true
	case types.FieldInterviewScore:
		if c.InterviewScore == nil {
			return nil, false
		}
		return *c.InterviewScore, true
	case types.FieldSalaryExpectation:
		if c.SalaryExpectation == nil {
			return nil, false
		}
		return *c.SalaryExpectation, true
	case types.FieldExperience:
		if c.Experience == nil {
			return nil, false
		}
		return *c.Experience, true
	case types.FieldAvailability:
		if c.Availability == "" {
			return nil, false
		}
		return string(c.Availability), true
	case types.FieldSkills:
		if c.Skills == nil {
			return nil, false
		}
		return c.Skills, true
	default:
		return nil, false
	}
}
