// internal/rules/evaluate.go
package rules

import (
	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Condition evaluation.
 *
 * Evaluate is a total function: it never errors and never panics. Any leaf
 * that references a missing or unrecognized field, carries an operator that
 * does not apply to the field's kind, or compares against a value of the
 * wrong type simply evaluates to false. Rules admitted through ValidateRule
 * never hit those fallbacks; the fallbacks exist so evaluation stays safe
 * against snapshots and trees the validator has not seen.
 *
 * Evaluation flow:
 *   1. Composite: recurse over children (AND = all true, OR = at least one)
 *   2. Leaf: look up field value -> absent returns false immediately
 *   3. Dispatch comparison on the field's declared kind
 */

// Evaluate checks whether the condition tree matches the candidate snapshot.
func Evaluate(candidate *types.CandidateSnapshot, cond types.Condition) bool {
	switch c := cond.(type) {
	case types.FieldCondition:
		return evaluateLeaf(candidate, c)
	case *types.FieldCondition:
		if c == nil {
			return false
		}
		return evaluateLeaf(candidate, *c)
	case types.CompositeCondition:
		return evaluateComposite(candidate, c)
	case *types.CompositeCondition:
		if c == nil {
			return false
		}
		return evaluateComposite(candidate, *c)
	default:
		return false
	}
}

// evaluateComposite applies AND/OR semantics over child conditions.
// Short-circuits on the first decisive child. Empty child lists are rejected
// at validation time; an empty list here matches nothing.
func evaluateComposite(candidate *types.CandidateSnapshot, c types.CompositeCondition) bool {
	if len(c.Conditions) == 0 {
		return false
	}
	switch c.Type {
	case types.CompositeAnd:
		for _, child := range c.Conditions {
			if !Evaluate(candidate, child) {
				return false
			}
		}
		return true
	case types.CompositeOr:
		for _, child := range c.Conditions {
			if Evaluate(candidate, child) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// evaluateLeaf compares one snapshot field against the condition value.
// Missing data never matches: absent fields return false before any
// comparison runs.
func evaluateLeaf(candidate *types.CandidateSnapshot, c types.FieldCondition) bool {
	kind, ok := KindOf(c.Field)
	if !ok {
		return false
	}

	value, ok := lookupField(candidate, c.Field)
	if !ok {
		return false
	}

	switch kind {
	case FieldKindNumeric:
		n, ok := value.(float64)
		if !ok {
			return false
		}
		return compareNumeric(c.Operator, n, c.Value)
	case FieldKindEnum:
		s, ok := value.(string)
		if !ok {
			return false
		}
		return compareString(c.Operator, s, c.Value)
	case FieldKindSet:
		set, ok := value.([]string)
		if !ok {
			return false
		}
		return compareSet(c.Operator, set, c.Value)
	default:
		return false
	}
}
