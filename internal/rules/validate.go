// internal/rules/validate.go
package rules

import (
	"github.com/hirepilot/hirepilot/internal/types"
)

/*
 * Rule validation.
 *
 * ValidateRule runs once, at rule-add time. A rule that passes is guaranteed
 * to evaluate cleanly forever after: operator/kind compatibility, value
 * typing, score ranges, availability enum membership, action parameter
 * contracts, and nesting limits are all settled here so evaluation never has
 * to fail. The store refuses to persist a rule whose validation fails.
 *
 * All failures are *types.ValidationError wrapping a sentinel category,
 * surfaced synchronously to the rule author.
 */

// ValidateRule checks a rule's scope, condition, action, and autonomy level.
// Returns nil on success or a *types.ValidationError describing the first
// violation found. Pure check: no state is touched.
func ValidateRule(rule *types.AutomationRule) error {
	if rule.TenantID == "" {
		return types.NewValidationError(types.ErrMissingTenant, "rule %q", rule.Name)
	}
	if rule.Name == "" {
		return types.NewValidationError(types.ErrEmptyRuleName, "rule %s", rule.ID)
	}
	if !rule.AutonomyLevel.Valid() {
		return types.NewValidationError(types.ErrInvalidAutonomyLevel, "%q", rule.AutonomyLevel)
	}
	if rule.Condition == nil {
		return types.NewValidationError(types.ErrMissingCondition, "rule %q", rule.Name)
	}
	if err := validateCondition(rule.Condition, 0); err != nil {
		return err
	}
	return validateAction(rule.Action)
}

// validateCondition recurses over the condition tree enforcing structure
// limits on composites and typing rules on leaves.
func validateCondition(cond types.Condition, depth int) error {
	if depth > types.MaxConditionDepth {
		return types.NewValidationError(types.ErrConditionTooDeep, "depth %d exceeds %d", depth, types.MaxConditionDepth)
	}

	switch c := cond.(type) {
	case types.FieldCondition:
		return validateLeaf(c)
	case *types.FieldCondition:
		if c == nil {
			return types.NewValidationError(types.ErrMissingCondition, "nil leaf condition")
		}
		return validateLeaf(*c)
	case types.CompositeCondition:
		return validateComposite(c, depth)
	case *types.CompositeCondition:
		if c == nil {
			return types.NewValidationError(types.ErrMissingCondition, "nil composite condition")
		}
		return validateComposite(*c, depth)
	default:
		return types.NewValidationError(types.ErrMissingCondition, "unrecognized condition variant %T", cond)
	}
}

func validateComposite(c types.CompositeCondition, depth int) error {
	if c.Type != types.CompositeAnd && c.Type != types.CompositeOr {
		return types.NewValidationError(types.ErrInvalidCompositeType, "%q", c.Type)
	}
	if len(c.Conditions) == 0 {
		return types.NewValidationError(types.ErrEmptyComposite, "%s node", c.Type)
	}
	if len(c.Conditions) > types.MaxCompositeChildren {
		return types.NewValidationError(types.ErrTooManyChildren, "%d children exceeds %d", len(c.Conditions), types.MaxCompositeChildren)
	}
	for _, child := range c.Conditions {
		if err := validateCondition(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// validateLeaf checks field existence, operator compatibility, and value
// typing per the field's declared kind.
func validateLeaf(c types.FieldCondition) error {
	kind, ok := KindOf(c.Field)
	if !ok {
		return types.NewValidationError(types.ErrUnknownField, "%q", c.Field)
	}
	if !OperatorAllowed(kind, c.Operator) {
		return types.NewValidationError(types.ErrInvalidOperator, "%q on field %q", c.Operator, c.Field)
	}

	switch kind {
	case FieldKindNumeric:
		n, ok := toFloat64(c.Value)
		if !ok {
			return types.NewValidationError(types.ErrInvalidValueType, "field %q requires a numeric value, got %T", c.Field, c.Value)
		}
		// Percentile scores are bounded; other numeric fields (salary,
		// experience) have no fixed range.
		if c.Field == types.FieldFitScore || c.Field == types.FieldResumeScore {
			if n < 0 || n > 100 {
				return types.NewValidationError(types.ErrValueOutOfRange, "field %q value %v outside [0,100]", c.Field, n)
			}
		}
	case FieldKindEnum:
		s, ok := c.Value.(string)
		if !ok {
			return types.NewValidationError(types.ErrInvalidValueType, "field %q requires a string value, got %T", c.Field, c.Value)
		}
		if !types.Availability(s).Valid() {
			return types.NewValidationError(types.ErrInvalidAvailability, "%q", s)
		}
	case FieldKindSet:
		list, ok := toStringList(c.Value)
		if !ok || len(list) == 0 {
			return types.NewValidationError(types.ErrInvalidValueType, "field %q requires a string or list of strings", c.Field)
		}
		if len(list) > types.MaxSkillValues {
			return types.NewValidationError(types.ErrTooManySkillValues, "%d values exceeds %d", len(list), types.MaxSkillValues)
		}
		for _, s := range list {
			if s == "" {
				return types.NewValidationError(types.ErrInvalidValueType, "field %q values must not be empty", c.Field)
			}
		}
	}

	return nil
}

// validateAction enforces the per-type parameter contract.
func validateAction(a types.RuleAction) error {
	switch a.Type {
	case types.ActionTag:
		tag, ok := a.Param(types.ParamTag)
		if !ok || tag == "" {
			return types.NewValidationError(types.ErrMissingActionParam, "tag action requires a non-empty %q", types.ParamTag)
		}
	case types.ActionNotify:
		ch, ok := a.Param(types.ParamChannel)
		if !ok {
			return types.NewValidationError(types.ErrMissingActionParam, "notify action requires %q", types.ParamChannel)
		}
		if !types.Channel(ch).Valid() {
			return types.NewValidationError(types.ErrInvalidChannel, "%q", ch)
		}
	case types.ActionInvite, types.ActionClarify:
		if tpl, ok := a.Param(types.ParamMessageTemplate); ok && tpl == "" {
			return types.NewValidationError(types.ErrEmptyActionParam, "%q on %s action", types.ParamMessageTemplate, a.Type)
		}
	case types.ActionReject:
		if reason, ok := a.Param(types.ParamReason); ok && reason == "" {
			return types.NewValidationError(types.ErrEmptyActionParam, "%q on reject action", types.ParamReason)
		}
	case types.ActionPauseVacancy:
		// No required params.
	default:
		return types.NewValidationError(types.ErrUnknownAction, "%q", a.Type)
	}
	return nil
}
