// internal/types/rules.go
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

/*
 * Domain types for the automation rule engine.
 *
 * A rule's condition is a closed sum type with two variants: FieldCondition
 * (leaf comparison against one snapshot field) and CompositeCondition
 * (AND/OR over child conditions, recursively nested). The JSON wire shape
 * distinguishes the variants by the presence of the "type"/"conditions" keys,
 * decoded through UnmarshalCondition.
 *
 * Key types:
 *   - AutomationRule: tenant-scoped rule with condition, action, autonomy level
 *   - RuleAction: action type plus string parameters (tag, channel, template)
 *   - MatchResult: one evaluation outcome per rule, produced even on no-match
 *   - PendingApproval: time-boxed record for confirm-level matches
 */

// Condition is a simple or composite rule condition. Closed sum type:
// FieldCondition and CompositeCondition are the only implementations.
type Condition interface {
	isCondition()
}

// FieldCondition is a leaf condition comparing one candidate field to a value.
// Value holds a number, string, or list of strings matching the field's kind.
type FieldCondition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

func (FieldCondition) isCondition() {}

// CompositeCondition combines child conditions with AND/OR semantics.
type CompositeCondition struct {
	Type       CompositeType `json:"type"`
	Conditions []Condition   `json:"conditions"`
}

func (CompositeCondition) isCondition() {}

// UnmarshalJSON decodes a composite node, recursing into children via
// UnmarshalCondition so nested composites round-trip.
func (c *CompositeCondition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       CompositeType     `json:"type"`
		Conditions []json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != CompositeAnd && raw.Type != CompositeOr {
		return fmt.Errorf("%w: %q", ErrInvalidCompositeType, raw.Type)
	}
	children := make([]Condition, 0, len(raw.Conditions))
	for _, child := range raw.Conditions {
		cond, err := UnmarshalCondition(child)
		if err != nil {
			return err
		}
		children = append(children, cond)
	}
	c.Type = raw.Type
	c.Conditions = children
	return nil
}

// UnmarshalCondition decodes a condition tree from JSON, dispatching on the
// presence of the composite discriminator keys. Leaves decode as
// {field, operator, value}; composites as {type, conditions}.
func UnmarshalCondition(data []byte) (Condition, error) {
	var probe struct {
		Type       CompositeType   `json:"type"`
		Conditions json.RawMessage `json:"conditions"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	if probe.Type != "" || probe.Conditions != nil {
		var composite CompositeCondition
		if err := json.Unmarshal(data, &composite); err != nil {
			return nil, err
		}
		return composite, nil
	}

	var leaf FieldCondition
	if err := json.Unmarshal(data, &leaf); err != nil {
		return nil, err
	}
	return leaf, nil
}

// MarshalCondition encodes a condition tree to JSON. Concrete variants carry
// struct tags, so the default marshaler produces the wire shape directly.
func MarshalCondition(c Condition) ([]byte, error) {
	return json.Marshal(c)
}

// Action parameter keys. Parameters are free-form strings keyed by name;
// required keys per action type are enforced by the rule validator.
const (
	ParamTag             = "tag"
	ParamChannel         = "notificationChannel"
	ParamMessageTemplate = "messageTemplate"
	ParamReason          = "reason"
)

// RuleAction describes what a matched rule asks the orchestrator to perform.
type RuleAction struct {
	Type   ActionType        `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Param returns the named parameter and whether it is present.
func (a RuleAction) Param(key string) (string, bool) {
	v, ok := a.Params[key]
	return v, ok
}

// RuleStats tracks per-rule counters maintained by the engine.
type RuleStats struct {
	Triggered int64 `json:"triggered"`
	Executed  int64 `json:"executed"`
	Undone    int64 `json:"undone"`
}

// AutomationRule is a tenant-scoped screening rule. A rule is never stored
// unless its condition and action both pass validation.
type AutomationRule struct {
	ID            RuleID        `json:"id"`
	TenantID      TenantID      `json:"tenantId"`
	ScopeID       ScopeID       `json:"scopeId,omitempty"` // empty = tenant-wide
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Condition     Condition     `json:"condition"`
	Action        RuleAction    `json:"action"`
	AutonomyLevel AutonomyLevel `json:"autonomyLevel"`
	Priority      int           `json:"priority"` // higher = evaluated first
	Enabled       bool          `json:"enabled"`
	Stats         RuleStats     `json:"stats"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// UnmarshalJSON decodes a rule, routing the polymorphic condition field
// through UnmarshalCondition.
func (r *AutomationRule) UnmarshalJSON(data []byte) error {
	type alias AutomationRule
	aux := struct {
		Condition json.RawMessage `json:"condition"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Condition) > 0 {
		cond, err := UnmarshalCondition(aux.Condition)
		if err != nil {
			return err
		}
		r.Condition = cond
	}
	return nil
}

// MatchResult is the outcome of evaluating one rule against one snapshot.
// Produced for every applicable rule, matched or not, for auditability.
type MatchResult struct {
	RuleID        RuleID        `json:"ruleId"`
	RuleName      string        `json:"ruleName"`
	Matched       bool          `json:"matched"`
	Action        *RuleAction   `json:"action,omitempty"`
	AutonomyLevel AutonomyLevel `json:"autonomyLevel,omitempty"`
	Explanation   string        `json:"explanation"`
	Timestamp     time.Time     `json:"timestamp"`
}

// PendingApproval is a time-boxed record representing a matched confirm-level
// action awaiting human decision. Once terminal it never mutates again.
type PendingApproval struct {
	ID          ApprovalID     `json:"id"`
	TenantID    TenantID       `json:"tenantId"`
	RuleID      RuleID         `json:"ruleId"`
	RuleName    string         `json:"ruleName"`
	CandidateID CandidateID    `json:"candidateId"`
	Action      RuleAction     `json:"action"`
	Explanation string         `json:"explanation"`
	CreatedAt   time.Time      `json:"createdAt"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	Status      ApprovalStatus `json:"status"`
}
