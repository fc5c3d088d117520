package types

import (
	"testing"
)

func TestUnmarshalCondition_Leaf(t *testing.T) {
	data := []byte(`{"field":"fitScore","operator":">=","value":70}`)
	cond, err := UnmarshalCondition(data)
	if err != nil {
		t.Fatalf("UnmarshalCondition() error = %v, want nil", err)
	}

	leaf, ok := cond.(FieldCondition)
	if !ok {
		t.Fatalf("UnmarshalCondition() = %T, want FieldCondition", cond)
	}
	if leaf.Field != FieldFitScore || leaf.Operator != OpGte {
		t.Errorf("leaf = %+v, want fitScore >= 70", leaf)
	}
	if v, ok := leaf.Value.(float64); !ok || v != 70 {
		t.Errorf("Value = %v (%T), want float64 70", leaf.Value, leaf.Value)
	}
}

func TestUnmarshalCondition_NestedComposite(t *testing.T) {
	data := []byte(`{
		"type": "AND",
		"conditions": [
			{"field": "fitScore", "operator": ">", "value": 80},
			{
				"type": "OR",
				"conditions": [
					{"field": "skills", "operator": "contains", "value": ["go", "postgres"]},
					{"field": "availability", "operator": "=", "value": "immediate"}
				]
			}
		]
	}`)

	cond, err := UnmarshalCondition(data)
	if err != nil {
		t.Fatalf("UnmarshalCondition() error = %v, want nil", err)
	}

	root, ok := cond.(CompositeCondition)
	if !ok {
		t.Fatalf("UnmarshalCondition() = %T, want CompositeCondition", cond)
	}
	if root.Type != CompositeAnd || len(root.Conditions) != 2 {
		t.Fatalf("root = %+v, want AND with 2 children", root)
	}

	inner, ok := root.Conditions[1].(CompositeCondition)
	if !ok {
		t.Fatalf("child 1 = %T, want nested CompositeCondition", root.Conditions[1])
	}
	if inner.Type != CompositeOr || len(inner.Conditions) != 2 {
		t.Errorf("inner = %+v, want OR with 2 children", inner)
	}
}

func TestUnmarshalCondition_RejectsBadCompositeType(t *testing.T) {
	data := []byte(`{"type":"XOR","conditions":[{"field":"fitScore","operator":">","value":1}]}`)
	if _, err := UnmarshalCondition(data); err == nil {
		t.Fatalf("UnmarshalCondition() error = nil, want composite type rejection")
	}
}

func TestConditionRoundTrip(t *testing.T) {
	original := CompositeCondition{
		Type: CompositeAnd,
		Conditions: []Condition{
			FieldCondition{Field: FieldFitScore, Operator: OpGte, Value: 70.0},
			FieldCondition{Field: FieldSkills, Operator: OpContains, Value: []string{"go"}},
		},
	}

	data, err := MarshalCondition(original)
	if err != nil {
		t.Fatalf("MarshalCondition() error = %v", err)
	}
	decoded, err := UnmarshalCondition(data)
	if err != nil {
		t.Fatalf("UnmarshalCondition() error = %v", err)
	}

	composite, ok := decoded.(CompositeCondition)
	if !ok || composite.Type != CompositeAnd || len(composite.Conditions) != 2 {
		t.Fatalf("round trip = %+v, want the original AND with 2 children", decoded)
	}
}

func TestAutomationRule_UnmarshalJSON(t *testing.T) {
	data := []byte(`{
		"tenantId": "acme",
		"name": "invite strong fits",
		"condition": {"field": "fitScore", "operator": ">=", "value": 70},
		"action": {"type": "invite", "params": {"messageTemplate": "hello"}},
		"autonomyLevel": "autonomous",
		"priority": 10,
		"enabled": true
	}`)

	var rule AutomationRule
	if err := rule.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}

	if rule.TenantID != "acme" || rule.Name != "invite strong fits" {
		t.Errorf("rule = %+v, missing identity fields", rule)
	}
	if _, ok := rule.Condition.(FieldCondition); !ok {
		t.Errorf("Condition = %T, want FieldCondition", rule.Condition)
	}
	if rule.Action.Type != ActionInvite {
		t.Errorf("Action.Type = %v, want invite", rule.Action.Type)
	}
	if tpl, _ := rule.Action.Param(ParamMessageTemplate); tpl != "hello" {
		t.Errorf("messageTemplate = %q, want %q", tpl, "hello")
	}
	if rule.AutonomyLevel != AutonomyAutonomous || rule.Priority != 10 || !rule.Enabled {
		t.Errorf("rule policy fields = %+v, want autonomous/10/enabled", rule)
	}
}
