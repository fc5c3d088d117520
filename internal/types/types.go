// Package types provides domain models shared across hirepilot components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library. ID utilities in ids.go import uuid but are isolated so
// embedding callers can pick what they need.
package types

// TenantID identifies the organization a rule or approval belongs to.
// String alias enables type safety while maintaining JSON string serialization.
type TenantID string

// ScopeID identifies an optional sub-scope inside a tenant, typically a single
// vacancy (job posting). Empty means the rule applies tenant-wide.
type ScopeID string

// RuleID represents a UUIDv7 automation rule identifier.
type RuleID string

// ApprovalID represents a UUIDv7 pending approval identifier.
type ApprovalID string

// CandidateID identifies the candidate a snapshot describes. Produced by the
// upstream scoring pipeline; opaque to the engine.
type CandidateID string

// DecisionID represents a UUIDv7 identifier for one persisted decision record.
type DecisionID string

// Field names the candidate attribute a leaf condition reads.
type Field string

const (
	FieldFitScore          Field = "fitScore"
	FieldResumeScore       Field = "resumeScore"
	FieldInterviewScore    Field = "interviewScore"
	FieldSalaryExpectation Field = "salaryExpectation"
	FieldExperience        Field = "experience"
	FieldAvailability      Field = "availability"
	FieldSkills            Field = "skills"
)

// Operator is a leaf condition comparison operator.
type Operator string

const (
	OpGt          Operator = ">"
	OpLt          Operator = "<"
	OpEq          Operator = "="
	OpGte         Operator = ">="
	OpLte         Operator = "<="
	OpNeq         Operator = "!="
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// CompositeType is the boolean connective of a composite condition.
type CompositeType string

const (
	CompositeAnd CompositeType = "AND"
	CompositeOr  CompositeType = "OR"
)

// ActionType identifies what a matched rule asks the orchestrator to do.
type ActionType string

const (
	ActionInvite       ActionType = "invite"
	ActionClarify      ActionType = "clarify"
	ActionReject       ActionType = "reject"
	ActionNotify       ActionType = "notify"
	ActionPauseVacancy ActionType = "pause_vacancy"
	ActionTag          ActionType = "tag"
)

// AutonomyLevel is the policy tier controlling whether a matched rule's action
// executes automatically, waits for a human, or is only advisory.
type AutonomyLevel string

const (
	AutonomyAdvise     AutonomyLevel = "advise"
	AutonomyConfirm    AutonomyLevel = "confirm"
	AutonomyAutonomous AutonomyLevel = "autonomous"
)

// Valid reports whether the level is one of the three known tiers.
func (l AutonomyLevel) Valid() bool {
	switch l {
	case AutonomyAdvise, AutonomyConfirm, AutonomyAutonomous:
		return true
	}
	return false
}

// ExecutionStatus is the engine's verdict on how a matched rule proceeds.
type ExecutionStatus string

const (
	StatusExecuted        ExecutionStatus = "executed"
	StatusPendingApproval ExecutionStatus = "pending_approval"
	StatusAdvised         ExecutionStatus = "advised"
)

// ApprovalStatus is the lifecycle state of a pending approval record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// Channel is a notification delivery channel for the notify action.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelSMS      Channel = "sms"
)

// Valid reports whether the channel is one of the supported transports.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelSMS:
		return true
	}
	return false
}

// Availability is the candidate's declared start window.
type Availability string

const (
	AvailabilityImmediate Availability = "immediate"
	AvailabilityTwoWeeks  Availability = "2_weeks"
	AvailabilityOneMonth  Availability = "1_month"
	AvailabilityUnknown   Availability = "unknown"
)

// Valid reports whether the value is in the fixed availability enumeration.
func (a Availability) Valid() bool {
	switch a {
	case AvailabilityImmediate, AvailabilityTwoWeeks, AvailabilityOneMonth, AvailabilityUnknown:
		return true
	}
	return false
}

// CandidateSnapshot is the fixed-shape candidate data a rule condition is
// evaluated against. Optional fields use pointers/nil because absence and zero
// have different matching semantics: absence never matches, zero is a real
// numeric value.
type CandidateSnapshot struct {
	ID                CandidateID  `json:"id"`
	FitScore          float64      `json:"fitScore"`
	ResumeScore       float64      `json:"resumeScore"`
	InterviewScore    *float64     `json:"interviewScore,omitempty"`
	SalaryExpectation *float64     `json:"salaryExpectation,omitempty"`
	Experience        *float64     `json:"experience,omitempty"`
	Availability      Availability `json:"availability,omitempty"`
	Skills            []string     `json:"skills,omitempty"`
}

// Resource limits enforced at rule-add time to keep evaluation bounded.
const (
	// MaxConditionDepth prevents stack growth during recursive evaluation.
	// 8 levels of nesting is far beyond any realistic screening policy.
	MaxConditionDepth = 8

	// MaxCompositeChildren bounds fan-out of a single AND/OR node.
	MaxCompositeChildren = 32

	// MaxSkillValues limits a skills condition's value list to prevent
	// quadratic membership cost against large candidate skill sets.
	MaxSkillValues = 64
)
