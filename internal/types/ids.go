package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRuleID generates a UUIDv7 rule identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRuleID() RuleID {
	return RuleID(uuid.Must(uuid.NewV7()).String())
}

// NewApprovalID generates a UUIDv7 pending approval identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewApprovalID() ApprovalID {
	return ApprovalID(uuid.Must(uuid.NewV7()).String())
}

// NewDecisionID generates a UUIDv7 decision record identifier.
func NewDecisionID() DecisionID {
	return DecisionID(uuid.Must(uuid.NewV7()).String())
}

// ParseRuleID validates and converts a string to RuleID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseRuleID(s string) (RuleID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RuleID(s), nil
}

// ParseApprovalID validates and converts a string to ApprovalID.
func ParseApprovalID(s string) (ApprovalID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return ApprovalID(s), nil
}

// ApprovalIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func ApprovalIDTime(id ApprovalID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
