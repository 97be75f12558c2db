package models

import "time"

// AuditAction names a recorded operation.
type AuditAction string

const (
	AuditActionLogin             AuditAction = "LOGIN"
	AuditActionLogout            AuditAction = "LOGOUT"
	AuditActionRequestSubmit     AuditAction = "OD_REQUEST_SUBMIT"
	AuditActionMentorDecision    AuditAction = "OD_MENTOR_DECISION"
	AuditActionHODDecision       AuditAction = "OD_HOD_DECISION"
	AuditActionOverride          AuditAction = "OD_HOD_OVERRIDE"
	AuditActionExceptionDecision AuditAction = "OD_EXCEPTION_DECISION"
	AuditActionFinalize          AuditAction = "OD_FINALIZE"
	AuditActionEscalation        AuditAction = "OD_AUTO_ESCALATION"
)

// AuditLog records who did what to which resource.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Resource   string      `db:"resource" json:"resource"`
	ResourceID *string     `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte      `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte      `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address"`
	UserAgent  string      `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
