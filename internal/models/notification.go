package models

import "time"

// NotificationSeverity grades emitted events.
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "info"
	SeveritySuccess NotificationSeverity = "success"
	SeverityWarning NotificationSeverity = "warning"
	SeverityError   NotificationSeverity = "error"
)

// Notification is an event emitted on state transitions, escalations and
// limit-threshold crossings. Delivery is at-least-once; receivers must treat
// the (dedup key, day) pair as idempotent.
type Notification struct {
	ID          string               `db:"id" json:"id"`
	Severity    NotificationSeverity `db:"severity" json:"severity"`
	Title       string               `db:"title" json:"title"`
	Description string               `db:"description" json:"description"`
	RecipientID *string              `db:"recipient_id" json:"recipientId,omitempty"`
	Department  *string              `db:"department" json:"department,omitempty"`
	DedupKey    *string              `db:"dedup_key" json:"-"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
	ReadAt      *time.Time           `db:"read_at" json:"readAt,omitempty"`
}

// NotificationFilter constrains listing queries.
type NotificationFilter struct {
	RecipientID string
	Department  string
	UnreadOnly  bool
	Limit       int
	Offset      int
}
