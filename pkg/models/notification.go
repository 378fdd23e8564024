package models

import "time"

// RecipientKind tells the dispatcher how to resolve the recipient string.
type RecipientKind string

const (
	RecipientUser  RecipientKind = "user"  // Recipient is a user id, contact info comes from the data store
	RecipientRole  RecipientKind = "role"  // Recipient is a role name, delivered in-app to the role inbox
	RecipientEmail RecipientKind = "email" // Recipient is already an email address
	RecipientPhone RecipientKind = "phone" // Recipient is already a phone number
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// Channel is a delivery mechanism for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Notification is one persisted, templated message. Status is mutated in place
// as delivery attempts complete; rows are never deleted by the engine.
type Notification struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Title         string               `json:"title"`
	Message       string               `json:"message"`
	Recipient     string               `json:"recipient"`
	RecipientKind RecipientKind        `json:"recipient_kind"`
	CaseID        string               `json:"case_id,omitempty"`
	Priority      NotificationPriority `json:"priority"`
	Status        NotificationStatus   `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	SentAt        *time.Time           `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time           `json:"delivered_at,omitempty"`
	ReadAt        *time.Time           `json:"read_at,omitempty"`
}

// NotificationStats aggregates a recipient's inbox.
type NotificationStats struct {
	Total      int            `json:"total"`
	Unread     int            `json:"unread"`
	ByType     map[string]int `json:"by_type"`
	ByPriority map[string]int `json:"by_priority"`
}
