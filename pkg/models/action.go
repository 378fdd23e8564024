package models

// ActionType discriminates the action union carried by a step definition.
type ActionType string

const (
	ActionUpdateStatus     ActionType = "update_status"
	ActionAssignUser       ActionType = "assign_user"
	ActionSendNotification ActionType = "send_notification"
	ActionCreateTask       ActionType = "create_task"
	ActionEscalate         ActionType = "escalate"
	ActionApprove          ActionType = "approve"
	ActionReject           ActionType = "reject"
)

// Action is a tagged union: Type selects which params field is populated.
// Exactly one of the params pointers should be non-nil for the typed actions;
// escalate, approve and reject carry no parameters.
type Action struct {
	Type             ActionType              `json:"type" validate:"required,oneof=update_status assign_user send_notification create_task escalate approve reject"`
	UpdateStatus     *UpdateStatusParams     `json:"update_status,omitempty"`
	AssignUser       *AssignUserParams       `json:"assign_user,omitempty"`
	SendNotification *SendNotificationParams `json:"send_notification,omitempty"`
	CreateTask       *CreateTaskParams       `json:"create_task,omitempty"`
}

type UpdateStatusParams struct {
	Status string `json:"status" validate:"required"`
}

type AssignUserParams struct {
	Role string `json:"role" validate:"required"`
}

type SendNotificationParams struct {
	Template      string               `json:"template" validate:"required"`
	Recipient     string               `json:"recipient" validate:"required"`
	RecipientKind RecipientKind        `json:"recipient_kind" validate:"required,oneof=user role email phone"`
	Priority      NotificationPriority `json:"priority,omitempty"`
}

type CreateTaskParams struct {
	Title    string `json:"title" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Priority string `json:"priority,omitempty"`
}
