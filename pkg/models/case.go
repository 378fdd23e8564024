package models

import "time"

// CaseStatusOpen is the status a freshly created case carries; auto-start only
// picks up cases in this state.
const CaseStatusOpen = "open"

// Case is a loan application record. The surrounding admin application owns
// case creation; the engine reads cases and updates status/assignment fields.
type Case struct {
	ID           string         `json:"id"`
	CaseNumber   string         `json:"case_number"`
	Status       string         `json:"status"`
	AssignedTo   string         `json:"assigned_to,omitempty"`
	AssignedRole string         `json:"assigned_role,omitempty"`
	CustomerID   string         `json:"customer_id"`
	LoanAmount   float64        `json:"loan_amount"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type Task struct {
	ID           string    `json:"id"`
	CaseID       string    `json:"case_id"`
	Title        string    `json:"title"`
	AssignedRole string    `json:"assigned_role"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
}
