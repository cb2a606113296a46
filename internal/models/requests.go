package models

import "fmt"

// IngestRequest is the body of POST /api/ingest. Unknown fields are
// preserved verbatim in Event.Raw.
type IngestRequest struct {
	TS        string `json:"ts,omitempty"`
	Source    string `json:"source"`
	EventType string `json:"eventType,omitempty"`
	Message   string `json:"message,omitempty"`
	Level     string `json:"level,omitempty"`
	IP        string `json:"ip,omitempty"`
	User      string `json:"user,omitempty"`
}

// IngestResponse acknowledges a stored event.
type IngestResponse struct {
	OK         bool   `json:"ok"`
	LogID      string `json:"logId"`
	ReceivedAt string `json:"receivedAt"`
}

// UpdateAlertStatusRequest is the body of PATCH /api/alerts/{id}.
type UpdateAlertStatusRequest struct {
	Status string `json:"status"`
}

// AlertStatusResponse is the summary returned after a status transition.
type AlertStatusResponse struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	ClosedAt *string `json:"closedAt"`
	ClosedBy *string `json:"closedBy"`
}

// RegisterRequest creates a tenant and its first admin user.
type RegisterRequest struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// LoginRequest authenticates a user by email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token  string      `json:"token"`
	User   UserSummary `json:"user"`
	Tenant TenantInfo  `json:"tenant"`
}

// UserSummary is the public shape of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TenantInfo is the public shape of a tenant.
type TenantInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateUserRequest adds a user to the caller's tenant.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UpdateUserRoleRequest changes a user's role.
type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

// CreateAPIKeyRequest names a new ingest key.
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

// CreateAPIKeyResponse carries the raw key exactly once.
type CreateAPIKeyResponse struct {
	APIKey *APIKey `json:"apiKey"`
	RawKey string  `json:"rawKey"`
}

// ValidationError reports a malformed or missing input field. Handlers map
// it to a 400 response with field-level detail.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for a field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
