// internal/models/notification.go
package models

// Notification records an alert sent about a lead.
type Notification struct {
	ID        string                 `json:"id"`
	LeadEmail string                 `json:"leadEmail"`
	Type      string                 `json:"type"`    // "hot_lead", "very_big_potential"
	Channel   string                 `json:"channel"` // "email", "sns"
	Status    string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload   map[string]interface{} `json:"payload,omitempty"`
	SentAt    string                 `json:"sentAt"`
}

// NotificationTemplate is a subject/body pair with {{placeholder}} fields.
type NotificationTemplate struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
