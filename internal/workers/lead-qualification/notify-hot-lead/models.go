// internal/workers/lead-qualification/notify-hot-lead/models.go
package notifyhotlead

type Input struct {
	LeadID       string `json:"leadId,omitempty"`
	Email        string `json:"email"`
	CompanyName  string `json:"companyName,omitempty"`
	Score        int    `json:"score"`
	RelevanceTag string `json:"relevanceTag"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "skipped", "disabled"
	Channels       []string `json:"channels,omitempty"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeHotLead          = "hot_lead"
	TypeVeryBigPotential = "very_big_potential"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSNS   = "sns"
)
