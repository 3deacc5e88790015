// internal/workers/lead-qualification/sync-crm-lead/models.go
package synccrmlead

type Input struct {
	LeadID       string `json:"leadId,omitempty"`
	Email        string `json:"email"`
	CompanyName  string `json:"companyName,omitempty"`
	Score        int    `json:"score"`
	RelevanceTag string `json:"relevanceTag"`
}

type Output struct {
	CRMID    string `json:"crmId,omitempty"`
	Action   string `json:"action"` // "insert", "update", "disabled"
	SyncedAt string `json:"syncedAt"`
}

const ActionDisabled = "disabled"

// Zoho lead statuses
const (
	StatusPreQualified = "Pre-Qualified"
	StatusNotQualified = "Not Qualified"
	StatusJunk         = "Junk Lead"
)
