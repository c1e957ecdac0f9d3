package domain

import "time"

// Audit actions recorded against campaigns.
const (
	AuditActionCreated       = "created"
	AuditActionUpdated       = "updated"
	AuditActionDeleted       = "deleted"
	AuditActionStatusChanged = "status_changed"
)

// AuditEntry is one row of the campaign activity log.
type AuditEntry struct {
	ID         int64     `json:"id"`
	CampaignID int64     `json:"campaign_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
