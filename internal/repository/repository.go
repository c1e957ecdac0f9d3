package repository

import (
	"context"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

// CampaignFilter defines filter criteria for listing campaigns.
type CampaignFilter struct {
	Status  *string
	Type    *string
	Page    int
	PerPage int
}

// UsageResult is the outcome of an atomic usage-count increment.
type UsageResult struct {
	UsageCount int    `json:"usage_count"`
	Status     string `json:"status"`
}

// CampaignRepository defines the interface for campaign persistence operations.
type CampaignRepository interface {
	// Create inserts a new campaign and assigns its generated ID.
	Create(ctx context.Context, campaign *domain.Campaign) error

	// GetByID retrieves a campaign by its numeric identifier.
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)

	// List returns campaigns matching the given filter along with the total count.
	List(ctx context.Context, filter CampaignFilter) ([]domain.Campaign, int, error)

	// ListActive returns all campaigns currently in active status.
	ListActive(ctx context.Context) ([]domain.Campaign, error)

	// Update rewrites an existing campaign row.
	Update(ctx context.Context, campaign *domain.Campaign) error

	// Delete removes a campaign, reporting whether a row was affected.
	Delete(ctx context.Context, id int64) (bool, error)

	// SetStatus updates only the status column.
	SetStatus(ctx context.Context, id int64, status string) error

	// IncrementUsage atomically bumps usage_count, flipping status to
	// expired in the same write when the usage limit is reached.
	IncrementUsage(ctx context.Context, id int64) (UsageResult, error)
}

// AuditRepository records campaign activity log entries.
type AuditRepository interface {
	// Record appends one audit entry.
	Record(ctx context.Context, entry *domain.AuditEntry) error

	// ListByCampaign returns the newest-first audit trail for a campaign.
	ListByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.AuditEntry, error)
}
