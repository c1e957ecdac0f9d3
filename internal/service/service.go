// Package service implements the campaign aggregate's operations:
// validated create/update/delete, the restricted status write path, the
// atomic usage increment, and price resolution against the active
// campaign set.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/pricing"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository"
)

// Notifier receives campaign save/delete notifications. The lifecycle
// scheduler implements it.
type Notifier interface {
	OnCampaignSaved(ctx context.Context, c *domain.Campaign) error
	OnCampaignDeleted(ctx context.Context, id int64) error
}

// ActiveCache is the cached active-campaign view.
type ActiveCache interface {
	Get(ctx context.Context) ([]domain.Campaign, bool, error)
	Set(ctx context.Context, campaigns []domain.Campaign) error
	Invalidate(ctx context.Context) error
}

// EventPublisher publishes campaign domain events.
type EventPublisher interface {
	PublishCampaignSaved(ctx context.Context, c *domain.Campaign) error
	PublishCampaignDeleted(ctx context.Context, id int64) error
}

// Settings is the immutable configuration snapshot threaded through
// pricing and scheduling decisions.
type Settings struct {
	// PriorityPolicy picks among multiple applicable discounts.
	PriorityPolicy pricing.Policy
	// Location is the site timezone schedule windows are interpreted in.
	Location *time.Location
}

// CampaignService implements the business logic for campaign operations.
type CampaignService struct {
	repo     repository.CampaignRepository
	audit    repository.AuditRepository
	events   EventPublisher
	cache    ActiveCache
	notifier Notifier
	settings Settings
	logger   *slog.Logger
}

// NewCampaignService creates a new campaign service. The scheduler
// notifier is attached afterwards via SetNotifier because the scheduler
// itself needs the service's status write path.
func NewCampaignService(
	repo repository.CampaignRepository,
	audit repository.AuditRepository,
	events EventPublisher,
	cache ActiveCache,
	settings Settings,
	logger *slog.Logger,
) *CampaignService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.PriorityPolicy == "" {
		settings.PriorityPolicy = pricing.ApplyHighest
	}
	return &CampaignService{
		repo:     repo,
		audit:    audit,
		events:   events,
		cache:    cache,
		settings: settings,
		logger:   logger,
	}
}

// SetNotifier attaches the lifecycle scheduler notifier.
func (s *CampaignService) SetNotifier(n Notifier) {
	s.notifier = n
}
