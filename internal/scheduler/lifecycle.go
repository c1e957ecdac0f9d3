package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "campaign_lifecycle_transitions_total",
		Help: "Total number of campaign lifecycle transitions executed.",
	},
	[]string{"transition"},
)

// StatusWriter is the restricted write path the lifecycle uses to flip a
// campaign's status.
type StatusWriter interface {
	SetStatus(ctx context.Context, id int64, status string) error
}

// CacheInvalidator drops the cached active-campaign view after a
// transition.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Lifecycle watches campaign schedule windows and registers the deferred
// transitions. Every save re-registers from scratch, which keeps the
// transitions idempotent and self-healing.
type Lifecycle struct {
	jobs   JobScheduler
	status StatusWriter
	cache  CacheInvalidator
	loc    *time.Location
	logger *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewLifecycle builds the lifecycle component. loc is the site timezone
// schedule windows are interpreted in.
func NewLifecycle(jobs JobScheduler, status StatusWriter, cache CacheInvalidator, loc *time.Location, logger *slog.Logger) *Lifecycle {
	if loc == nil {
		loc = time.UTC
	}
	return &Lifecycle{
		jobs:   jobs,
		status: status,
		cache:  cache,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// OnCampaignSaved reacts to a campaign save: any previously registered
// jobs for the campaign are cancelled, and when the campaign is in
// scheduled status new one-shot jobs are registered. A start time already
// in the past activates the campaign synchronously instead.
func (l *Lifecycle) OnCampaignSaved(ctx context.Context, c *domain.Campaign) error {
	if err := l.cancelAll(ctx, c.ID); err != nil {
		return err
	}

	now := l.now()

	// An active campaign still inside its schedule window needs its
	// expiration job back: the activation transition itself re-enters
	// here via the saved notification, and the cancel above has just
	// removed the pending expire job.
	if c.Status == domain.CampaignStatusActive {
		return l.scheduleExpiration(ctx, c, now)
	}

	if c.Status != domain.CampaignStatusScheduled {
		return nil
	}

	start, ok := c.StartTime(l.loc)
	if !ok {
		l.logger.WarnContext(ctx, "scheduled campaign has no valid start time, leaving as is",
			slog.Int64("campaign_id", c.ID))
		return nil
	}

	if !start.After(now) {
		if err := l.Activate(ctx, c.ID); err != nil {
			return err
		}
	} else {
		task := Task{Type: TaskTypeActivate, CampaignID: c.ID}
		if err := l.jobs.ScheduleOnce(ctx, ActivateKey(c.ID), start, task); err != nil {
			return fmt.Errorf("schedule activation for campaign %d: %w", c.ID, err)
		}
		l.logger.InfoContext(ctx, "campaign activation scheduled",
			slog.Int64("campaign_id", c.ID),
			slog.Time("at", start))
	}

	// The expiration job registers independently of whether activation
	// was immediate or deferred.
	return l.scheduleExpiration(ctx, c, now)
}

func (l *Lifecycle) scheduleExpiration(ctx context.Context, c *domain.Campaign, now time.Time) error {
	end, ok := c.EndTime(l.loc)
	if !ok || !end.After(now) {
		return nil
	}
	task := Task{Type: TaskTypeExpire, CampaignID: c.ID}
	if err := l.jobs.ScheduleOnce(ctx, ExpireKey(c.ID), end, task); err != nil {
		return fmt.Errorf("schedule expiration for campaign %d: %w", c.ID, err)
	}
	l.logger.InfoContext(ctx, "campaign expiration scheduled",
		slog.Int64("campaign_id", c.ID),
		slog.Time("at", end))
	return nil
}

// OnCampaignDeleted cancels any pending jobs for the campaign.
func (l *Lifecycle) OnCampaignDeleted(ctx context.Context, id int64) error {
	return l.cancelAll(ctx, id)
}

// Activate transitions a campaign to active and invalidates the cached
// active-campaign view. Safe to run more than once per campaign.
func (l *Lifecycle) Activate(ctx context.Context, id int64) error {
	if err := l.status.SetStatus(ctx, id, domain.CampaignStatusActive); err != nil {
		return fmt.Errorf("activate campaign %d: %w", id, err)
	}
	transitionsTotal.WithLabelValues("activate").Inc()
	l.invalidateCache(ctx)
	l.logger.InfoContext(ctx, "campaign activated", slog.Int64("campaign_id", id))
	return nil
}

// Expire transitions a campaign to expired and invalidates the cached
// active-campaign view. Safe to run more than once per campaign.
func (l *Lifecycle) Expire(ctx context.Context, id int64) error {
	if err := l.status.SetStatus(ctx, id, domain.CampaignStatusExpired); err != nil {
		return fmt.Errorf("expire campaign %d: %w", id, err)
	}
	transitionsTotal.WithLabelValues("expire").Inc()
	l.invalidateCache(ctx)
	l.logger.InfoContext(ctx, "campaign expired", slog.Int64("campaign_id", id))
	return nil
}

// Handle dispatches a deferred task to its transition.
func (l *Lifecycle) Handle(ctx context.Context, task Task) error {
	switch task.Type {
	case TaskTypeActivate:
		return l.Activate(ctx, task.CampaignID)
	case TaskTypeExpire:
		return l.Expire(ctx, task.CampaignID)
	default:
		return fmt.Errorf("unknown lifecycle task type %q", task.Type)
	}
}

func (l *Lifecycle) cancelAll(ctx context.Context, id int64) error {
	if err := l.jobs.Cancel(ctx, ActivateKey(id)); err != nil {
		return fmt.Errorf("cancel activation job for campaign %d: %w", id, err)
	}
	if err := l.jobs.Cancel(ctx, ExpireKey(id)); err != nil {
		return fmt.Errorf("cancel expiration job for campaign %d: %w", id, err)
	}
	return nil
}

func (l *Lifecycle) invalidateCache(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx); err != nil {
		l.logger.WarnContext(ctx, "failed to invalidate active-campaign cache",
			slog.String("error", err.Error()))
	}
}
