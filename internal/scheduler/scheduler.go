// Package scheduler flips scheduled campaigns to active and expired at
// the right wall-clock time. The lifecycle logic depends only on the
// JobScheduler interface; asynq-backed and in-memory implementations are
// provided.
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Deferred task type names, also used as asynq task types.
const (
	TaskTypeActivate = "campaign:activate"
	TaskTypeExpire   = "campaign:expire"
)

// Task identifies one deferred lifecycle transition.
type Task struct {
	Type       string `json:"type"`
	CampaignID int64  `json:"campaign_id"`
}

// ActivateKey returns the job key for a campaign's activation transition.
func ActivateKey(campaignID int64) string {
	return fmt.Sprintf("campaign:%d:activate", campaignID)
}

// ExpireKey returns the job key for a campaign's expiration transition.
func ExpireKey(campaignID int64) string {
	return fmt.Sprintf("campaign:%d:expire", campaignID)
}

// JobScheduler is the deferred-job primitive the lifecycle runs on.
// ScheduleOnce replaces any job already registered under key. Cancel is
// idempotent: cancelling an unknown key is not an error.
type JobScheduler interface {
	ScheduleOnce(ctx context.Context, key string, at time.Time, task Task) error
	Cancel(ctx context.Context, key string) error
}
