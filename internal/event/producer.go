package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	pkgkafka "github.com/dipta-sdd/campaignbay-sub001/pkg/kafka"
)

// Kafka topic constants for campaign domain events.
const (
	TopicCampaignSaved   = "campaignbay.campaign.saved"
	TopicCampaignDeleted = "campaignbay.campaign.deleted"
)

// Aggregate type constant.
const AggregateTypeCampaign = "campaign"

// Source identifier for events originating from this service.
const SourceCampaignService = "campaignbay"

// KafkaPublisher is the producer surface the event publisher needs.
type KafkaPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// CampaignSavedData is the payload for a campaign.saved event, emitted on
// create, update and status transitions alike.
type CampaignSavedData struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	TargetType string `json:"target_type"`
	UsageCount int    `json:"usage_count"`
}

// CampaignDeletedData is the payload for a campaign.deleted event.
type CampaignDeletedData struct {
	ID int64 `json:"id"`
}

// Producer publishes campaign domain events to Kafka.
type Producer struct {
	kafka  KafkaPublisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for campaign events.
func NewProducer(kafka KafkaPublisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCampaignSaved publishes a campaign.saved event.
func (p *Producer) PublishCampaignSaved(ctx context.Context, campaign *domain.Campaign) error {
	data := CampaignSavedData{
		ID:         campaign.ID,
		Title:      campaign.Title,
		Type:       campaign.Type,
		Status:     campaign.Status,
		TargetType: campaign.TargetType,
		UsageCount: campaign.UsageCount,
	}

	aggregateID := strconv.FormatInt(campaign.ID, 10)
	event, err := pkgkafka.NewEvent(TopicCampaignSaved, aggregateID, AggregateTypeCampaign, SourceCampaignService, data)
	if err != nil {
		return fmt.Errorf("create campaign.saved event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCampaignSaved, event); err != nil {
		return fmt.Errorf("publish campaign.saved event: %w", err)
	}

	p.logger.DebugContext(ctx, "published campaign.saved event",
		slog.Int64("campaign_id", campaign.ID),
		slog.String("status", campaign.Status),
	)

	return nil
}

// PublishCampaignDeleted publishes a campaign.deleted event.
func (p *Producer) PublishCampaignDeleted(ctx context.Context, id int64) error {
	aggregateID := strconv.FormatInt(id, 10)
	event, err := pkgkafka.NewEvent(TopicCampaignDeleted, aggregateID, AggregateTypeCampaign, SourceCampaignService, CampaignDeletedData{ID: id})
	if err != nil {
		return fmt.Errorf("create campaign.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCampaignDeleted, event); err != nil {
		return fmt.Errorf("publish campaign.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published campaign.deleted event",
		slog.Int64("campaign_id", id),
	)

	return nil
}
