package postgres

import (
	"context"
	"fmt"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
)

// AuditRepository implements repository.AuditRepository using PostgreSQL.
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	query := `
		INSERT INTO campaign_audit_log (campaign_id, action, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		entry.CampaignID,
		entry.Action,
		entry.Actor,
		entry.Note,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByCampaign returns the newest-first audit trail for a campaign.
func (r *AuditRepository) ListByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, campaign_id, action, actor, note, created_at
		FROM campaign_audit_log
		WHERE campaign_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.Action, &e.Actor, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}

	return entries, nil
}
