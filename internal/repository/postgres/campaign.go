package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository"
	apperrors "github.com/dipta-sdd/campaignbay-sub001/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CampaignRepository implements repository.CampaignRepository using PostgreSQL.
type CampaignRepository struct {
	db DB
}

// NewCampaignRepository creates a new PostgreSQL-backed campaign repository.
func NewCampaignRepository(db DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, title, status, type, discount_type, discount_value,
	tiers, target_type, target_ids, is_exclude, exclude_sale_items,
	schedule_enabled, start_datetime, end_datetime, conditions, settings,
	usage_count, usage_limit, date_created, date_modified, created_by, updated_by`

// Create inserts a new campaign and assigns its generated ID.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	enc, err := encodeCampaign(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO campaigns (
			title, status, type, discount_type, discount_value, tiers,
			target_type, target_ids, is_exclude, exclude_sale_items,
			schedule_enabled, start_datetime, end_datetime, conditions,
			settings, usage_count, usage_limit, date_created, date_modified,
			created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id`

	err = r.db.QueryRow(ctx, query,
		c.Title,
		c.Status,
		c.Type,
		c.DiscountType,
		enc.discountValue,
		enc.tiers,
		c.TargetType,
		enc.targetIDs,
		c.IsExclude,
		c.ExcludeSaleItems,
		c.ScheduleEnabled,
		enc.startDatetime,
		enc.endDatetime,
		enc.conditions,
		enc.settings,
		c.UsageCount,
		c.UsageLimit,
		c.DateCreated,
		c.DateModified,
		c.CreatedBy,
		c.UpdatedBy,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by its numeric identifier.
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE id = $1`, campaignColumns)

	c, err := scanCampaign(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("campaign", id)
		}
		return nil, fmt.Errorf("get campaign %d: %w", id, err)
	}
	return c, nil
}

// List returns campaigns matching the given filter with the total count.
func (r *CampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, *filter.Type)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM campaigns
		%s
		ORDER BY date_created DESC
		LIMIT $%d OFFSET $%d`,
		campaignColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var (
		campaigns  []domain.Campaign
		totalCount int
	)

	for rows.Next() {
		c, err := scanCampaignRow(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate campaign rows: %w", err)
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, totalCount, nil
}

// ListActive returns all campaigns currently in active status.
func (r *CampaignRepository) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	query := fmt.Sprintf(`SELECT %s FROM campaigns WHERE status = $1 ORDER BY id`, campaignColumns)

	rows, err := r.db.Query(ctx, query, domain.CampaignStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		c, err := scanCampaignRow(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan active campaign row: %w", err)
		}
		campaigns = append(campaigns, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active campaign rows: %w", err)
	}

	return campaigns, nil
}

// Update rewrites an existing campaign row.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	enc, err := encodeCampaign(c)
	if err != nil {
		return err
	}

	c.DateModified = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET title = $1, status = $2, type = $3, discount_type = $4,
		    discount_value = $5, tiers = $6, target_type = $7, target_ids = $8,
		    is_exclude = $9, exclude_sale_items = $10, schedule_enabled = $11,
		    start_datetime = $12, end_datetime = $13, conditions = $14,
		    settings = $15, usage_count = $16, usage_limit = $17,
		    date_modified = $18, updated_by = $19
		WHERE id = $20`

	ct, err := r.db.Exec(ctx, query,
		c.Title,
		c.Status,
		c.Type,
		c.DiscountType,
		enc.discountValue,
		enc.tiers,
		c.TargetType,
		enc.targetIDs,
		c.IsExclude,
		c.ExcludeSaleItems,
		c.ScheduleEnabled,
		enc.startDatetime,
		enc.endDatetime,
		enc.conditions,
		enc.settings,
		c.UsageCount,
		c.UsageLimit,
		c.DateModified,
		c.UpdatedBy,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}

	return nil
}

// Delete removes a campaign, reporting whether a row was affected.
func (r *CampaignRepository) Delete(ctx context.Context, id int64) (bool, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete campaign %d: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// SetStatus updates only the status column.
func (r *CampaignRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE campaigns SET status = $1, date_modified = NOW() WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("set campaign %d status: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}
	return nil
}

// IncrementUsage atomically bumps usage_count and flips status to expired
// in the same write when the new count meets a positive usage limit.
func (r *CampaignRepository) IncrementUsage(ctx context.Context, id int64) (repository.UsageResult, error) {
	query := `
		UPDATE campaigns
		SET usage_count = usage_count + 1,
		    status = CASE
		        WHEN usage_limit IS NOT NULL AND usage_limit > 0 AND usage_count + 1 >= usage_limit
		        THEN 'expired'
		        ELSE status
		    END,
		    date_modified = NOW()
		WHERE id = $1
		RETURNING usage_count, status`

	var result repository.UsageResult
	err := r.db.QueryRow(ctx, query, id).Scan(&result.UsageCount, &result.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result, apperrors.NotFound("campaign", id)
		}
		return result, fmt.Errorf("increment campaign %d usage: %w", id, err)
	}
	return result, nil
}

// encodedCampaign holds the JSON text column values for one campaign.
type encodedCampaign struct {
	discountValue string
	tiers         []byte
	targetIDs     []byte
	conditions    []byte
	settings      []byte
	startDatetime *string
	endDatetime   *string
}

func encodeCampaign(c *domain.Campaign) (encodedCampaign, error) {
	var enc encodedCampaign
	var err error

	enc.discountValue = c.DiscountValue.String()

	if enc.tiers, err = c.Tiers.Encode(c.Type); err != nil {
		return enc, fmt.Errorf("marshal tiers: %w", err)
	}
	if enc.targetIDs, err = domain.EncodeTargetIDs(c.TargetIDs); err != nil {
		return enc, fmt.Errorf("marshal target_ids: %w", err)
	}
	if enc.conditions, err = c.Conditions.Encode(); err != nil {
		return enc, fmt.Errorf("marshal conditions: %w", err)
	}
	if enc.settings, err = domain.EncodeSettings(c.Settings); err != nil {
		return enc, fmt.Errorf("marshal settings: %w", err)
	}
	if !c.StartDatetime.IsZero() {
		s := string(c.StartDatetime)
		enc.startDatetime = &s
	}
	if !c.EndDatetime.IsZero() {
		s := string(c.EndDatetime)
		enc.endDatetime = &s
	}
	return enc, nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*domain.Campaign, error) {
	return scanCampaignRow(row, nil)
}

// scanCampaignRow scans one campaign row, decoding the JSON text columns
// leniently: null or malformed encodings become empty collections.
func scanCampaignRow(row rowScanner, totalCount *int) (*domain.Campaign, error) {
	var (
		c             domain.Campaign
		discountValue string
		tiersJSON     []byte
		targetJSON    []byte
		condJSON      []byte
		settingsJSON  []byte
		startDatetime *string
		endDatetime   *string
	)

	dest := []any{
		&c.ID,
		&c.Title,
		&c.Status,
		&c.Type,
		&c.DiscountType,
		&discountValue,
		&tiersJSON,
		&c.TargetType,
		&targetJSON,
		&c.IsExclude,
		&c.ExcludeSaleItems,
		&c.ScheduleEnabled,
		&startDatetime,
		&endDatetime,
		&condJSON,
		&settingsJSON,
		&c.UsageCount,
		&c.UsageLimit,
		&c.DateCreated,
		&c.DateModified,
		&c.CreatedBy,
		&c.UpdatedBy,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if v, err := decimal.NewFromString(discountValue); err == nil {
		c.DiscountValue = v
	}
	c.Tiers = domain.DecodeTierSet(c.Type, tiersJSON)
	c.TargetIDs = domain.DecodeTargetIDs(targetJSON)
	c.Conditions = domain.DecodeConditionSet(condJSON)
	c.Settings = domain.DecodeSettings(settingsJSON)
	if startDatetime != nil {
		c.StartDatetime = domain.LocalDateTime(*startDatetime)
	}
	if endDatetime != nil {
		c.EndDatetime = domain.LocalDateTime(*endDatetime)
	}

	return &c, nil
}
