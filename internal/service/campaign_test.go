package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dipta-sdd/campaignbay-sub001/internal/domain"
	"github.com/dipta-sdd/campaignbay-sub001/internal/pricing"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository"
	apperrors "github.com/dipta-sdd/campaignbay-sub001/pkg/errors"
)

// --- Mocks ---

type mockCampaignRepository struct {
	mock.Mock
}

func (m *mockCampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Campaign), args.Int(1), args.Error(2)
}

func (m *mockCampaignRepository) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCampaignRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockCampaignRepository) SetStatus(ctx context.Context, id int64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockCampaignRepository) IncrementUsage(ctx context.Context, id int64) (repository.UsageResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.UsageResult), args.Error(1)
}

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepository) ListByCampaign(ctx context.Context, campaignID int64, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, campaignID, limit)
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishCampaignSaved(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockEventPublisher) PublishCampaignDeleted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockActiveCache struct {
	mock.Mock
}

func (m *mockActiveCache) Get(ctx context.Context) ([]domain.Campaign, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.Campaign), args.Bool(1), args.Error(2)
}

func (m *mockActiveCache) Set(ctx context.Context, campaigns []domain.Campaign) error {
	args := m.Called(ctx, campaigns)
	return args.Error(0)
}

func (m *mockActiveCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) OnCampaignSaved(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockNotifier) OnCampaignDeleted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type serviceMocks struct {
	repo     *mockCampaignRepository
	audit    *mockAuditRepository
	events   *mockEventPublisher
	cache    *mockActiveCache
	notifier *mockNotifier
}

func newTestService(settings Settings) (*CampaignService, *serviceMocks) {
	mocks := &serviceMocks{
		repo:     new(mockCampaignRepository),
		audit:    new(mockAuditRepository),
		events:   new(mockEventPublisher),
		cache:    new(mockActiveCache),
		notifier: new(mockNotifier),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewCampaignService(mocks.repo, mocks.audit, mocks.events, mocks.cache, settings, logger)
	svc.SetNotifier(mocks.notifier)
	return svc, mocks
}

func validScheduledInput() map[string]any {
	return map[string]any{
		"title":          "Summer Sale",
		"status":         "active",
		"type":           "scheduled",
		"discount_type":  "percentage",
		"discount_value": float64(10),
		"target_type":    "entire_store",
	}
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	ctx := context.Background()

	mocks.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Campaign")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Campaign).ID = 42
		}).Return(nil)
	mocks.notifier.On("OnCampaignSaved", mock.Anything, mock.Anything).Return(nil)
	mocks.cache.On("Invalidate", mock.Anything).Return(nil)
	mocks.events.On("PublishCampaignSaved", mock.Anything, mock.Anything).Return(nil)
	mocks.audit.On("Record", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.CampaignID == 42 && e.Action == domain.AuditActionCreated && e.Actor == "admin"
	})).Return(nil)

	c, err := svc.Create(ctx, validScheduledInput(), "admin")
	require.NoError(t, err)

	assert.Equal(t, int64(42), c.ID)
	assert.Equal(t, "Summer Sale", c.Title)
	assert.Equal(t, domain.CampaignTypeScheduled, c.Type)
	assert.True(t, c.DiscountValue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 0, c.UsageCount)
	assert.Equal(t, "admin", c.CreatedBy)

	mocks.repo.AssertExpectations(t)
	mocks.notifier.AssertExpectations(t)
	mocks.events.AssertExpectations(t)
	mocks.audit.AssertExpectations(t)
}

func TestCreate_ValidationFailureDoesNotPersist(t *testing.T) {
	svc, mocks := newTestService(Settings{})

	input := validScheduledInput()
	delete(input, "title")
	input["status"] = "bogus"

	_, err := svc.Create(context.Background(), input, "admin")
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Details, "title")
	assert.Contains(t, verr.Details, "status")
	assert.Equal(t, input, verr.Data)

	mocks.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_TierErrorsKeyedByPosition(t *testing.T) {
	svc, _ := newTestService(Settings{})

	input := map[string]any{
		"title":       "Bulk Deal",
		"status":      "active",
		"type":        "quantity",
		"target_type": "entire_store",
		"tiers": []any{
			map[string]any{"min": float64(1), "max": float64(5), "value": float64(10), "type": "percentage"},
			// Overlaps the first band: min 3 < previous max 5.
			map[string]any{"min": float64(3), "max": float64(10), "value": float64(20), "type": "percentage"},
		},
	}

	_, err := svc.Create(context.Background(), input, "admin")
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Details, "tiers.1.min")
	assert.NotContains(t, verr.Details, "tiers.0.min")
}

func TestCreate_RejectsUnknownSettings(t *testing.T) {
	svc, _ := newTestService(Settings{})

	input := validScheduledInput()
	input["settings"] = map[string]any{"enable_quantity_table": true}

	_, err := svc.Create(context.Background(), input, "admin")
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Details, "settings.enable_quantity_table")
}

// --- Update ---

func TestUpdate_PartialMergesSnapshot(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	ctx := context.Background()

	existing := &domain.Campaign{
		ID:            7,
		Title:         "Old Title",
		Status:        "active",
		Type:          "scheduled",
		DiscountType:  "percentage",
		DiscountValue: decimal.NewFromInt(15),
		TargetType:    "entire_store",
	}
	updated := *existing
	updated.Title = "New Title"

	mocks.repo.On("GetByID", mock.Anything, int64(7)).Return(existing, nil).Once()
	mocks.repo.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return c.Title == "New Title" &&
			c.DiscountType == "percentage" &&
			c.DiscountValue.Equal(decimal.NewFromInt(15))
	})).Return(nil)
	mocks.repo.On("GetByID", mock.Anything, int64(7)).Return(&updated, nil).Once()
	mocks.notifier.On("OnCampaignSaved", mock.Anything, mock.Anything).Return(nil)
	mocks.cache.On("Invalidate", mock.Anything).Return(nil)
	mocks.events.On("PublishCampaignSaved", mock.Anything, mock.Anything).Return(nil)
	mocks.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	c, err := svc.Update(ctx, 7, map[string]any{"title": "New Title"}, true, "admin")
	require.NoError(t, err)
	assert.Equal(t, "New Title", c.Title)

	mocks.repo.AssertExpectations(t)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	mocks.repo.On("GetByID", mock.Anything, int64(99)).
		Return(nil, apperrors.NotFound("campaign", 99))

	_, err := svc.Update(context.Background(), 99, validScheduledInput(), false, "admin")
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

// --- Delete ---

func TestDelete_CancelsJobsBeforeTheRow(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	ctx := context.Background()

	var order []string
	mocks.notifier.On("OnCampaignDeleted", mock.Anything, int64(5)).
		Run(func(mock.Arguments) { order = append(order, "notify") }).Return(nil)
	mocks.repo.On("Delete", mock.Anything, int64(5)).
		Run(func(mock.Arguments) { order = append(order, "delete") }).Return(true, nil)
	mocks.events.On("PublishCampaignDeleted", mock.Anything, int64(5)).Return(nil)
	mocks.cache.On("Invalidate", mock.Anything).Return(nil)
	mocks.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	deleted, err := svc.Delete(ctx, 5, "admin")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"notify", "delete"}, order)
}

func TestDelete_ZeroRows(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	mocks.notifier.On("OnCampaignDeleted", mock.Anything, int64(5)).Return(nil)
	mocks.repo.On("Delete", mock.Anything, int64(5)).Return(false, nil)

	deleted, err := svc.Delete(context.Background(), 5, "admin")
	require.NoError(t, err)
	assert.False(t, deleted)

	mocks.events.AssertNotCalled(t, "PublishCampaignDeleted", mock.Anything, mock.Anything)
}

// --- SetStatus ---

func TestSetStatus_RejectsUnknownStatus(t *testing.T) {
	svc, mocks := newTestService(Settings{})

	err := svc.SetStatus(context.Background(), 1, "paused")
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
	mocks.repo.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatus_ReloadsAndNotifies(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	ctx := context.Background()

	reloaded := &domain.Campaign{ID: 3, Status: "active", Type: "scheduled"}
	mocks.repo.On("SetStatus", mock.Anything, int64(3), "active").Return(nil)
	mocks.repo.On("GetByID", mock.Anything, int64(3)).Return(reloaded, nil)
	mocks.notifier.On("OnCampaignSaved", mock.Anything, reloaded).Return(nil)
	mocks.cache.On("Invalidate", mock.Anything).Return(nil)
	mocks.events.On("PublishCampaignSaved", mock.Anything, reloaded).Return(nil)
	mocks.audit.On("Record", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.Action == domain.AuditActionStatusChanged
	})).Return(nil)

	require.NoError(t, svc.SetStatus(ctx, 3, "active"))
	mocks.repo.AssertExpectations(t)
	mocks.notifier.AssertExpectations(t)
}

// --- IncrementUsageCount ---

func TestIncrementUsage_ExpiryFlipInvalidatesCache(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	ctx := context.Background()

	mocks.repo.On("IncrementUsage", mock.Anything, int64(8)).
		Return(repository.UsageResult{UsageCount: 100, Status: domain.CampaignStatusExpired}, nil)
	mocks.cache.On("Invalidate", mock.Anything).Return(nil)
	mocks.audit.On("Record", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.Action == domain.AuditActionStatusChanged && e.Actor == "system"
	})).Return(nil)

	result, err := svc.IncrementUsageCount(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 100, result.UsageCount)
	assert.Equal(t, domain.CampaignStatusExpired, result.Status)
	mocks.cache.AssertExpectations(t)
}

func TestIncrementUsage_NoFlipLeavesCache(t *testing.T) {
	svc, mocks := newTestService(Settings{})

	mocks.repo.On("IncrementUsage", mock.Anything, int64(8)).
		Return(repository.UsageResult{UsageCount: 3, Status: domain.CampaignStatusActive}, nil)

	result, err := svc.IncrementUsageCount(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 3, result.UsageCount)
	mocks.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
}

// --- ActiveCampaigns ---

func TestActiveCampaigns_CacheHit(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	cached := []domain.Campaign{{ID: 1, Status: "active"}}

	mocks.cache.On("Get", mock.Anything).Return(cached, true, nil)

	campaigns, err := svc.ActiveCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, campaigns)
	mocks.repo.AssertNotCalled(t, "ListActive", mock.Anything)
}

func TestActiveCampaigns_CacheMissFallsThrough(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	fromDB := []domain.Campaign{{ID: 2, Status: "active"}}

	mocks.cache.On("Get", mock.Anything).Return(nil, false, nil)
	mocks.repo.On("ListActive", mock.Anything).Return(fromDB, nil)
	mocks.cache.On("Set", mock.Anything, fromDB).Return(nil)

	campaigns, err := svc.ActiveCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fromDB, campaigns)
	mocks.cache.AssertExpectations(t)
}

func TestActiveCampaigns_CacheErrorIsNotFatal(t *testing.T) {
	svc, mocks := newTestService(Settings{})
	fromDB := []domain.Campaign{{ID: 2, Status: "active"}}

	mocks.cache.On("Get", mock.Anything).Return(nil, false, errors.New("redis gone"))
	mocks.repo.On("ListActive", mock.Anything).Return(fromDB, nil)
	mocks.cache.On("Set", mock.Anything, fromDB).Return(errors.New("redis gone"))

	campaigns, err := svc.ActiveCampaigns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fromDB, campaigns)
}

// --- ResolveAgainst ---

func activeScheduled(id int64, percent int64) domain.Campaign {
	return domain.Campaign{
		ID:            id,
		Status:        domain.CampaignStatusActive,
		Type:          domain.CampaignTypeScheduled,
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(percent),
		TargetType:    domain.TargetEntireStore,
	}
}

func TestResolveAgainst_HighestDiscountWins(t *testing.T) {
	svc, _ := newTestService(Settings{PriorityPolicy: pricing.ApplyHighest})

	campaigns := []domain.Campaign{activeScheduled(1, 10), activeScheduled(2, 20)}
	res := svc.ResolveAgainst(context.Background(), campaigns,
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 1, decimal.NewFromInt(100))

	assert.Equal(t, int64(2), res.AppliedCampaignID)
	assert.True(t, res.FinalPrice.Equal(decimal.NewFromInt(80)), res.FinalPrice.String())
}

func TestResolveAgainst_LowestPolicyPrefersSmallerDiscount(t *testing.T) {
	svc, _ := newTestService(Settings{PriorityPolicy: pricing.ApplyLowest})

	campaigns := []domain.Campaign{activeScheduled(1, 10), activeScheduled(2, 20)}
	res := svc.ResolveAgainst(context.Background(), campaigns,
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 1, decimal.NewFromInt(100))

	assert.Equal(t, int64(1), res.AppliedCampaignID)
	assert.True(t, res.FinalPrice.Equal(decimal.NewFromInt(90)), res.FinalPrice.String())
}

func TestResolveAgainst_FirstPolicyStops(t *testing.T) {
	svc, _ := newTestService(Settings{PriorityPolicy: pricing.ApplyFirst})

	campaigns := []domain.Campaign{activeScheduled(1, 10), activeScheduled(2, 20)}
	res := svc.ResolveAgainst(context.Background(), campaigns,
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 1, decimal.NewFromInt(100))

	assert.Equal(t, int64(1), res.AppliedCampaignID)
}

func TestResolveAgainst_NoMatchReturnsBase(t *testing.T) {
	svc, _ := newTestService(Settings{})

	targeted := activeScheduled(1, 10)
	targeted.TargetType = domain.TargetProduct
	targeted.TargetIDs = []int64{999}

	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{targeted},
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 1, decimal.NewFromInt(100))

	assert.Equal(t, int64(0), res.AppliedCampaignID)
	assert.True(t, res.FinalPrice.Equal(decimal.NewFromInt(100)))
}

func TestResolveAgainst_QuantityTier(t *testing.T) {
	svc, _ := newTestService(Settings{})

	c := domain.Campaign{
		ID:         3,
		Status:     domain.CampaignStatusActive,
		Type:       domain.CampaignTypeQuantity,
		TargetType: domain.TargetEntireStore,
		Tiers: domain.TierSet{Quantity: []domain.QuantityTier{
			{Min: 1, Max: 4, Value: decimal.NewFromInt(5), Type: domain.TierValuePercentage},
			{Min: 5, Max: 10, Value: decimal.NewFromInt(20), Type: domain.TierValuePercentage},
		}},
	}

	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{c},
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 6, decimal.NewFromInt(50))

	assert.Equal(t, int64(3), res.AppliedCampaignID)
	assert.True(t, res.FinalPrice.Equal(decimal.NewFromInt(40)), res.FinalPrice.String())
}

func TestResolveAgainst_BogoEffectivePrice(t *testing.T) {
	svc, _ := newTestService(Settings{})

	c := domain.Campaign{
		ID:         4,
		Status:     domain.CampaignStatusActive,
		Type:       domain.CampaignTypeBogo,
		TargetType: domain.TargetEntireStore,
		Tiers: domain.TierSet{Bogo: []domain.BogoTier{
			{BuyQuantity: 2, GetQuantity: 1},
		}},
	}

	// 6 units at 30: two full buy-2-get-1 cycles earn 2 free units, so
	// the effective unit price is 30 * 4 / 6 = 20.
	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{c},
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 6, decimal.NewFromInt(30))

	assert.Equal(t, int64(4), res.AppliedCampaignID)
	assert.Equal(t, 2, res.FreeQuantity)
	assert.True(t, res.FinalPrice.Equal(decimal.NewFromInt(20)), res.FinalPrice.String())
}

func TestResolveAgainst_EarlybirdUsesUsagePool(t *testing.T) {
	svc, _ := newTestService(Settings{})

	c := domain.Campaign{
		ID:         5,
		Status:     domain.CampaignStatusActive,
		Type:       domain.CampaignTypeEarlybird,
		TargetType: domain.TargetEntireStore,
		UsageCount: 15,
		Tiers: domain.TierSet{Earlybird: []domain.EarlybirdTier{
			{Quantity: 10, Value: decimal.NewFromInt(30), Type: domain.TierValuePercentage},
			{Quantity: 20, Value: decimal.NewFromInt(10), Type: domain.TierValuePercentage},
		}},
	}

	// 15 redemptions exhaust the first pool of 10, so the second tier's
	// 10% applies.
	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{c},
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 1, decimal.NewFromInt(100))

	assert.Equal(t, int64(5), res.AppliedCampaignID)
	assert.True(t, res.FinalPrice.Equal(decimal.NewFromInt(90)), res.FinalPrice.String())
}

func TestResolveAgainst_MalformedCampaignSkipped(t *testing.T) {
	svc, _ := newTestService(Settings{})

	broken := domain.Campaign{
		ID:         6,
		Status:     domain.CampaignStatusActive,
		Type:       domain.CampaignTypeQuantity,
		TargetType: domain.TargetEntireStore,
		// No tiers: decoded from a null column.
	}
	good := activeScheduled(7, 10)

	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{broken, good},
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 2, decimal.NewFromInt(100))

	assert.Equal(t, int64(7), res.AppliedCampaignID)
}

func TestResolveAgainst_RendersMessage(t *testing.T) {
	svc, _ := newTestService(Settings{})

	c := activeScheduled(8, 25)
	c.Settings = map[string]any{
		"discount_message_format": "Save <b>{saved_amount}</b> on {quantity} units",
	}

	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{c},
		domain.CatalogItem{ID: 100}, domain.Viewer{}, 3, decimal.NewFromInt(100))

	assert.Equal(t, "Save <b>25.00</b> on 3 units", res.Message)
}

func TestResolveAgainst_ConditionBlocksAnonymousViewer(t *testing.T) {
	svc, _ := newTestService(Settings{})

	c := activeScheduled(9, 10)
	c.Conditions = domain.ConditionSet{
		MatchType: domain.MatchAll,
		Rules: []domain.ConditionRule{{
			Type:      "user_role",
			Condition: domain.ConditionDetail{Option: "wholesale", IsIncluded: false},
		}},
	}

	res := svc.ResolveAgainst(context.Background(), []domain.Campaign{c},
		domain.CatalogItem{ID: 100}, domain.Viewer{IsAnonymous: true}, 1, decimal.NewFromInt(100))

	assert.Equal(t, int64(0), res.AppliedCampaignID)
}
