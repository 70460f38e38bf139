package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

func newPromotionFixture() (*PromotionService, *mockPromotionRepository, *mockProductRepository) {
	promos := new(mockPromotionRepository)
	products := new(mockProductRepository)
	svc := NewPromotionService(promos, products, newTestLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, promos, products
}

func TestResolvePromotionPrice_LargestThresholdWins(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	promos.On("TiersFor", ctx, "prod-001", fixedNow).Return(map[string][]domain.PriceTier{
		"promo-1": {
			{MinQuantity: d("5"), Price: 9500, CreatedAt: fixedNow},
			{MinQuantity: d("10"), Price: 9000, CreatedAt: fixedNow},
		},
	}, nil)

	tests := []struct {
		qty  string
		want int64
	}{
		{"1", 10000},
		{"5", 9500},
		{"9.5", 9500},
		{"10", 9000},
		{"40", 9000},
	}
	for _, tt := range tests {
		t.Run(tt.qty, func(t *testing.T) {
			price, err := svc.ResolvePromotionPrice(ctx, "prod-001", d(tt.qty), fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, price)
		})
	}
}

func TestResolvePromotionPrice_TieGoesToLaterTier(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	promos.On("TiersFor", ctx, "prod-001", fixedNow).Return(map[string][]domain.PriceTier{
		"promo-1": {
			{MinQuantity: d("10"), Price: 8800, CreatedAt: fixedNow.Add(time.Minute)},
			{MinQuantity: d("10"), Price: 9000, CreatedAt: fixedNow},
		},
	}, nil)

	price, err := svc.ResolvePromotionPrice(ctx, "prod-001", d("10"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(8800), price)
}

func TestResolvePromotionPrice_LowestAcrossPromotions(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	promos.On("TiersFor", ctx, "prod-001", fixedNow).Return(map[string][]domain.PriceTier{
		"promo-1": {{MinQuantity: d("3"), Price: 9200}},
		"promo-2": {{MinQuantity: d("2"), Price: 9400}},
	}, nil)

	price, err := svc.ResolvePromotionPrice(ctx, "prod-001", d("3"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(9200), price)
}

func TestResolvePromotionPrice_NoPromotionUsesBase(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	promos.On("TiersFor", ctx, "prod-001", fixedNow).Return(map[string][]domain.PriceTier{}, nil)

	price, err := svc.ResolvePromotionPrice(ctx, "prod-001", d("100"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), price)
}

func TestResolvePromotionPrice_UnknownProduct(t *testing.T) {
	svc, _, products := newPromotionFixture()
	ctx := context.Background()
	products.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("product", "ghost"))

	_, err := svc.ResolvePromotionPrice(ctx, "ghost", d("1"), fixedNow)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func validPromotionInput() CreatePromotionInput {
	return CreatePromotionInput{
		Name:      "Tet sale",
		StartDate: fixedNow,
		EndDate:   fixedNow.AddDate(0, 0, 7),
		Products: []PromotionProductInput{{
			ProductID: "prod-001",
			Tiers: []TierInput{
				{MinQuantity: d("10"), Price: 9000},
				{MinQuantity: d("5"), Price: 9500},
			},
		}},
	}
}

func TestCreatePromotion_Success(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	promos.On("Create", ctx, mock.AnythingOfType("*domain.Promotion")).Return(nil)

	promo, err := svc.CreatePromotion(ctx, validPromotionInput())
	require.NoError(t, err)
	assert.True(t, promo.Active)
	require.Len(t, promo.Products, 1)
	assert.Equal(t, promo.ID, promo.Products[0].PromotionID)
	assert.Len(t, promo.Products[0].Tiers, 2)
	promos.AssertExpectations(t)
}

func TestCreatePromotion_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreatePromotionInput)
	}{
		{"blank name", func(in *CreatePromotionInput) { in.Name = " " }},
		{"missing dates", func(in *CreatePromotionInput) { in.EndDate = time.Time{} }},
		{"end before start", func(in *CreatePromotionInput) { in.EndDate = in.StartDate.AddDate(0, 0, -1) }},
		{"no products", func(in *CreatePromotionInput) { in.Products = nil }},
		{"no tiers", func(in *CreatePromotionInput) { in.Products[0].Tiers = nil }},
		{"duplicate product", func(in *CreatePromotionInput) { in.Products = append(in.Products, in.Products[0]) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, promos, products := newPromotionFixture()
			products.On("GetByID", mock.Anything, "prod-001").Return(rice(), nil)

			in := validPromotionInput()
			tt.mutate(&in)
			_, err := svc.CreatePromotion(context.Background(), in)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
			promos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePromotion_RejectsRisingTierPrices(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()
	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)

	in := validPromotionInput()
	in.Products[0].Tiers = []TierInput{
		{MinQuantity: d("5"), Price: 9000},
		{MinQuantity: d("10"), Price: 9500},
	}
	_, err := svc.CreatePromotion(ctx, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "Rice")
	promos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePromotion_RejectsDuplicateThreshold(t *testing.T) {
	svc, promos, products := newPromotionFixture()
	ctx := context.Background()
	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)

	in := validPromotionInput()
	in.Products[0].Tiers = []TierInput{
		{MinQuantity: d("10"), Price: 9000},
		{MinQuantity: d("10"), Price: 8800},
	}
	_, err := svc.CreatePromotion(ctx, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "duplicate")
	promos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePromotion_TierAboveBasePrice(t *testing.T) {
	svc, _, products := newPromotionFixture()
	ctx := context.Background()
	products.On("GetByID", ctx, "prod-001").Return(rice(), nil)

	in := validPromotionInput()
	in.Products[0].Tiers = []TierInput{{MinQuantity: d("2"), Price: 12000}}
	_, err := svc.CreatePromotion(ctx, in)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestDeactivate(t *testing.T) {
	svc, promos, _ := newPromotionFixture()
	ctx := context.Background()

	promos.On("SetActive", ctx, "promo-1", false).Return(nil)
	promos.On("SetActive", ctx, "promo-404", false).Return(apperrors.NotFound("promotion", "promo-404"))

	require.NoError(t, svc.Deactivate(ctx, "promo-1"))
	assert.True(t, errors.Is(svc.Deactivate(ctx, "promo-404"), apperrors.ErrNotFound))
}
