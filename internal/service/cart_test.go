package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/shopcart/internal/domain"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

func newTestCartService(carts *mockCartRepository, gateway *mockGateway) *CartService {
	return NewCartService(carts, gateway, newTestEventProducer(), newTestLogger())
}

func TestAddItem_Success(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	item := &domain.Item{ID: "item-1", Name: "Espresso Machine", Price: 14999}
	gateway.On("Resolve", ctx, "item-1").Return(item, nil)
	carts.On("AddLine", ctx, "acc-1", "item-1", 2).Return(nil)
	carts.On("Get", ctx, "acc-1").Return(&domain.Cart{
		OwnerID: "acc-1",
		Version: 2,
		Lines:   []domain.CartLine{{ItemID: "item-1", Quantity: 2}},
	}, nil)
	gateway.On("ResolveAll", ctx, []string{"item-1"}).Return(map[string]domain.Item{"item-1": *item}, nil)

	view, err := svc.AddItem(ctx, "acc-1", "item-1", 2)

	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Espresso Machine", view.Items[0].Name)
	assert.Equal(t, int64(14999*2), view.Items[0].LineTotal)
	assert.Equal(t, int64(14999*2), view.TotalPrice)

	carts.AssertExpectations(t)
}

func TestAddItem_UnknownItem(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	gateway.On("Resolve", ctx, "ghost").Return(nil, apperrors.ErrNotFound)

	view, err := svc.AddItem(ctx, "acc-1", "ghost", 1)

	assert.Nil(t, view)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	carts.AssertNotCalled(t, "AddLine", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)

	_, err := svc.AddItem(context.Background(), "acc-1", "item-1", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRemoveItem_NoCart(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	carts.On("RemoveLine", ctx, "acc-1", "item-1").Return(apperrors.ErrNotFound)

	view, err := svc.RemoveItem(ctx, "acc-1", "item-1")

	assert.Nil(t, view)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRemoveItem_AbsentLineIsNoOp(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	// The cart exists; the line never did. The repository treats that as a
	// successful no-op and the caller gets the unchanged view.
	carts.On("RemoveLine", ctx, "acc-1", "never-added").Return(nil)
	carts.On("Get", ctx, "acc-1").Return(&domain.Cart{
		OwnerID: "acc-1",
		Version: 3,
		Lines:   []domain.CartLine{{ItemID: "item-1", Quantity: 1}},
	}, nil)
	gateway.On("ResolveAll", ctx, []string{"item-1"}).Return(map[string]domain.Item{
		"item-1": {ID: "item-1", Name: "Grinder", Price: 5999},
	}, nil)

	view, err := svc.RemoveItem(ctx, "acc-1", "never-added")

	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestGetCart_NoCartYieldsEmptyView(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	carts.On("Get", ctx, "acc-1").Return(nil, apperrors.ErrNotFound)

	view, err := svc.GetCart(ctx, "acc-1")

	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalPrice)
}

func TestGetCart_TotalDerivedFromCurrentPrices(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	carts.On("Get", ctx, "acc-1").Return(&domain.Cart{
		OwnerID: "acc-1",
		Version: 5,
		Lines: []domain.CartLine{
			{ItemID: "item-1", Quantity: 2},
			{ItemID: "item-2", Quantity: 1},
		},
	}, nil)
	gateway.On("ResolveAll", ctx, []string{"item-1", "item-2"}).Return(map[string]domain.Item{
		"item-1": {ID: "item-1", Name: "Grinder", Price: 5999},
		"item-2": {ID: "item-2", Name: "Pitcher", Price: 1299},
	}, nil)

	view, err := svc.GetCart(ctx, "acc-1")

	require.NoError(t, err)
	assert.Equal(t, int64(2*5999+1299), view.TotalPrice)
	assert.Equal(t, int64(5), view.Version)
}

func TestGetCart_VanishedItemKeptWithZeroPrice(t *testing.T) {
	carts := new(mockCartRepository)
	gateway := new(mockGateway)
	svc := newTestCartService(carts, gateway)
	ctx := context.Background()

	carts.On("Get", ctx, "acc-1").Return(&domain.Cart{
		OwnerID: "acc-1",
		Lines:   []domain.CartLine{{ItemID: "gone", Quantity: 1}},
	}, nil)
	gateway.On("ResolveAll", ctx, []string{"gone"}).Return(map[string]domain.Item{}, nil)

	view, err := svc.GetCart(ctx, "acc-1")

	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Zero(t, view.Items[0].Price)
	assert.Zero(t, view.TotalPrice)
}
