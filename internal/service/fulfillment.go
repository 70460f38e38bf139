package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// AggregatePendingFulfillment compares the demand of every PENDING and
// PROCESSING sale with current stock. Nothing is reserved: two orders that
// each look available may still compete for the same stock.
func (s *OrderService) AggregatePendingFulfillment(ctx context.Context) (domain.FulfillmentSummary, error) {
	orders, err := s.orders.ListOpen(ctx)
	if err != nil {
		return domain.FulfillmentSummary{}, apperrors.AsPersistence(fmt.Errorf("list open orders: %w", err))
	}

	stock, err := s.stockFor(ctx, orders...)
	if err != nil {
		return domain.FulfillmentSummary{}, err
	}
	return domain.AggregateFulfillment(orders, stock), nil
}

func (s *OrderService) stockFor(ctx context.Context, orders ...domain.Order) (map[string]decimal.Decimal, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, o := range orders {
		for _, item := range o.Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	stock, err := s.products.StockLevels(ctx, ids)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("load stock levels: %w", err))
	}
	return stock, nil
}

// MarkReady moves a PROCESSING order to READY once stock covers each of its
// items on its own.
func (s *OrderService) MarkReady(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(domain.OrderStatusReady) {
		return nil, apperrors.InvalidTransition(order.Status, domain.OrderStatusReady)
	}

	return s.markReady(ctx, order)
}

// markReady checks stock for a sale and moves it to READY. Every path into
// READY goes through here.
func (s *OrderService) markReady(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.Type == domain.OrderTypeSale {
		stock, err := s.stockFor(ctx, *order)
		if err != nil {
			return nil, err
		}
		summary := domain.AggregateFulfillment([]domain.Order{*order}, stock)
		if avail := summary.Orders[0]; !avail.AllItemsAvailable {
			return nil, apperrors.InvalidInput("not enough stock for: " + strings.Join(avail.ShortProducts, ", "))
		}
	}

	if err := s.setStatus(ctx, order, domain.OrderStatusReady); err != nil {
		return nil, err
	}
	return order, nil
}
