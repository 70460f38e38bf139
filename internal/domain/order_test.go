package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ============================================================================
// Status machine
// ============================================================================

func TestCanTransition_MatchesTable(t *testing.T) {
	allowed := map[string]map[string]bool{
		OrderStatusPending:    {OrderStatusProcessing: true, OrderStatusCancelled: true},
		OrderStatusProcessing: {OrderStatusReady: true, OrderStatusCancelled: true},
		OrderStatusReady:      {OrderStatusShipping: true},
		OrderStatusShipping:   {OrderStatusCompleted: true},
	}

	for _, from := range ValidStatuses() {
		for _, to := range ValidStatuses() {
			want := allowed[from][to]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("DRAFT", OrderStatusPending))
	assert.False(t, CanTransition(OrderStatusPending, "DRAFT"))
}

func TestOrder_IsTerminal(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusCompleted}).IsTerminal())
	assert.True(t, (&Order{Status: OrderStatusCancelled}).IsTerminal())
	assert.False(t, (&Order{Status: OrderStatusShipping}).IsTerminal())
}

func TestStep(t *testing.T) {
	for i, s := range ValidStatuses() {
		assert.Equal(t, i, Step(s))
	}
}

// ============================================================================
// Totals
// ============================================================================

func TestOrderItem_Subtotal_RoundsFractionalQuantity(t *testing.T) {
	item := OrderItem{Quantity: qty("1.255"), Price: 1000}
	assert.Equal(t, int64(1255), item.Subtotal())

	item = OrderItem{Quantity: qty("0.3333"), Price: 10}
	assert.Equal(t, int64(3), item.Subtotal())
}

func TestOrder_Recalculate(t *testing.T) {
	o := &Order{
		Items: []OrderItem{
			{Quantity: qty("3"), Price: 10000},
			{Quantity: qty("2"), Price: 5000},
		},
		Discount: 5000,
	}
	o.Recalculate()
	assert.Equal(t, int64(35000), o.Total)

	o.Discount = 100000
	o.Recalculate()
	assert.Equal(t, int64(0), o.Total)
}

func TestOrder_CollectAmount(t *testing.T) {
	o := &Order{Total: 100000, ShippingFee: 30000, ShippingPaidBy: ShippingPayerCustomer}
	assert.Equal(t, int64(130000), o.CollectAmount())

	o.ShippingPaidBy = ShippingPayerShop
	assert.Equal(t, int64(100000), o.CollectAmount())
}

func TestCodePrefix(t *testing.T) {
	assert.Equal(t, "DH", CodePrefix(OrderTypeSale))
	assert.Equal(t, "NH", CodePrefix(OrderTypePurchase))
}

// ============================================================================
// Returns and settlement
// ============================================================================

func deliveredOrder(payer string) *Order {
	o := &Order{
		Code:           "DH20260101-001",
		Status:         OrderStatusShipping,
		ShippingFee:    20000,
		ShippingPaidBy: payer,
		Items: []OrderItem{
			{ID: "i1", Quantity: qty("3"), Price: 10000},
			{ID: "i2", Quantity: qty("2"), Price: 5000},
		},
	}
	o.Recalculate()
	return o
}

func TestApplyReturns_OneOfThree(t *testing.T) {
	o := deliveredOrder(ShippingPayerShop)
	require.NoError(t, o.ApplyReturns([]ItemReturn{{ItemID: "i1", Quantity: qty("1")}}))

	assert.Equal(t, int64(10000), o.ReturnedAmount)
	assert.Equal(t, o.Total-10000, o.FinalAmount())
	assert.True(t, o.Items[0].KeptQuantity().Equal(qty("2")))
	assert.True(t, o.Items[1].KeptQuantity().Equal(qty("2")))
}

func TestApplyReturns_CustomerPaysFee(t *testing.T) {
	o := deliveredOrder(ShippingPayerCustomer)
	require.NoError(t, o.ApplyReturns([]ItemReturn{{ItemID: "i1", Quantity: qty("1")}}))
	assert.Equal(t, o.Total-10000+20000, o.FinalAmount())
}

func TestApplyReturns_Clamps(t *testing.T) {
	o := deliveredOrder(ShippingPayerShop)
	require.NoError(t, o.ApplyReturns([]ItemReturn{
		{ItemID: "i1", Quantity: qty("7")},
		{ItemID: "i2", Quantity: qty("-4")},
	}))

	assert.True(t, o.Items[0].ReturnedQuantity.Equal(qty("3")))
	assert.True(t, o.Items[1].ReturnedQuantity.IsZero())
	assert.Equal(t, int64(30000), o.ReturnedAmount)
	assert.True(t, o.Items[0].KeptQuantity().IsZero())
}

func TestApplyReturns_UnknownItem(t *testing.T) {
	o := deliveredOrder(ShippingPayerShop)
	assert.Error(t, o.ApplyReturns([]ItemReturn{{ItemID: "nope", Quantity: qty("1")}}))
}

func TestApplyReturns_NoneResetsPrevious(t *testing.T) {
	o := deliveredOrder(ShippingPayerShop)
	o.Items[0].ReturnedQuantity = qty("1")
	require.NoError(t, o.ApplyReturns(nil))
	assert.Equal(t, int64(0), o.ReturnedAmount)
	assert.True(t, o.Items[0].ReturnedQuantity.IsZero())
}

func TestOrder_Due(t *testing.T) {
	o := deliveredOrder(ShippingPayerCustomer)
	o.Paid = 10000
	assert.Equal(t, o.Total+20000-10000, o.Due())
}
