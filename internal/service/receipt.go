package service

import (
	"context"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
)

// ReceiptLanguage sets number grouping on printed receipts.
var ReceiptLanguage = language.Vietnamese

// Receipt renders the plain-text receipt of an order.
func (s *OrderService) Receipt(ctx context.Context, id, shopName string) (string, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	return RenderReceipt(order, shopName, ReceiptLanguage), nil
}

// RenderReceipt formats an order as a fixed-width receipt. Amounts use the
// grouping of tag.
func RenderReceipt(o *domain.Order, shopName string, tag language.Tag) string {
	p := message.NewPrinter(tag)
	var b strings.Builder
	rule := strings.Repeat("-", 40) + "\n"

	if shopName != "" {
		b.WriteString(shopName + "\n")
	}
	p.Fprintf(&b, "Order %s (%s)\n", o.Code, o.Status)
	b.WriteString(o.CreatedAt.Format("2006-01-02 15:04") + "\n")
	if o.RecipientName != "" {
		p.Fprintf(&b, "Customer: %s %s\n", o.RecipientName, o.RecipientPhone)
	}
	if o.DeliveryMethod == domain.DeliveryMethodDelivery && o.DeliveryAddress != "" {
		p.Fprintf(&b, "Deliver to: %s\n", o.DeliveryAddress)
	}
	b.WriteString(rule)

	for _, item := range o.Items {
		p.Fprintf(&b, "%s\n", item.ProductName)
		p.Fprintf(&b, "  %s %s x %d = %d\n", item.Quantity.String(), item.Unit, item.Price, item.Subtotal())
		if item.ReturnedQuantity.IsPositive() {
			p.Fprintf(&b, "  returned %s %s\n", item.ReturnedQuantity.String(), item.Unit)
		}
	}
	b.WriteString(rule)

	line := func(label string, amount int64) {
		p.Fprintf(&b, "%-20s%20d\n", label, amount)
	}
	line("Subtotal", o.Subtotal())
	if o.Discount > 0 {
		line("Discount", -o.Discount)
	}
	line("Total", o.Total)
	if fee := o.CustomerShippingFee(); fee > 0 {
		line("Shipping", fee)
	}
	if o.ReturnedAmount > 0 {
		line("Returned", -o.ReturnedAmount)
	}
	line("Amount due", o.FinalAmount())
	line("Paid", o.Paid)
	line("Balance", o.Due())
	if o.RefundAmount > 0 {
		line("Refunded", o.RefundAmount)
	}
	if o.CarrierName != "" {
		p.Fprintf(&b, "Carrier: %s\n", o.CarrierName)
	}
	return b.String()
}
