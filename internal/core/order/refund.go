package order

import (
	"strconv"
	"time"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// Refund is a refunds/create event.
type Refund struct {
	ID              int64            `json:"id"`
	OrderID         int64            `json:"order_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Note            string           `json:"note"`
	RefundLineItems []RefundLineItem `json:"refund_line_items"`
}

type RefundLineItem struct {
	ID         int64 `json:"id"`
	LineItemID int64 `json:"line_item_id"`
	Quantity   int   `json:"quantity"`
}

// Lines returns the refunded line references.
func (r Refund) Lines() []dte.RefundLine {
	lines := make([]dte.RefundLine, len(r.RefundLineItems))
	for i, item := range r.RefundLineItems {
		lines[i] = dte.RefundLine{
			LineID:   strconv.FormatInt(item.LineItemID, 10),
			Quantity: item.Quantity,
		}
	}
	return lines
}

// OrderKey is the identifier of the refunded order.
func (r Refund) OrderKey() string {
	return strconv.FormatInt(r.OrderID, 10)
}

// Key is the identifier of the refund itself.
func (r Refund) Key() string {
	return strconv.FormatInt(r.ID, 10)
}
