package emission

import (
	"context"
	"time"

	"agourmet/ms_dte_bridge/internal/core/dte"
)

// Default namespaces under which emission records are kept per order.
const (
	DefaultNamespace       = "lioren_dte"
	DefaultRefundNamespace = "lioren_refund"
)

// Record is the trace of a document emitted for an order.
type Record struct {
	OrderID   string
	Folio     string
	Kind      dte.Kind
	IssueDate string
	PDFURL    string
	XMLURL    string
	EmittedAt time.Time
}

// Store is the order-tracking store that remembers emissions.
type Store interface {
	// Get returns the record kept under namespace for the order.
	// Returns nil if no document was recorded.
	Get(ctx context.Context, orderID, namespace string) (*Record, error)

	// Put records an emission under namespace for the order.
	Put(ctx context.Context, orderID, namespace string, rec Record) error
}
