package emission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"agourmet/ms_dte_bridge/internal/core/dte"
	coreemission "agourmet/ms_dte_bridge/internal/core/emission"
	"agourmet/ms_dte_bridge/internal/core/order"
	"agourmet/ms_dte_bridge/internal/core/rut"
)

// Status is the result category of an emission request.
type Status string

const (
	StatusEmitted         Status = "emitted"
	StatusAlreadyEmitted  Status = "already_emitted"
	StatusNoOriginal      Status = "skipped_no_original"
	StatusNoRefundedItems Status = "skipped_no_items"
	StatusFailed          Status = "failed"
)

// Outcome describes what happened to an emission request.
type Outcome struct {
	Status        Status
	Kind          dte.Kind
	OrderID       string
	OrderLabel    string
	RefundID      string
	Folio         string
	OriginalFolio string
	IssueDate     string
	PDFURL        string
	XMLURL        string
	Downgraded    bool
	Totals        dte.Totals
	EmittedAt     time.Time
}

// Preview is the result of a validation-only request.
type Preview struct {
	Kind     dte.Kind
	Endpoint string
	Payload  dte.DocumentRequest
	Totals   dte.Totals
}

// ErrNoOrderSource is returned by operations that need to fetch orders when
// no order source is configured.
var ErrNoOrderSource = errors.New("order source is not configured")

// Recorder observes emission outcomes, typically for metrics.
type Recorder interface {
	ObserveEmission(kind dte.Kind, outcome string)
}

// Config holds the namespaces emission records are kept under.
type Config struct {
	Namespace       string
	RefundNamespace string
}

// Service orchestrates DTE emission use cases.
type Service struct {
	provider dte.Provider
	builder  *dte.Builder
	guard    *Guard
	orders   order.Source // Optional: nil disables credit notes
	recorder Recorder     // Optional
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates an emission service.
func NewService(provider dte.Provider, builder *dte.Builder, guard *Guard, orders order.Source, cfg Config, log *slog.Logger) *Service {
	if cfg.Namespace == "" {
		cfg.Namespace = coreemission.DefaultNamespace
	}
	if cfg.RefundNamespace == "" {
		cfg.RefundNamespace = coreemission.DefaultRefundNamespace
	}
	return &Service{
		provider: provider,
		builder:  builder,
		guard:    guard,
		orders:   orders,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithRecorder attaches an outcome recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// EmitForOrder emits a receipt or invoice for a paid order, unless one was
// already emitted for it.
func (s *Service) EmitForOrder(ctx context.Context, o order.Order) (*Outcome, error) {
	key := o.Key()

	if existing := s.guard.Lookup(ctx, key, s.cfg.Namespace); existing != nil {
		s.log.Info("DTE already emitted for order, skipping",
			"order_id", key,
			"order", o.Label(),
			"folio", existing.Folio,
		)
		s.observe(existing.Kind, StatusAlreadyEmitted)
		return &Outcome{
			Status:     StatusAlreadyEmitted,
			Kind:       existing.Kind,
			OrderID:    key,
			OrderLabel: o.Label(),
			Folio:      existing.Folio,
			IssueDate:  existing.IssueDate,
			PDFURL:     existing.PDFURL,
			XMLURL:     existing.XMLURL,
			EmittedAt:  existing.EmittedAt,
		}, nil
	}

	resolution := dte.ResolveForOrder(o.FiscalData())
	if resolution.Downgraded {
		s.log.Warn("invoice data incomplete, emitting receipt",
			"order_id", key,
			"order", o.Label(),
			"reasons", resolution.Reasons,
		)
	}

	lines := dte.MapLines(o.SaleLines(), dte.TaxInclusive)
	req, err := s.builder.Build(ctx, resolution.Kind, dte.Sale{
		Observations: "Venta online - Shopify Order " + o.Label(),
		Buyer:        o.Buyer(),
		Lines:        lines,
	})
	if err != nil {
		s.observe(resolution.Kind, StatusFailed)
		return nil, fmt.Errorf("build document: %w", err)
	}

	totals := dte.ComputeTotals(lines)
	s.log.Info("emitting DTE for order",
		"order_id", key,
		"order", o.Label(),
		"kind", resolution.Kind.Code(),
		"receiver", rut.Format(req.ReceiverRUT()),
		"lines", len(lines),
		"net", totals.Net,
		"vat", totals.VAT,
		"total", totals.Total,
	)

	result, err := s.submit(ctx, resolution.Kind, req)
	if err != nil {
		return nil, err
	}

	outcome := s.emitted(resolution.Kind, result, totals)
	outcome.OrderID = key
	outcome.OrderLabel = o.Label()
	outcome.Downgraded = resolution.Downgraded

	s.guard.Remember(ctx, key, s.cfg.Namespace, outcome.record())
	return outcome, nil
}

// EmitForOrderID fetches an order and emits its document. Used to retry
// orders whose webhook failed.
func (s *Service) EmitForOrderID(ctx context.Context, orderID int64) (*Outcome, error) {
	if s.orders == nil {
		return nil, ErrNoOrderSource
	}
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return s.EmitForOrder(ctx, *o)
}

// EmitDirect validates and emits a document from a direct request.
func (s *Service) EmitDirect(ctx context.Context, in DirectRequest) (*Outcome, error) {
	kind, req, totals, err := s.prepareDirect(ctx, in)
	if err != nil {
		return nil, err
	}

	s.log.Info("emitting DTE from direct request",
		"order", in.Label(),
		"kind", kind.Code(),
		"receiver", rut.Format(req.ReceiverRUT()),
		"lines", len(req.Details),
		"total", totals.Total,
	)

	result, err := s.submit(ctx, kind, req)
	if err != nil {
		return nil, err
	}

	outcome := s.emitted(kind, result, totals)
	outcome.OrderLabel = in.Label()
	return outcome, nil
}

// ValidateDirect runs the direct path up to payload construction and
// returns what would be submitted. Nothing is sent to the issuing service.
func (s *Service) ValidateDirect(ctx context.Context, in DirectRequest) (*Preview, error) {
	kind, req, totals, err := s.prepareDirect(ctx, in)
	if err != nil {
		return nil, err
	}

	return &Preview{
		Kind:     kind,
		Endpoint: s.provider.EndpointURL(kind),
		Payload:  req,
		Totals:   totals,
	}, nil
}

// EmitCreditNote emits a credit note for a refund of an order that already
// has a document. Refunds of orders without a document, or whose lines
// match nothing in the order, are skipped.
func (s *Service) EmitCreditNote(ctx context.Context, refund order.Refund) (*Outcome, error) {
	orderKey := refund.OrderKey()
	refundKey := refund.Key()
	refundNamespace := s.cfg.RefundNamespace + "_" + refundKey

	base := Outcome{Kind: dte.CreditNote, OrderID: orderKey, RefundID: refundKey}

	if existing := s.guard.Lookup(ctx, orderKey, refundNamespace); existing != nil {
		s.log.Info("credit note already emitted for refund, skipping",
			"order_id", orderKey,
			"refund_id", refundKey,
			"folio", existing.Folio,
		)
		s.observe(dte.CreditNote, StatusAlreadyEmitted)
		base.Status = StatusAlreadyEmitted
		base.Folio = existing.Folio
		base.IssueDate = existing.IssueDate
		base.PDFURL = existing.PDFURL
		base.XMLURL = existing.XMLURL
		return &base, nil
	}

	original := s.guard.Lookup(ctx, orderKey, s.cfg.Namespace)
	if original == nil {
		s.log.Warn("no original DTE found for refunded order, skipping credit note",
			"order_id", orderKey,
			"refund_id", refundKey,
		)
		s.observe(dte.CreditNote, StatusNoOriginal)
		base.Status = StatusNoOriginal
		return &base, nil
	}
	base.OriginalFolio = original.Folio

	if s.orders == nil {
		return nil, ErrNoOrderSource
	}
	o, err := s.orders.GetOrder(ctx, refund.OrderID)
	if err != nil {
		s.observe(dte.CreditNote, StatusFailed)
		return nil, fmt.Errorf("fetch original order: %w", err)
	}
	base.OrderLabel = o.Label()

	rec := dte.ReconcileRefund(refund.Lines(), o.SaleLines())
	if len(rec.Dropped) > 0 {
		s.log.Warn("refund lines without matching order line were dropped",
			"order_id", orderKey,
			"refund_id", refundKey,
			"line_ids", rec.Dropped,
		)
	}
	if rec.Empty() {
		s.log.Info("no refunded items to credit, skipping credit note",
			"order_id", orderKey,
			"refund_id", refundKey,
		)
		s.observe(dte.CreditNote, StatusNoRefundedItems)
		base.Status = StatusNoRefundedItems
		return &base, nil
	}

	req, err := s.builder.BuildCreditNote(ctx, dte.Sale{
		Observations: fmt.Sprintf("Devolución - Shopify Order %s - Refund #%s", o.Label(), refundKey),
		Buyer:        o.Buyer(),
		Lines:        rec.Lines,
	}, s.originalReference(*o, original))
	if err != nil {
		s.observe(dte.CreditNote, StatusFailed)
		return nil, fmt.Errorf("build credit note: %w", err)
	}

	totals := dte.ComputeTotals(rec.Lines)
	s.log.Info("emitting credit note",
		"order_id", orderKey,
		"refund_id", refundKey,
		"original_folio", original.Folio,
		"receiver", rut.Format(req.ReceiverRUT()),
		"lines", len(rec.Lines),
		"total", totals.Total,
	)

	result, err := s.submit(ctx, dte.CreditNote, req)
	if err != nil {
		return nil, err
	}

	outcome := s.emitted(dte.CreditNote, result, totals)
	outcome.OrderID = orderKey
	outcome.OrderLabel = base.OrderLabel
	outcome.RefundID = refundKey
	outcome.OriginalFolio = original.Folio

	s.guard.Remember(ctx, orderKey, refundNamespace, outcome.record())
	return outcome, nil
}

func (s *Service) prepareDirect(ctx context.Context, in DirectRequest) (dte.Kind, dte.DocumentRequest, dte.Totals, error) {
	kind, err := in.Validate()
	if err != nil {
		return 0, dte.DocumentRequest{}, dte.Totals{}, err
	}

	lines := dte.MapLines(in.SaleLines(), dte.TaxExclusive)
	req, err := s.builder.Build(ctx, kind, dte.Sale{
		Observations: "Venta online - Shopify Order " + in.Label(),
		Buyer:        in.Buyer(),
		Lines:        lines,
	})
	if err != nil {
		return 0, dte.DocumentRequest{}, dte.Totals{}, fmt.Errorf("build document: %w", err)
	}
	return kind, req, dte.ComputeTotals(lines), nil
}

// originalReference cites the document emitted for the order. Records
// written before kind and date were stored fall back to the order's
// attributes and creation date.
func (s *Service) originalReference(o order.Order, original *coreemission.Record) dte.Reference {
	ref := dte.Reference{Kind: original.Kind, Folio: original.Folio, Date: original.IssueDate}
	if !ref.Kind.Valid() || ref.Kind == dte.CreditNote {
		ref.Kind = dte.ResolveForOrder(o.FiscalData()).Kind
	}
	if ref.Date == "" && !o.CreatedAt.IsZero() {
		ref.Date = s.builder.FormatDate(o.CreatedAt)
	}
	return ref
}

func (s *Service) submit(ctx context.Context, kind dte.Kind, req dte.DocumentRequest) (*dte.EmissionResult, error) {
	result, err := s.provider.Submit(ctx, kind, req)
	if err != nil {
		s.observe(kind, StatusFailed)
		return nil, fmt.Errorf("submit %s: %w", kind.Label(), err)
	}
	s.observe(kind, StatusEmitted)
	return result, nil
}

func (s *Service) emitted(kind dte.Kind, result *dte.EmissionResult, totals dte.Totals) *Outcome {
	return &Outcome{
		Status:    StatusEmitted,
		Kind:      kind,
		Folio:     result.Folio.String(),
		IssueDate: s.builder.IssueDate(),
		PDFURL:    result.PDFURL,
		XMLURL:    result.XMLURL,
		Totals:    totals,
		EmittedAt: s.now().UTC(),
	}
}

func (s *Service) observe(kind dte.Kind, status Status) {
	if s.recorder != nil {
		s.recorder.ObserveEmission(kind, string(status))
	}
}

func (o *Outcome) record() coreemission.Record {
	return coreemission.Record{
		OrderID:   o.OrderID,
		Folio:     o.Folio,
		Kind:      o.Kind,
		IssueDate: o.IssueDate,
		PDFURL:    o.PDFURL,
		XMLURL:    o.XMLURL,
		EmittedAt: o.EmittedAt,
	}
}

// ParseOrderID converts a path or payload identifier into an order id.
func ParseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return id, nil
}
