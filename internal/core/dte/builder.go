package dte

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agourmet/ms_dte_bridge/internal/core/commune"
	"agourmet/ms_dte_bridge/internal/core/rut"
)

// DefaultReceiptServiceType marks a receipt as "ventas y servicios".
const DefaultReceiptServiceType = 3

// dateLayout is the issue date format expected by the issuing service.
const dateLayout = "2006-01-02"

// BuilderConfig holds the static settings of the payload builder.
type BuilderConfig struct {
	ReceiptServiceType int
	// Location is the time zone issue dates are computed in.
	Location *time.Location
}

// Builder assembles document requests for the three supported kinds.
type Builder struct {
	cfg      BuilderConfig
	communes commune.Resolver
	now      func() time.Time
}

// Sale is everything a receipt or invoice needs beyond its kind.
type Sale struct {
	Observations string
	Buyer        Party
	Lines        []DetailLine
}

// NewBuilder creates a payload builder.
func NewBuilder(cfg BuilderConfig, communes commune.Resolver) *Builder {
	if cfg.ReceiptServiceType == 0 {
		cfg.ReceiptServiceType = DefaultReceiptServiceType
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if communes == nil {
		communes = commune.NewPlaceholder(0, 0)
	}
	return &Builder{cfg: cfg, communes: communes, now: time.Now}
}

// WithClock replaces the time source used for issue dates.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// IssueDate returns today's date in the configured time zone.
func (b *Builder) IssueDate() string {
	return b.now().In(b.cfg.Location).Format(dateLayout)
}

// FormatDate renders t as an issue date in the configured time zone.
func (b *Builder) FormatDate(t time.Time) string {
	return t.In(b.cfg.Location).Format(dateLayout)
}

// Build dispatches to BuildReceipt or BuildInvoice.
func (b *Builder) Build(ctx context.Context, kind Kind, sale Sale) (DocumentRequest, error) {
	switch kind {
	case Receipt:
		return b.BuildReceipt(ctx, sale)
	case Invoice:
		return b.BuildInvoice(ctx, sale)
	case CreditNote:
		return DocumentRequest{}, errors.New("credit notes require a reference, use BuildCreditNote")
	default:
		return DocumentRequest{}, fmt.Errorf("unsupported document kind %s", kind)
	}
}

// BuildReceipt builds a boleta. The receptor block is only included when
// the RUT is valid and the legal name is known; otherwise the document goes
// to the final consumer.
func (b *Builder) BuildReceipt(ctx context.Context, sale Sale) (DocumentRequest, error) {
	if err := requireLines(sale.Lines); err != nil {
		return DocumentRequest{}, err
	}

	req := DocumentRequest{
		Issuer: Issuer{
			Kind:         Receipt,
			ServiceType:  b.cfg.ReceiptServiceType,
			Observations: sale.Observations,
		},
		Details: sale.Lines,
		Expects: ExpectsAll,
	}

	buyer := sale.Buyer
	if rut.Validate(buyer.RUT) && strings.TrimSpace(buyer.LegalName) != "" {
		loc, err := b.communes.Resolve(ctx, buyer.Commune, buyer.City)
		if err != nil {
			return DocumentRequest{}, fmt.Errorf("resolve commune: %w", err)
		}
		req.Receiver = &Receiver{
			RUT:       rut.Clean(buyer.RUT),
			LegalName: Truncate(buyer.LegalName, MaxLegalNameLength),
			Commune:   loc.Commune,
			City:      loc.City,
			Address:   Truncate(firstNonEmpty(buyer.Address, DefaultAddress), MaxAddressLength),
		}
	}

	return req, nil
}

// BuildInvoice builds a factura with a fully populated receptor.
func (b *Builder) BuildInvoice(ctx context.Context, sale Sale) (DocumentRequest, error) {
	if err := requireLines(sale.Lines); err != nil {
		return DocumentRequest{}, err
	}
	if strings.TrimSpace(sale.Buyer.RUT) == "" || strings.TrimSpace(sale.Buyer.LegalName) == "" {
		return DocumentRequest{}, &ValidationError{Details: []string{"Receptor requerido para factura"}}
	}

	receiver, err := b.fullReceiver(ctx, sale.Buyer)
	if err != nil {
		return DocumentRequest{}, err
	}

	return DocumentRequest{
		Issuer: Issuer{
			Kind:         Invoice,
			IssueDate:    b.IssueDate(),
			Observations: sale.Observations,
		},
		Receiver: receiver,
		Details:  sale.Lines,
		Expects:  ExpectsAll,
	}, nil
}

// BuildCreditNote builds a nota de crédito citing ref. The receptor mirrors
// the buyer data of the original sale and is not validated again; a buyer
// without RUT is credited as the final consumer.
func (b *Builder) BuildCreditNote(ctx context.Context, sale Sale, ref Reference) (DocumentRequest, error) {
	if err := requireLines(sale.Lines); err != nil {
		return DocumentRequest{}, err
	}
	if ref.Folio == "" {
		return DocumentRequest{}, &ValidationError{Details: []string{"Folio del documento original requerido"}}
	}
	if !ref.Kind.Valid() || ref.Kind == CreditNote {
		return DocumentRequest{}, &ValidationError{Details: []string{"Tipo de documento original inválido"}}
	}
	if ref.Date == "" {
		ref.Date = b.IssueDate()
	}

	buyer := sale.Buyer
	if strings.TrimSpace(buyer.RUT) == "" {
		buyer.RUT = FinalConsumer.RUT
		buyer.LegalName = firstNonEmpty(buyer.LegalName, FinalConsumer.LegalName)
	}

	receiver, err := b.fullReceiver(ctx, buyer)
	if err != nil {
		return DocumentRequest{}, err
	}

	return DocumentRequest{
		Issuer: Issuer{
			Kind:         CreditNote,
			IssueDate:    b.IssueDate(),
			Observations: sale.Observations,
		},
		Receiver:  receiver,
		Details:   sale.Lines,
		Reference: &ref,
		Expects:   ExpectsAll,
	}, nil
}

func (b *Builder) fullReceiver(ctx context.Context, buyer Party) (*Receiver, error) {
	loc, err := b.communes.Resolve(ctx, buyer.Commune, buyer.City)
	if err != nil {
		return nil, fmt.Errorf("resolve commune: %w", err)
	}

	return &Receiver{
		RUT:       rut.Clean(buyer.RUT),
		LegalName: Truncate(buyer.LegalName, MaxLegalNameLength),
		Activity:  Truncate(buyer.Activity, MaxActivityLength),
		Commune:   loc.Commune,
		City:      loc.City,
		Address:   Truncate(firstNonEmpty(buyer.Address, DefaultAddress), MaxAddressLength),
		Email:     Truncate(buyer.Email, MaxEmailLength),
		Phone:     Truncate(buyer.Phone, MaxPhoneLength),
	}, nil
}

func requireLines(lines []DetailLine) error {
	if len(lines) == 0 {
		return &ValidationError{Details: []string{"Items de venta requeridos"}}
	}
	return nil
}
