package emission

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appemission "agourmet/ms_dte_bridge/internal/application/emission"
	"agourmet/ms_dte_bridge/internal/core/dte"
	"agourmet/ms_dte_bridge/internal/core/order"
	ctxutil "agourmet/ms_dte_bridge/internal/infrastructure/context"
	httperrors "agourmet/ms_dte_bridge/internal/infrastructure/http"
)

// Messages returned to callers.
const (
	MsgMethodNotAllowed = "Método no permitido. Use POST."
	MsgInvalidData      = "Datos inválidos"
	MsgInvalidBody      = "El cuerpo de la petición no es válido"
	MsgInternalError    = "Error interno del servidor"
	MsgUpstreamError    = "Error al emitir documento"
	MsgTimeout          = "Tiempo de espera agotado"
	MsgUnauthorized     = "Firma de webhook inválida"
	MsgOrderNotFound    = "Orden no encontrada"
	MsgAlreadyEmitted   = "DTE ya emitido para esta orden"
	MsgProviderDown     = "Servicio de emisión no disponible temporalmente"
	MsgNoOriginal       = "No se encontró DTE original, saltando Nota de Crédito"
	MsgNoRefundedItems  = "No hay items para devolver"
)

// HMACHeader carries the base64 HMAC-SHA256 of a webhook body.
const HMACHeader = "X-Shopify-Hmac-Sha256"

const maxBodyBytes = 1 << 20

// WebhookRecorder counts received webhooks.
type WebhookRecorder interface {
	ObserveWebhook(topic string, accepted bool)
}

// Handler bridges HTTP traffic with the emission application service.
type Handler struct {
	service       *appemission.Service
	webhookSecret string
	recorder      WebhookRecorder // Optional
	log           *slog.Logger
}

// NewHandler creates a new emission HTTP handler. An empty webhook secret
// disables signature verification.
func NewHandler(service *appemission.Service, webhookSecret string, log *slog.Logger) *Handler {
	return &Handler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

// WithRecorder attaches a webhook recorder.
func (h *Handler) WithRecorder(r WebhookRecorder) *Handler {
	h.recorder = r
	return h
}

// ArtifactURLs are the links to the emitted document representations.
type ArtifactURLs struct {
	PDF string `json:"pdf,omitempty"`
	XML string `json:"xml,omitempty"`
}

// EmissionData is the data block of a successful emission response.
type EmissionData struct {
	Folio         string        `json:"folio,omitempty"`
	DocumentKind  dte.Kind      `json:"documentKind"`
	DocumentLabel string        `json:"documentLabel"`
	IssueDate     string        `json:"issueDate,omitempty"`
	ArtifactURLs  *ArtifactURLs `json:"artifactURLs,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	OrderID       string        `json:"orderId,omitempty"`
	OrderNumber   string        `json:"orderNumber,omitempty"`
	RefundID      string        `json:"refundId,omitempty"`
	OriginalFolio string        `json:"originalFolio,omitempty"`
	Downgraded    bool          `json:"downgraded,omitempty"`
	Totals        *dte.Totals   `json:"totals,omitempty"`
}

// ValidationData is the data block of a validation-only response.
type ValidationData struct {
	DocumentKind dte.Kind            `json:"documentKind"`
	Endpoint     string              `json:"endpoint"`
	Payload      dte.DocumentRequest `json:"payload"`
	Totals       dte.Totals          `json:"totals"`
}

// EmitDTE handles POST /api/emit-dte requests.
func (h *Handler) EmitDTE(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req appemission.DirectRequest
	if !h.decode(w, r, &req) {
		return
	}

	outcome, err := h.service.EmitDirect(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httperrors.WriteSuccess(w, outcome.Kind.Label()+" emitida exitosamente", toData(outcome), h.log)
}

// Validate handles POST /api/validate requests. The payload is built but
// never submitted.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req appemission.DirectRequest
	if !h.decode(w, r, &req) {
		return
	}

	preview, err := h.service.ValidateDirect(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	httperrors.WriteSuccess(w,
		fmt.Sprintf("Validación exitosa - %s lista para emitir", preview.Kind.Label()),
		ValidationData{
			DocumentKind: preview.Kind,
			Endpoint:     preview.Endpoint,
			Payload:      preview.Payload,
			Totals:       preview.Totals,
		}, h.log)
}

// OrdersPaid handles the orders/paid webhook.
func (h *Handler) OrdersPaid(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	body, ok := h.verifiedBody(w, r, "orders/paid")
	if !ok {
		return
	}

	var o order.Order
	if err := json.Unmarshal(body, &o); err != nil || o.ID == 0 {
		httperrors.WriteError(w, http.StatusBadRequest, MsgInvalidData, []string{MsgInvalidBody}, h.log)
		return
	}

	outcome, err := h.service.EmitForOrder(r.Context(), o)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeOutcome(w, outcome)
}

// Refunds handles the refunds/create webhook.
func (h *Handler) Refunds(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	body, ok := h.verifiedBody(w, r, "refunds/create")
	if !ok {
		return
	}

	var refund order.Refund
	if err := json.Unmarshal(body, &refund); err != nil || refund.ID == 0 || refund.OrderID == 0 {
		httperrors.WriteError(w, http.StatusBadRequest, MsgInvalidData, []string{MsgInvalidBody}, h.log)
		return
	}

	outcome, err := h.service.EmitCreditNote(r.Context(), refund)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeOutcome(w, outcome)
}

// EmitOrder handles POST /api/orders/{orderID}/emit requests. It fetches
// the order and runs the paid-order flow, for retries of failed webhooks.
func (h *Handler) EmitOrder(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	orderID, err := appemission.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, MsgInvalidData, []string{err.Error()}, h.log)
		return
	}

	h.log.Info("Manual emission requested",
		append(ctxutil.LogAttrs(r.Context()), "order_id", orderID)...)

	outcome, err := h.service.EmitForOrderID(r.Context(), orderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeOutcome(w, outcome)
}

func (h *Handler) writeOutcome(w http.ResponseWriter, outcome *appemission.Outcome) {
	var message string
	switch outcome.Status {
	case appemission.StatusAlreadyEmitted:
		message = MsgAlreadyEmitted
	case appemission.StatusNoOriginal:
		message = MsgNoOriginal
	case appemission.StatusNoRefundedItems:
		message = MsgNoRefundedItems
	default:
		message = outcome.Kind.Label() + " emitida exitosamente"
	}
	httperrors.WriteSuccess(w, message, toData(outcome), h.log)
}

func toData(o *appemission.Outcome) EmissionData {
	data := EmissionData{
		Folio:         o.Folio,
		DocumentKind:  o.Kind,
		DocumentLabel: o.Kind.Label(),
		IssueDate:     o.IssueDate,
		Timestamp:     o.EmittedAt,
		OrderID:       o.OrderID,
		OrderNumber:   o.OrderLabel,
		RefundID:      o.RefundID,
		OriginalFolio: o.OriginalFolio,
		Downgraded:    o.Downgraded,
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = time.Now().UTC()
	}
	if o.PDFURL != "" || o.XMLURL != "" {
		data.ArtifactURLs = &ArtifactURLs{PDF: o.PDFURL, XML: o.XMLURL}
	}
	if o.Status == appemission.StatusEmitted {
		totals := o.Totals
		data.Totals = &totals
	}
	return data
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", "POST, OPTIONS")
	httperrors.WriteError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed, nil, nil)
	return false
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		h.log.Warn("Invalid request body",
			"correlation_id", ctxutil.GetCorrelationID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		httperrors.WriteError(w, http.StatusBadRequest, MsgInvalidData, []string{MsgInvalidBody}, h.log)
		return false
	}
	return true
}

// verifiedBody reads the webhook body and checks its Shopify signature.
func (h *Handler) verifiedBody(w http.ResponseWriter, r *http.Request, topic string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, MsgInvalidData, []string{MsgInvalidBody}, h.log)
		return nil, false
	}

	if h.webhookSecret != "" && !ValidSignature(body, r.Header.Get(HMACHeader), h.webhookSecret) {
		attrs := append(ctxutil.LogAttrs(r.Context()), "topic", topic, "remote_addr", r.RemoteAddr)
		h.log.Warn("Rejected webhook with invalid signature", attrs...)
		h.observeWebhook(topic, false)
		httperrors.WriteError(w, http.StatusUnauthorized, MsgUnauthorized, nil, h.log)
		return nil, false
	}

	h.observeWebhook(topic, true)
	return body, true
}

func (h *Handler) observeWebhook(topic string, accepted bool) {
	if h.recorder != nil {
		h.recorder.ObserveWebhook(topic, accepted)
	}
}

// ValidSignature reports whether signature is the base64 HMAC-SHA256 of body
// under secret.
func ValidSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	given, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}

// handleError maps service errors to responses.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	correlationID := ctxutil.GetCorrelationID(r.Context())

	var validationErr *dte.ValidationError
	var upstreamErr *dte.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		h.log.Warn("Emission request rejected",
			"correlation_id", correlationID,
			"path", r.URL.Path,
			"details", validationErr.Details,
		)
		httperrors.WriteError(w, http.StatusBadRequest, MsgInvalidData, validationErr.Details, h.log)

	case errors.As(err, &upstreamErr):
		h.log.Error("Upstream service rejected request",
			"correlation_id", correlationID,
			"path", r.URL.Path,
			"service", upstreamErr.Service,
			"status", upstreamErr.StatusCode,
			"body", upstreamErr.Body,
		)
		httperrors.WriteError(w, http.StatusInternalServerError, MsgUpstreamError, []string{upstreamErr.Error()}, h.log)

	case errors.Is(err, dte.ErrProviderUnavailable):
		h.log.Warn("Emission rejected while provider is unavailable",
			"correlation_id", correlationID,
			"path", r.URL.Path,
		)
		httperrors.WriteError(w, http.StatusInternalServerError, MsgUpstreamError, []string{MsgProviderDown}, h.log)

	case errors.Is(err, order.ErrNotFound):
		h.log.Warn("Order not found",
			"correlation_id", correlationID,
			"path", r.URL.Path,
			"error", err,
		)
		httperrors.WriteError(w, http.StatusNotFound, MsgOrderNotFound, nil, h.log)

	case errors.Is(err, context.DeadlineExceeded):
		h.log.Error("Emission request timed out",
			"correlation_id", correlationID,
			"path", r.URL.Path,
			"error", err,
		)
		httperrors.WriteError(w, http.StatusInternalServerError, MsgInternalError, []string{MsgTimeout}, h.log)

	default:
		h.log.Error("Unexpected error processing emission request",
			"correlation_id", correlationID,
			"path", r.URL.Path,
			"error", err,
		)
		httperrors.WriteError(w, http.StatusInternalServerError, MsgInternalError, []string{err.Error()}, h.log)
	}
}
