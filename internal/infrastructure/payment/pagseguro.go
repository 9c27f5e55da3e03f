package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
	"go.uber.org/zap"
)

// PagSeguroSignatureHeader carries the hex HMAC-SHA256 of the body
const PagSeguroSignatureHeader = "x-pagseguro-signature"

type pagSeguroEnvelope struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	CreatedAt string        `json:"created_at"`
	Data      pagSeguroData `json:"data"`
}

type pagSeguroData struct {
	ID            string `json:"id"`
	ReferenceID   string `json:"reference_id"`
	Status        string `json:"status"`
	NextInvoiceAt string `json:"next_invoice_at"`
	Plan          *struct {
		ID string `json:"id"`
	} `json:"plan"`
}

// PagSeguroAdapter authenticates PagSeguro notifications with the webhook token.
// The subscription's reference_id is the tenant ID.
type PagSeguroAdapter struct {
	token  []byte
	logger *zap.Logger
}

// NewPagSeguroAdapter creates a new PagSeguro adapter
func NewPagSeguroAdapter(token string, logger *zap.Logger) *PagSeguroAdapter {
	return &PagSeguroAdapter{token: []byte(token), logger: logger}
}

// Provider returns billing.ProviderPagSeguro
func (a *PagSeguroAdapter) Provider() billing.Provider {
	return billing.ProviderPagSeguro
}

// Sign returns the signature header value for body
func (a *PagSeguroAdapter) Sign(body []byte) string {
	mac := hmac.New(sha256.New, a.token)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook verifies the signature header and decodes the notification
func (a *PagSeguroAdapter) ParseWebhook(_ context.Context, header http.Header, body []byte) (billing.NormalizedEvent, error) {
	given, err := hex.DecodeString(strings.TrimSpace(header.Get(PagSeguroSignatureHeader)))
	if err != nil || len(given) == 0 {
		return billing.NormalizedEvent{}, ErrInvalidSignature
	}
	expected, _ := hex.DecodeString(a.Sign(body))
	if !hmac.Equal(given, expected) {
		return billing.NormalizedEvent{}, ErrInvalidSignature
	}

	var env pagSeguroEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderPagSeguro, Err: err}
	}
	if env.ID == "" {
		return billing.NormalizedEvent{}, &DecodeError{Provider: billing.ProviderPagSeguro, Err: errors.New("missing event id")}
	}

	ev := billing.NormalizedEvent{
		ID:           env.ID,
		ProviderType: env.Type,
		Payload:      json.RawMessage(body),
		OccurredAt:   parseTimeOrZero(env.CreatedAt),
	}

	status := env.Data.Status
	switch strings.ToUpper(env.Type) {
	case "SUBSCRIPTION.ACTIVATED", "SUBSCRIPTION.RENEWED":
		ev.Type = billing.EventSubscriptionUpdated
		status = "ACTIVE"
	case "SUBSCRIPTION.CANCELED", "SUBSCRIPTION.EXPIRED":
		ev.Type = billing.EventSubscriptionDeleted
	case "SUBSCRIPTION.PAYMENT_SUCCEEDED":
		ev.Type = billing.EventPaymentSucceeded
	case "SUBSCRIPTION.PAYMENT_FAILED":
		ev.Type = billing.EventPaymentFailed
	default:
		a.logger.Debug("Unhandled PagSeguro event type", zap.String("type", env.Type))
		return ev, nil
	}

	// PagSeguro plan ids are usually provider codes. Only catalog ids are
	// carried; otherwise the stored subscription keeps its plan.
	var plan billing.PlanID
	if env.Data.Plan != nil {
		if ref := billing.PlanID(strings.ToLower(strings.TrimSpace(env.Data.Plan.ID))); ref.IsValid() {
			plan = ref
		}
	}

	ev.Subscription = &billing.SubscriptionPayload{
		ProviderSubscriptionID: env.Data.ID,
		TenantID:               env.Data.ReferenceID,
		PlanID:                 plan,
		Status:                 status,
		CurrentPeriodEnd:       parseTimeOrZero(env.Data.NextInvoiceAt),
	}
	return ev, nil
}

func parseTimeOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
