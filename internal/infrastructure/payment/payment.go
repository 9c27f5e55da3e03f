// Package payment verifies and decodes payment-provider webhook deliveries
// into billing.NormalizedEvent values for the reconciliation engine.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vendora/backend/internal/domain/billing"
	"github.com/vendora/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	// ErrInvalidSignature is returned when a delivery fails authentication
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrProviderNotConfigured is returned for a provider without a webhook secret
	ErrProviderNotConfigured = errors.New("payment provider not configured")
)

// DecodeError wraps a payload that authenticated but could not be parsed
type DecodeError struct {
	Provider billing.Provider
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode webhook payload: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Adapter verifies one provider's webhook deliveries
type Adapter interface {
	Provider() billing.Provider
	// ParseWebhook authenticates the delivery and decodes it. Event types the
	// engine does not handle decode with an empty Type.
	ParseWebhook(ctx context.Context, header http.Header, body []byte) (billing.NormalizedEvent, error)
}

// Registry holds the adapters of the configured providers
type Registry struct {
	adapters map[billing.Provider]Adapter
}

// NewRegistry creates a registry from the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[billing.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// NewRegistryFromConfig registers an adapter for every provider with a secret
func NewRegistryFromConfig(cfg config.BillingConfig, logger *zap.Logger) *Registry {
	var adapters []Adapter
	if cfg.StripeWebhookSecret != "" {
		adapters = append(adapters, NewStripeAdapter(StripeConfig{
			WebhookSecret:    cfg.StripeWebhookSecret,
			Tolerance:        cfg.StripeSignatureTolerance,
			IgnoreAPIVersion: cfg.StripeIgnoreAPIVersion,
		}, logger))
	}
	if cfg.PagSeguroWebhookToken != "" {
		adapters = append(adapters, NewPagSeguroAdapter(cfg.PagSeguroWebhookToken, logger))
	}
	if cfg.PaddleWebhookSecret != "" {
		adapters = append(adapters, NewPaddleAdapter(cfg.PaddleWebhookSecret, logger))
	}

	r := NewRegistry(adapters...)
	for _, p := range []billing.Provider{billing.ProviderStripe, billing.ProviderPagSeguro, billing.ProviderPaddle} {
		if _, ok := r.adapters[p]; !ok {
			logger.Warn("Webhook provider disabled: no secret configured", zap.String("provider", string(p)))
		}
	}
	return r
}

// Get returns the adapter for provider
func (r *Registry) Get(provider billing.Provider) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	return a, nil
}

// parsePlan reads a plan id from provider metadata; empty means pro
func parsePlan(raw string) (billing.PlanID, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return billing.PlanPro, nil
	}
	plan := billing.PlanID(raw)
	if !plan.IsValid() {
		return "", fmt.Errorf("unknown plan %q", raw)
	}
	return plan, nil
}
