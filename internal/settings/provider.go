// Package settings loads the site-wide settings used for pricing the cart.
package settings

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Doer sends unauthenticated API requests.
type Doer interface {
	Do(ctx context.Context, req apiclient.Request, out any) error
}

type settingsResponse struct {
	Settings *model.SiteSettings `json:"settings"`
}

// Provider caches the last successfully loaded site settings.
type Provider struct {
	client Doer
	logger zerolog.Logger

	mu       sync.RWMutex
	settings *model.SiteSettings
	loading  bool
}

// NewProvider creates a settings provider.
func NewProvider(client Doer, logger zerolog.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

// Refresh loads GET /api/settings. On failure the previous value is kept.
func (p *Provider) Refresh(ctx context.Context) error {
	p.setLoading(true)
	defer p.setLoading(false)

	var resp settingsResponse
	if err := p.client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/api/settings"}, &resp); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if resp.Settings == nil {
		return fmt.Errorf("failed to load settings: empty response")
	}

	p.mu.Lock()
	p.settings = resp.Settings
	p.mu.Unlock()

	p.logger.Debug().
		Int64("shipping_cents", resp.Settings.ShippingCents).
		Float64("discount_percent", resp.Settings.DiscountPercent).
		Msg("settings loaded")
	return nil
}

// Current returns the cached settings, or nil before the first load.
func (p *Provider) Current() *model.SiteSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.settings == nil {
		return nil
	}
	s := *p.settings
	return &s
}

// Loading reports whether a refresh is in flight.
func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

func (p *Provider) setLoading(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = v
}
