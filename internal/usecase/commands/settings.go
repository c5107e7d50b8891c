package commands

import (
	"context"
	"encoding/json"
	"log/slog"

	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	SettingMinLeadMinutes = "booking_min_lead_minutes"
	SettingGraceMinutes   = "booking_status_grace_minutes"
	SettingPricingRules   = "pricing_rules"

	DefaultMinLeadMinutes = 30
	DefaultGraceMinutes   = 15
)

// TenantSettings reads booking settings with a documented default for every key.
type TenantSettings struct {
	store  shared.SettingsStore
	logger *slog.Logger
}

func NewTenantSettings(store shared.SettingsStore, logger *slog.Logger) *TenantSettings {
	return &TenantSettings{store: store, logger: logger}
}

func (s *TenantSettings) MinLeadMinutes(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return s.intSetting(ctx, tenantID, SettingMinLeadMinutes, DefaultMinLeadMinutes)
}

func (s *TenantSettings) GraceMinutes(ctx context.Context, tenantID uuid.UUID) (int, error) {
	return s.intSetting(ctx, tenantID, SettingGraceMinutes, DefaultGraceMinutes)
}

// PricingRules never fails: a missing or unreadable document yields identity pricing.
func (s *TenantSettings) PricingRules(ctx context.Context, tenantID uuid.UUID) pricing.Rules {
	raw, found, err := s.store.Get(ctx, tenantID, SettingPricingRules)
	if err != nil {
		s.logger.Warn("pricing rules unavailable, using base price",
			"tenant_id", tenantID.String(), "error", err.Error())
		return pricing.Rules{}
	}
	if !found {
		return pricing.Rules{}
	}

	rules, err := pricing.ParseRules(raw)
	if err != nil {
		s.logger.Warn("pricing rules malformed, using base price",
			"tenant_id", tenantID.String(), "error", err.Error())
		return pricing.Rules{}
	}
	return rules
}

func (s *TenantSettings) intSetting(ctx context.Context, tenantID uuid.UUID, key string, fallback int) (int, error) {
	raw, found, err := s.store.Get(ctx, tenantID, key)
	if err != nil {
		return 0, errs.Wrap(err, "read setting "+key)
	}
	if !found {
		return fallback, nil
	}

	var v int
	if err := json.Unmarshal(raw, &v); err != nil || v < 0 {
		s.logger.Warn("setting malformed, using default",
			"tenant_id", tenantID.String(), "key", key, "default", fallback)
		return fallback, nil
	}
	return v, nil
}
