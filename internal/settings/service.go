package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"ms-payanyway/internal/logger"
	"ms-payanyway/internal/models"
)

// Setting names. The prefix groups the whole family for uninstall.
const (
	keyPrefix                  = "payanyway."
	keyMerchantID              = keyPrefix + "merchant_id"
	keyHashCode                = keyPrefix + "hash_code"
	keyTestMode                = keyPrefix + "test_mode"
	keyDemoArea                = keyPrefix + "demo_area"
	keyAdditionalFee           = keyPrefix + "additional_fee"
	keyAdditionalFeePercentage = keyPrefix + "additional_fee_percentage"
)

type Store interface {
	LoadAll(ctx context.Context, storeID int) (map[string]string, error)
	Exists(ctx context.Context, storeID int, name string) (bool, error)
	Upsert(ctx context.Context, storeID int, name, value string) error
	Delete(ctx context.Context, storeID int, name string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Service loads and saves the gateway settings with per-store overrides, the
// way the host platform scopes configuration: store 0 holds the defaults, a
// store-scoped row shadows the default for that store only. Loads go through
// a read-mostly redis cache that Save invalidates.
type Service struct {
	Store Store
	Cache *redis.Client
	Log   *logger.Logger
}

func NewService(store Store, cache *redis.Client, log *logger.Logger) *Service {
	return &Service{Store: store, Cache: cache, Log: log}
}

func cacheKey(storeID int) string {
	return fmt.Sprintf("payanyway:settings:%d", storeID)
}

// Load resolves the effective settings for one store scope.
func (s *Service) Load(ctx context.Context, storeID int) (models.PaymentSettings, error) {
	if s.Cache != nil {
		if cached, err := s.Cache.Get(ctx, cacheKey(storeID)).Result(); err == nil {
			var out models.PaymentSettings
			if json.Unmarshal([]byte(cached), &out) == nil {
				return out, nil
			}
		}
	}

	values, err := s.Store.LoadAll(ctx, 0)
	if err != nil {
		return models.PaymentSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	if storeID > 0 {
		overrides, err := s.Store.LoadAll(ctx, storeID)
		if err != nil {
			return models.PaymentSettings{}, fmt.Errorf("failed to load store %d settings: %w", storeID, err)
		}
		for name, value := range overrides {
			values[name] = value
		}
	}

	out := fromMap(values)

	if s.Cache != nil {
		if encoded, err := json.Marshal(out); err == nil {
			if err := s.Cache.Set(ctx, cacheKey(storeID), encoded, 0).Err(); err != nil && s.Log != nil {
				s.Log.Warn("SETTINGS", fmt.Sprintf("failed to cache settings for store %d: %v", storeID, err))
			}
		}
	}

	return out, nil
}

// Save persists one store scope. At store 0 every field is written; at a
// store scope only the fields flagged as overridden are written and the rest
// are cleared so the store falls back to the defaults. The cache is cleared
// afterwards, not per field.
func (s *Service) Save(ctx context.Context, storeID int, settings models.PaymentSettings, overrides models.SettingOverrides) error {
	fields := []struct {
		name       string
		value      string
		overridden bool
	}{
		{keyMerchantID, settings.MerchantID, overrides.MerchantID},
		{keyHashCode, settings.HashCode, overrides.HashCode},
		{keyTestMode, strconv.FormatBool(settings.TestMode), overrides.TestMode},
		{keyDemoArea, strconv.FormatBool(settings.DemoArea), overrides.DemoArea},
		{keyAdditionalFee, strconv.FormatFloat(settings.AdditionalFee, 'f', -1, 64), overrides.AdditionalFee},
		{keyAdditionalFeePercentage, strconv.FormatBool(settings.AdditionalFeePercentage), overrides.AdditionalFeePercentage},
	}

	for _, f := range fields {
		if storeID == 0 || f.overridden {
			if err := s.Store.Upsert(ctx, storeID, f.name, f.value); err != nil {
				return fmt.Errorf("failed to save setting %s: %w", f.name, err)
			}
		} else {
			if err := s.Store.Delete(ctx, storeID, f.name); err != nil {
				return fmt.Errorf("failed to clear setting %s: %w", f.name, err)
			}
		}
	}

	return s.ClearCache(ctx)
}

// Overrides reports which fields are overridden at the given store scope.
func (s *Service) Overrides(ctx context.Context, storeID int) (models.SettingOverrides, error) {
	var out models.SettingOverrides
	if storeID <= 0 {
		return out, nil
	}

	checks := []struct {
		name   string
		target *bool
	}{
		{keyMerchantID, &out.MerchantID},
		{keyHashCode, &out.HashCode},
		{keyTestMode, &out.TestMode},
		{keyDemoArea, &out.DemoArea},
		{keyAdditionalFee, &out.AdditionalFee},
		{keyAdditionalFeePercentage, &out.AdditionalFeePercentage},
	}

	for _, c := range checks {
		exists, err := s.Store.Exists(ctx, storeID, c.name)
		if err != nil {
			return out, fmt.Errorf("failed to check setting %s: %w", c.name, err)
		}
		*c.target = exists
	}
	return out, nil
}

// ClearCache drops every cached settings scope.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	keys, err := s.Cache.Keys(ctx, "payanyway:settings:*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.Cache.Del(ctx, keys...).Err()
}

// Install seeds the default settings once. Test mode starts on so a fresh
// install cannot move real money before being configured.
func (s *Service) Install(ctx context.Context) error {
	exists, err := s.Store.Exists(ctx, 0, keyMerchantID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.Save(ctx, 0, models.PaymentSettings{TestMode: true}, models.SettingOverrides{})
}

// Uninstall removes the whole setting family and the cache.
func (s *Service) Uninstall(ctx context.Context) error {
	if err := s.Store.DeleteByPrefix(ctx, keyPrefix); err != nil {
		return err
	}
	return s.ClearCache(ctx)
}

func fromMap(values map[string]string) models.PaymentSettings {
	out := models.PaymentSettings{
		MerchantID: values[keyMerchantID],
		HashCode:   values[keyHashCode],
	}
	if v, err := strconv.ParseBool(values[keyTestMode]); err == nil {
		out.TestMode = v
	}
	if v, err := strconv.ParseBool(values[keyDemoArea]); err == nil {
		out.DemoArea = v
	}
	if v, err := strconv.ParseFloat(values[keyAdditionalFee], 64); err == nil {
		out.AdditionalFee = v
	}
	if v, err := strconv.ParseBool(values[keyAdditionalFeePercentage]); err == nil {
		out.AdditionalFeePercentage = v
	}
	return out
}
