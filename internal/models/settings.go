package models

import "github.com/uptrace/bun"

// Setting is one key/value row, optionally scoped to a store. StoreID 0 holds
// the defaults shared by all stores.
type Setting struct {
	bun.BaseModel `bun:"table:settings"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	StoreID int    `bun:"store_id" json:"store_id"`
	Name    string `bun:"name" json:"name"`
	Value   string `bun:"value" json:"value"`
}

// PaymentSettings is the typed settings bag for the PayAnyWay gateway.
// MerchantID and HashCode must both be non-empty before a signature means
// anything; the codec itself does not enforce that.
type PaymentSettings struct {
	MerchantID              string  `json:"merchant_id"`
	HashCode                string  `json:"hash_code"`
	TestMode                bool    `json:"test_mode"`
	DemoArea                bool    `json:"demo_area"`
	AdditionalFee           float64 `json:"additional_fee"`
	AdditionalFeePercentage bool    `json:"additional_fee_percentage"`
}

// SettingOverrides marks which fields of PaymentSettings are overridden at a
// store scope rather than inherited from the defaults.
type SettingOverrides struct {
	MerchantID              bool `json:"merchant_id"`
	HashCode                bool `json:"hash_code"`
	TestMode                bool `json:"test_mode"`
	DemoArea                bool `json:"demo_area"`
	AdditionalFee           bool `json:"additional_fee"`
	AdditionalFeePercentage bool `json:"additional_fee_percentage"`
}

// ConfigurationModel is the admin configure API payload.
type ConfigurationModel struct {
	StoreID   int              `json:"store_id"`
	Settings  PaymentSettings  `json:"settings"`
	Overrides SettingOverrides `json:"overrides"`
}
