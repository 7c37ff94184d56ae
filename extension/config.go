package extension

import "time"

// Config holds the cart extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.cart" or "cart" keys).
type Config struct {
	// DisableMigrate prevents store migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// StoreID identifies the shop whose cart the extension opens.
	StoreID string `json:"store_id" mapstructure:"store_id" yaml:"store_id"`

	// Namespace prefixes the stored cart key (default: "REACT_CART_STORAGE_KEY").
	Namespace string `json:"namespace" mapstructure:"namespace" yaml:"namespace"`

	// Partitioned keeps separate public and private carts.
	Partitioned bool `json:"partitioned" mapstructure:"partitioned" yaml:"partitioned"`

	// Private opens the private partition. Only meaningful with Partitioned.
	Private bool `json:"private" mapstructure:"private" yaml:"private"`

	// ProcessorFee enables the payment processor fee.
	ProcessorFee bool `json:"processor_fee" mapstructure:"processor_fee" yaml:"processor_fee"`

	// ProcessorFeeRate is the fee rate, e.g. 0.029.
	ProcessorFeeRate float64 `json:"processor_fee_rate" mapstructure:"processor_fee_rate" yaml:"processor_fee_rate"`

	// RatesTimeout bounds each rates lookup (default: 10s).
	RatesTimeout time.Duration `json:"rates_timeout" mapstructure:"rates_timeout" yaml:"rates_timeout"`

	// TTL expires stored carts this long after their last write. Zero keeps
	// them forever. Applies to stores built by the extension.
	TTL time.Duration `json:"ttl" mapstructure:"ttl" yaml:"ttl"`

	// RedisAddr selects a Redis store at this address when no store was
	// set programmatically.
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr" yaml:"redis_addr"`

	// RedisPrefix prefixes every Redis key (default: "cart:").
	RedisPrefix string `json:"redis_prefix" mapstructure:"redis_prefix" yaml:"redis_prefix"`

	// StripeAPIKey registers a Stripe submit handler when set.
	StripeAPIKey string `json:"stripe_api_key" mapstructure:"stripe_api_key" yaml:"stripe_api_key"`

	// StripeAccountID charges on behalf of a connected account.
	StripeAccountID string `json:"stripe_account_id" mapstructure:"stripe_account_id" yaml:"stripe_account_id"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StoreID:      "default",
		RatesTimeout: 10 * time.Second,
		RedisPrefix:  "cart:",
	}
}
