package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/cart"
	"github.com/xraph/cart/plugin"
	"github.com/xraph/cart/store"
)

// Option configures the cart Forge extension.
type Option func(*Extension)

// WithStore sets the store the cart is persisted in.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithCartOption passes a cart.Option through to the underlying engine.
func WithCartOption(opt cart.Option) Option {
	return func(e *Extension) {
		e.cartOpts = append(e.cartOpts, opt)
	}
}

// WithPlugin registers a cart plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.cartOpts = append(e.cartOpts, cart.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents store migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithStoreID sets the shop whose cart is opened.
func WithStoreID(id string) Option {
	return func(e *Extension) { e.config.StoreID = id }
}

// WithNamespace sets the stored key prefix.
func WithNamespace(ns string) Option {
	return func(e *Extension) { e.config.Namespace = ns }
}

// WithPartitioning keeps separate public and private carts and opens the
// one selected by private.
func WithPartitioning(private bool) Option {
	return func(e *Extension) {
		e.config.Partitioned = true
		e.config.Private = private
	}
}

// WithProcessorFee enables the processor fee at rate.
func WithProcessorFee(rate float64) Option {
	return func(e *Extension) {
		e.config.ProcessorFee = true
		e.config.ProcessorFeeRate = rate
	}
}

// WithRatesTimeout bounds each rates lookup.
func WithRatesTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.RatesTimeout = d }
}

// WithTTL expires stored carts d after their last write.
func WithTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.TTL = d }
}

// WithRedis stores carts in Redis at addr.
func WithRedis(addr, prefix string) Option {
	return func(e *Extension) {
		e.config.RedisAddr = addr
		e.config.RedisPrefix = prefix
	}
}

// WithStripe charges submitted orders through Stripe.
func WithStripe(apiKey, accountID string) Option {
	return func(e *Extension) {
		e.config.StripeAPIKey = apiKey
		e.config.StripeAccountID = accountID
	}
}

// WithGroveDatabase persists carts in db through the grove store matching
// driver: "postgres", "sqlite" or "mongo".
func WithGroveDatabase(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.groveDriver = driver
	}
}
