// Package extension provides the Forge extension adapter for the cart
// engine.
//
// It implements the forge.Extension interface to integrate a cart into a
// Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.cart" or "cart" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/cart"
	"github.com/xraph/cart/payment"
	"github.com/xraph/cart/store"
	"github.com/xraph/cart/store/memory"
	"github.com/xraph/cart/store/mongo"
	"github.com/xraph/cart/store/postgres"
	"github.com/xraph/cart/store/redis"
	"github.com/xraph/cart/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "cart"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Persistent shopping cart state engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the cart engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	cart     *cart.Cart
	store    store.Store
	cartOpts []cart.Option

	groveDB     *grove.DB
	groveDriver string
}

// New creates a new cart Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cart returns the opened cart.
// This is nil until Start is called.
func (e *Extension) Cart() *cart.Cart { return e.cart }

// Register implements [forge.Extension]. It loads configuration, builds the
// store and registers the cart provider in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.buildStore(context.Background())
		if err != nil {
			return err
		}
		e.store = s
	}

	return vessel.Provide(fapp.Container(), func() (*cart.Cart, error) {
		if e.cart == nil {
			return nil, errors.New("cart: extension not started")
		}
		return e.cart, nil
	})
}

// Start implements [forge.Extension]. It migrates the store and opens the
// configured cart.
func (e *Extension) Start(ctx context.Context) error {
	if e.store == nil {
		return errors.New("cart: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("cart: migrate store: %w", err)
		}
	}

	c, err := cart.Open(ctx, e.store, e.config.StoreID, e.buildCartOpts()...)
	if err != nil {
		return err
	}
	e.cart = c

	if e.config.StripeAPIKey != "" {
		sub, err := payment.NewStripeSubmitter(payment.StripeConfig{
			APIKey:    e.config.StripeAPIKey,
			AccountID: e.config.StripeAccountID,
		})
		if err != nil {
			return err
		}
		c.OnSubmit(sub.Submit)
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(ctx context.Context) error {
	if e.cart != nil {
		if err := e.cart.Close(ctx); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("cart: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore selects the store backend from the resolved config.
func (e *Extension) buildStore(ctx context.Context) (store.Store, error) {
	var opts []store.Option
	if e.config.TTL > 0 {
		opts = append(opts, store.WithTTL(e.config.TTL))
	}

	switch {
	case e.groveDriver != "":
		return e.buildGroveStore(opts)
	case e.config.RedisAddr == "":
		return memory.New(opts...), nil
	}
	s, err := redis.Dial(ctx, e.config.RedisAddr, e.config.RedisPrefix, opts...)
	if err != nil {
		return nil, fmt.Errorf("cart: connect redis store: %w", err)
	}
	return s, nil
}

// buildGroveStore wraps the configured grove database in its driver's store.
func (e *Extension) buildGroveStore(opts []store.Option) (store.Store, error) {
	if e.groveDB == nil {
		return nil, errors.New("cart: grove database is nil")
	}
	switch e.groveDriver {
	case "postgres", "pg":
		return postgres.New(e.groveDB, opts...), nil
	case "sqlite":
		return sqlite.New(e.groveDB, opts...), nil
	case "mongo", "mongodb":
		return mongo.New(e.groveDB, opts...), nil
	default:
		return nil, fmt.Errorf("cart: unsupported grove driver %q", e.groveDriver)
	}
}

// buildCartOpts constructs cart.Option values from the resolved config.
func (e *Extension) buildCartOpts() []cart.Option {
	opts := make([]cart.Option, 0, len(e.cartOpts)+4)

	if e.config.Namespace != "" {
		opts = append(opts, cart.WithNamespace(e.config.Namespace))
	}
	if e.config.Partitioned {
		opts = append(opts, cart.WithPartitioning(e.config.Private))
	}
	if e.config.ProcessorFee {
		opts = append(opts, cart.WithProcessorFee(true, decimal.NewFromFloat(e.config.ProcessorFeeRate)))
	}
	if e.config.RatesTimeout > 0 {
		opts = append(opts, cart.WithRatesTimeout(e.config.RatesTimeout))
	}

	// Append any pass-through cart options.
	opts = append(opts, e.cartOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("cart: configuration is required but not found in config files; " +
				"ensure 'extensions.cart' or 'cart' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("cart: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("store_id", e.config.StoreID),
		forge.F("namespace", e.config.Namespace),
		forge.F("partitioned", e.config.Partitioned),
		forge.F("rates_timeout", e.config.RatesTimeout),
		forge.F("ttl", e.config.TTL),
		forge.F("redis", e.config.RedisAddr != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.cart" first (namespaced pattern).
	if cm.IsSet("extensions.cart") {
		if err := cm.Bind("extensions.cart", &cfg); err == nil {
			e.Logger().Debug("cart: loaded config from file",
				forge.F("key", "extensions.cart"),
			)
			return cfg, true
		}
		e.Logger().Warn("cart: failed to bind extensions.cart config",
			forge.F("error", "bind failed"),
		)
	}

	// Try the short "cart" key.
	if cm.IsSet("cart") {
		if err := cm.Bind("cart", &cfg); err == nil {
			e.Logger().Debug("cart: loaded config from file",
				forge.F("key", "cart"),
			)
			return cfg, true
		}
		e.Logger().Warn("cart: failed to bind cart config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.StoreID == "" {
		cfg.StoreID = defaults.StoreID
	}
	if cfg.RatesTimeout == 0 {
		cfg.RatesTimeout = defaults.RatesTimeout
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = defaults.RedisPrefix
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.Partitioned {
		yamlConfig.Partitioned = true
		yamlConfig.Private = yamlConfig.Private || programmaticConfig.Private
	}
	if programmaticConfig.ProcessorFee && !yamlConfig.ProcessorFee {
		yamlConfig.ProcessorFee = true
		yamlConfig.ProcessorFeeRate = programmaticConfig.ProcessorFeeRate
	}

	// String fields: YAML takes precedence.
	if yamlConfig.StoreID == "" {
		yamlConfig.StoreID = programmaticConfig.StoreID
	}
	if yamlConfig.Namespace == "" {
		yamlConfig.Namespace = programmaticConfig.Namespace
	}
	if yamlConfig.RedisAddr == "" {
		yamlConfig.RedisAddr = programmaticConfig.RedisAddr
	}
	if yamlConfig.RedisPrefix == "" {
		yamlConfig.RedisPrefix = programmaticConfig.RedisPrefix
	}
	if yamlConfig.StripeAPIKey == "" {
		yamlConfig.StripeAPIKey = programmaticConfig.StripeAPIKey
		yamlConfig.StripeAccountID = programmaticConfig.StripeAccountID
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.RatesTimeout == 0 {
		yamlConfig.RatesTimeout = programmaticConfig.RatesTimeout
	}
	if yamlConfig.TTL == 0 {
		yamlConfig.TTL = programmaticConfig.TTL
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
