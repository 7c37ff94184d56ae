package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/persist"
	"github.com/xraph/cart/plugin"
	"github.com/xraph/cart/pricing"
	"github.com/xraph/cart/record"
	"github.com/xraph/cart/shipment"
	"github.com/xraph/cart/store"
	"github.com/xraph/cart/types"
)

// Cart is the cart engine for one store. All methods are safe for
// concurrent use.
type Cart struct {
	mu  sync.Mutex
	rec *record.Record

	storeID string
	kv      store.Store
	persist *persist.Adapter
	bus     *event.Bus
	pricing *pricing.Engine
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// inflight counts rate refreshes that have not finished yet.
	inflight int
	// generation changes whenever the record is replaced wholesale, so a
	// refresh that started before a Clear or SetPrivate does not write into
	// the new record.
	generation uint64
	closed     bool
	// shipment is the request sent with the latest rate refresh.
	shipment shipment.Request

	// Configuration
	namespace    string
	partitioned  bool
	private      bool
	ratesTimeout time.Duration
	feeSet       bool
	feeEnabled   bool
	feeRate      decimal.Decimal
}

// Option configures a Cart instance.
type Option func(*Cart)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cart) {
		c.logger = logger
		c.plugins.WithLogger(logger)
	}
}

// WithNamespace sets the prefix of the store key.
func WithNamespace(ns string) Option {
	return func(c *Cart) {
		c.namespace = ns
	}
}

// WithPartitioning keys the stored record by the public/private partition.
// private selects the partition the cart opens in.
func WithPartitioning(private bool) Option {
	return func(c *Cart) {
		c.partitioned = true
		c.private = private
	}
}

// WithProcessorFee sets the processor fee configuration, overriding what
// the stored record carries.
func WithProcessorFee(enabled bool, rate decimal.Decimal) Option {
	return func(c *Cart) {
		c.feeSet = true
		c.feeEnabled = enabled
		c.feeRate = rate
	}
}

// WithRatesTimeout bounds every rates lookup. Zero waits for the handler or
// the caller's context.
func WithRatesTimeout(d time.Duration) Option {
	return func(c *Cart) {
		c.ratesTimeout = d
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(c *Cart) {
		_ = c.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cart) {
		c.now = now
	}
}

// Open loads the cart for storeID from kv, or starts a default one when
// nothing usable is stored.
func Open(ctx context.Context, kv store.Store, storeID string, opts ...Option) (*Cart, error) {
	if storeID == "" {
		return nil, ErrInvalidStoreID
	}
	if kv == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidInput)
	}

	c := &Cart{
		storeID:   storeID,
		kv:        kv,
		bus:       event.NewBus(),
		pricing:   pricing.NewEngine(),
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		now:       time.Now,
		namespace: persist.DefaultNamespace,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.feeSet && c.feeRate.IsNegative() {
		return nil, ValidationError{Field: "processor_fee_rate", Message: "must not be negative"}
	}

	c.persist = persist.New(kv,
		persist.WithNamespace(c.namespace),
		persist.WithPartitioning(c.partitioned),
		persist.WithLogger(c.logger),
	)

	rec, found := c.persist.Load(ctx, storeID, c.private)
	c.install(rec)

	c.plugins.EmitInit(ctx, c)
	c.plugins.EmitCartLoaded(ctx, c.Snapshot(), found)

	c.logger.Debug("cart opened",
		"store_id", storeID,
		"key", c.persist.Key(storeID, c.private),
		"found", found,
		"items", len(rec.Items),
		"idle", rec.IdleFor(c.now()),
	)

	return c, nil
}

// install makes rec the live record and applies engine configuration.
// Callers hold c.mu, or own c exclusively.
func (c *Cart) install(rec *record.Record) {
	if c.feeSet {
		rec.Config = record.Config{UseProcessorFee: c.feeEnabled, ProcessorFeeRate: c.feeRate}
	}
	rec.Flags.IsRefreshingRates = c.inflight > 0
	c.rec = rec
	c.generation++
	c.shipment = shipment.Request{}
	c.reprice()
}

// Close emits the shutdown event and closes the store.
func (c *Cart) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.plugins.EmitShutdown(ctx)
	return c.kv.Close()
}

// StoreID returns the store the cart belongs to.
func (c *Cart) StoreID() string { return c.storeID }

// Key returns the store key the live record is persisted under.
func (c *Cart) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persist.Key(c.storeID, c.rec.Private)
}

// Snapshot returns a deep copy of the current record.
func (c *Cart) Snapshot() *record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Clone()
}

// Plugins returns the plugin registry.
func (c *Cart) Plugins() *plugin.Registry { return c.plugins }

// Recalculate reruns the pricing pipeline, persists and fires update.
func (c *Cart) Recalculate(ctx context.Context) error {
	c.mu.Lock()
	c.reprice()
	err := c.saveLocked(ctx)
	snap := c.rec.Clone()
	c.mu.Unlock()

	c.bus.TriggerUpdate(ctx, snap)
	return err
}

// reprice runs the pricing pipeline on the live record. Callers hold c.mu.
func (c *Cart) reprice() {
	c.pricing.Calculate(c.rec, c.bus.Hooks())
}

// saveLocked stamps and persists the live record. Callers hold c.mu.
func (c *Cart) saveLocked(ctx context.Context) error {
	if c.closed {
		return ErrClosed
	}
	c.rec.Touch(c.now())
	if err := c.persist.Save(ctx, c.rec); err != nil {
		c.logger.Error("cart: persist failed",
			"store_id", c.storeID,
			"error", err,
		)
		return wrapPersist(err)
	}
	return nil
}

// newRecord returns a default record stamped with the cart's clock.
func (c *Cart) newRecord() *record.Record {
	rec := record.New(c.storeID, c.private)
	rec.Entity = types.NewEntityAt(c.now())
	return rec
}

func wrapPersist(err error) error {
	return fmt.Errorf("%w: %w", ErrPersist, err)
}

// commit reprices, persists and snapshots the live record. Callers hold
// c.mu; the snapshot is fired as update once the lock is released.
func (c *Cart) commit(ctx context.Context, reprice bool) (*record.Record, error) {
	if reprice {
		c.reprice()
	}
	err := c.saveLocked(ctx)
	return c.rec.Clone(), err
}
