package cart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/record"
	"github.com/xraph/cart/shipment"
	"github.com/xraph/cart/store"
	"github.com/xraph/cart/store/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCart(t *testing.T, opts ...Option) (*Cart, *memory.Store) {
	t.Helper()
	kv := memory.New()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := Open(context.Background(), kv, "shop", opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c, kv
}

func product(variant, price string) record.Product {
	return record.Product{Key: "p-" + variant, VariantID: variant, Name: variant, Price: d(price)}
}

func validAddress() *record.Address {
	return &record.Address{FirstName: "Ada", LastName: "Lovelace", Country: "US", Street: "1 Main", City: "Austin", Zip: "73301", State: "TX"}
}

// fixedRates registers a rates handler that always answers taxRate and
// shipping, and counts calls.
func fixedRates(c *Cart, taxRate, shipping string) *atomic.Int32 {
	var calls atomic.Int32
	c.OnRates(func(_ context.Context, rec *record.Record, _ shipment.Request) error {
		calls.Add(1)
		rec.Pricing.TaxRate = d(taxRate)
		rec.Pricing.ShippingAmount = d(shipping)
		return nil
	})
	return &calls
}

type updateLog struct {
	mu    sync.Mutex
	snaps []*record.Record
}

func (u *updateLog) handler(_ context.Context, snap *record.Record) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.snaps = append(u.snaps, snap)
}

func (u *updateLog) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.snaps)
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, memory.New(), ""); !errors.Is(err, ErrInvalidStoreID) {
		t.Errorf("empty store id: got %v", err)
	}
	if _, err := Open(ctx, nil, "shop"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil store: got %v", err)
	}
	_, err := Open(ctx, memory.New(), "shop", WithProcessorFee(true, d("-0.1")))
	if !IsConfigurationError(err) {
		t.Errorf("negative fee rate: got %v", err)
	}
}

func TestOpenDefaults(t *testing.T) {
	c, kv := newTestCart(t)
	snap := c.Snapshot()

	if len(snap.Items) != 0 || snap.Flags.HasItems {
		t.Error("expected empty cart")
	}
	if snap.BillingAddress.Country != "US" || *snap.ShippingAddress != *snap.BillingAddress {
		t.Errorf("addresses: %+v / %+v", snap.BillingAddress, snap.ShippingAddress)
	}
	if kv.Writes() != 0 {
		t.Errorf("Open should not write, got %d writes", kv.Writes())
	}
	if c.Key() != "REACT_CART_STORAGE_KEY_shop_CART" {
		t.Errorf("Key: got %q", c.Key())
	}
}

func TestPricingScenario(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)

	if err := c.SetBillingAddress(ctx, validAddress(), true); err != nil {
		t.Fatalf("SetBillingAddress: %v", err)
	}
	fixedRates(c, "0.08", "5")

	if err := c.UpdateItem(ctx, product("v1", "10"), 2); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	p := c.Snapshot().Pricing
	if !p.Subtotal.Equal(d("20")) || !p.TaxAmount.Equal(d("2.00")) ||
		!p.ShippingCost.Equal(d("5")) || !p.Total.Equal(d("27.00")) {
		t.Errorf("pricing: subtotal=%s tax=%s shipping=%s total=%s", p.Subtotal, p.TaxAmount, p.ShippingCost, p.Total)
	}
}

func TestAddItemSameVariantTwice(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)

	for range 2 {
		if err := c.AddItem(ctx, product("v1", "3.50")); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	if items[0].Quantity != 2 || !items[0].LineTotal.Equal(d("7")) {
		t.Errorf("line: qty=%d total=%s", items[0].Quantity, items[0].LineTotal)
	}
	if snap := c.Snapshot(); !snap.Flags.HasItems || snap.Pricing.TotalQuantity != 2 {
		t.Errorf("flags: %+v qty=%d", snap.Flags, snap.Pricing.TotalQuantity)
	}
}

func TestAddItemInvalidProduct(t *testing.T) {
	c, _ := newTestCart(t)
	ctx := context.Background()

	if err := c.AddItem(ctx, record.Product{Key: "k"}); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("missing variant: got %v", err)
	}
	if err := c.AddItem(ctx, product("v", "-1")); !IsConfigurationError(err) {
		t.Errorf("negative price: got %v", err)
	}
}

func TestUpdateItemZeroOnAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCart(t)
	var updates updateLog
	c.OnUpdate(updates.handler)
	before := c.Snapshot()

	if err := c.UpdateItem(ctx, product("missing", "1"), 0); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	if kv.Writes() != 0 {
		t.Errorf("expected no writes, got %d", kv.Writes())
	}
	if updates.count() != 0 {
		t.Errorf("expected no update events, got %d", updates.count())
	}
	after := c.Snapshot()
	if !after.UpdatedAt.Equal(before.UpdatedAt) || len(after.Items) != 0 {
		t.Error("state changed")
	}
}

func TestUpdateItemTransitions(t *testing.T) {
	tests := []struct {
		name    string
		initial int
		amount  int
		wantQty int
		wantLen int
	}{
		{"insert absent", 0, 3, 3, 1},
		{"set present", 2, 5, 5, 1},
		{"zero removes", 2, 0, 0, 0},
		{"set to one", 4, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, _ := newTestCart(t)
			p := product("v1", "2")
			if tt.initial > 0 {
				if err := c.UpdateItem(ctx, p, tt.initial); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}

			if err := c.UpdateItem(ctx, p, tt.amount); err != nil {
				t.Fatalf("UpdateItem: %v", err)
			}

			items := c.Items()
			if len(items) != tt.wantLen {
				t.Fatalf("items: got %d, want %d", len(items), tt.wantLen)
			}
			if tt.wantLen > 0 && items[0].Quantity != tt.wantQty {
				t.Errorf("quantity: got %d, want %d", items[0].Quantity, tt.wantQty)
			}
			if got := c.Snapshot().Flags.HasItems; got != (tt.wantLen > 0) {
				t.Errorf("HasItems: got %v", got)
			}
		})
	}
}

func TestUpdateItemNegative(t *testing.T) {
	c, kv := newTestCart(t)
	if err := c.UpdateItem(context.Background(), product("v1", "1"), -1); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("got %v, want ErrInvalidQuantity", err)
	}
	if kv.Writes() != 0 {
		t.Error("rejected update must not write")
	}
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCart(t)
	_ = c.AddItem(ctx, product("v1", "1"))
	_ = c.AddItem(ctx, product("v2", "2"))

	if err := c.RemoveItem(ctx, record.Product{Key: "p-v1"}); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	items := c.Items()
	if len(items) != 1 || items[0].VariantID != "v2" {
		t.Errorf("items: %+v", items)
	}

	writes := kv.Writes()
	if err := c.RemoveItem(ctx, record.Product{Key: "absent"}); err != nil {
		t.Fatalf("RemoveItem absent: %v", err)
	}
	if kv.Writes() != writes+1 {
		t.Errorf("absent remove should still persist once, got %d writes", kv.Writes()-writes)
	}
	if !c.Snapshot().Pricing.Subtotal.Equal(d("2")) {
		t.Errorf("subtotal: got %s", c.Snapshot().Pricing.Subtotal)
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	rng := rand.New(rand.NewPCG(7, 11))

	for step := range 300 {
		v := rng.IntN(6)
		p := record.Product{
			Key:       fmt.Sprintf("p%d", v/2),
			VariantID: fmt.Sprintf("v%d", v),
			Price:     decimal.New(int64(100+v*37), -2),
		}

		var err error
		switch rng.IntN(3) {
		case 0:
			err = c.AddItem(ctx, p)
		case 1:
			err = c.UpdateItem(ctx, p, rng.IntN(4))
		case 2:
			err = c.RemoveItem(ctx, p)
		}
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}

		snap := c.Snapshot()
		sum := decimal.Zero
		seen := map[string]bool{}
		for _, li := range snap.Items {
			if seen[li.VariantID] {
				t.Fatalf("step %d: duplicate variant %s", step, li.VariantID)
			}
			seen[li.VariantID] = true
			if li.Quantity < 1 {
				t.Fatalf("step %d: quantity %d", step, li.Quantity)
			}
			sum = sum.Add(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))))
		}
		if !snap.Pricing.Subtotal.Equal(sum) {
			t.Fatalf("step %d: subtotal %s != %s", step, snap.Pricing.Subtotal, sum)
		}
		if snap.Flags.HasItems != (len(snap.Items) > 0) {
			t.Fatalf("step %d: HasItems %v with %d items", step, snap.Flags.HasItems, len(snap.Items))
		}
	}
}

func TestTotalInvariantWithFees(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t, WithProcessorFee(true, d("0.029")))
	_ = c.SetBillingAddress(ctx, validAddress(), true)
	fixedRates(c, "0.0825", "7.95")

	_ = c.AddItem(ctx, product("v1", "12.99"))
	_ = c.UpdateItem(ctx, product("v2", "0.49"), 7)
	_ = c.SetAdditionalFee(ctx, d("1.10"))
	if err := c.Recalculate(ctx); err != nil {
		t.Fatalf("Recalculate: %v", err)
	}

	p := c.Snapshot().Pricing
	sum := p.Subtotal.Add(p.TaxAmount).Add(p.ShippingCost).Add(p.AdditionalFee)
	if p.Total.Sub(sum).Abs().GreaterThan(d("0.005")) {
		t.Errorf("total %s vs sum %s", p.Total, sum)
	}
	if !p.ProcessorFee.IsPositive() {
		t.Error("expected a processor fee")
	}
}

func TestSetAdditionalFeeDoesNotReprice(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.AddItem(ctx, product("v1", "10"))

	if err := c.SetAdditionalFee(ctx, d("2.50")); err != nil {
		t.Fatalf("SetAdditionalFee: %v", err)
	}
	if !c.Snapshot().Pricing.Total.Equal(d("10")) {
		t.Errorf("total changed before recalculation: %s", c.Snapshot().Pricing.Total)
	}

	_ = c.Recalculate(ctx)
	if !c.Snapshot().Pricing.Total.Equal(d("12.50")) {
		t.Errorf("total: got %s, want 12.50", c.Snapshot().Pricing.Total)
	}

	if err := c.SetAdditionalFee(ctx, d("-1")); !IsConfigurationError(err) {
		t.Errorf("negative fee: got %v", err)
	}
}

func TestSetProcessorFee(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.AddItem(ctx, product("v1", "100"))

	if err := c.SetProcessorFee(ctx, true, d("0.03")); err != nil {
		t.Fatalf("SetProcessorFee: %v", err)
	}
	if !c.Snapshot().Pricing.ProcessorFee.IsZero() {
		t.Error("fee applied before recalculation")
	}
	_ = c.Recalculate(ctx)
	if got := c.Snapshot().Pricing.ProcessorFee; !got.Equal(d("3.09")) {
		t.Errorf("fee: got %s, want 3.09", got)
	}
}

func TestSetCoupon(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.AddItem(ctx, product("v1", "10"))

	if err := c.SetCoupon(ctx, "SAVE10"); err != nil {
		t.Fatalf("SetCoupon: %v", err)
	}
	snap := c.Snapshot()
	if snap.Coupon != "SAVE10" || snap.CouponRedeemed {
		t.Errorf("coupon: %q redeemed=%v", snap.Coupon, snap.CouponRedeemed)
	}
	if !snap.Pricing.Total.Equal(d("10")) {
		t.Errorf("coupon must not change pricing, total=%s", snap.Pricing.Total)
	}
}

func TestInvalidBillingNeverCallsRates(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	calls := fixedRates(c, "0.1", "1")

	if err := c.SetBillingAddress(ctx, validAddress(), false); err != nil {
		t.Fatalf("SetBillingAddress: %v", err)
	}
	_ = c.AddItem(ctx, product("v1", "1"))

	if calls.Load() != 0 {
		t.Errorf("rates called %d times", calls.Load())
	}
	if err := c.RefreshRates(ctx); !errors.Is(err, ErrBillingAddressInvalid) {
		t.Errorf("RefreshRates: got %v", err)
	}
	if c.Snapshot().Flags.IsRefreshingRates {
		t.Error("refresh flag set without a refresh")
	}
}

func TestBillingMirrorsShipping(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)

	_ = c.SetBillingAddress(ctx, validAddress(), true)
	snap := c.Snapshot()
	if *snap.ShippingAddress != *snap.BillingAddress || !snap.Validity.ShippingValid {
		t.Fatal("shipping should mirror billing")
	}

	ship := validAddress()
	ship.City = "Boston"
	_ = c.SetShippingAddress(ctx, ship, true)
	_ = c.SetBillingAddress(ctx, &record.Address{Country: "US", City: "Denver"}, true)

	snap = c.Snapshot()
	if !snap.UseDifferentShipping || snap.ShippingAddress.City != "Boston" {
		t.Errorf("separate shipping overwritten: %+v", snap.ShippingAddress)
	}

	_ = c.UseDifferentShipping(ctx, false)
	snap = c.Snapshot()
	if snap.ShippingAddress.City != "Denver" {
		t.Errorf("shipping should follow billing again, got %q", snap.ShippingAddress.City)
	}

	if err := c.SetBillingAddress(ctx, nil, true); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil address: got %v", err)
	}
}

func TestRatesFailure(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.SetBillingAddress(ctx, validAddress(), true)
	fixedRates(c, "0.05", "4")
	_ = c.AddItem(ctx, product("v1", "10"))

	fail := true
	c.OnRates(func(_ context.Context, rec *record.Record, _ shipment.Request) error {
		if fail {
			rec.Pricing.ShippingAmount = d("999")
			return errors.New("carrier down")
		}
		rec.Pricing.ShippingAmount = d("6")
		return nil
	})

	if err := c.AddItem(ctx, product("v1", "10")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	snap := c.Snapshot()
	if snap.Error == "" {
		t.Error("expected Error to be set")
	}
	if !snap.Pricing.ShippingAmount.Equal(d("4")) || !snap.Pricing.TaxRate.Equal(d("0.05")) {
		t.Errorf("rates changed on failure: ship=%s tax=%s", snap.Pricing.ShippingAmount, snap.Pricing.TaxRate)
	}
	if snap.Flags.IsRefreshingRates {
		t.Error("refresh flag stuck after failure")
	}

	fail = false
	_ = c.RefreshRates(ctx)
	snap = c.Snapshot()
	if snap.Error != "" || !snap.Pricing.ShippingAmount.Equal(d("6")) {
		t.Errorf("after success: error=%q ship=%s", snap.Error, snap.Pricing.ShippingAmount)
	}
}

func TestRatesTimeout(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t, WithRatesTimeout(20*time.Millisecond))
	_ = c.SetBillingAddress(ctx, validAddress(), true)

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	c.OnRates(func(_ context.Context, rec *record.Record, _ shipment.Request) error {
		<-release
		rec.Pricing.ShippingAmount = d("50")
		return nil
	})

	start := time.Now()
	if err := c.AddItem(ctx, product("v1", "10")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not applied")
	}
	snap := c.Snapshot()
	if snap.Error == "" || snap.Flags.IsRefreshingRates || !snap.Pricing.ShippingAmount.IsZero() {
		t.Errorf("after timeout: error=%q refreshing=%v ship=%s", snap.Error, snap.Flags.IsRefreshingRates, snap.Pricing.ShippingAmount)
	}
}

// blockingRates registers a rates handler that announces each call on the
// returned channel and waits for that call's release channel to close. The
// n-th call writes ShippingAmount n.
func blockingRates(c *Cart) <-chan chan struct{} {
	calls := make(chan chan struct{}, 4)
	var n atomic.Int64
	c.OnRates(func(_ context.Context, rec *record.Record, _ shipment.Request) error {
		i := n.Add(1)
		rel := make(chan struct{})
		calls <- rel
		<-rel
		rec.Pricing.ShippingAmount = decimal.NewFromInt(i)
		return nil
	})
	return calls
}

func TestSubmitWhileRefreshing(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.SetBillingAddress(ctx, validAddress(), true)

	var submits atomic.Int32
	c.OnSubmit(func(context.Context, *record.Record, event.OrderPayload) (event.OrderResult, error) {
		submits.Add(1)
		return event.OrderResult{Status: "ok"}, nil
	})
	calls := blockingRates(c)

	done := make(chan error, 1)
	go func() { done <- c.AddItem(ctx, product("v1", "10")) }()
	rel := <-calls

	if !c.IsRefreshingRates() || !c.Snapshot().Flags.IsRefreshingRates {
		t.Fatal("expected refresh in flight")
	}
	if _, err := c.SubmitOrder(ctx, event.OrderPayload{}); !errors.Is(err, ErrRatesRefreshing) {
		t.Errorf("SubmitOrder: got %v, want ErrRatesRefreshing", err)
	}
	if submits.Load() != 0 {
		t.Error("submit handler called during refresh")
	}

	close(rel)
	if err := <-done; err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	res, err := c.SubmitOrder(ctx, event.OrderPayload{})
	if err != nil || res.Status != "ok" || submits.Load() != 1 {
		t.Errorf("SubmitOrder after refresh: res=%+v err=%v calls=%d", res, err, submits.Load())
	}
	if len(c.Items()) != 1 {
		t.Error("submission must not clear the cart")
	}
}

func TestOverlappingRefreshes(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.SetBillingAddress(ctx, validAddress(), true)
	calls := blockingRates(c)

	first := make(chan error, 1)
	go func() { first <- c.AddItem(ctx, product("v1", "10")) }()
	rel1 := <-calls

	second := make(chan error, 1)
	go func() { second <- c.AddItem(ctx, product("v2", "5")) }()
	rel2 := <-calls

	close(rel2)
	if err := <-second; err != nil {
		t.Fatalf("second AddItem: %v", err)
	}
	snap := c.Snapshot()
	if !snap.Flags.IsRefreshingRates {
		t.Error("flag cleared while first refresh still in flight")
	}
	if !snap.Pricing.ShippingAmount.Equal(decimal.NewFromInt(2)) {
		t.Errorf("shipping after second: got %s", snap.Pricing.ShippingAmount)
	}

	close(rel1)
	if err := <-first; err != nil {
		t.Fatalf("first AddItem: %v", err)
	}
	snap = c.Snapshot()
	if snap.Flags.IsRefreshingRates {
		t.Error("flag still set after all refreshes")
	}
	if !snap.Pricing.ShippingAmount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("last to resolve should win, got %s", snap.Pricing.ShippingAmount)
	}
	if len(snap.Items) != 2 {
		t.Errorf("items: got %d", len(snap.Items))
	}
}

func TestSubmitErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)

	if _, err := c.SubmitOrder(ctx, event.OrderPayload{}); !errors.Is(err, ErrNoSubmitHandler) {
		t.Errorf("no handler: got %v", err)
	}

	declined := errors.New("card declined")
	c.OnSubmit(func(context.Context, *record.Record, event.OrderPayload) (event.OrderResult, error) {
		return event.OrderResult{}, declined
	})
	_, err := c.SubmitOrder(ctx, event.OrderPayload{})
	if !errors.Is(err, ErrSubmitFailed) || !errors.Is(err, declined) {
		t.Errorf("handler error: got %v", err)
	}
	if !IsTransient(err) {
		t.Error("submit failure should be transient")
	}
}

func TestSubmitAssignsOrderID(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	_ = c.AddItem(ctx, product("v1", "10"))

	var got *record.Record
	c.OnSubmit(func(_ context.Context, snap *record.Record, p event.OrderPayload) (event.OrderResult, error) {
		got = snap
		if p.OrderID.IsNil() {
			t.Error("payload order id not assigned")
		}
		return event.OrderResult{}, nil
	})

	res, err := c.SubmitOrder(ctx, event.OrderPayload{PaymentToken: "tok"})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if res.OrderID.IsNil() || res.OrderID.Prefix() != "ord" {
		t.Errorf("order id: %v", res.OrderID)
	}

	got.Items[0].Quantity = 99
	if c.Items()[0].Quantity != 1 {
		t.Error("submit handler received a live record")
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCart(t, WithProcessorFee(true, d("0.03")))
	_ = c.AddItem(ctx, product("v1", "10"))
	_ = c.SetCoupon(ctx, "X")
	key := c.Key()
	oldID := c.Snapshot().ID

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Items) != 0 || snap.Flags.HasItems || snap.Coupon != "" {
		t.Errorf("not reset: %+v", snap)
	}
	if !snap.Config.UseProcessorFee {
		t.Error("fee configuration should survive Clear")
	}
	if snap.ID.String() == oldID.String() {
		t.Error("expected a fresh cart id")
	}
	if _, err := kv.Get(ctx, key); !store.IsNotFound(err) {
		t.Errorf("key still stored: %v", err)
	}
}

func TestClearDuringRefresh(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCart(t)
	_ = c.SetBillingAddress(ctx, validAddress(), true)
	calls := blockingRates(c)

	done := make(chan error, 1)
	go func() { done <- c.AddItem(ctx, product("v1", "10")) }()
	rel := <-calls

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	close(rel)
	<-done

	snap := c.Snapshot()
	if len(snap.Items) != 0 || snap.Flags.IsRefreshingRates || !snap.Pricing.ShippingAmount.IsZero() {
		t.Errorf("stale refresh leaked into cleared cart: %+v", snap.Pricing)
	}
	if _, err := kv.Get(ctx, c.Key()); !store.IsNotFound(err) {
		t.Errorf("stale refresh recreated the key: %v", err)
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	c1, err := Open(ctx, kv, "shop", WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	_ = c1.UpdateItem(ctx, product("v1", "4.25"), 3)
	_ = c1.SetCoupon(ctx, "BACK")

	c2, err := Open(ctx, kv, "shop", WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	snap := c2.Snapshot()
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 3 || snap.Coupon != "BACK" {
		t.Errorf("restored: %+v", snap)
	}
	if snap.ID.String() != c1.Snapshot().ID.String() {
		t.Error("cart id not restored")
	}
	if !snap.Pricing.Subtotal.Equal(d("12.75")) {
		t.Errorf("subtotal: %s", snap.Pricing.Subtotal)
	}

	other, _ := Open(ctx, kv, "other-shop", WithLogger(quietLogger()))
	if len(other.Items()) != 0 {
		t.Error("stores must not share records")
	}
}

func TestPartitions(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCart(t, WithPartitioning(false), WithNamespace("APP"))

	_ = c.AddItem(ctx, product("public", "1"))
	if c.Key() != "APP_shop_PUBLIC" {
		t.Fatalf("Key: %q", c.Key())
	}

	if err := c.SetPrivate(ctx, true); err != nil {
		t.Fatalf("SetPrivate: %v", err)
	}
	if c.Key() != "APP_shop_PRIVATE" || len(c.Items()) != 0 || !c.Snapshot().Private {
		t.Errorf("private partition: key=%q items=%d", c.Key(), len(c.Items()))
	}
	_ = c.AddItem(ctx, product("private", "2"))

	_ = c.SetPrivate(ctx, false)
	items := c.Items()
	if len(items) != 1 || items[0].VariantID != "public" {
		t.Errorf("public partition: %+v", items)
	}
	if _, err := kv.Get(ctx, "APP_shop_PRIVATE"); err != nil {
		t.Errorf("private record not stored: %v", err)
	}
}

func TestUpdateEvents(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	var updates updateLog
	c.OnUpdate(updates.handler)

	_ = c.AddItem(ctx, product("v1", "1"))
	if updates.count() != 1 {
		t.Errorf("without valid billing: got %d updates, want 1", updates.count())
	}

	_ = c.SetBillingAddress(ctx, validAddress(), true)
	fixedRates(c, "0", "0")
	before := updates.count()
	_ = c.AddItem(ctx, product("v1", "1"))
	if got := updates.count() - before; got != 3 {
		t.Errorf("with refresh: got %d updates, want 3", got)
	}

	updates.mu.Lock()
	last := updates.snaps[len(updates.snaps)-1]
	mid := updates.snaps[len(updates.snaps)-2]
	updates.mu.Unlock()
	if !mid.Flags.IsRefreshingRates || last.Flags.IsRefreshingRates {
		t.Errorf("refresh flag sequence: mid=%v last=%v", mid.Flags.IsRefreshingRates, last.Flags.IsRefreshingRates)
	}
}

func TestPriceHooks(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)
	c.On(LabelPriceTax, func(rec *record.Record) {
		rec.Pricing.TaxAmount = d("1.00")
	}).OnPrice(LabelPriceShipping, func(rec *record.Record) {
		rec.Pricing.ShippingCost = d("2.00")
	})

	_ = c.AddItem(ctx, product("v1", "10"))

	if got := c.Snapshot().Pricing.Total; !got.Equal(d("13")) {
		t.Errorf("total: got %s, want 13", got)
	}
}

func TestRatesHandlerWritesOverriddenStages(t *testing.T) {
	noop := func(*record.Record) {}

	tests := []struct {
		name      string
		hook      Label
		write     func(rec *record.Record)
		wantTax   string
		wantShip  string
		wantTotal string
	}{
		{
			name:      "tax amount kept with price.tax",
			hook:      LabelPriceTax,
			write:     func(rec *record.Record) { rec.Pricing.TaxAmount = d("3.50") },
			wantTax:   "3.50",
			wantShip:  "5",
			wantTotal: "18.50",
		},
		{
			name:      "shipping cost kept with price.shipping",
			hook:      LabelPriceShipping,
			write:     func(rec *record.Record) { rec.Pricing.ShippingCost = d("7") },
			wantTax:   "0",
			wantShip:  "7",
			wantTotal: "17",
		},
		{
			name:      "processor fee kept with price.stripeFee",
			hook:      LabelPriceStripeFee,
			write:     func(rec *record.Record) { rec.Pricing.ProcessorFee = d("0.75") },
			wantTax:   "0",
			wantShip:  "5.75",
			wantTotal: "15.75",
		},
		{
			name:      "tax amount recomputed without hook",
			write:     func(rec *record.Record) { rec.Pricing.TaxAmount = d("3.50") },
			wantTax:   "0",
			wantShip:  "5",
			wantTotal: "15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, _ := newTestCart(t)
			if tt.hook != "" {
				c.OnPrice(tt.hook, noop)
			}
			c.OnRates(func(_ context.Context, rec *record.Record, _ shipment.Request) error {
				rec.Pricing.ShippingAmount = d("5")
				tt.write(rec)
				return nil
			})

			_ = c.AddItem(ctx, product("v1", "10"))
			if err := c.SetBillingAddress(ctx, validAddress(), true); err != nil {
				t.Fatalf("SetBillingAddress: %v", err)
			}

			p := c.Snapshot().Pricing
			if !p.TaxAmount.Equal(d(tt.wantTax)) {
				t.Errorf("tax amount: got %s, want %s", p.TaxAmount, tt.wantTax)
			}
			if !p.ShippingCost.Equal(d(tt.wantShip)) {
				t.Errorf("shipping cost: got %s, want %s", p.ShippingCost, tt.wantShip)
			}
			if !p.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("total: got %s, want %s", p.Total, tt.wantTotal)
			}
		})
	}
}

func TestShipmentKeepsLastRequest(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCart(t)

	if got := c.Shipment(); len(got.Items) != 0 || got.Recipient.Name != "" {
		t.Fatalf("before refresh: got %+v", got)
	}

	fixedRates(c, "0.1", "5")
	_ = c.AddItem(ctx, product("v1", "10"))
	_ = c.SetBillingAddress(ctx, validAddress(), true)
	_ = c.AddItem(ctx, product("v1", "10"))

	req := c.Shipment()
	if req.Recipient.Name != "Ada Lovelace" || req.Recipient.CountryCode != "US" {
		t.Errorf("recipient: got %+v", req.Recipient)
	}
	if len(req.Items) != 1 || req.Items[0].Quantity != 2 {
		t.Fatalf("items: got %+v", req.Items)
	}

	req.Items[0].Quantity = 99
	if c.Shipment().Items[0].Quantity != 2 {
		t.Error("Shipment must return a copy")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := c.Shipment(); len(got.Items) != 0 {
		t.Errorf("after clear: got %+v", got)
	}
}

// syncBuffer is a bytes.Buffer safe for the cart's concurrent logging.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSubmitRefusalsAreLogged(t *testing.T) {
	ctx := context.Background()

	t.Run("no handler", func(t *testing.T) {
		var logs syncBuffer
		c, _ := newTestCart(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

		if _, err := c.SubmitOrder(ctx, event.OrderPayload{}); !errors.Is(err, ErrNoSubmitHandler) {
			t.Fatalf("SubmitOrder: got %v", err)
		}
		out := logs.String()
		if !strings.Contains(out, "level=WARN") || !strings.Contains(out, ErrNoSubmitHandler.Error()) {
			t.Errorf("missing refusal log: %q", out)
		}
	})

	t.Run("refreshing", func(t *testing.T) {
		var logs syncBuffer
		c, _ := newTestCart(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		_ = c.SetBillingAddress(ctx, validAddress(), true)
		c.OnSubmit(func(context.Context, *record.Record, event.OrderPayload) (event.OrderResult, error) {
			return event.OrderResult{Status: "ok"}, nil
		})
		calls := blockingRates(c)

		done := make(chan error, 1)
		go func() { done <- c.AddItem(ctx, product("v1", "10")) }()
		rel := <-calls

		if _, err := c.SubmitOrder(ctx, event.OrderPayload{}); !errors.Is(err, ErrRatesRefreshing) {
			t.Errorf("SubmitOrder: got %v", err)
		}
		close(rel)
		if err := <-done; err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		out := logs.String()
		if !strings.Contains(out, "level=WARN") || !strings.Contains(out, ErrRatesRefreshing.Error()) {
			t.Errorf("missing refusal log: %q", out)
		}
	})
}

func TestOnPanicsOnInvalidHandler(t *testing.T) {
	c, _ := newTestCart(t)

	tests := []struct {
		name    string
		label   Label
		handler any
	}{
		{"nil", LabelUpdate, nil},
		{"wrong type", LabelSubmit, 42},
		{"unknown label", Label("checkout"), func(context.Context, *record.Record) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok || !IsConfigurationError(err) {
					t.Errorf("expected configuration panic, got %v", r)
				}
			}()
			c.On(tt.label, tt.handler)
		})
	}

	if err := c.Register(LabelRates, "nope"); !errors.Is(err, ErrInvalidHandler) {
		t.Errorf("Register: got %v", err)
	}
}

type failingStore struct {
	*memory.Store
}

var errDiskFull = errors.New("disk full")

func (failingStore) Set(context.Context, string, string) error { return errDiskFull }

func TestPersistFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, failingStore{memory.New()}, "shop", WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}

	err = c.AddItem(ctx, product("v1", "10"))
	if !errors.Is(err, ErrPersist) || !errors.Is(err, errDiskFull) {
		t.Fatalf("AddItem: got %v", err)
	}
	if len(c.Items()) != 1 {
		t.Error("in-memory state should keep the mutation")
	}
}

func TestClockStampsUpdates(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	c, _ := newTestCart(t, WithClock(func() time.Time { return at }))

	_ = c.AddItem(ctx, product("v1", "1"))
	if got := c.Snapshot().UpdatedAt; !got.Equal(at) {
		t.Errorf("UpdatedAt: got %s, want %s", got, at)
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	c, kv := newTestCart(t)

	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := kv.Ping(ctx); !errors.Is(err, store.ErrClosed) {
		t.Errorf("store not closed: %v", err)
	}
	if err := c.SetCoupon(ctx, "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("mutation after close: got %v", err)
	}
}
