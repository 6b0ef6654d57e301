// internal/core/services/cart.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// CartConfig tunes the scan cart.
type CartConfig struct {
	// Key is the storage key of the snapshot.
	Key         string
	Cooldown    time.Duration
	RescanDelay time.Duration
	Now         func() time.Time
}

// Cart aggregates scanned items by code and persists a snapshot after
// every mutation. A mutation whose snapshot write fails is rolled back.
type Cart struct {
	client  ports.DocumentClient
	session ports.Session
	store   ports.KeyValueStore
	logger  *slog.Logger

	key         string
	cooldown    time.Duration
	rescanDelay time.Duration
	now         func() time.Time

	mu     sync.Mutex
	items  []domain.ScannedItem
	loaded bool

	scanMu    sync.Mutex
	lastScans map[string]time.Time
}

// Statically assert that *Cart implements the CartService interface.
var _ ports.CartService = (*Cart)(nil)

// NewCart creates a cart backed by store.
func NewCart(client ports.DocumentClient, session ports.Session, store ports.KeyValueStore, cfg CartConfig, logger *slog.Logger) *Cart {
	if cfg.Key == "" {
		cfg.Key = domain.DefaultCartKey
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = domain.DefaultScanCooldown
	}
	if cfg.RescanDelay <= 0 {
		cfg.RescanDelay = domain.DefaultRescanDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cart{
		client:      client,
		session:     session,
		store:       store,
		key:         cfg.Key,
		cooldown:    cfg.Cooldown,
		rescanDelay: cfg.RescanDelay,
		now:         cfg.Now,
		lastScans:   make(map[string]time.Time),
		logger: logger.With(
			slog.String("service", "cart"),
			slog.String("cart_key", cfg.Key)),
	}
}

// Load reads the persisted snapshot. A missing or unreadable snapshot
// leaves the cart empty.
func (c *Cart) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.ensureLoaded(ctx)
}

func (c *Cart) ensureLoaded(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true
	c.items = nil

	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			c.logger.ErrorContext(ctx, "failed to load cart snapshot",
				slog.String("error", err.Error()))
		}
		return
	}
	items, err := domain.DecodeCart(raw)
	if err != nil {
		c.logger.ErrorContext(ctx, "discarding unreadable cart snapshot",
			slog.String("error", err.Error()))
		return
	}
	c.items = items
	c.logger.InfoContext(ctx, "cart loaded", slog.Int("items", len(items)))
}

// persist writes the snapshot, restoring prev in memory when the write fails.
func (c *Cart) persist(ctx context.Context, prev []domain.ScannedItem) error {
	raw, err := domain.EncodeCart(c.items)
	if err == nil {
		err = c.store.Set(ctx, c.key, raw)
	}
	if err != nil {
		c.items = prev
		c.logger.ErrorContext(ctx, "failed to persist cart",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}

func (c *Cart) snapshot() []domain.ScannedItem {
	return append([]domain.ScannedItem(nil), c.items...)
}

func (c *Cart) indexOf(code string) int {
	for i := range c.items {
		if c.items[i].ItemCode == code {
			return i
		}
	}
	return -1
}

// admit applies the per-code cooldown and records the attempt.
func (c *Cart) admit(code string) bool {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	now := c.now()
	if last, ok := c.lastScans[code]; ok && now.Sub(last) < c.cooldown {
		return false
	}
	for k, t := range c.lastScans {
		if now.Sub(t) >= c.cooldown {
			delete(c.lastScans, k)
		}
	}
	c.lastScans[code] = now
	return true
}

// Lookup resolves a scanned code to an Item record by exact item_code.
// A repeat of the same code inside the cooldown returns
// domain.ErrScanSuppressed without calling the backend.
func (c *Cart) Lookup(ctx context.Context, code string) (domain.Record, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		ve := domain.NewValidationError()
		ve.Add("code", "is required")
		return nil, ve
	}
	if !c.admit(code) {
		return nil, domain.ErrScanSuppressed
	}

	records, err := c.client.List(ctx, domain.DocTypeItem, domain.Query{
		Fields:  domain.ItemLookupFields,
		Filters: []domain.Filter{domain.Eq("item_code", code)},
		Limit:   1,
	})
	if err != nil {
		return nil, refreshOnAuth(ctx, c.session, c.logger,
			fmt.Errorf("failed to look up item %s: %w", code, err))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("item %s: %w", code, domain.ErrNotFound)
	}
	return records[0], nil
}

// OnScanResolved adds a resolved item, or bumps its quantity when the
// code is already in the cart.
func (c *Cart) OnScanResolved(ctx context.Context, record domain.Record) (domain.ScannedItem, domain.ScanOutcome, error) {
	item := domain.NewScannedItem(record)
	if item.ItemCode == "" {
		item.ItemCode = record.Name()
	}
	if item.ItemCode == "" {
		return domain.ScannedItem{}, domain.ScanFailed, errors.New("resolved record has no item_code")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	prev := c.snapshot()
	outcome := domain.ScanAdded
	if i := c.indexOf(item.ItemCode); i >= 0 {
		c.items[i].Quantity++
		item = c.items[i]
		outcome = domain.ScanIncremented
	} else {
		c.items = append(c.items, item)
	}

	if err := c.persist(ctx, prev); err != nil {
		return domain.ScannedItem{}, domain.ScanFailed, err
	}

	c.logger.InfoContext(ctx, "item scanned",
		slog.String("item_code", item.ItemCode),
		slog.String("outcome", string(outcome)),
		slog.Int("quantity", item.Quantity))
	return item, outcome, nil
}

// Scan runs lookup and merge for one raw read. Not-found and failed
// scans carry ResumeAfter so the scanner can pause before the next read.
func (c *Cart) Scan(ctx context.Context, code string) (*domain.ScanResult, error) {
	code = strings.TrimSpace(code)
	c.mu.Lock()
	c.ensureLoaded(ctx)
	c.mu.Unlock()

	result := &domain.ScanResult{Code: code}
	record, err := c.Lookup(ctx, code)
	switch {
	case errors.Is(err, domain.ErrScanSuppressed):
		result.Outcome = domain.ScanSuppressed
		return result, nil
	case errors.Is(err, domain.ErrNotFound):
		result.Outcome = domain.ScanNotFound
		result.ResumeAfter = c.rescanDelay
		return result, nil
	case err != nil:
		result.Outcome = domain.ScanFailed
		result.ResumeAfter = c.rescanDelay
		return result, err
	}

	item, outcome, err := c.OnScanResolved(ctx, record)
	if err != nil {
		result.Outcome = domain.ScanFailed
		result.ResumeAfter = c.rescanDelay
		return result, err
	}
	result.Outcome = outcome
	result.Item = &item
	return result, nil
}

// SetQuantity replaces the quantity of code, floored at 1.
func (c *Cart) SetQuantity(ctx context.Context, code string, qty int) (*domain.ScannedItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	i := c.indexOf(code)
	if i < 0 {
		return nil, fmt.Errorf("item %s not in cart: %w", code, domain.ErrNotFound)
	}
	prev := c.snapshot()
	c.items[i].Quantity = domain.ClampQuantity(qty)
	if err := c.persist(ctx, prev); err != nil {
		return nil, err
	}
	item := c.items[i]
	return &item, nil
}

// SetQuantityText parses user input before setting the quantity.
func (c *Cart) SetQuantityText(ctx context.Context, code, text string) (*domain.ScannedItem, error) {
	return c.SetQuantity(ctx, code, domain.ParseQuantity(text))
}

// Remove deletes code from the cart keeping the order of the rest.
func (c *Cart) Remove(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	i := c.indexOf(code)
	if i < 0 {
		return fmt.Errorf("item %s not in cart: %w", code, domain.ErrNotFound)
	}
	prev := c.snapshot()
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return c.persist(ctx, prev)
}

// Clear empties the cart and erases the snapshot.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, c.key); err != nil {
		c.logger.ErrorContext(ctx, "failed to erase cart snapshot",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	c.items = nil
	c.loaded = true
	c.logger.InfoContext(ctx, "cart cleared")
	return nil
}

// Deduct takes submitted lines out of the cart. Each line loses the
// submitted quantity and is dropped once nothing is left, so scans that
// landed after the submission was read stay in the cart.
func (c *Cart) Deduct(ctx context.Context, submitted []domain.ScannedItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	prev := c.snapshot()
	for _, s := range submitted {
		i := c.indexOf(s.ItemCode)
		if i < 0 {
			continue
		}
		if left := c.items[i].Quantity - s.Quantity; left > 0 {
			c.items[i].Quantity = left
			continue
		}
		c.items = append(c.items[:i:i], c.items[i+1:]...)
	}

	if len(c.items) == 0 {
		if err := c.store.Delete(ctx, c.key); err != nil {
			c.items = prev
			c.logger.ErrorContext(ctx, "failed to erase cart snapshot",
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		c.logger.InfoContext(ctx, "cart cleared")
		return nil
	}
	if err := c.persist(ctx, prev); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "submitted lines deducted",
		slog.Int("submitted", len(submitted)),
		slog.Int("remaining", len(c.items)))
	return nil
}

// Items returns the cart lines in first-scanned order.
func (c *Cart) Items(ctx context.Context) []domain.ScannedItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)
	return c.snapshot()
}
