// test/benchmarks/helpers.go
package benchmarks

import (
	"context"
	"fmt"
	"sync"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/test/helpers"
)

// memoryBackend answers document calls from an in-process catalog
type memoryBackend struct {
	mu      sync.RWMutex
	items   map[string]domain.Record
	created int
}

func newMemoryBackend(numItems int) *memoryBackend {
	b := &memoryBackend{items: make(map[string]domain.Record, numItems)}
	for _, r := range createCatalog(numItems) {
		b.items[r.Name()] = r
	}
	return b
}

func (b *memoryBackend) List(_ context.Context, _ string, q domain.Query) ([]domain.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, f := range q.Filters {
		if f.Field == "item_code" {
			if r, ok := b.items[fmt.Sprint(f.Value)]; ok {
				return []domain.Record{r}, nil
			}
			return []domain.Record{}, nil
		}
	}
	out := make([]domain.Record, 0, q.Limit)
	for _, r := range b.items {
		if len(out) == q.Limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *memoryBackend) Get(_ context.Context, _ string, name string) (domain.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.items[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (b *memoryBackend) Create(_ context.Context, _ string, fields map[string]any) (domain.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created++
	out := domain.Record{"name": fmt.Sprintf("MAT-STE-%05d", b.created)}
	for k, v := range fields {
		out[k] = v
	}
	return out, nil
}

func (b *memoryBackend) Update(ctx context.Context, doctype, name string, fields map[string]any) (domain.Record, error) {
	return b.Get(ctx, doctype, name)
}

func (b *memoryBackend) Count(_ context.Context, _ string, _ []domain.Filter) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items), nil
}

// staticSession always hands out the same token
type staticSession struct{}

func (staticSession) Token(context.Context) (string, error) { return "bench-token", nil }
func (staticSession) Refresh(context.Context) error         { return nil }
func (staticSession) OnChange(func(domain.Token)) func()    { return func() {} }

// createCatalog builds item records with a spread of groups and units
func createCatalog(n int) []domain.Record {
	groups := []string{"Hardware", "Fasteners", "Electrical", "Plumbing", "Paint"}
	uoms := []string{"Nos", "Box", "Kg", "Meter"}
	records := make([]domain.Record, 0, n)
	for i := 0; i < n; i++ {
		code := fmt.Sprintf("ITEM-%05d", i)
		records = append(records, helpers.CreateTestItemRecord(code, func(r domain.Record) {
			r["item_group"] = groups[i%len(groups)]
			r["stock_uom"] = uoms[i%len(uoms)]
		}))
	}
	return records
}

// createCartItems builds n distinct cart lines
func createCartItems(n int) []domain.ScannedItem {
	items := make([]domain.ScannedItem, 0, n)
	for _, r := range createCatalog(n) {
		it := domain.NewScannedItem(r)
		it.Quantity = 1 + len(items)%25
		items = append(items, it)
	}
	return items
}
