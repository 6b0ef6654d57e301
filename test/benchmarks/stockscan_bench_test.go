package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/core/services"
	"github.com/ammerola/stockscan/test/helpers"
)

func BenchmarkCartOperations(b *testing.B) {
	ctx := context.Background()
	backend := newMemoryBackend(500)
	clock := helpers.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	newCart := func() *services.Cart {
		return services.NewCart(backend, staticSession{}, helpers.NewMemoryStore(), services.CartConfig{
			Cooldown: 2 * time.Second,
			Now:      clock.Now,
		}, helpers.TestLogger())
	}

	b.Run("ScanDistinct", func(b *testing.B) {
		cart := newCart()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cart.Scan(ctx, fmt.Sprintf("ITEM-%05d", i%500))
			clock.Advance(3 * time.Second)
		}
	})

	b.Run("ScanMerge", func(b *testing.B) {
		cart := newCart()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cart.Scan(ctx, "ITEM-00007")
			clock.Advance(3 * time.Second)
		}
	})

	b.Run("ScanSuppressed", func(b *testing.B) {
		cart := newCart()
		_, _ = cart.Scan(ctx, "ITEM-00001")
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cart.Scan(ctx, "ITEM-00001")
		}
	})

	b.Run("SetQuantity", func(b *testing.B) {
		cart := newCart()
		for i := 0; i < 50; i++ {
			_, _ = cart.Scan(ctx, fmt.Sprintf("ITEM-%05d", i))
			clock.Advance(3 * time.Second)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cart.SetQuantity(ctx, fmt.Sprintf("ITEM-%05d", i%50), i%40)
		}
	})
}

func BenchmarkSubmit(b *testing.B) {
	ctx := context.Background()
	backend := newMemoryBackend(100)
	store := helpers.NewMemoryStore()
	clock := helpers.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	cart := services.NewCart(backend, staticSession{}, store, services.CartConfig{Now: clock.Now}, helpers.TestLogger())
	submitter := services.NewSubmitter(backend, staticSession{}, cart, helpers.TestLogger())

	req := ports.SubmitRequest{
		Type:            domain.TransactionTransfer,
		SourceWarehouse: "Stores - SS",
		TargetWarehouse: "Shop - SS",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		for j := 0; j < 20; j++ {
			_, _ = cart.Scan(ctx, fmt.Sprintf("ITEM-%05d", j))
			clock.Advance(3 * time.Second)
		}
		b.StartTimer()
		_, _ = submitter.Submit(ctx, req)
	}
}

func BenchmarkBuildStockEntry(b *testing.B) {
	items := createCartItems(200)
	req := ports.SubmitRequest{
		Type:            domain.TransactionIssue,
		SourceWarehouse: "Stores - SS",
		Overrides: map[string]ports.LineOverride{
			"ITEM-00003": {SourceWarehouse: "Bins - SS"},
		},
	}
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		entry := services.BuildStockEntry(req, items, now)
		_ = entry.Fields()
	}
}

func BenchmarkCartSnapshot(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		items := createCartItems(size)
		encoded, err := domain.EncodeCart(items)
		if err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("Encode_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = domain.EncodeCart(items)
			}
		})

		b.Run(fmt.Sprintf("Decode_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = domain.DecodeCart(encoded)
			}
		})
	}
}

func BenchmarkListQuery(b *testing.B) {
	spec, err := domain.LookupListSpec(domain.DocTypeItem)
	if err != nil {
		b.Fatal(err)
	}
	filters := []domain.Filter{domain.Eq("disabled", 0)}

	b.Run("NoSearch", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = spec.Query(i%20, filters, "")
		}
	})

	b.Run("Search", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = spec.Query(i%20, filters, "bolt")
		}
	})
}

func BenchmarkExcelExport(b *testing.B) {
	spec, err := domain.LookupListSpec(domain.DocTypeItem)
	if err != nil {
		b.Fatal(err)
	}
	exporter := workbook.NewExcelExporter(50000, helpers.TestLogger())

	for _, size := range []int{100, 1000} {
		records := createCatalog(size)
		b.Run(fmt.Sprintf("Render_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _ = exporter.Render(spec, records)
			}
		})
	}
}

func BenchmarkExcelImport(b *testing.B) {
	spec, err := domain.LookupListSpec(domain.DocTypeItem)
	if err != nil {
		b.Fatal(err)
	}
	data, err := workbook.NewExcelExporter(50000, helpers.TestLogger()).Render(spec, createCatalog(500))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = workbook.ReadItems(data)
	}
}

func BenchmarkMemoryAllocation(b *testing.B) {
	record := helpers.CreateTestItemRecord("BOLT-1")

	b.Run("NewScannedItem", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = domain.NewScannedItem(record)
		}
	})

	b.Run("CartItems", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			items := make([]domain.ScannedItem, 0, 100)
			for j := 0; j < 100; j++ {
				items = append(items, domain.NewScannedItem(record))
			}
			_ = items
		}
	})
}
