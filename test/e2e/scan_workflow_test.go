//go:build e2e
// +build e2e

package e2e_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/stockscan/internal/app"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/pkg/config"
	"github.com/ammerola/stockscan/test/helpers"
)

// fakeFrappe serves the slice of the Frappe REST API the client uses.
type fakeFrappe struct {
	mu      sync.Mutex
	items   map[string]domain.Record
	entries []map[string]any
	logins  atomic.Int32
}

func newFakeFrappe() *fakeFrappe {
	return &fakeFrappe{items: map[string]domain.Record{
		"BOLT-1": {"name": "BOLT-1", "item_code": "BOLT-1", "item_name": "Hex Bolt M8", "stock_uom": "Nos", "item_group": "Hardware"},
		"NUT-2":  {"name": "NUT-2", "item_code": "NUT-2", "item_name": "Hex Nut M8", "stock_uom": "Nos", "item_group": "Hardware"},
	}}
}

func (f *fakeFrappe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/method/frappe.integrations.oauth2.get_token" {
		f.logins.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "acc-1", "refresh_token": "ref-1", "token_type": "Bearer", "expires_in": 3600,
		})
		return
	}
	if r.Header.Get("Authorization") != "Bearer acc-1" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"exc_type": "AuthenticationError"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/resource/Item":
		var filters []domain.Filter
		if raw := r.URL.Query().Get("filters"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &filters); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"exception": err.Error()})
				return
			}
		}
		data := []domain.Record{}
		for _, it := range f.items {
			if len(filters) == 0 || it["item_code"] == filters[0].Value {
				data = append(data, it)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": data})

	case r.Method == http.MethodPost && r.URL.Path == "/api/resource/Stock Entry":
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"exception": err.Error()})
			return
		}
		f.entries = append(f.entries, doc)
		doc["name"] = "MAT-STE-0001"
		writeJSON(w, http.StatusOK, map[string]any{"data": doc})

	case r.Method == http.MethodGet && r.URL.Path == "/api/resource/Stock Entry":
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{}})

	case r.URL.Path == "/api/method/frappe.client.get_count":
		n := 0
		if r.URL.Query().Get("doctype") == "Item" {
			n = len(f.items)
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": n})

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"exc_type": "DoesNotExistError"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ScanWorkflowSuite struct {
	suite.Suite
	backend *fakeFrappe
	server  *httptest.Server
	cfg     *config.Config
}

func (s *ScanWorkflowSuite) SetupTest() {
	s.backend = newFakeFrappe()
	s.server = httptest.NewServer(s.backend)
	s.cfg = &config.Config{
		App: config.AppConfig{Name: "stockscan", Version: "e2e", Environment: "test"},
		Backend: config.BackendConfig{
			BaseURL:     s.server.URL,
			ClientID:    "client-1",
			Scope:       "all openid",
			Username:    "clerk",
			Password:    "secret",
			PingTimeout: time.Second,
		},
		Upload:    config.UploadConfig{Timeout: 5 * time.Second, MaxSizeMB: 1, Folder: "Home"},
		Scanner:   config.ScannerConfig{Cooldown: 2 * time.Second, RescanDelay: time.Second, CartKey: "scannedItems"},
		Storage:   config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(s.T().TempDir(), "state.db")},
		Dashboard: config.DashboardConfig{LowStockMethod: "get_low_stock_items", CacheTTL: time.Minute},
	}
}

func (s *ScanWorkflowSuite) TearDownTest() {
	s.server.Close()
}

func (s *ScanWorkflowSuite) newApp() *app.App {
	a, err := app.New(context.Background(), s.cfg, helpers.TestLogger(), app.Options{})
	s.Require().NoError(err)
	s.T().Cleanup(func() { a.Close() })
	return a
}

func (s *ScanWorkflowSuite) TestScanAndSubmitTransfer() {
	ctx := context.Background()
	a := s.newApp()
	s.Require().NoError(a.SignIn(ctx))

	// 1. Scan two items; a quick repeat of the same code is ignored
	res, err := a.Cart.Scan(ctx, "BOLT-1")
	s.Require().NoError(err)
	s.Equal(domain.ScanAdded, res.Outcome)

	res, err = a.Cart.Scan(ctx, "BOLT-1")
	s.Require().NoError(err)
	s.Equal(domain.ScanSuppressed, res.Outcome)

	res, err = a.Cart.Scan(ctx, "NUT-2")
	s.Require().NoError(err)
	s.Equal(domain.ScanAdded, res.Outcome)

	res, err = a.Cart.Scan(ctx, "GHOST-9")
	s.Require().NoError(err)
	s.Equal(domain.ScanNotFound, res.Outcome)
	s.Equal(time.Second, res.ResumeAfter)

	// 2. Adjust a quantity
	_, err = a.Cart.SetQuantity(ctx, "BOLT-1", 40)
	s.Require().NoError(err)

	// 3. The snapshot survives a restart
	restarted := s.newApp()
	s.Require().NoError(restarted.SignIn(ctx))
	s.Equal(int32(1), s.backend.logins.Load(), "stored session should be reused")

	items := restarted.Cart.Items(ctx)
	s.Require().Len(items, 2)
	s.Equal("BOLT-1", items[0].ItemCode)
	s.Equal(40, items[0].Quantity)
	s.Equal("NUT-2", items[1].ItemCode)

	// 4. Submit as a transfer
	record, err := restarted.Submitter.Submit(ctx, ports.SubmitRequest{
		Type:            domain.TransactionTransfer,
		SourceWarehouse: "Stores - SS",
		TargetWarehouse: "Shop - SS",
		Overrides: map[string]ports.LineOverride{
			"NUT-2": {TargetWarehouse: "Bins - SS"},
		},
	})
	s.Require().NoError(err)
	s.Equal("MAT-STE-0001", record.Name())

	s.Require().Len(s.backend.entries, 1)
	doc := s.backend.entries[0]
	s.Equal("Material Transfer", doc["stock_entry_type"])
	lines := doc["items"].([]any)
	s.Require().Len(lines, 2)
	first := lines[0].(map[string]any)
	s.Equal("BOLT-1", first["item_code"])
	s.Equal(float64(40), first["qty"])
	s.Equal("Stores - SS", first["s_warehouse"])
	s.Equal("Shop - SS", first["t_warehouse"])
	s.Equal("Bins - SS", lines[1].(map[string]any)["t_warehouse"])

	// 5. The cart is empty, here and after another restart
	s.Empty(restarted.Cart.Items(ctx))
	s.Empty(s.newApp().Cart.Items(ctx))

	// 6. Submitting again is refused without calling the backend
	_, err = restarted.Submitter.Submit(ctx, ports.SubmitRequest{Type: domain.TransactionIssue, SourceWarehouse: "Stores - SS"})
	s.ErrorIs(err, domain.ErrEmptyCart)
	s.Len(s.backend.entries, 1)
}

func (s *ScanWorkflowSuite) TestSignedOutScanKeepsCart() {
	ctx := context.Background()
	a := s.newApp()

	res, err := a.Cart.Scan(ctx, "BOLT-1")
	s.Error(err)
	s.Equal(domain.ScanFailed, res.Outcome)
	s.Empty(a.Cart.Items(ctx))
}

func (s *ScanWorkflowSuite) TestDashboardIsolatesFailures() {
	ctx := context.Background()
	a := s.newApp()
	s.Require().NoError(a.SignIn(ctx))

	stats := a.Dashboard.Load(ctx)
	s.Equal(2, stats.ItemCount)
	s.Equal(0, stats.WarehouseCount)
	s.Contains(stats.Failures, "low_stock")
	s.NotContains(stats.Failures, "items")
	s.NotContains(stats.Failures, "recent_entries")
}

func (s *ScanWorkflowSuite) TestListPaging() {
	ctx := context.Background()
	a := s.newApp()
	s.Require().NoError(a.SignIn(ctx))

	page, err := a.Records.List(ctx, domain.DocTypeItem, ports.ListParams{})
	s.Require().NoError(err)
	s.Len(page.Records, 2)
	s.False(page.HasMore)

	_, err = a.Records.List(ctx, "Sales Invoice", ports.ListParams{})
	s.ErrorIs(err, domain.ErrNotFound)
}

func TestScanWorkflowSuite(t *testing.T) {
	suite.Run(t, new(ScanWorkflowSuite))
}
