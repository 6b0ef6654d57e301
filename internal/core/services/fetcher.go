// internal/core/services/fetcher.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// ErrFetcherClosed is returned by fetches issued after Close.
var ErrFetcherClosed = errors.New("fetcher closed")

// FetchMode selects whether a page replaces or extends the loaded items.
type FetchMode int

// Fetch modes
const (
	FetchReplace FetchMode = iota
	FetchAppend
)

func (m FetchMode) String() string {
	switch m {
	case FetchReplace:
		return "replace"
	case FetchAppend:
		return "append"
	}
	return fmt.Sprintf("FetchMode(%d)", int(m))
}

// PaginationState is the accumulated list of one screen.
type PaginationState struct {
	Items          []domain.Record `json:"items"`
	Page           int             `json:"page"`
	HasMore        bool            `json:"has_more"`
	LoadingInitial bool            `json:"loading_initial"`
	LoadingMore    bool            `json:"loading_more"`
}

// Fetcher pages through one doctype. A replace supersedes every
// request issued before it: each request captures the generation at
// issue time and its response is dropped if the generation has moved.
//
// Search and filter changes take effect for appends only once a replace
// carrying them succeeds, so loaded pages always share one predicate.
type Fetcher struct {
	client  ports.DocumentClient
	session ports.Session
	spec    domain.ListSpec
	logger  *slog.Logger

	mu         sync.Mutex
	state      PaginationState
	filters    []domain.Filter
	search     string
	applied    appliedQuery
	generation uint64
	closed     bool
}

// appliedQuery is the predicate behind the loaded items.
type appliedQuery struct {
	filters []domain.Filter
	search  string
}

// NewFetcher creates a fetcher for spec. filters are the base predicate
// applied to every page.
func NewFetcher(client ports.DocumentClient, session ports.Session, spec domain.ListSpec, logger *slog.Logger, filters ...domain.Filter) *Fetcher {
	if spec.PageSize <= 0 {
		spec.PageSize = domain.DefaultPageSize
	}
	return &Fetcher{
		client:  client,
		session: session,
		spec:    spec,
		filters: filters,
		applied: appliedQuery{filters: filters},
		logger: logger.With(
			slog.String("component", "fetcher"),
			slog.String("doctype", spec.DocType)),
	}
}

// Spec returns the list spec of the fetcher.
func (f *Fetcher) Spec() domain.ListSpec {
	return f.spec
}

// Fetch loads a page. Appends are ignored while another fetch is in
// flight or when the last page was short.
func (f *Fetcher) Fetch(ctx context.Context, mode FetchMode) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFetcherClosed
	}

	var (
		q       domain.Query
		pending appliedQuery
	)
	switch mode {
	case FetchReplace:
		f.generation++
		f.state.LoadingInitial = true
		f.state.LoadingMore = false
		pending = appliedQuery{filters: f.filters, search: f.search}
		q = f.spec.Query(0, pending.filters, pending.search)
	case FetchAppend:
		if !f.state.HasMore || f.state.LoadingInitial || f.state.LoadingMore {
			hasMore := f.state.HasMore
			f.mu.Unlock()
			f.logger.DebugContext(ctx, "append ignored",
				slog.Bool("has_more", hasMore))
			return nil
		}
		f.state.LoadingMore = true
		q = f.spec.Query(f.state.Page+1, f.applied.filters, f.applied.search)
	default:
		f.mu.Unlock()
		return fmt.Errorf("unknown fetch mode %d", int(mode))
	}
	gen := f.generation
	f.mu.Unlock()

	records, err := f.client.List(ctx, f.spec.DocType, q)

	f.mu.Lock()
	if gen != f.generation || f.closed {
		f.mu.Unlock()
		f.logger.DebugContext(ctx, "discarding stale page",
			slog.String("mode", mode.String()),
			slog.Uint64("generation", gen))
		return nil
	}
	f.state.LoadingInitial = false
	f.state.LoadingMore = false
	if err != nil {
		f.mu.Unlock()
		f.logger.WarnContext(ctx, "list fetch failed",
			slog.String("mode", mode.String()),
			slog.String("error", err.Error()))
		return refreshOnAuth(ctx, f.session, f.logger,
			fmt.Errorf("failed to list %s: %w", f.spec.DocType, err))
	}

	page := domain.NewListPage(records, q.Limit)
	switch mode {
	case FetchReplace:
		f.state.Items = page.Records
		f.state.Page = 0
		f.applied = pending
	case FetchAppend:
		f.state.Items = append(f.state.Items, page.Records...)
		f.state.Page++
	}
	f.state.HasMore = page.HasMore
	count := len(f.state.Items)
	f.mu.Unlock()

	f.logger.DebugContext(ctx, "page loaded",
		slog.String("mode", mode.String()),
		slog.Int("received", len(records)),
		slog.Int("total", count),
		slog.Bool("has_more", page.HasMore))
	return nil
}

// Refresh reloads the first page.
func (f *Fetcher) Refresh(ctx context.Context) error {
	return f.Fetch(ctx, FetchReplace)
}

// LoadMore appends the next page when there is one.
func (f *Fetcher) LoadMore(ctx context.Context) error {
	return f.Fetch(ctx, FetchAppend)
}

// Search replaces the search predicate and reloads. An empty term
// reloads without a search predicate.
func (f *Fetcher) Search(ctx context.Context, term string) error {
	f.mu.Lock()
	f.search = term
	f.mu.Unlock()
	return f.Fetch(ctx, FetchReplace)
}

// SetSearch replaces the search predicate without loading. The next
// replace fetch applies it; appends keep the loaded predicate until then.
func (f *Fetcher) SetSearch(term string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.search = term
}

// SetFilters replaces the base predicate and reloads.
func (f *Fetcher) SetFilters(ctx context.Context, filters ...domain.Filter) error {
	f.mu.Lock()
	f.filters = filters
	f.mu.Unlock()
	return f.Fetch(ctx, FetchReplace)
}

// State returns a copy of the pagination state.
func (f *Fetcher) State() PaginationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	s.Items = append([]domain.Record(nil), f.state.Items...)
	return s
}

// Close tears the fetcher down. Responses arriving afterwards are dropped.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.generation++
}
