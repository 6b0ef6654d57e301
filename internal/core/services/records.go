// internal/core/services/records.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

// OptionsLimit caps picker lists such as warehouses and companies.
const OptionsLimit = 500

// Picker lists served by Options
const (
	OptionsWarehouses      = "warehouses"
	OptionsGroupWarehouses = "group-warehouses"
	OptionsGroupItemGroups = "group-item-groups"
	OptionsCompanies       = "companies"
)

// RecordService handles the list, detail and create-form screens.
type RecordService struct {
	client   ports.DocumentClient
	session  ports.Session
	uploader ports.FileUploader
	logger   *slog.Logger
}

// Statically assert that *RecordService implements the RecordService interface.
var _ ports.RecordService = (*RecordService)(nil)

// NewRecordService creates a new record service
func NewRecordService(client ports.DocumentClient, session ports.Session, uploader ports.FileUploader, logger *slog.Logger) *RecordService {
	return &RecordService{
		client:   client,
		session:  session,
		uploader: uploader,
		logger:   logger.With(slog.String("service", "records")),
	}
}

// List loads one page without keeping state between calls.
func (s *RecordService) List(ctx context.Context, doctype string, params ports.ListParams) (*domain.ListPage, error) {
	spec, err := domain.LookupListSpec(doctype)
	if err != nil {
		return nil, err
	}
	if params.Page < 0 {
		params.Page = 0
	}

	q := spec.Query(params.Page, params.Filters, params.Search)
	records, err := s.client.List(ctx, spec.DocType, q)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to list %s: %w", spec.DocType, err))
	}

	page := domain.NewListPage(records, q.Limit)
	return &page, nil
}

// NewFetcher returns a stateful fetcher for doctype.
func (s *RecordService) NewFetcher(doctype string, filters ...domain.Filter) (*Fetcher, error) {
	spec, err := domain.LookupListSpec(doctype)
	if err != nil {
		return nil, err
	}
	return NewFetcher(s.client, s.session, spec, s.logger, filters...), nil
}

// Get loads a record by name.
func (s *RecordService) Get(ctx context.Context, doctype, name string) (domain.Record, error) {
	spec, err := domain.LookupListSpec(doctype)
	if err != nil {
		return nil, err
	}
	record, err := s.client.Get(ctx, spec.DocType, name)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to get %s %s: %w", spec.DocType, name, err))
	}
	return record, nil
}

// Update writes fields to an existing record.
func (s *RecordService) Update(ctx context.Context, doctype, name string, fields map[string]any) (domain.Record, error) {
	spec, err := domain.LookupListSpec(doctype)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		ve := domain.NewValidationError()
		ve.Add("fields", "nothing to update")
		return nil, ve
	}
	record, err := s.client.Update(ctx, spec.DocType, name, fields)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to update %s %s: %w", spec.DocType, name, err))
	}
	s.logger.InfoContext(ctx, "record updated",
		slog.String("doctype", spec.DocType),
		slog.String("name", name))
	return record, nil
}

// CreateItem validates the form, uploads the optional image and
// creates the Item with the uploaded file URL.
func (s *RecordService) CreateItem(ctx context.Context, in domain.ItemInput, image *ports.UploadRequest) (domain.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if image != nil {
		if s.uploader == nil {
			return nil, fmt.Errorf("image upload is not configured")
		}
		req := *image
		req.DocType = domain.DocTypeItem
		req.FieldName = "image"
		file, err := s.uploader.Upload(ctx, req)
		if err != nil {
			return nil, s.fail(ctx, fmt.Errorf("failed to upload item image: %w", err))
		}
		in.Image = file.FileURL
	}

	return s.create(ctx, domain.DocTypeItem, in.Fields())
}

// CreateItemGroup creates an item group under its parent, or the root group.
func (s *RecordService) CreateItemGroup(ctx context.Context, in domain.ItemGroupInput) (domain.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, domain.DocTypeItemGroup, in.Fields())
}

// CreateUOM creates a unit of measure.
func (s *RecordService) CreateUOM(ctx context.Context, in domain.UOMInput) (domain.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, domain.DocTypeUOM, in.Fields())
}

// CreateWarehouse creates a warehouse.
func (s *RecordService) CreateWarehouse(ctx context.Context, in domain.WarehouseInput) (domain.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, domain.DocTypeWarehouse, in.Fields())
}

func (s *RecordService) create(ctx context.Context, doctype string, fields map[string]any) (domain.Record, error) {
	record, err := s.client.Create(ctx, doctype, fields)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to create %s: %w", doctype, err))
	}
	s.logger.InfoContext(ctx, "record created",
		slog.String("doctype", doctype),
		slog.String("name", record.Name()))
	return record, nil
}

// LeafWarehouses lists warehouses that can hold stock.
func (s *RecordService) LeafWarehouses(ctx context.Context) ([]domain.Record, error) {
	return s.options(ctx, domain.DocTypeWarehouse, domain.Eq("is_group", 0))
}

// GroupWarehouses lists warehouses that can be parents.
func (s *RecordService) GroupWarehouses(ctx context.Context) ([]domain.Record, error) {
	return s.options(ctx, domain.DocTypeWarehouse, domain.Eq("is_group", 1))
}

// GroupItemGroups lists item groups that can be parents.
func (s *RecordService) GroupItemGroups(ctx context.Context) ([]domain.Record, error) {
	return s.options(ctx, domain.DocTypeItemGroup, domain.Eq("is_group", 1))
}

// Companies lists companies for the warehouse form.
func (s *RecordService) Companies(ctx context.Context) ([]domain.Record, error) {
	return s.options(ctx, domain.DocTypeCompany)
}

// Options returns the picker list named by kind: "warehouses",
// "group-warehouses", "group-item-groups" or "companies".
func (s *RecordService) Options(ctx context.Context, kind string) ([]domain.Record, error) {
	switch kind {
	case OptionsWarehouses:
		return s.LeafWarehouses(ctx)
	case OptionsGroupWarehouses:
		return s.GroupWarehouses(ctx)
	case OptionsGroupItemGroups:
		return s.GroupItemGroups(ctx)
	case OptionsCompanies:
		return s.Companies(ctx)
	}
	return nil, fmt.Errorf("%w: unknown option list %q", domain.ErrNotFound, kind)
}

func (s *RecordService) options(ctx context.Context, doctype string, filters ...domain.Filter) ([]domain.Record, error) {
	spec, err := domain.LookupListSpec(doctype)
	if err != nil {
		return nil, err
	}
	q := spec.Query(0, filters, "")
	q.Limit = OptionsLimit
	records, err := s.client.List(ctx, spec.DocType, q)
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to load %s options: %w", spec.DocType, err))
	}
	return records, nil
}

func (s *RecordService) fail(ctx context.Context, err error) error {
	return refreshOnAuth(ctx, s.session, s.logger, err)
}
