// internal/core/domain/doctypes.go
package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Doctype names
const (
	DocTypeItem       = "Item"
	DocTypeItemGroup  = "Item Group"
	DocTypeUOM        = "UOM"
	DocTypeWarehouse  = "Warehouse"
	DocTypeBin        = "Bin"
	DocTypeStockEntry = "Stock Entry"
	DocTypeCompany    = "Company"
)

// RootItemGroup is the parent used when a new item group names none.
const RootItemGroup = "All Item Groups"

var listSpecs = map[string]ListSpec{
	DocTypeItem: {
		DocType:      DocTypeItem,
		Fields:       []string{"name", "item_code", "item_name", "item_group", "stock_uom", "image"},
		DefaultSort:  Sort{Field: "modified", Order: SortDesc},
		PageSize:     DefaultPageSize,
		SearchFields: []string{"item_name", "item_code"},
	},
	DocTypeItemGroup: {
		DocType:      DocTypeItemGroup,
		Fields:       []string{"name", "item_group_name", "parent_item_group", "is_group"},
		DefaultSort:  Sort{Field: "item_group_name", Order: SortAsc},
		PageSize:     DefaultPageSize,
		SearchFields: []string{"item_group_name"},
	},
	DocTypeUOM: {
		DocType:      DocTypeUOM,
		Fields:       []string{"name", "enabled", "uom_name"},
		DefaultSort:  Sort{Field: "uom_name", Order: SortAsc},
		PageSize:     DefaultPageSize,
		SearchFields: []string{"uom_name"},
	},
	DocTypeWarehouse: {
		DocType:      DocTypeWarehouse,
		Fields:       []string{"name", "disabled", "warehouse_name", "is_group", "parent_warehouse", "company"},
		DefaultSort:  Sort{Field: "warehouse_name", Order: SortAsc},
		PageSize:     DefaultPageSize,
		SearchFields: []string{"warehouse_name"},
	},
	DocTypeBin: {
		DocType:      DocTypeBin,
		Fields:       []string{"name", "item_code", "item_name", "warehouse", "actual_qty", "reserved_qty", "projected_qty", "stock_uom"},
		DefaultSort:  Sort{Field: "modified", Order: SortDesc},
		PageSize:     DefaultPageSize,
		SearchFields: []string{"item_code", "item_name"},
	},
	DocTypeStockEntry: {
		DocType:      DocTypeStockEntry,
		Fields:       []string{"name", "stock_entry_type", "purpose", "company", "posting_date", "posting_time", "set_posting_time", "docstatus"},
		DefaultSort:  Sort{Field: "modified", Order: SortDesc},
		PageSize:     DefaultPageSize,
		SearchFields: []string{"name"},
	},
	DocTypeCompany: {
		DocType:     DocTypeCompany,
		Fields:      []string{"name", "company_name"},
		DefaultSort: Sort{Field: "company_name", Order: SortAsc},
		PageSize:    DefaultPageSize,
	},
}

// LookupListSpec returns the list spec of a doctype. The lookup accepts
// the doctype name or its slug ("stock-entry").
func LookupListSpec(doctype string) (ListSpec, error) {
	if spec, ok := listSpecs[doctype]; ok {
		return spec, nil
	}
	for name, spec := range listSpecs {
		if Slug(name) == strings.ToLower(doctype) {
			return spec, nil
		}
	}
	return ListSpec{}, fmt.Errorf("%w: unknown doctype %q", ErrNotFound, doctype)
}

// ListSpecs returns all known specs ordered by doctype.
func ListSpecs() []ListSpec {
	out := make([]ListSpec, 0, len(listSpecs))
	for _, s := range listSpecs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocType < out[j].DocType })
	return out
}

// Slug turns "Stock Entry" into "stock-entry".
func Slug(doctype string) string {
	return strings.ReplaceAll(strings.ToLower(doctype), " ", "-")
}

// BinsForItemSpec lists the bins of one item, newest first.
func BinsForItemSpec() ListSpec {
	spec := listSpecs[DocTypeBin]
	spec.DefaultSort = Sort{Field: "creation", Order: SortDesc}
	spec.SearchFields = []string{"warehouse"}
	return spec
}

// WarehouseFilter holds the warehouse screen toggles.
type WarehouseFilter struct {
	Enabled bool
	// Groups is nil when both groups and leaves are listed.
	Groups  *bool
	Company string
	Parent  string
}

// Filters renders the toggles as backend predicates.
func (f WarehouseFilter) Filters() []Filter {
	disabled := 1
	if f.Enabled {
		disabled = 0
	}
	out := []Filter{Eq("disabled", disabled)}
	if f.Groups != nil {
		out = append(out, Eq("is_group", boolInt(*f.Groups)))
	}
	if f.Company != "" {
		out = append(out, Eq("company", f.Company))
	}
	if f.Parent != "" {
		out = append(out, Eq("parent_warehouse", f.Parent))
	}
	return out
}

// UOMFilter holds the UOM screen toggle.
type UOMFilter struct {
	Enabled bool
}

// Filters renders the toggle as a backend predicate.
func (f UOMFilter) Filters() []Filter {
	return []Filter{Eq("enabled", boolInt(f.Enabled))}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
