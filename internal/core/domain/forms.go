// internal/core/domain/forms.go
package domain

import "strings"

// ItemInput is the new-item form.
type ItemInput struct {
	ItemCode    string `json:"item_code"`
	ItemName    string `json:"item_name"`
	ItemGroup   string `json:"item_group"`
	StockUOM    string `json:"stock_uom,omitempty"`
	Description string `json:"description,omitempty"`
	Barcode     string `json:"custom_barcode,omitempty"`
	// Image is set by the service after the attachment upload.
	Image string `json:"image,omitempty"`
}

// Validate checks the required fields.
func (in *ItemInput) Validate() error {
	ve := NewValidationError()
	ve.Required("item_code", in.ItemCode)
	ve.Required("item_name", in.ItemName)
	ve.Required("item_group", in.ItemGroup)
	return ve.OrNil()
}

// Fields renders the create-document payload.
func (in *ItemInput) Fields() map[string]any {
	f := map[string]any{
		"item_code":  strings.TrimSpace(in.ItemCode),
		"item_name":  strings.TrimSpace(in.ItemName),
		"item_group": in.ItemGroup,
	}
	setIf(f, "stock_uom", in.StockUOM)
	setIf(f, "description", in.Description)
	setIf(f, "custom_barcode", in.Barcode)
	setIf(f, "image", in.Image)
	return f
}

// ItemGroupInput is the new-item-group form.
type ItemGroupInput struct {
	ItemGroupName   string `json:"item_group_name"`
	ParentItemGroup string `json:"parent_item_group,omitempty"`
	IsGroup         bool   `json:"is_group"`
}

// Validate checks the required fields.
func (in *ItemGroupInput) Validate() error {
	ve := NewValidationError()
	ve.Required("item_group_name", in.ItemGroupName)
	return ve.OrNil()
}

// Fields renders the create-document payload.
func (in *ItemGroupInput) Fields() map[string]any {
	parent := in.ParentItemGroup
	if parent == "" {
		parent = RootItemGroup
	}
	return map[string]any{
		"item_group_name":   strings.TrimSpace(in.ItemGroupName),
		"parent_item_group": parent,
		"is_group":          boolInt(in.IsGroup),
	}
}

// UOMInput is the new-unit form.
type UOMInput struct {
	UOMName string `json:"uom_name"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Validate checks the required fields.
func (in *UOMInput) Validate() error {
	ve := NewValidationError()
	ve.Required("uom_name", in.UOMName)
	return ve.OrNil()
}

// Fields renders the create-document payload. Units are enabled unless
// the form says otherwise.
func (in *UOMInput) Fields() map[string]any {
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	return map[string]any{
		"uom_name": strings.TrimSpace(in.UOMName),
		"enabled":  boolInt(enabled),
	}
}

// WarehouseInput is the new-warehouse form.
type WarehouseInput struct {
	WarehouseName   string `json:"warehouse_name"`
	Company         string `json:"company"`
	ParentWarehouse string `json:"parent_warehouse,omitempty"`
	IsGroup         bool   `json:"is_group"`
	Disabled        bool   `json:"disabled"`
}

// Validate checks the required fields.
func (in *WarehouseInput) Validate() error {
	ve := NewValidationError()
	ve.Required("warehouse_name", in.WarehouseName)
	ve.Required("company", in.Company)
	return ve.OrNil()
}

// Fields renders the create-document payload. An empty parent is sent
// as null so the backend files the warehouse at the company root.
func (in *WarehouseInput) Fields() map[string]any {
	f := map[string]any{
		"warehouse_name":   strings.TrimSpace(in.WarehouseName),
		"company":          in.Company,
		"parent_warehouse": nil,
		"is_group":         boolInt(in.IsGroup),
		"disabled":         boolInt(in.Disabled),
	}
	if in.ParentWarehouse != "" {
		f["parent_warehouse"] = in.ParentWarehouse
	}
	return f
}

func setIf(m map[string]any, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		m[key] = v
	}
}
