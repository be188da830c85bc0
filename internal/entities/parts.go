package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/shopspring/decimal"
)

const partNumberPattern = `^[A-Z0-9-]+$`

var partNumberRule = slugRule{
	label:       "Part number",
	min:         3,
	separators:  "-",
	edgeMessage: "Part number cannot start or end with a dash",
	runMessage:  "Part number cannot contain consecutive dashes",
}

// Part is a catalog entry with its pricing, compatibility and stock levels.
type Part struct {
	PartID             string             `json:"part_id"`
	PartNumber         string             `json:"part_number"`
	Description        string             `json:"description"`
	PartCategory       *string            `json:"part_category,omitempty"`
	Manufacturer       *string            `json:"manufacturer,omitempty"`
	Brand              *string            `json:"brand,omitempty"`
	Model              *string            `json:"model,omitempty"`
	Condition          string             `json:"condition"`
	UnitOfMeasure      string             `json:"unit_of_measure"`
	AvailabilityStatus string             `json:"availability_status"`
	IsActive           bool               `json:"is_active"`
	IsHazmat           bool               `json:"is_hazmat"`
	IsCorePart         bool               `json:"is_core_part"`
	Pricing            *PartPricing       `json:"pricing,omitempty"`
	Specifications     *PartSpecification `json:"specifications,omitempty"`
	Compatibility      *PartCompatibility `json:"compatibility,omitempty"`
	Inventory          *PartInventory     `json:"inventory,omitempty"`
	Supplier           *PartSupplier      `json:"supplier,omitempty"`
	Notes              *string            `json:"notes,omitempty"`
	InternalNotes      *string            `json:"internal_notes,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          *time.Time         `json:"deleted_at,omitempty"`
}

type PartPricing struct {
	ListPrice          *decimal.Decimal `json:"list_price,omitempty"`
	CostPrice          *decimal.Decimal `json:"cost_price,omitempty"`
	SalePrice          *decimal.Decimal `json:"sale_price,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	Currency           *string          `json:"currency,omitempty"`
	PriceEffectiveDate *time.Time       `json:"price_effective_date,omitempty"`
	PriceExpiresDate   *time.Time       `json:"price_expires_date,omitempty"`
}

type PartSpecification struct {
	WeightLbs              *decimal.Decimal `json:"weight_lbs,omitempty"`
	DimensionsLengthInches *decimal.Decimal `json:"dimensions_length_inches,omitempty"`
	DimensionsWidthInches  *decimal.Decimal `json:"dimensions_width_inches,omitempty"`
	DimensionsHeightInches *decimal.Decimal `json:"dimensions_height_inches,omitempty"`
	Color                  *string          `json:"color,omitempty"`
	Material               *string          `json:"material,omitempty"`
	Finish                 *string          `json:"finish,omitempty"`
	WarrantyMonths         *int             `json:"warranty_months,omitempty"`
	CountryOfOrigin        *string          `json:"country_of_origin,omitempty"`
	HazmatClassification   *string          `json:"hazmat_classification,omitempty"`
	ShelfLifeMonths        *int             `json:"shelf_life_months,omitempty"`
}

type PartCompatibility struct {
	FitsEquipmentCategories []string `json:"fits_equipment_categories,omitempty"`
	FitsMakes               []string `json:"fits_makes,omitempty"`
	FitsModels              []string `json:"fits_models,omitempty"`
	FitsYears               []int    `json:"fits_years,omitempty"`
	OEMPartNumbers          []string `json:"oem_part_numbers,omitempty"`
	SupersededBy            *string  `json:"superseded_by,omitempty"`
	Supersedes              []string `json:"supersedes,omitempty"`
	RelatedParts            []string `json:"related_parts,omitempty"`
}

type PartInventory struct {
	QuantityOnHand    int64            `json:"quantity_on_hand"`
	QuantityAllocated int64            `json:"quantity_allocated"`
	QuantityAvailable int64            `json:"quantity_available"`
	ReorderPoint      *int64           `json:"reorder_point,omitempty"`
	ReorderQuantity   *int64           `json:"reorder_quantity,omitempty"`
	MaxStockLevel     *int64           `json:"max_stock_level,omitempty"`
	LastReceivedDate  *time.Time       `json:"last_received_date,omitempty"`
	LastSoldDate      *time.Time       `json:"last_sold_date,omitempty"`
	TurnoverRate      *decimal.Decimal `json:"turnover_rate,omitempty"`
}

type PartSupplier struct {
	PrimarySupplierID    *string          `json:"primary_supplier_id,omitempty"`
	SupplierPartNumber   *string          `json:"supplier_part_number,omitempty"`
	LeadTimeDays         *int             `json:"lead_time_days,omitempty"`
	MinimumOrderQuantity *int64           `json:"minimum_order_quantity,omitempty"`
	CaseQuantity         *int64           `json:"case_quantity,omitempty"`
	LastPurchaseDate     *time.Time       `json:"last_purchase_date,omitempty"`
	LastPurchasePrice    *decimal.Decimal `json:"last_purchase_price,omitempty"`
	PreferredVendor      bool             `json:"preferred_vendor"`
}

var partVariants = variants{
	base: partContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "part_id", []string{
			"part_number", "description", "part_category", "manufacturer", "brand", "condition",
			"pricing", "specifications", "compatibility", "inventory", "supplier",
		})
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"description", "part_category", "manufacturer", "brand", "condition",
			"availability_status", "is_active", "is_hazmat", "is_core_part", "pricing",
			"specifications", "compatibility", "inventory", "supplier", "notes",
			"internal_notes", "tags",
		})
	},
}

func partNumber(name string) *schema.Field {
	return schema.String(name).MaxLen(50).Upper().Match(partNumberPattern)
}

func pricingContract() *schema.Contract {
	return schema.NewContract("pricing",
		schema.Decimal("list_price").AtLeast(0),
		schema.Decimal("cost_price").AtLeast(0),
		schema.Decimal("sale_price").AtLeast(0),
		schema.Decimal("discount_percentage").Between(0, 100),
		schema.String("currency").Match(currencyPattern).Default("USD"),
		schema.Date("price_effective_date"),
		schema.Date("price_expires_date"),
	).Rules(
		schema.Predicate("currency_with_prices", nil, func(_ schema.Env, r schema.Record) error {
			priced := r.Has("list_price") || r.Has("cost_price") || r.Has("sale_price")
			if priced && !r.Has("currency") {
				return errors.New("Currency required when prices are specified")
			}
			return nil
		}),
		schema.Predicate("cost_within_list", []string{"cost_price", "list_price"}, func(_ schema.Env, r schema.Record) error {
			cost, _ := r.Decimal("cost_price")
			list, _ := r.Decimal("list_price")
			if cost.GreaterThan(list) {
				return errors.New("Cost price cannot exceed list price")
			}
			return nil
		}),
		schema.Predicate("sale_matches_discount", []string{"sale_price", "list_price", "discount_percentage"}, func(_ schema.Env, r schema.Record) error {
			sale, _ := r.Decimal("sale_price")
			list, _ := r.Decimal("list_price")
			discount, _ := r.Decimal("discount_percentage")
			if sale.IsZero() || list.IsZero() || discount.IsZero() {
				return nil
			}
			expected := list.Mul(decimal.NewFromInt(1).Sub(discount.Div(decimal.NewFromInt(100))))
			if sale.Sub(expected).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
				return errors.New("Sale price inconsistent with list price and discount percentage")
			}
			return nil
		}),
		schema.Predicate("price_dates", []string{"price_effective_date", "price_expires_date"}, func(_ schema.Env, r schema.Record) error {
			effective, _ := r.Time("price_effective_date")
			expires, _ := r.Time("price_expires_date")
			if !effective.Before(expires) {
				return errors.New("Price effective date must be before expiration date")
			}
			return nil
		}),
	)
}

func partSpecificationContract() *schema.Contract {
	return schema.NewContract("specifications",
		schema.Decimal("weight_lbs").AtLeast(0).Check(func(v interface{}) error {
			if v.(decimal.Decimal).GreaterThan(decimal.NewFromInt(10000)) {
				return errors.New("Part weight exceeds reasonable maximum of 10,000 lbs")
			}
			return nil
		}),
		schema.Decimal("dimensions_length_inches").AtLeast(0),
		schema.Decimal("dimensions_width_inches").AtLeast(0),
		schema.Decimal("dimensions_height_inches").AtLeast(0),
		schema.String("color").MaxLen(50),
		schema.String("material").MaxLen(100),
		schema.String("finish").MaxLen(100),
		schema.Integer("warranty_months").Between(0, 360),
		schema.String("country_of_origin").Match(countryPattern),
		schema.String("hazmat_classification").MaxLen(50),
		schema.Integer("shelf_life_months").Between(0, 1200),
	)
}

func compatibilityContract() *schema.Contract {
	return schema.NewContract("compatibility",
		schema.List("fits_equipment_categories", schema.String("")),
		schema.List("fits_makes", schema.String("")),
		schema.List("fits_models", schema.String("")),
		schema.List("fits_years", schema.Integer("")).Check(func(v interface{}) error {
			for _, y := range v.([]interface{}) {
				year := y.(int64)
				if year < minModelYear || year > maxModelYear {
					return fmt.Errorf("Invalid model year: %d. Must be between %d and %d", year, minModelYear, maxModelYear)
				}
			}
			return nil
		}),
		schema.List("oem_part_numbers", schema.String("")),
		partNumber("superseded_by"),
		schema.List("supersedes", partNumber("")),
		schema.List("related_parts", partNumber("")),
	)
}

func inventoryContract() *schema.Contract {
	return schema.NewContract("inventory",
		schema.Integer("quantity_on_hand").AtLeast(0).Default(int64(0)),
		schema.Integer("quantity_allocated").AtLeast(0).Default(int64(0)),
		schema.Integer("quantity_available").AtLeast(0).Default(int64(0)),
		schema.Integer("reorder_point").AtLeast(0),
		schema.Integer("reorder_quantity").AtLeast(0),
		schema.Integer("max_stock_level").AtLeast(0),
		schema.Date("last_received_date"),
		schema.Date("last_sold_date"),
		schema.Decimal("turnover_rate").AtLeast(0),
	).Rules(
		schema.Predicate("allocated_within_on_hand", []string{"quantity_on_hand", "quantity_allocated"}, func(_ schema.Env, r schema.Record) error {
			onHand, _ := r.Int("quantity_on_hand")
			allocated, _ := r.Int("quantity_allocated")
			if allocated > onHand {
				return errors.New("Allocated quantity cannot exceed quantity on hand")
			}
			return nil
		}),
		schema.Derivation("available_quantity", []string{"quantity_on_hand", "quantity_allocated"}, func(_ schema.Env, r schema.Record) schema.Record {
			onHand, _ := r.Int("quantity_on_hand")
			allocated, _ := r.Int("quantity_allocated")
			if available, ok := r.Int("quantity_available"); ok && available == onHand-allocated {
				return nil
			}
			return r.With("quantity_available", onHand-allocated)
		}),
		schema.Predicate("reorder_point_below_max", []string{"reorder_point", "max_stock_level"}, func(_ schema.Env, r schema.Record) error {
			point, _ := r.Int("reorder_point")
			maxLevel, _ := r.Int("max_stock_level")
			if point > 0 && maxLevel > 0 && point >= maxLevel {
				return errors.New("Reorder point must be less than max stock level")
			}
			return nil
		}),
		schema.Predicate("reorder_quantity_within_max", []string{"reorder_quantity", "max_stock_level"}, func(_ schema.Env, r schema.Record) error {
			qty, _ := r.Int("reorder_quantity")
			maxLevel, _ := r.Int("max_stock_level")
			if qty > 0 && maxLevel > 0 && qty > maxLevel {
				return errors.New("Reorder quantity cannot exceed max stock level")
			}
			return nil
		}),
	)
}

func partContract() *schema.Contract {
	supplier := schema.NewContract("supplier",
		schema.UUID("primary_supplier_id"),
		schema.String("supplier_part_number").MaxLen(100),
		schema.Integer("lead_time_days").Between(0, 365),
		schema.Integer("minimum_order_quantity").AtLeast(1),
		schema.Integer("case_quantity").AtLeast(1),
		schema.Date("last_purchase_date"),
		schema.Decimal("last_purchase_price").AtLeast(0),
		schema.Boolean("preferred_vendor").Default(false),
	)

	fields := []*schema.Field{
		schema.UUID("part_id").Require(),
		partNumber("part_number").Require().Check(partNumberRule.check),
		schema.String("description").Require().MaxLen(500),
		schema.Enum("part_category",
			"engine", "transmission", "brakes", "suspension", "electrical",
			"fuel_system", "cooling", "exhaust", "interior", "exterior",
			"filters", "fluids", "belts_hoses", "sensors", "electronics",
			"hardware", "gaskets_seals", "tools", "maintenance", "body"),
		schema.String("manufacturer").MaxLen(100),
		schema.String("brand").MaxLen(100),
		schema.String("model").MaxLen(100),
		schema.Enum("condition", "new", "refurbished", "used", "core_exchange").Default("new"),
		schema.Enum("unit_of_measure",
			"each", "set", "pair", "kit", "gallon", "quart", "liter",
			"pound", "kilogram", "ounce", "gram", "foot", "meter",
			"inch", "yard", "square_foot", "square_meter").Default("each"),
		schema.Enum("availability_status",
			"in_stock", "low_stock", "out_of_stock", "backordered",
			"discontinued", "special_order", "obsolete").Default("in_stock"),
		schema.Boolean("is_active").Default(true),
		schema.Boolean("is_hazmat").Default(false),
		schema.Boolean("is_core_part").Default(false),
		schema.Object("pricing", pricingContract()),
		schema.Object("specifications", partSpecificationContract()),
		schema.Object("compatibility", compatibilityContract()),
		schema.Object("inventory", inventoryContract()),
		schema.Object("supplier", supplier),
		schema.String("notes").MaxLen(2000),
		schema.String("internal_notes").MaxLen(2000),
		tags(),
	}
	fields = append(fields, timestamps()...)

	return schema.NewContract(string(PartsInventory), fields...).
		Rules(
			schema.Predicate("core_part_condition", []string{"is_core_part", "condition"}, func(_ schema.Env, r schema.Record) error {
				if r.Bool("is_core_part") && r.String("condition") == "new" {
					return errors.New("Core parts cannot have new condition")
				}
				return nil
			}),
			unlessPatch(schema.Predicate("hazmat_classification", []string{"is_hazmat", "specifications"}, func(_ schema.Env, r schema.Record) error {
				if r.Bool("is_hazmat") && !r.Has("specifications.hazmat_classification") {
					return errors.New("Hazmat parts must have hazmat_classification specified")
				}
				return nil
			})),
			schema.Predicate("availability_matches_inventory", []string{"availability_status", "inventory"}, func(_ schema.Env, r schema.Record) error {
				available, _ := r.Int("inventory.quantity_available")
				switch r.String("availability_status") {
				case "out_of_stock":
					if available > 0 {
						return errors.New("Cannot be out_of_stock with available inventory")
					}
				case "in_stock":
					if available == 0 {
						return errors.New("Cannot be in_stock with zero available inventory")
					}
				case "low_stock":
					reorderPoint, _ := r.Int("inventory.reorder_point")
					if available > reorderPoint {
						return errors.New("Low stock status inconsistent with inventory above reorder point")
					}
				}
				return nil
			}),
			updatedAfterCreated,
		).
		Into(func() interface{} { return &Part{} })
}

// DisplayName joins manufacturer, part number and description.
func (p *Part) DisplayName() string {
	var parts []string
	if p.Manufacturer != nil && *p.Manufacturer != "" {
		parts = append(parts, *p.Manufacturer)
	}
	parts = append(parts, p.PartNumber)
	if p.Description != "" {
		parts = append(parts, "("+p.Description+")")
	}
	return strings.Join(parts, " ")
}

// NeedsReorder reports whether available stock is at or below the reorder point.
func (p *Part) NeedsReorder() bool {
	if p.Inventory == nil {
		return false
	}
	var point int64
	if p.Inventory.ReorderPoint != nil {
		point = *p.Inventory.ReorderPoint
	}
	return p.Inventory.QuantityAvailable <= point
}

// MarkupPercentage is (list - cost) / cost * 100 rounded to two places.
func (p *Part) MarkupPercentage() *float64 {
	if p.Pricing == nil || p.Pricing.ListPrice == nil || p.Pricing.CostPrice == nil || !p.Pricing.CostPrice.IsPositive() {
		return nil
	}
	markup := p.Pricing.ListPrice.Sub(*p.Pricing.CostPrice).
		Div(*p.Pricing.CostPrice).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
	return &markup
}

// InventoryValue is cost price times quantity on hand.
func (p *Part) InventoryValue() *decimal.Decimal {
	if p.Inventory == nil || p.Pricing == nil || p.Pricing.CostPrice == nil {
		return nil
	}
	value := p.Pricing.CostPrice.Mul(decimal.NewFromInt(p.Inventory.QuantityOnHand))
	return &value
}

// Computed implements Computer.
func (p *Part) Computed(now time.Time) map[string]interface{} {
	out := map[string]interface{}{
		"display_name":      p.DisplayName(),
		"needs_reorder":     p.NeedsReorder(),
		"markup_percentage": nil,
		"inventory_value":   nil,
		"age_days":          ageDays(p.CreatedAt, now),
	}
	if m := p.MarkupPercentage(); m != nil {
		out["markup_percentage"] = *m
	}
	if v := p.InventoryValue(); v != nil {
		out["inventory_value"] = *v
	}
	return out
}

// ageDays counts whole days elapsed since t.
func ageDays(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}
