package entities_test

import (
	"testing"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/stretchr/testify/require"
)

func partRecord() map[string]interface{} {
	return map[string]interface{}{
		"part_id":      otherID,
		"part_number":  "bp-4471",
		"description":  "Front brake pad set",
		"manufacturer": "Bosch",
		"pricing": map[string]interface{}{
			"list_price": "100.00",
			"cost_price": "60.00",
		},
		"inventory": map[string]interface{}{
			"quantity_on_hand":   25,
			"quantity_allocated": 3,
			"reorder_point":      30,
		},
		"created_at": "2025-09-07T12:00:00Z",
		"updated_at": "2025-09-07T12:00:00Z",
	}
}

func TestPart_DerivesAvailableQuantity(t *testing.T) {
	out, err := validate(t, entities.PartsInventory, schema.OpBase, partRecord())
	require.NoError(t, err)

	available, ok := out.Record.Int("inventory.quantity_available")
	require.True(t, ok)
	require.Equal(t, int64(22), available)

	part := out.Value.(*entities.Part)
	require.Equal(t, "BP-4471", part.PartNumber)
	require.Equal(t, int64(22), part.Inventory.QuantityAvailable)
	require.NotNil(t, part.Pricing.Currency)
	require.Equal(t, "USD", *part.Pricing.Currency)
	require.Nil(t, part.PartCategory)
}

func TestPart_Computed(t *testing.T) {
	out, err := validate(t, entities.PartsInventory, schema.OpBase, partRecord())
	require.NoError(t, err)

	computed := entities.Computed(out.Value, fixedNow)
	require.Equal(t, "Bosch BP-4471 (Front brake pad set)", computed["display_name"])
	require.Equal(t, true, computed["needs_reorder"])
	require.Equal(t, 66.67, computed["markup_percentage"])
	require.Equal(t, 10, computed["age_days"])
}

func TestPart_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		want   []string
	}{
		{
			name: "allocated above on hand",
			mutate: func(r map[string]interface{}) {
				r["inventory"] = map[string]interface{}{"quantity_on_hand": 10, "quantity_allocated": 15}
			},
			want: []string{"inventory: Allocated quantity cannot exceed quantity on hand"},
		},
		{
			name: "cost above list",
			mutate: func(r map[string]interface{}) {
				r["pricing"] = map[string]interface{}{"list_price": "50", "cost_price": "60"}
			},
			want: []string{"pricing: Cost price cannot exceed list price"},
		},
		{
			name: "sale inconsistent with discount",
			mutate: func(r map[string]interface{}) {
				r["pricing"] = map[string]interface{}{
					"list_price": "100", "sale_price": "80", "discount_percentage": "10",
				}
			},
			want: []string{"pricing: Sale price inconsistent with list price and discount percentage"},
		},
		{
			name: "weight above maximum",
			mutate: func(r map[string]interface{}) {
				r["specifications"] = map[string]interface{}{"weight_lbs": 10001}
			},
			want: []string{"specifications.weight_lbs: Part weight exceeds reasonable maximum of 10,000 lbs"},
		},
		{
			name: "fits year out of range",
			mutate: func(r map[string]interface{}) {
				r["compatibility"] = map[string]interface{}{"fits_years": []interface{}{2010, 1899}}
			},
			want: []string{"compatibility.fits_years: Invalid model year: 1899. Must be between 1900 and 2030"},
		},
		{
			name: "core part sold new",
			mutate: func(r map[string]interface{}) {
				r["is_core_part"] = true
			},
			want: []string{"Core parts cannot have new condition"},
		},
		{
			name: "hazmat without classification",
			mutate: func(r map[string]interface{}) {
				r["is_hazmat"] = true
				r["specifications"] = map[string]interface{}{"color": "red"}
			},
			want: []string{"Hazmat parts must have hazmat_classification specified"},
		},
		{
			name: "out of stock with inventory",
			mutate: func(r map[string]interface{}) {
				r["availability_status"] = "out_of_stock"
			},
			want: []string{"Cannot be out_of_stock with available inventory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := partRecord()
			tt.mutate(rec)
			require.Equal(t, tt.want, violations(t, entities.PartsInventory, schema.OpBase, rec))
		})
	}
}

func TestPart_SaleMatchingDiscountPasses(t *testing.T) {
	rec := partRecord()
	rec["pricing"] = map[string]interface{}{
		"list_price": "100", "sale_price": "90", "discount_percentage": "10",
	}
	_, err := validate(t, entities.PartsInventory, schema.OpBase, rec)
	require.NoError(t, err)
}

func TestPart_UpdateSkipsHazmatPresenceRule(t *testing.T) {
	_, err := validate(t, entities.PartsInventory, schema.OpUpdate, map[string]interface{}{
		"is_hazmat":      true,
		"specifications": map[string]interface{}{"color": "red"},
	})
	require.NoError(t, err)
}
