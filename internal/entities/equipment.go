package entities

import (
	"errors"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/shopspring/decimal"
)

// Equipment is a registered asset: vehicle, machine, device or tool.
type Equipment struct {
	ID                        string                  `json:"id"`
	IdentificationPrimary     string                  `json:"identification_primary"`
	IdentificationPrimaryType string                  `json:"identification_primary_type"`
	IdentificationSecondary   *string                 `json:"identification_secondary,omitempty"`
	IdentificationTertiary    *string                 `json:"identification_tertiary,omitempty"`
	Category                  string                  `json:"category"`
	Type                      *string                 `json:"type,omitempty"`
	Make                      *string                 `json:"make,omitempty"`
	Model                     *string                 `json:"model,omitempty"`
	ModelYear                 *int                    `json:"model_year,omitempty"`
	ManufactureDate           *time.Time              `json:"manufacture_date,omitempty"`
	OwnerID                   *string                 `json:"owner_id,omitempty"`
	PurchaseDate              *time.Time              `json:"purchase_date,omitempty"`
	PurchasePrice             *decimal.Decimal        `json:"purchase_price,omitempty"`
	CurrentValue              *decimal.Decimal        `json:"current_value,omitempty"`
	Status                    string                  `json:"status"`
	Condition                 string                  `json:"condition"`
	Mileage                   *int64                  `json:"mileage,omitempty"`
	HoursOperated             *float64                `json:"hours_operated,omitempty"`
	Specifications            *EquipmentSpecification `json:"specifications,omitempty"`
	Location                  *EquipmentLocation      `json:"location,omitempty"`
	Notes                     *string                 `json:"notes,omitempty"`
	Tags                      []string                `json:"tags,omitempty"`
	CreatedAt                 time.Time               `json:"created_at"`
	UpdatedAt                 time.Time               `json:"updated_at"`
	DeletedAt                 *time.Time              `json:"deleted_at,omitempty"`
}

type EquipmentSpecification struct {
	EngineSize       *float64           `json:"engine_size,omitempty"` // liters
	Horsepower       *int               `json:"horsepower,omitempty"`
	FuelType         *string            `json:"fuel_type,omitempty"`
	TransmissionType *string            `json:"transmission_type,omitempty"`
	DriveType        *string            `json:"drive_type,omitempty"`
	WeightKg         *float64           `json:"weight_kg,omitempty"`
	Dimensions       map[string]float64 `json:"dimensions,omitempty"`
	Color            *string            `json:"color,omitempty"`
}

type EquipmentLocation struct {
	FacilityName *string            `json:"facility_name,omitempty"`
	Address      *string            `json:"address,omitempty"`
	Coordinates  map[string]float64 `json:"coordinates,omitempty"`
	Zone         *string            `json:"zone,omitempty"`
	Building     *string            `json:"building,omitempty"`
	Floor        *string            `json:"floor,omitempty"`
}

var equipmentVariants = variants{
	base: equipmentContract,
	create: func(base *schema.Contract) *schema.Contract {
		return createVariant(base, "id", []string{
			"identification_primary", "identification_primary_type", "category", "type",
			"make", "model", "model_year", "specifications", "location", "notes",
		})
	},
	update: func(base *schema.Contract) *schema.Contract {
		return updateVariant(base, []string{
			"identification_secondary", "identification_tertiary", "type", "make", "model",
			"model_year", "owner_id", "purchase_date", "purchase_price", "current_value",
			"status", "condition", "mileage", "hours_operated", "specifications", "location",
			"notes", "tags",
		})
	},
}

func equipmentContract() *schema.Contract {
	specifications := schema.NewContract("specifications",
		schema.Number("engine_size").Between(0, 20),
		schema.Integer("horsepower").Between(0, 2000),
		schema.Enum("fuel_type", "gasoline", "diesel", "electric", "hybrid", "lpg", "cng"),
		schema.Enum("transmission_type", "manual", "automatic", "cvt", "dual_clutch"),
		schema.Enum("drive_type", "fwd", "rwd", "awd", "4wd"),
		schema.Number("weight_kg").Between(0, 100000),
		schema.Map("dimensions", schema.Number("")),
		schema.String("color").MaxLen(50),
	)

	location := schema.NewContract("location",
		schema.String("facility_name").MaxLen(200),
		schema.String("address").MaxLen(500),
		schema.Map("coordinates", schema.Number("")),
		schema.String("zone").MaxLen(100),
		schema.String("building").MaxLen(100),
		schema.String("floor").MaxLen(50),
	)

	fields := []*schema.Field{
		schema.UUID("id").Require(),
		schema.String("identification_primary").Require().MaxLen(50).Upper().Check(func(v interface{}) error {
			if v.(string) == "" {
				return errors.New("Primary identification cannot be empty")
			}
			return nil
		}),
		schema.Enum("identification_primary_type", "vin", "serial_number", "model_number", "part_number", "asset_tag").Require(),
		schema.String("identification_secondary").MaxLen(50),
		schema.String("identification_tertiary").MaxLen(50),
		schema.Enum("category",
			"vehicle", "heavy_machinery", "electronics", "appliance", "tool",
			"computer", "industrial", "marine", "aviation", "other").Require(),
		schema.Enum("type",
			"car", "truck", "motorcycle", "suv", "van", "bus", "trailer",
			"atv", "boat", "aircraft", "farm_equipment", "construction"),
		schema.String("make").MaxLen(100),
		schema.String("model").MaxLen(100),
		schema.Integer("model_year").Between(minModelYear, maxModelYear),
		schema.Date("manufacture_date"),
		schema.UUID("owner_id"),
		schema.Date("purchase_date"),
		schema.Decimal("purchase_price").AtLeast(0),
		schema.Decimal("current_value").AtLeast(0),
		schema.Enum("status", "active", "inactive", "maintenance", "retired", "sold").Default("active"),
		schema.Enum("condition", "excellent", "good", "fair", "poor", "unknown").Default("unknown"),
		schema.Integer("mileage").Between(0, 10000000),
		schema.Number("hours_operated").Between(0, 1000000),
		schema.Object("specifications", specifications),
		schema.Object("location", location),
		schema.String("notes").MaxLen(2000),
		tags(),
	}
	fields = append(fields, timestamps()...)

	return schema.NewContract(string(EquipmentRegistry), fields...).
		Rules(updatedAfterCreated).
		Into(func() interface{} { return &Equipment{} })
}

// AgeYears is the calendar age derived from the model year.
func (e *Equipment) AgeYears(now time.Time) *int {
	if e.ModelYear == nil {
		return nil
	}
	age := now.Year() - *e.ModelYear
	return &age
}

// Computed implements Computer.
func (e *Equipment) Computed(now time.Time) map[string]interface{} {
	out := map[string]interface{}{
		"age_years":         nil,
		"is_vintage":        false,
		"depreciation_rate": nil,
	}
	age := e.AgeYears(now)
	if age == nil {
		return out
	}
	out["age_years"] = *age
	out["is_vintage"] = *age > 25

	if e.PurchasePrice != nil && e.CurrentValue != nil && e.PurchasePrice.IsPositive() && *age > 0 {
		ratio := e.CurrentValue.Div(*e.PurchasePrice).InexactFloat64()
		out["depreciation_rate"] = (1 - ratio) / float64(*age)
	}
	return out
}
