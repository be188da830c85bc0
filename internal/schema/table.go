package schema

import "strings"

// Warehouse column types used by table contracts.
const (
	TypeString    = "STRING"
	TypeInt64     = "INT64"
	TypeFloat64   = "FLOAT64"
	TypeNumeric   = "NUMERIC"
	TypeBool      = "BOOL"
	TypeTimestamp = "TIMESTAMP"
	TypeDate      = "DATE"
	TypeJSON      = "JSON"
)

// TableContract is the structural expectation for one warehouse table:
// which columns must exist and which primitive type declared columns carry.
type TableContract struct {
	Table          string
	RequiredFields []string
	// Fields maps a column to its expected type. An empty type means
	// presence-only and skips the type comparison.
	Fields map[string]string
	// Source is "document" or "entity".
	Source string
}

// ExpectedType returns the upper-cased expected type of column, or "".
func (t *TableContract) ExpectedType(column string) string {
	return strings.ToUpper(t.Fields[column])
}

// WarehouseType maps a field kind onto the warehouse type vocabulary.
func WarehouseType(k Kind) string {
	switch k {
	case KindString, KindEnum, KindUUID:
		return TypeString
	case KindInteger:
		return TypeInt64
	case KindNumber:
		return TypeFloat64
	case KindDecimal:
		return TypeNumeric
	case KindBoolean:
		return TypeBool
	case KindDateTime:
		return TypeTimestamp
	case KindDate:
		return TypeDate
	default:
		return TypeJSON
	}
}

// DeriveTableContract builds a table contract from the top-level fields of c.
func DeriveTableContract(table string, c *Contract) *TableContract {
	tc := &TableContract{
		Table:  table,
		Fields: make(map[string]string, len(c.Fields)),
		Source: "entity",
	}
	for _, f := range c.Fields {
		tc.Fields[f.Name] = WarehouseType(f.Kind)
		if f.required {
			tc.RequiredFields = append(tc.RequiredFields, f.Name)
		}
	}
	return tc
}

var typeAliases = map[string]string{
	"STRING":     TypeString,
	"TEXT":       TypeString,
	"VARCHAR":    TypeString,
	"INT64":      TypeInt64,
	"INTEGER":    TypeInt64,
	"INT":        TypeInt64,
	"BIGINT":     TypeInt64,
	"FLOAT64":    TypeFloat64,
	"FLOAT":      TypeFloat64,
	"DOUBLE":     TypeFloat64,
	"NUMERIC":    TypeNumeric,
	"DECIMAL":    TypeNumeric,
	"BIGNUMERIC": TypeNumeric,
	"BOOL":       TypeBool,
	"BOOLEAN":    TypeBool,
	"TIMESTAMP":  TypeTimestamp,
	"DATETIME":   TypeTimestamp,
	"DATE":       TypeDate,
	"JSON":       TypeJSON,
	"RECORD":     TypeJSON,
	"STRUCT":     TypeJSON,
}

// CanonicalType folds type aliases (INTEGER, BOOLEAN, RECORD...) onto the
// table-contract vocabulary. ok is false for unrecognised names.
func CanonicalType(name string) (string, bool) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}
