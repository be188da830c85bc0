package entities_test

import (
	"testing"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)

const (
	equipmentID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	userID      = "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	otherID     = "9b2d5c1e-8f4a-4b7e-a3d1-6c0e2f5a8b9d"
	bcryptValue = "$2b$12$KIXQJQh9vZ1Yk8Q4z0YHeO6V1m0n3p5r7t9v1x3z5b7d9f1h3j5l7"
)

func engine() *schema.Engine {
	return schema.NewEngine(schema.WithClock(func() time.Time { return fixedNow }))
}

// validate builds the contract of e for op and runs rec through it.
func validate(t *testing.T, e entities.Entity, op schema.Operation, rec map[string]interface{}) (*schema.Outcome, error) {
	t.Helper()
	c, err := entities.Build(e, op)
	require.NoError(t, err)
	return engine().ValidateOp(c, op, rec)
}

// violations validates rec and requires a rejection, returning its messages.
func violations(t *testing.T, e entities.Entity, op schema.Operation, rec map[string]interface{}) []string {
	t.Helper()
	_, err := validate(t, e, op, rec)
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	return multi.Messages()
}

func TestEntities_DeclarationOrder(t *testing.T) {
	list := entities.Entities()
	require.Len(t, list, 8)
	require.Equal(t, entities.EquipmentRegistry, list[0])
	require.Equal(t, entities.RedditDiagnosticPosts, list[7])

	list[0] = "mutated"
	require.Equal(t, entities.EquipmentRegistry, entities.Entities()[0])
}

func TestParseEntity(t *testing.T) {
	e, err := entities.ParseEntity("parts_inventory")
	require.NoError(t, err)
	require.Equal(t, entities.PartsInventory, e)

	_, err = entities.ParseEntity("invoices")
	require.ErrorIs(t, err, schema.ErrNotFound)
}

func TestBuild_EveryEntityAndOperation(t *testing.T) {
	for _, e := range entities.Entities() {
		for _, op := range entities.Operations(e) {
			c, err := entities.Build(e, op)
			require.NoError(t, err, "%s/%s", e, op)
			require.NotNil(t, c, "%s/%s", e, op)
			require.NotEmpty(t, c.Describe(), "%s/%s", e, op)
		}
	}
}

func TestBuild_UnsupportedOperation(t *testing.T) {
	_, err := entities.Build(entities.Users, schema.Operation("summary"))
	require.ErrorIs(t, err, schema.ErrUnsupportedOperation)

	_, err = entities.Build(entities.Entity("invoices"), schema.OpBase)
	require.ErrorIs(t, err, schema.ErrNotFound)
}

func TestBuild_ReturnsFreshContracts(t *testing.T) {
	a, err := entities.Build(entities.Models, schema.OpBase)
	require.NoError(t, err)
	b, err := entities.Build(entities.Models, schema.OpBase)
	require.NoError(t, err)
	require.NotSame(t, a, b)
}

func TestBuild_CreateVariantsStampManagedFields(t *testing.T) {
	out, err := validate(t, entities.EquipmentRegistry, schema.OpCreate, map[string]interface{}{
		"identification_primary":      "abc123",
		"identification_primary_type": "serial_number",
		"category":                    "tool",
	})
	require.NoError(t, err)
	require.Len(t, out.Record.String("id"), 36)
	require.Equal(t, fixedNow, out.Record["created_at"])
	require.Equal(t, fixedNow, out.Record["updated_at"])
	require.Equal(t, "ABC123", out.Record["identification_primary"])
}

func TestBuild_CreateVariantRejectsManagedFields(t *testing.T) {
	_, err := validate(t, entities.EquipmentRegistry, schema.OpCreate, map[string]interface{}{
		"id":                          equipmentID,
		"identification_primary":      "abc123",
		"identification_primary_type": "serial_number",
		"category":                    "tool",
	})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Len(t, multi.Errors, 1)
	require.Equal(t, []string{"id"}, multi.Errors[0].UnknownFields)
	require.Equal(t, "extra fields not permitted", multi.Errors[0].Message)
}

func TestBuild_UpdateVariantIsPartial(t *testing.T) {
	out, err := validate(t, entities.EquipmentRegistry, schema.OpUpdate, map[string]interface{}{
		"status": "retired",
	})
	require.NoError(t, err)
	require.Equal(t, "retired", out.Record["status"])
	require.Equal(t, fixedNow, out.Record["updated_at"])

	_, hasCondition := out.Record["condition"]
	require.False(t, hasCondition, "update must not apply defaults")
}

func TestBuild_VariantsWithoutTimestampsAreNotStamped(t *testing.T) {
	out, err := validate(t, entities.FeatureStore, schema.OpUpdate, map[string]interface{}{
		"feature_set_status": "deprecated",
	})
	require.NoError(t, err)
	_, hasUpdated := out.Record["updated_at"]
	require.False(t, hasUpdated)
}

func TestRegistry_ServesEntityContracts(t *testing.T) {
	reg := entities.NewRegistry()

	c, err := reg.ContractFor("users", schema.OpCreate)
	require.NoError(t, err)
	require.Equal(t, "users.create", c.Name)

	_, err = reg.ContractFor("invoices", schema.OpBase)
	require.ErrorIs(t, err, schema.ErrNotFound)
}

func TestComputed_UntypedValueHasNone(t *testing.T) {
	require.Nil(t, entities.Computed(schema.Record{"a": 1}, fixedNow))
}
