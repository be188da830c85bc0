package entities_test

import (
	"strings"
	"testing"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/stretchr/testify/require"
)

func TestValidateDTC(t *testing.T) {
	tests := []struct {
		code    string
		wantErr string
	}{
		{code: "P0301"},
		{code: "U0100"},
		{code: "X0301", wantErr: "DTC code must start with P, B, C, or U"},
		{code: "p0301", wantErr: "DTC code must start with P, B, C, or U"},
		{code: "P030", wantErr: "DTC code must be exactly 5 characters"},
		{code: "P03011", wantErr: "DTC code must be exactly 5 characters"},
		{code: "P03A1", wantErr: "DTC code must have 4 digits after the category letter"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := entities.ValidateDTC(tt.code)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestTags_Rederived(t *testing.T) {
	base := map[string]interface{}{
		"id":                          equipmentID,
		"identification_primary":      "SN-1",
		"identification_primary_type": "serial_number",
		"category":                    "tool",
	}
	with := func(tags interface{}) map[string]interface{} {
		rec := make(map[string]interface{}, len(base)+1)
		for k, v := range base {
			rec[k] = v
		}
		rec["tags"] = tags
		return rec
	}

	t.Run("lower-cased", func(t *testing.T) {
		out, err := validate(t, entities.EquipmentRegistry, schema.OpBase, with([]interface{}{"Fleet", " SEDAN "}))
		require.NoError(t, err)
		require.Equal(t, []string{"fleet", "sedan"}, out.Value.(*entities.Equipment).Tags)
	})

	t.Run("empty tag", func(t *testing.T) {
		msgs := violations(t, entities.EquipmentRegistry, schema.OpBase, with([]interface{}{"fleet", "  "}))
		require.Equal(t, []string{"tags.1: Tags must be non-empty strings"}, msgs)
	})

	t.Run("long tag", func(t *testing.T) {
		msgs := violations(t, entities.EquipmentRegistry, schema.OpBase, with([]interface{}{strings.Repeat("a", 51)}))
		require.Equal(t, []string{"tags.0: Individual tags cannot exceed 50 characters"}, msgs)
	})

	t.Run("too many", func(t *testing.T) {
		many := make([]interface{}, 21)
		for i := range many {
			many[i] = "t"
		}
		msgs := violations(t, entities.EquipmentRegistry, schema.OpBase, with(many))
		require.Equal(t, []string{"tags: Maximum 20 tags allowed"}, msgs)
	})
}

func TestPartNumber_Rederived(t *testing.T) {
	tests := []struct {
		number  string
		wantErr string
	}{
		{number: "abc-123"},
		{number: "A-B-C"},
		{number: "AB", wantErr: "part_number: Part number must be at least 3 characters"},
		{number: "-ABC", wantErr: "part_number: Part number cannot start or end with a dash"},
		{number: "ABC-", wantErr: "part_number: Part number cannot start or end with a dash"},
		{number: "AB--C", wantErr: "part_number: Part number cannot contain consecutive dashes"},
		{number: "AB_C", wantErr: "part_number: string does not match pattern '^[A-Z0-9-]+$'"},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			rec := map[string]interface{}{
				"part_id":     otherID,
				"part_number": tt.number,
				"description": "Brake pad set",
			}
			if tt.wantErr == "" {
				_, err := validate(t, entities.PartsInventory, schema.OpBase, rec)
				require.NoError(t, err)
				return
			}
			require.Equal(t, []string{tt.wantErr}, violations(t, entities.PartsInventory, schema.OpBase, rec))
		})
	}
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{password: "Secur3pass", ok: true},
		{password: "secure-pass1", ok: true},
		{password: "SECURE!PASS", ok: false},
		{password: "alllowercase", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			rec := map[string]interface{}{
				"email":     "a@example.com",
				"user_type": "customer",
				"password":  tt.password,
			}
			if tt.ok {
				_, err := validate(t, entities.Users, schema.OpCreate, rec)
				require.NoError(t, err)
				return
			}
			msgs := violations(t, entities.Users, schema.OpCreate, rec)
			require.Equal(t, []string{
				"password: Password must contain at least 3 of: lowercase, uppercase, digit, special character",
			}, msgs)
		})
	}
}
