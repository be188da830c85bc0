package entities_test

import (
	"strings"
	"testing"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/stretchr/testify/require"
)

func userRecord() map[string]interface{} {
	return map[string]interface{}{
		"id":            userID,
		"email":         " Jane.Doe@Example.COM ",
		"password_hash": bcryptValue,
		"user_type":     "technician",
		"created_at":    "2025-06-19T12:00:00Z",
		"updated_at":    "2025-06-20T12:00:00Z",
	}
}

func TestUser_Valid(t *testing.T) {
	out, err := validate(t, entities.Users, schema.OpBase, userRecord())
	require.NoError(t, err)

	u := out.Value.(*entities.User)
	require.Equal(t, "jane.doe@example.com", u.Email)
	require.True(t, u.IsActive)
	require.False(t, u.EmailVerified)

	computed := entities.Computed(u, fixedNow)
	require.Equal(t, "jane.doe", computed["display_name"])
	require.Equal(t, 90, computed["account_age_days"])
	require.Equal(t, false, computed["is_verified"])
}

func TestUser_DisplayNamePrefersProfile(t *testing.T) {
	rec := userRecord()
	rec["profile"] = map[string]interface{}{"first_name": "Jane", "last_name": "Doe"}
	out, err := validate(t, entities.Users, schema.OpBase, rec)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", out.Value.(*entities.User).DisplayName())
}

func TestUser_ResponseRedactsPasswordHash(t *testing.T) {
	out, err := validate(t, entities.Users, schema.OpResponse, userRecord())
	require.NoError(t, err)

	_, hasHash := out.Record["password_hash"]
	require.False(t, hasHash)
	require.Empty(t, out.Value.(*entities.User).PasswordHash)
}

func TestUser_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		want   []string
	}{
		{
			name:   "verified without timestamp",
			mutate: func(r map[string]interface{}) { r["email_verified"] = true },
			want:   []string{"email_verified_at must be set when email_verified is true"},
		},
		{
			name:   "deleted but active",
			mutate: func(r map[string]interface{}) { r["deleted_at"] = "2025-07-01T00:00:00Z" },
			want:   []string{"Deleted users cannot be active"},
		},
		{
			name:   "not a bcrypt hash",
			mutate: func(r map[string]interface{}) { r["password_hash"] = strings.Repeat("x", 60) },
			want:   []string{"password_hash: Password hash must be a valid bcrypt hash"},
		},
		{
			name:   "short hash",
			mutate: func(r map[string]interface{}) { r["password_hash"] = "$2b$short" },
			want:   []string{"password_hash: string must have at least 60 characters"},
		},
		{
			name:   "bad email",
			mutate: func(r map[string]interface{}) { r["email"] = "jane@localhost" },
			want:   []string{"email: string does not match pattern '^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}$'"},
		},
		{
			name: "phone with too few digits",
			mutate: func(r map[string]interface{}) {
				r["profile"] = map[string]interface{}{"phone": "(12) 345-67"}
			},
			want: []string{"profile.phone: Phone number must have at least 10 digits"},
		},
		{
			name: "lockout without lock",
			mutate: func(r map[string]interface{}) {
				r["auth"] = map[string]interface{}{"failed_login_attempts": 5}
			},
			want: []string{"auth: locked_until must be set when failed_login_attempts >= 5"},
		},
		{
			name:   "login before account",
			mutate: func(r map[string]interface{}) { r["last_login_at"] = "2025-01-01T00:00:00Z" },
			want:   []string{"last_login_at cannot be before created_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := userRecord()
			tt.mutate(rec)
			require.Equal(t, tt.want, violations(t, entities.Users, schema.OpBase, rec))
		})
	}
}

func TestUser_CreateRequiresPassword(t *testing.T) {
	msgs := violations(t, entities.Users, schema.OpCreate, map[string]interface{}{
		"email":     "jane@example.com",
		"user_type": "customer",
	})
	require.Equal(t, []string{"password: field required"}, msgs)
}

func TestUser_CreateRejectsHash(t *testing.T) {
	_, err := validate(t, entities.Users, schema.OpCreate, map[string]interface{}{
		"email":         "jane@example.com",
		"user_type":     "customer",
		"password":      "Secur3pass",
		"password_hash": bcryptValue,
	})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Equal(t, []string{"password_hash"}, multi.Errors[0].UnknownFields)
}

func TestPasswordChangeContract(t *testing.T) {
	c := entities.PasswordChangeContract()

	_, err := engine().Validate(c, map[string]interface{}{
		"current_password": "Old-pass1",
		"new_password":     "New-pass2",
	})
	require.NoError(t, err)

	_, err = engine().Validate(c, map[string]interface{}{
		"current_password": "Same-pass1",
		"new_password":     "Same-pass1",
	})
	var multi *schema.MultiValidationError
	require.ErrorAs(t, err, &multi)
	require.Equal(t, []string{"New password must be different from current password"}, multi.Messages())

	_, err = engine().Validate(c, map[string]interface{}{
		"current_password": "x",
		"new_password":     "weakpassword",
	})
	require.ErrorAs(t, err, &multi)
	require.Equal(t, []string{
		"new_password: New password must contain at least 3 of: lowercase, uppercase, digit, special character",
	}, multi.Messages())
}
