package pipeline

import (
	"context"
	"errors"
	"testing"

	storagemocks "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/mocks/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMatchTables(t *testing.T) {
	available := []string{"users", "diagnostic_sessions", "parts_inventory", "parts_orders", "user_roles", "models"}

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"star matches all", "*", []string{"diagnostic_sessions", "models", "parts_inventory", "parts_orders", "user_roles", "users"}},
		{"empty matches all", "", []string{"diagnostic_sessions", "models", "parts_inventory", "parts_orders", "user_roles", "users"}},
		{"prefix glob", "parts_*", []string{"parts_inventory", "parts_orders"}},
		{"anchored exact name", "user", []string{}},
		{"question mark", "user?", []string{"users"}},
		{"comma list with spaces", "models, users ,", []string{"models", "users"}},
		{"overlapping globs deduplicate", "user*,users", []string{"user_roles", "users"}},
		{"regex metacharacters are literal", "parts.inventory", []string{}},
		{"no match", "orders_*", []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchTables(available, tc.pattern))
		})
	}
}

func TestResolveTables(t *testing.T) {
	wh := storagemocks.NewDataWarehouse(t)
	wh.EXPECT().ListTables(mock.Anything, "prod").Return([]string{"users", "models"}, nil).Once()
	wh.EXPECT().ListTables(mock.Anything, "missing").Return(nil, errors.New("schema does not exist")).Once()

	tables, err := ResolveTables(context.Background(), wh, "prod", "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"models", "users"}, tables)

	_, err = ResolveTables(context.Background(), wh, "missing", "*")
	assert.ErrorContains(t, err, "list tables in missing: schema does not exist")
}
