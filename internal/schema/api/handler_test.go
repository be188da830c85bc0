package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/metrics"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 9, 17, 12, 0, 0, 0, time.UTC)

const equipmentBody = `{
	"id": "7c9e6679-7425-40de-944b-e07fc1f90ae7",
	"identification_primary": " 1hgcm82633a004352 ",
	"identification_primary_type": "vin",
	"category": "vehicle",
	"make": "Honda",
	"model_year": 2015,
	"purchase_price": "20000",
	"current_value": "12000",
	"created_at": "2025-01-01T00:00:00Z",
	"updated_at": "2025-02-01T00:00:00Z"
}`

func newRouter(t *testing.T, opts ...ServiceOption) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := schema.NewEngine(schema.WithClock(func() time.Time { return fixedNow }))
	svc := NewService(entities.NewRegistry(), engine, opts...)

	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestHandleList_ReturnsEveryEntity(t *testing.T) {
	resp := serve(newRouter(t), http.MethodGet, "/v1/contracts", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body []EntitySummary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body, len(entities.Entities()))
	require.Equal(t, "equipment_registry", body[0].Entity)
	require.Equal(t, []string{"base", "create", "update", "response"}, body[0].Operations)
	for _, e := range body {
		require.Positive(t, e.FieldCount, e.Entity)
	}
}

func TestHandleGet_DescribesOperationVariant(t *testing.T) {
	resp := serve(newRouter(t), http.MethodGet, "/v1/contracts/users?op=create", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ContractResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "users", body.Entity)
	require.Equal(t, "create", body.Operation)

	var names []string
	for _, f := range body.Fields {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "password")
	require.NotContains(t, names, "password_hash")
}

func TestHandleValidate_AcceptsRecord(t *testing.T) {
	resp := serve(newRouter(t), http.MethodPost, "/v1/contracts/equipment_registry/validate", equipmentBody)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "equipment_registry", body["entity"])
	assert.Equal(t, "base", body["operation"])
	assert.Equal(t, []interface{}{}, body["warnings"])
	assert.NotContains(t, body, "computed")

	value, ok := body["value"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1HGCM82633A004352", value["identification_primary"])
	assert.Equal(t, "active", value["status"])
}

func TestHandleValidate_ResponseIncludesComputed(t *testing.T) {
	resp := serve(newRouter(t), http.MethodPost, "/v1/contracts/equipment_registry/validate?op=response", equipmentBody)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	computed, ok := decodeBody(t, resp)["computed"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(10), computed["age_years"])
	assert.Equal(t, false, computed["is_vintage"])
}

func TestHandleValidate_ContractViolation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := newRouter(t, WithMetrics(m))

	body := strings.Replace(equipmentBody, `"category": "vehicle"`, `"category": "spaceship"`, 1)
	body = strings.Replace(body, `"identification_primary_type": "vin",`, "", 1)

	resp := serve(r, http.MethodPost, "/v1/contracts/equipment_registry/validate", body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	decoded := decodeBody(t, resp)
	assert.Equal(t, "contract_violation", decoded["error_type"])

	details, ok := decoded["details"].(map[string]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"identification_primary_type", "category"}, details["fields"])
	violations, ok := details["violations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, violations, 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.RecordValidations.WithLabelValues("equipment_registry", "base", "invalid")))
	assert.Equal(t, float64(0), testutil.ToFloat64(
		m.RecordValidations.WithLabelValues("equipment_registry", "base", "valid")))
}

func TestHandleValidate_RequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantType   string
	}{
		{
			name:       "unknown entity",
			target:     "/v1/contracts/invoices/validate",
			body:       "{}",
			wantStatus: http.StatusNotFound,
			wantType:   "entity_not_found",
		},
		{
			name:       "unknown operation",
			target:     "/v1/contracts/users/validate?op=delete",
			body:       "{}",
			wantStatus: http.StatusBadRequest,
			wantType:   "unsupported_operation",
		},
		{
			name:       "malformed json",
			target:     "/v1/contracts/users/validate",
			body:       `{"email": `,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_json",
		},
		{
			name:       "json array",
			target:     "/v1/contracts/users/validate",
			body:       `[{"email": "a@b.co"}]`,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_json",
		},
		{
			name:       "json null",
			target:     "/v1/contracts/users/validate",
			body:       `null`,
			wantStatus: http.StatusBadRequest,
			wantType:   "invalid_json",
		},
	}

	r := newRouter(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(r, http.MethodPost, tc.target, tc.body)
			require.Equal(t, tc.wantStatus, resp.Code)
			require.Equal(t, tc.wantType, decodeBody(t, resp)["error_type"])
		})
	}
}

func TestHandleValidate_BodyTooLarge(t *testing.T) {
	r := newRouter(t, WithMaxBodySize(1))

	oversized := `{"notes": "` + strings.Repeat("x", 1024*1024) + `"}`
	resp := serve(r, http.MethodPost, "/v1/contracts/equipment_registry/validate", oversized)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	require.Equal(t, "invalid_json", decodeBody(t, resp)["error_type"])
}
