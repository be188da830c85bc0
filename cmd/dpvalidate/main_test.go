package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const equipmentJSON = `{"id": "7c9e6679-7425-40de-944b-e07fc1f90ae7", "identification_primary": "1HGCM82633A004352", "identification_primary_type": "vin", "category": "vehicle", "model_year": 2015, "created_at": "2025-01-01T00:00:00Z", "updated_at": "2025-02-01T00:00:00Z"}`

const warehouseFixture = `
dataset: diagnosticpro_prod
tables:
  users:
    columns:
      - {name: user_id, type: STRING}
      - {name: email, type: STRING}
      - {name: created_at, type: TIMESTAMP}
      - {name: updated_at, type: TIMESTAMP}
    aggregates:
      timestamp_audit:
        total_rows: 10
        null_created_at: 0
        null_updated_at: 0
        future_created_at: 0
        invalid_updated_at: 0
      freshness:
        latest_created_at: now-20h
        latest_updated_at: now-2h
        total_rows: 10
`

// execute runs the root command and returns stdout and the process exit code.
func execute(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	code := exitCodeOf(err, &stderr)
	t.Log(stderr.String())
	return stdout.String(), code
}

// writeWorkspace lays out a fixture, a documents directory and a config file
// pointing at both, and returns the config path.
func writeWorkspace(t *testing.T, docs map[string]string) string {
	t.Helper()
	root := t.TempDir()

	fixturePath := filepath.Join(root, "warehouse.yaml")
	require.NoError(t, os.WriteFile(fixturePath, []byte(warehouseFixture), 0o644))

	docsDir := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	for name, body := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(docsDir, name), []byte(body), 0o644))
	}

	cfg := "warehouse:\n" +
		"  type: memory\n" +
		"  fixture_path: " + fixturePath + "\n" +
		"documents:\n" +
		"  dir: " + docsDir + "\n"
	cfgPath := filepath.Join(root, "dpvalidate.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func TestExitCodeOf(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, exitCodeOf(nil, &stderr))
	assert.Equal(t, 2, exitCodeOf(withCode(2, nil), &stderr))
	assert.Empty(t, stderr.String())

	assert.Equal(t, 1, exitCodeOf(withCode(1, os.ErrNotExist), &stderr))
	assert.Contains(t, stderr.String(), "Error: file does not exist")
}

func TestValidate_NDJSONReportsEveryRecord(t *testing.T) {
	rejected := strings.Replace(equipmentJSON, `"category": "vehicle"`, `"category": "spaceship"`, 1)

	out, code := execute(t, equipmentJSON+"\n"+rejected+"\n", "validate", "--entity", "equipment_registry")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "record 1: valid\n")
	assert.Contains(t, out, "record 2: invalid: category: value must be one of:")
}

func TestValidate_JSONArrayAllValid(t *testing.T) {
	out, code := execute(t, "["+equipmentJSON+","+equipmentJSON+"]", "validate", "-e", "equipment_registry", "-o", "json")
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		var res recordResult
		require.NoError(t, json.Unmarshal([]byte(line), &res))
		assert.Equal(t, i+1, res.Index)
		assert.True(t, res.Valid)
	}
}

func TestValidate_ResponseIncludesComputed(t *testing.T) {
	out, code := execute(t, equipmentJSON, "validate", "-e", "equipment_registry", "--op", "response", "-o", "json")
	require.Equal(t, 0, code)

	var res recordResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res.Computed, "age_years")
	assert.Contains(t, res.Computed, "is_vintage")
}

func TestValidate_UsageErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "unknown entity", stdin: equipmentJSON, args: []string{"validate", "-e", "invoices"}},
		{name: "unknown operation", stdin: equipmentJSON, args: []string{"validate", "-e", "users", "--op", "delete"}},
		{name: "empty input", stdin: "  \n", args: []string{"validate", "-e", "users"}},
		{name: "malformed json", stdin: `{"id": `, args: []string{"validate", "-e", "users"}},
		{name: "missing entity flag", stdin: equipmentJSON, args: []string{"validate"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, code := execute(t, tc.stdin, tc.args...)
			assert.Equal(t, 1, code)
		})
	}
}

func TestContracts_List(t *testing.T) {
	out, code := execute(t, "", "contracts")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "equipment_registry")
	assert.Contains(t, out, "base,create,update,response")

	out, code = execute(t, "", "contracts", "-o", "json")
	require.Equal(t, 0, code)
	var list []contractSummary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 8)
	assert.Equal(t, "reddit_diagnostic_posts", list[7].Entity)
}

func TestContracts_DescribeVariant(t *testing.T) {
	out, code := execute(t, "", "contracts", "-e", "users", "--op", "create", "-o", "json")
	require.Equal(t, 0, code)

	var detail contractDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, "create", detail.Operation)

	var names []string
	for _, f := range detail.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "password")
	assert.NotContains(t, names, "id")
}

func TestRun_ExitCodes(t *testing.T) {
	tableContracts := `
tables:
  users:
    schema:
      required_fields: [user_id, email]
      fields:
        user_id: {type: STRING}
        email: {type: STRING}
`
	brokenContracts := strings.Replace(tableContracts, "[user_id, email]", "[user_id, email, phone]", 1)

	tests := []struct {
		name     string
		docs     map[string]string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "warnings pass with fail-on error",
			docs:     map[string]string{"S2_table_contracts.yaml": tableContracts},
			wantCode: 0,
			wantOut:  "No SLA configuration found for users",
		},
		{
			name:     "warnings fail with fail-on warn",
			docs:     map[string]string{"S2_table_contracts.yaml": tableContracts},
			args:     []string{"--fail-on", "warn"},
			wantCode: 2,
		},
		{
			name:     "missing required column",
			docs:     map[string]string{"S2_table_contracts.yaml": brokenContracts},
			wantCode: 1,
			wantOut:  "Required field 'phone' missing from schema",
		},
		{
			name:     "no matching tables",
			args:     []string{"--tables", "parts_*"},
			wantCode: 1,
			wantOut:  "No matching tables found",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfgPath := writeWorkspace(t, tc.docs)
			args := append([]string{"run", "--config", cfgPath}, tc.args...)

			out, code := execute(t, "", args...)
			assert.Equal(t, tc.wantCode, code)
			assert.Contains(t, out, "VALIDATION RESULTS")
			if tc.wantOut != "" {
				assert.Contains(t, out, tc.wantOut)
			}
		})
	}
}

func TestRun_JSONOutput(t *testing.T) {
	cfgPath := writeWorkspace(t, nil)

	out, code := execute(t, "", "run", "--config", cfgPath, "--output", "json", "--dataset", "diagnosticpro_prod")
	require.Equal(t, 0, code)

	var rep struct {
		Dataset  string   `json:"dataset_id"`
		Tables   []string `json:"tables"`
		ExitCode int      `json:"exit_code"`
		Warnings []string `json:"configuration_warnings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "diagnosticpro_prod", rep.Dataset)
	assert.Equal(t, []string{"users"}, rep.Tables)
	assert.Equal(t, 0, rep.ExitCode)
	assert.NotEmpty(t, rep.Warnings, "missing documents degrade to warnings")
}

func TestRun_StartupFailures(t *testing.T) {
	cfgPath := writeWorkspace(t, nil)

	_, code := execute(t, "", "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code, "unreadable config")

	_, code = execute(t, "", "run", "--config", cfgPath, "--output", "xml")
	assert.Equal(t, 1, code, "bad output format")

	_, code = execute(t, "", "run", "--config", cfgPath, "--fail-on", "sometimes")
	assert.Equal(t, 1, code, "bad fail-on")

	_, code = execute(t, "", "run", "--config", cfgPath, "--dataset", "other_dataset")
	assert.Equal(t, 1, code, "listing failure yields no tables")
}
