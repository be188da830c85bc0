package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/pipeline"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogScheduledRun_ScheduledRunIsLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg, err := loadConfig(writeWorkspace(t, nil))
	require.NoError(t, err)
	wh, err := openWarehouse(cfg)
	require.NoError(t, err)
	defer wh.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	docs := loadDocuments(ctx, cfg)
	opts, err := pipelineOptions(cfg)
	require.NoError(t, err)

	runner := pipeline.NewRunner(wh, docs.registry, docs.catalog, opts, pipeline.WithConfigWarnings(docs.warnings))
	runs := 0
	scheduler, err := pipeline.NewScheduler("@every 1h", runner, func(rep *report.Report) {
		logScheduledRun(rep)
		runs++
		cancel()
	})
	require.NoError(t, err)
	require.NoError(t, scheduler.Start(ctx))
	require.Equal(t, 1, runs, "the immediate run reports before the first tick")

	var entry map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var candidate map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &candidate))
		if candidate["msg"] == "[Serve] Scheduled validation finished" {
			entry = candidate
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, float64(1), entry["tables"])
	assert.Equal(t, "success", entry["exit"])
	assert.NotEmpty(t, entry["run_id"])
}
