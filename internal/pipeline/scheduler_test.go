package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/storage/memory"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("every tuesday", nil, nil)
	assert.ErrorContains(t, err, `invalid schedule "every tuesday"`)
}

func TestScheduler_Next(t *testing.T) {
	s, err := NewScheduler("0 * * * *", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 17, 13, 0, 0, 0, time.UTC), s.Next(fixedNow.Add(5*time.Minute)))
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	runner := newTestRunner(t, newWarehouse(map[string]memory.Table{"users": healthyUsers()}), Options{})

	reports := make(chan *report.Report, 1)
	s, err := NewScheduler("@every 1h", runner, func(rep *report.Report) { reports <- rep })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case rep := <-reports:
		assert.Equal(t, report.ExitSuccess, rep.ExitCode)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not run on start")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
