package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bloemhof/grocer-cli/internal/model"
)

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd-efgh"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "aaaaaaaa-1111-2222-3333-444444444444",
			Requirement: "weekboodschappen voor twee personen en nog wat",
			Status:      model.RunCompleted,
			Target:      50,
			Result:      &model.ReconciliationResult{FinalTotal: 52.30, AddedCount: 7, TargetMet: true},
			CreatedAt:   created,
		},
		{
			ID:          "bbbbbbbb-1111-2222-3333-444444444444",
			Requirement: "ontbijt",
			Status:      model.RunRunning,
			Target:      50,
			CreatedAt:   created,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "aaaaaaaa")
	assert.Contains(t, out, "€52.30")
	assert.Contains(t, out, "completed")
	// Long requirements are truncated for the table.
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "twee personen en nog wat")
	// A run without a result shows placeholders, not zeros.
	assert.Contains(t, out, "-")
	assert.Contains(t, out, "2026-03-14 09:30")
}
