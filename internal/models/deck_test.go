package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulletsAcceptsStringOrArray(t *testing.T) {
	var s struct {
		Content Bullets `json:"content"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"content":["a","b"]}`), &s))
	assert.Equal(t, Bullets{"a", "b"}, s.Content)

	require.NoError(t, json.Unmarshal([]byte(`{"content":"single point"}`), &s))
	assert.Equal(t, Bullets{"single point"}, s.Content)

	assert.Error(t, json.Unmarshal([]byte(`{"content":42}`), &s))
}

func TestDefaultBrandAssets(t *testing.T) {
	b := DefaultBrandAssets()

	assert.Equal(t, Palette{
		Primary:    "#2563eb",
		Secondary:  "#7c3aed",
		Accent:     "#f59e0b",
		Background: "#ffffff",
		Text:       "#1f2937",
	}, b.Colors)
	assert.NotNil(t, b.Images)
	assert.Empty(t, b.Images)
	assert.Empty(t, b.Logo)
	assert.Empty(t, b.CompanyName)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusRunning.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}
