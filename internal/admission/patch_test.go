package admission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-engine/internal/eligibility"
)

func TestPatchUnmarshal(t *testing.T) {
	var p Patch
	err := json.Unmarshal([]byte(`{
		"isActive": true,
		"validFrom": null,
		"startTime": "18:00",
		"daysOfWeek": [1, 2]
	}`), &p)
	require.NoError(t, err)

	assert.True(t, p.IsActive.Set)
	assert.True(t, p.IsActive.Value)

	// key absent
	assert.False(t, p.IsPriority.Set)
	assert.False(t, p.Title.Set)

	// explicit null clears
	assert.True(t, p.ValidFrom.Set)
	assert.Nil(t, p.ValidFrom.Value)

	require.True(t, p.StartTime.Set)
	require.NotNil(t, p.StartTime.Value)
	assert.Equal(t, "18:00", p.StartTime.Value.String())

	require.True(t, p.Days.Set)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday}, p.Days.Value)
}

func TestPatchApply(t *testing.T) {
	from, _ := eligibility.ParseDate("2024-01-01")
	to, _ := eligibility.ParseDate("2024-01-31")
	base := eligibility.Promotion{
		ID:        "p1",
		Title:     "Happy Hour",
		IsActive:  false,
		ValidFrom: &from,
		ValidTo:   &to,
	}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{
		"isActive": true,
		"title": "Late Happy Hour",
		"validFrom": null,
		"validTo": null
	}`), &p))

	got := p.Apply(base)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Late Happy Hour", got.Title)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.ValidFrom)
	assert.Nil(t, got.ValidTo)

	// base untouched
	assert.False(t, base.IsActive)
	assert.NotNil(t, base.ValidFrom)
}

func TestPatchIsZero(t *testing.T) {
	var p Patch
	assert.True(t, p.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`{"isPriority": false}`), &p))
	assert.False(t, p.IsZero())
}
