package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

func TestScorecard(t *testing.T) {
	sc := models.NewScorecard(id.NewApplicationID())
	for _, d := range models.Dimensions {
		assert.Equal(t, models.DimNotReviewed, sc.Value(d))
	}
	assert.Nil(t, sc.LastInternalReviewAt)
	assert.False(t, sc.AllReady())

	actor := id.ActorID(id.NewApplicationID())
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	for _, d := range models.Dimensions {
		require.NoError(t, sc.SetDimension(d, models.DimReady, actor, now))
	}
	assert.True(t, sc.AllReady())
	require.NotNil(t, sc.LastInternalReviewAt)
	assert.Equal(t, now, *sc.LastInternalReviewAt)
	assert.Equal(t, actor, sc.UpdatedBy)

	later := now.Add(time.Minute)
	sc.SetNotes("cap table unclear", actor, later)
	assert.Equal(t, later, *sc.LastInternalReviewAt)
}

func TestParseDimension(t *testing.T) {
	_, err := models.ParseDimension("governance_controls")
	assert.NoError(t, err)
	_, err = models.ParseDimension("vibes")
	assert.Error(t, err)
	_, err = models.ParseDimensionStatus("requires_clarification")
	assert.NoError(t, err)
}

func TestScorecard_SetDimensionRejectsUnknownValues(t *testing.T) {
	sc := models.NewScorecard(id.NewApplicationID())
	actor := id.ActorID(id.NewApplicationID())
	now := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	err := sc.SetDimension("vibes", models.DimReady, actor, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	err = sc.SetDimension(models.DimensionRiskContinuity, "foo", actor, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	assert.NotContains(t, sc.Values, models.Dimension("vibes"))
	assert.Equal(t, models.DimNotReviewed, sc.Value(models.DimensionRiskContinuity))
	assert.Nil(t, sc.LastInternalReviewAt)
}
