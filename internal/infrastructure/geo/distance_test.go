package geo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace/backend/internal/application/apptest"
)

type fixedLocator struct {
	lat, lng float64
	known    bool
}

func (l *fixedLocator) PickupPoint(ctx context.Context, sellerID uuid.UUID) (float64, float64, bool, error) {
	return l.lat, l.lng, l.known, nil
}

func TestHaversineCalculator_DistanceKm(t *testing.T) {
	ctx := context.Background()
	settings := apptest.NewSettingsProvider()

	t.Run("computes great-circle distance", func(t *testing.T) {
		// Meskel Square to Bole International, roughly 4.3 km apart
		locator := &fixedLocator{lat: 9.0105, lng: 38.7613, known: true}
		calc := NewHaversineCalculator(locator, settings)

		km, err := calc.DistanceKm(ctx, uuid.New(), 8.9806, 38.7998)
		require.NoError(t, err)

		value, _ := km.Float64()
		assert.InDelta(t, 5.4, value, 1.0)
	})

	t.Run("zero distance for identical points", func(t *testing.T) {
		locator := &fixedLocator{lat: 9.0105, lng: 38.7613, known: true}
		calc := NewHaversineCalculator(locator, settings)

		km, err := calc.DistanceKm(ctx, uuid.New(), 9.0105, 38.7613)
		require.NoError(t, err)
		assert.True(t, km.IsZero())
	})

	t.Run("falls back to the default distance for unlocated sellers", func(t *testing.T) {
		calc := NewHaversineCalculator(&fixedLocator{known: false}, settings)

		km, err := calc.DistanceKm(ctx, uuid.New(), 8.98, 38.79)
		require.NoError(t, err)
		assert.True(t, km.Equal(decimal.NewFromInt(3)))
	})
}
