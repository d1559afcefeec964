// Package geo estimates delivery distances for fee calculation. The
// estimate is straight-line (haversine), not road distance; the per-km
// rate is calibrated for that.
package geo

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/backend/internal/application/order"
	"github.com/marketplace/backend/internal/application/settings"
)

const earthRadiusKm = 6371.0

// SellerLocator resolves a seller's pickup coordinates
type SellerLocator interface {
	PickupPoint(ctx context.Context, sellerID uuid.UUID) (lat, lng float64, ok bool, err error)
}

// HaversineCalculator implements order.DistanceCalculator using the
// great-circle distance between the seller's pickup point and the
// dropoff. Sellers without coordinates on file get the configured
// default distance so their orders still price a delivery fee.
type HaversineCalculator struct {
	locator  SellerLocator
	settings settings.Provider
}

// NewHaversineCalculator creates a distance calculator
func NewHaversineCalculator(locator SellerLocator, settings settings.Provider) *HaversineCalculator {
	return &HaversineCalculator{locator: locator, settings: settings}
}

var _ order.DistanceCalculator = (*HaversineCalculator)(nil)

// DistanceKm estimates the delivery distance in kilometers, rounded to
// three decimals
func (c *HaversineCalculator) DistanceKm(ctx context.Context, sellerID uuid.UUID, dropLat, dropLng float64) (decimal.Decimal, error) {
	pickLat, pickLng, ok, err := c.locator.PickupPoint(ctx, sellerID)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return c.settings.GetDecimal(ctx, settings.KeyDefaultDistanceKm)
	}

	km := haversineKm(pickLat, pickLng, dropLat, dropLng)
	return decimal.NewFromFloat(km).Round(3), nil
}

// haversineKm returns the great-circle distance between two coordinates
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
