package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// ProductInfo is the slice of the catalog an order snapshot needs
type ProductInfo struct {
	ID       uuid.UUID
	SellerID uuid.UUID
	Name     string
	Price    valueobject.Money
}

// ProductCatalog resolves product ids at placement time. Prices and
// names are copied onto the order; later catalog edits never touch
// placed orders.
type ProductCatalog interface {
	Lookup(ctx context.Context, productID uuid.UUID) (*ProductInfo, error)
}

// DistanceCalculator estimates the delivery distance from a seller's
// pickup point to a dropoff coordinate
type DistanceCalculator interface {
	DistanceKm(ctx context.Context, sellerID uuid.UUID, dropLat, dropLng float64) (decimal.Decimal, error)
}

// TokenLinker hands a freshly issued QR token to the token cache. The
// handover record stores only a digest, so issuance must park the
// plaintext in the cache or the buyer's QR payload cannot be built.
type TokenLinker interface {
	Link(ctx context.Context, deliveryID uuid.UUID, token string, ttl time.Duration) error
}

// AgentCandidate is an on-duty agent with a last reported position
type AgentCandidate struct {
	ID  uuid.UUID
	Lat float64
	Lng float64
}

// AgentFinder lists agents currently accepting deliveries.
// Auto-assignment picks the candidate closest to the seller's pickup
// point.
type AgentFinder interface {
	AvailableAgents(ctx context.Context) ([]AgentCandidate, error)
}
