package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// EarningRepository persists earning records
type EarningRepository interface {
	shared.Repository[*EarningRecord]

	// FindByOwnerID lists an owner's earnings
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*EarningRecord], error)

	// FindByOrderID lists the earnings an order produced
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*EarningRecord, error)

	// FindAvailableByOwner loads available earnings oldest-first with a
	// row-level lock, for payout matching inside a transaction
	FindAvailableByOwner(ctx context.Context, ownerID uuid.UUID) ([]*EarningRecord, error)

	// FindMaturable lists pending earnings whose available date has
	// passed, for the maturation sweep
	FindMaturable(ctx context.Context, asOf time.Time, limit int) ([]*EarningRecord, error)

	// SaveWithLock persists the record with an optimistic concurrency
	// check on the version column
	SaveWithLock(ctx context.Context, earning *EarningRecord, expectedVersion int) error
}

// PayoutRepository persists payout requests
type PayoutRepository interface {
	shared.Repository[*PayoutRequest]

	// FindByOwnerID lists an owner's payout requests
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*PayoutRequest], error)

	// FindOpenByOwner returns the owner's non-terminal payout, if any
	FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*PayoutRequest, error)

	// FindByStatus lists payouts in a given state, for admin review
	FindByStatus(ctx context.Context, status PayoutStatus, filter shared.Filter) (*shared.Paginated[*PayoutRequest], error)

	// SaveWithLock persists the payout with an optimistic concurrency
	// check on the version column
	SaveWithLock(ctx context.Context, payout *PayoutRequest, expectedVersion int) error
}
