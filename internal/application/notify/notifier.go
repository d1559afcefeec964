// Package notify defines the outbound notification port. The core
// never blocks on a notification channel; implementations deliver on a
// best-effort basis and failures are logged, not returned to buyers.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notifier delivers user-facing messages
type Notifier interface {
	// HandoverCodeIssued sends the buyer their delivery verification
	// code. This is the only place the plaintext code leaves the core.
	HandoverCodeIssued(ctx context.Context, buyerID uuid.UUID, orderNumber, code string, expiresAt time.Time) error

	// OrderStatusChanged tells a party their order moved
	OrderStatusChanged(ctx context.Context, userID uuid.UUID, orderNumber, status string) error

	// PayoutReviewed tells an owner their withdrawal was decided
	PayoutReviewed(ctx context.Context, ownerID uuid.UUID, amount, status, reason string) error
}
