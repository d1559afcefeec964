// Package notification implements the outbound notification port.
// The log notifier stands in for SMS and push gateways: it records the
// full message intent in structured logs, redacting the handover code
// so the plaintext secret never lands on disk.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketplace/backend/internal/application/notify"
)

// LogNotifier implements notify.Notifier on the structured logger
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ notify.Notifier = (*LogNotifier)(nil)

// HandoverCodeIssued logs that a code was sent. The code itself is
// never logged; only its expiry is.
func (n *LogNotifier) HandoverCodeIssued(ctx context.Context, buyerID uuid.UUID, orderNumber, code string, expiresAt time.Time) error {
	n.logger.Info("handover code issued",
		zap.String("buyer_id", buyerID.String()),
		zap.String("order_number", orderNumber),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

// OrderStatusChanged logs an order status notification
func (n *LogNotifier) OrderStatusChanged(ctx context.Context, userID uuid.UUID, orderNumber, status string) error {
	n.logger.Info("order status notification",
		zap.String("user_id", userID.String()),
		zap.String("order_number", orderNumber),
		zap.String("status", status),
	)
	return nil
}

// PayoutReviewed logs a payout decision notification
func (n *LogNotifier) PayoutReviewed(ctx context.Context, ownerID uuid.UUID, amount, status, reason string) error {
	n.logger.Info("payout decision notification",
		zap.String("owner_id", ownerID.String()),
		zap.String("amount", amount),
		zap.String("status", status),
		zap.String("reason", reason),
	)
	return nil
}
