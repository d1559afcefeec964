package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenStore is a TTL cache holding the live QR token for each pending
// handover, mapped both ways. The database keeps only a digest of the
// token, so this cache is the sole holder of the plaintext: TokenFor
// rebuilds the QR payload for the buyer, Resolve turns a scanned token
// into its delivery. Resolution still degrades to a digest lookup on
// the database when the cache is cold, but a lost plaintext cannot be
// recovered; the buyer requests a fresh secret instead.
type TokenStore interface {
	Link(ctx context.Context, deliveryID uuid.UUID, token string, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (uuid.UUID, bool, error)
	TokenFor(ctx context.Context, deliveryID uuid.UUID) (string, bool, error)
	Invalidate(ctx context.Context, deliveryID uuid.UUID) error
}
