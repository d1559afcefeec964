package delivery

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// DeliveryStatus is the verification state of a handover
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "PENDING"
	DeliveryStatusVerified DeliveryStatus = "VERIFIED"
	DeliveryStatusFailed   DeliveryStatus = "FAILED"
)

// MaxVerifyAttempts is the number of wrong codes tolerated before the
// secret is invalidated and must be reissued.
const MaxVerifyAttempts = 5

// Delivery is the aggregate root for handover verification, one per
// order. It carries a single-use secret in two forms backed by the same
// issuance: a short numeric code spoken by the buyer and a QR token
// scanned by the agent. Neither secret is stored in the clear: the
// numeric code keeps only a bcrypt hash and the QR token only a SHA-256
// digest. Plaintext exists in the buyer's notification and the token
// cache. Either form consumes the secret exactly once.
type Delivery struct {
	shared.BaseAggregateRoot
	OrderID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	BuyerID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	AgentID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status        DeliveryStatus `gorm:"type:varchar(20);not null;index"`
	CodeHash      string         `gorm:"type:varchar(100)"`
	QRTokenHash   string         `gorm:"type:varchar(64);index"`
	CodeIssuedAt  *time.Time
	CodeExpiresAt *time.Time
	VerifiedAt    *time.Time
	VerifiedBy    *uuid.UUID      `gorm:"type:uuid"`
	Attempts      int             `gorm:"not null;default:0"`
	DistanceKm    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0"`
	FailReason    string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Delivery) TableName() string {
	return "deliveries"
}

// NewDelivery creates the verification record when an agent is assigned
func NewDelivery(orderID, buyerID, agentID uuid.UUID, distanceKm decimal.Decimal) (*Delivery, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if agentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_AGENT", "Agent ID cannot be empty")
	}
	if distanceKm.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISTANCE", "Distance cannot be negative")
	}

	return &Delivery{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		BuyerID:           buyerID,
		AgentID:           agentID,
		Status:            DeliveryStatusPending,
		DistanceKm:        distanceKm,
	}, nil
}

// IssueSecret stores a freshly generated handover secret, replacing any
// previous one. Reissuing invalidates the prior code and QR token and
// resets the attempt counter.
func (d *Delivery) IssueSecret(plainCode, qrToken string, ttl time.Duration) error {
	if d.Status != DeliveryStatusPending {
		return shared.NewDomainError("NOT_PENDING", "Delivery is not awaiting verification")
	}
	if ttl <= 0 {
		return shared.NewDomainError("INVALID_TTL", "Secret lifetime must be positive")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainCode), bcrypt.DefaultCost)
	if err != nil {
		return shared.NewDomainError("HASH_FAILED", "Failed to hash verification code")
	}

	now := time.Now()
	expires := now.Add(ttl)
	d.CodeHash = string(hash)
	d.QRTokenHash = HashQRToken(qrToken)
	d.CodeIssuedAt = &now
	d.CodeExpiresAt = &expires
	d.Attempts = 0
	d.touch()

	d.AddDomainEvent(NewSecretIssuedEvent(d))
	return nil
}

// VerifyCode checks a buyer-spoken numeric code. On success the secret
// is consumed and the delivery marked verified. Wrong codes count
// against the attempt budget; exhausting it invalidates the secret so a
// new one must be issued. Error messages never distinguish a wrong code
// from a consumed one.
func (d *Delivery) VerifyCode(plainCode string, verifier uuid.UUID) error {
	if err := d.checkVerifiable(); err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(d.CodeHash), []byte(plainCode)) != nil {
		d.recordFailedAttempt()
		return shared.ErrInvalidCode
	}

	d.markVerified(verifier)
	return nil
}

// VerifyQRToken checks a scanned QR token against the stored digest.
// The comparison is constant-time on the digest; the same single-use
// and expiry rules as VerifyCode apply.
func (d *Delivery) VerifyQRToken(token string, verifier uuid.UUID) error {
	if err := d.checkVerifiable(); err != nil {
		return err
	}

	if token == "" || subtle.ConstantTimeCompare([]byte(HashQRToken(token)), []byte(d.QRTokenHash)) != 1 {
		d.recordFailedAttempt()
		return shared.ErrInvalidCode
	}

	d.markVerified(verifier)
	return nil
}

// MarkFailed terminates a handover that will never complete
func (d *Delivery) MarkFailed(reason string) error {
	if d.Status != DeliveryStatusPending {
		return shared.NewDomainError("NOT_PENDING", "Delivery is not awaiting verification")
	}
	d.Status = DeliveryStatusFailed
	d.FailReason = reason
	d.invalidateSecret()
	d.touch()
	return nil
}

// SecretExpired reports whether the current secret is past its lifetime
func (d *Delivery) SecretExpired(now time.Time) bool {
	return d.CodeExpiresAt != nil && now.After(*d.CodeExpiresAt)
}

// HasSecret reports whether a usable secret is currently issued
func (d *Delivery) HasSecret() bool {
	return d.CodeHash != ""
}

func (d *Delivery) checkVerifiable() error {
	if d.Status == DeliveryStatusVerified {
		// Consumed secrets fail the same way as wrong ones.
		return shared.ErrInvalidCode
	}
	if d.Status != DeliveryStatusPending || !d.HasSecret() {
		return shared.ErrInvalidCode
	}
	if d.SecretExpired(time.Now()) {
		return shared.ErrCodeExpired
	}
	if d.Attempts >= MaxVerifyAttempts {
		return shared.ErrInvalidCode
	}
	return nil
}

func (d *Delivery) recordFailedAttempt() {
	d.Attempts++
	if d.Attempts >= MaxVerifyAttempts {
		d.invalidateSecret()
		d.AddDomainEvent(NewAttemptsExhaustedEvent(d))
	}
	d.touch()
}

func (d *Delivery) markVerified(verifier uuid.UUID) {
	now := time.Now()
	d.Status = DeliveryStatusVerified
	d.VerifiedAt = &now
	d.VerifiedBy = &verifier
	d.invalidateSecret()
	d.touch()

	d.AddDomainEvent(NewDeliveryVerifiedEvent(d))
}

func (d *Delivery) invalidateSecret() {
	d.CodeHash = ""
	d.QRTokenHash = ""
	d.CodeExpiresAt = nil
}

func (d *Delivery) touch() {
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
}
