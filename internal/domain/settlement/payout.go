package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a payout request
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusApproved   PayoutStatus = "APPROVED"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusCompleted  PayoutStatus = "COMPLETED"
	PayoutStatusRejected   PayoutStatus = "REJECTED"
)

// IsTerminal reports whether the payout can change no further
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusRejected
}

// PayoutAllocation records how much of one earning record a payout
// consumed. The sum of a payout's allocations always equals its amount.
type PayoutAllocation struct {
	EarningID uuid.UUID       `json:"earning_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PayoutAllocations is stored as a JSONB column
type PayoutAllocations []PayoutAllocation

// Value implements driver.Valuer for JSONB storage
func (a PayoutAllocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSONB storage
func (a *PayoutAllocations) Scan(value interface{}) error {
	if value == nil {
		*a = PayoutAllocations{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for PayoutAllocations")
	}
	return json.Unmarshal(data, a)
}

// PayoutRequest is a withdrawal of matured earnings. At most one
// non-terminal request may exist per owner; the repository enforces
// this with a partial unique index and the service checks it up front.
type PayoutRequest struct {
	shared.BaseAggregateRoot
	OwnerID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	Role          OwnerRole         `gorm:"type:varchar(10);not null"`
	Amount        valueobject.Money `gorm:"type:decimal(18,2);not null"`
	Status        PayoutStatus      `gorm:"type:varchar(15);not null;index"`
	Allocations   PayoutAllocations `gorm:"type:jsonb"`
	PaymentMethod string            `gorm:"type:varchar(50)"`
	AccountDetail string            `gorm:"type:varchar(255)"`
	RejectReason  string            `gorm:"type:varchar(255)"`
	ReviewedBy    *uuid.UUID        `gorm:"type:uuid"`
	ReviewedAt    *time.Time
	CompletedAt   *time.Time
	PaymentRef    string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PayoutRequest) TableName() string {
	return "payout_requests"
}

// NewPayoutRequest opens a withdrawal for the given amount with the
// allocations that fund it. The allocations must sum to the amount.
func NewPayoutRequest(
	ownerID uuid.UUID,
	role OwnerRole,
	amount valueobject.Money,
	allocations PayoutAllocations,
	paymentMethod, accountDetail string,
) (*PayoutRequest, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payout amount must be positive")
	}
	if len(allocations) == 0 {
		return nil, shared.NewDomainError("NO_ALLOCATIONS", "Payout must be funded by allocations")
	}

	total := decimal.Zero
	for _, alloc := range allocations {
		if !alloc.Amount.IsPositive() {
			return nil, shared.NewDomainError("INVALID_ALLOCATION", "Allocation amounts must be positive")
		}
		total = total.Add(alloc.Amount)
	}
	if !total.Equal(amount.Amount()) {
		return nil, shared.NewDomainError("UNBALANCED_ALLOCATIONS", "Allocations must sum to the payout amount")
	}

	payout := &PayoutRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Role:              role,
		Amount:            amount,
		Status:            PayoutStatusPending,
		Allocations:       allocations,
		PaymentMethod:     paymentMethod,
		AccountDetail:     accountDetail,
	}
	payout.AddDomainEvent(NewPayoutRequestedEvent(payout))
	return payout, nil
}

// Approve moves a pending payout into processing
func (p *PayoutRequest) Approve(reviewer uuid.UUID) error {
	if p.Status != PayoutStatusPending {
		return shared.ErrInvalidTransition
	}
	now := time.Now()
	p.Status = PayoutStatusApproved
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	p.touch()
	return nil
}

// StartProcessing marks the payout as handed to the payment channel
func (p *PayoutRequest) StartProcessing() error {
	if p.Status != PayoutStatusApproved {
		return shared.ErrInvalidTransition
	}
	p.Status = PayoutStatusProcessing
	p.touch()
	return nil
}

// Complete records a successful disbursement
func (p *PayoutRequest) Complete(paymentRef string) error {
	if p.Status != PayoutStatusProcessing && p.Status != PayoutStatusApproved {
		return shared.ErrInvalidTransition
	}
	now := time.Now()
	p.Status = PayoutStatusCompleted
	p.PaymentRef = paymentRef
	p.CompletedAt = &now
	p.touch()
	p.AddDomainEvent(NewPayoutCompletedEvent(p))
	return nil
}

// Reject terminates the payout. The service reverts the funding
// allocations in the same transaction.
func (p *PayoutRequest) Reject(reviewer uuid.UUID, reason string) error {
	if p.Status.IsTerminal() {
		return shared.ErrInvalidTransition
	}
	now := time.Now()
	p.Status = PayoutStatusRejected
	p.RejectReason = reason
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &now
	p.touch()
	p.AddDomainEvent(NewPayoutRejectedEvent(p, reason))
	return nil
}

func (p *PayoutRequest) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
