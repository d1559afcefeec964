package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OwnerRole identifies whose money an earning record is
type OwnerRole string

const (
	RoleSeller OwnerRole = "SELLER"
	RoleAgent  OwnerRole = "AGENT"
)

// EarningStatus is the settlement state of an earning record
type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "PENDING"
	EarningStatusAvailable EarningStatus = "AVAILABLE"
	EarningStatusWithdrawn EarningStatus = "WITHDRAWN"
	EarningStatusOnHold    EarningStatus = "ON_HOLD"
)

// EarningRecord is one party's take from one delivered order. The net
// amount is frozen at creation; settlement only moves the record through
// maturation and withdrawal. WithdrawnAmount tracks the portion already
// consumed by payouts, so a record can be split across several of them.
type EarningRecord struct {
	shared.BaseAggregateRoot
	OwnerID          uuid.UUID         `gorm:"type:uuid;not null;index:idx_earnings_owner_status"`
	Role             OwnerRole         `gorm:"type:varchar(10);not null"`
	OrderID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	GrossAmount      valueobject.Money `gorm:"type:decimal(18,2);not null"`
	CommissionRate   decimal.Decimal   `gorm:"type:decimal(7,4);not null;default:0"`
	CommissionAmount valueobject.Money `gorm:"type:decimal(18,2);not null"`
	BonusAmount      valueobject.Money `gorm:"type:decimal(18,2);not null"`
	NetAmount        valueobject.Money `gorm:"type:decimal(18,2);not null"`
	WithdrawnAmount  valueobject.Money `gorm:"type:decimal(18,2);not null"`
	Status           EarningStatus     `gorm:"type:varchar(15);not null;index:idx_earnings_owner_status"`
	AvailableDate    time.Time         `gorm:"not null;index"`
	HoldReason       string            `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (EarningRecord) TableName() string {
	return "earning_records"
}

// NewEarningRecord creates a pending earning that matures after the
// given period. Net must equal gross minus commission plus bonus; the
// caller computes those through a fee policy.
func NewEarningRecord(
	ownerID uuid.UUID,
	role OwnerRole,
	orderID uuid.UUID,
	gross valueobject.Money,
	commissionRate decimal.Decimal,
	commission valueobject.Money,
	bonus valueobject.Money,
	maturation time.Duration,
) (*EarningRecord, error) {
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if role != RoleSeller && role != RoleAgent {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown owner role")
	}

	afterCommission, err := gross.Sub(commission)
	if err != nil {
		return nil, err
	}
	net, err := afterCommission.Add(bonus)
	if err != nil {
		return nil, err
	}
	if net.IsNegative() {
		return nil, shared.NewDomainError("NEGATIVE_NET", "Net earning cannot be negative")
	}

	return &EarningRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OwnerID:           ownerID,
		Role:              role,
		OrderID:           orderID,
		GrossAmount:       gross,
		CommissionRate:    commissionRate,
		CommissionAmount:  commission,
		BonusAmount:       bonus,
		NetAmount:         net,
		WithdrawnAmount:   valueobject.Zero(gross.Currency()),
		Status:            EarningStatusPending,
		AvailableDate:     time.Now().Add(maturation),
	}, nil
}

// RemainingAmount is the portion not yet consumed by payouts
func (e *EarningRecord) RemainingAmount() valueobject.Money {
	remaining, err := e.NetAmount.Sub(e.WithdrawnAmount)
	if err != nil {
		return valueobject.Zero(e.NetAmount.Currency())
	}
	return remaining
}

// Mature flips a pending record to available once its date has passed.
// Returns true when the flip happened.
func (e *EarningRecord) Mature(now time.Time) bool {
	if e.Status != EarningStatusPending || now.Before(e.AvailableDate) {
		return false
	}
	e.Status = EarningStatusAvailable
	e.touch()
	e.AddDomainEvent(NewEarningMaturedEvent(e))
	return true
}

// Allocate consumes part of the record for a payout. The record must be
// available and the amount must not exceed the remainder. A fully
// consumed record moves to WITHDRAWN.
func (e *EarningRecord) Allocate(amount valueobject.Money) error {
	if e.Status != EarningStatusAvailable {
		return shared.NewDomainError("NOT_AVAILABLE", "Earning is not available for withdrawal")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.GreaterThan(e.RemainingAmount()) {
		return shared.ErrInsufficientBalance
	}

	withdrawn, err := e.WithdrawnAmount.Add(amount)
	if err != nil {
		return err
	}
	e.WithdrawnAmount = withdrawn
	if e.RemainingAmount().IsZero() {
		e.Status = EarningStatusWithdrawn
	}
	e.touch()
	return nil
}

// RevertAllocation gives back a previously allocated amount after a
// payout is rejected
func (e *EarningRecord) RevertAllocation(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Revert amount must be positive")
	}
	if amount.GreaterThan(e.WithdrawnAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Revert exceeds withdrawn amount")
	}

	withdrawn, err := e.WithdrawnAmount.Sub(amount)
	if err != nil {
		return err
	}
	e.WithdrawnAmount = withdrawn
	if e.Status == EarningStatusWithdrawn {
		e.Status = EarningStatusAvailable
	}
	e.touch()
	return nil
}

// Hold freezes the record out of payout matching (dispute, fraud review)
func (e *EarningRecord) Hold(reason string) error {
	if e.Status == EarningStatusWithdrawn {
		return shared.NewDomainError("ALREADY_WITHDRAWN", "Withdrawn earnings cannot be held")
	}
	e.Status = EarningStatusOnHold
	e.HoldReason = reason
	e.touch()
	return nil
}

// ReleaseHold puts a held record back into circulation. It lands in
// PENDING or AVAILABLE depending on its maturation date.
func (e *EarningRecord) ReleaseHold() error {
	if e.Status != EarningStatusOnHold {
		return shared.NewDomainError("NOT_ON_HOLD", "Earning is not on hold")
	}
	e.HoldReason = ""
	if time.Now().Before(e.AvailableDate) {
		e.Status = EarningStatusPending
	} else {
		e.Status = EarningStatusAvailable
	}
	e.touch()
	return nil
}

func (e *EarningRecord) touch() {
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
}
