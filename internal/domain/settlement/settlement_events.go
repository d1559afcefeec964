package settlement

import (
	"github.com/marketplace/backend/internal/domain/shared"
)

// Settlement domain event types
const (
	EventEarningCreated  = "settlement.earning_created"
	EventEarningMatured  = "settlement.earning_matured"
	EventPayoutRequested = "settlement.payout_requested"
	EventPayoutCompleted = "settlement.payout_completed"
	EventPayoutRejected  = "settlement.payout_rejected"
)

// EarningCreatedEvent is raised when a delivered order produces an
// earning record
type EarningCreatedEvent struct {
	shared.BaseDomainEvent
	OwnerID   string `json:"owner_id"`
	Role      string `json:"role"`
	OrderID   string `json:"order_id"`
	NetAmount string `json:"net_amount"`
}

func NewEarningCreatedEvent(e *EarningRecord) *EarningCreatedEvent {
	return &EarningCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventEarningCreated, "EarningRecord", e.ID),
		OwnerID:         e.OwnerID.String(),
		Role:            string(e.Role),
		OrderID:         e.OrderID.String(),
		NetAmount:       e.NetAmount.String(),
	}
}

// EarningMaturedEvent is raised when an earning becomes withdrawable
type EarningMaturedEvent struct {
	shared.BaseDomainEvent
	OwnerID   string `json:"owner_id"`
	NetAmount string `json:"net_amount"`
}

func NewEarningMaturedEvent(e *EarningRecord) *EarningMaturedEvent {
	return &EarningMaturedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventEarningMatured, "EarningRecord", e.ID),
		OwnerID:         e.OwnerID.String(),
		NetAmount:       e.NetAmount.String(),
	}
}

// PayoutRequestedEvent is raised when a withdrawal is opened
type PayoutRequestedEvent struct {
	shared.BaseDomainEvent
	OwnerID string `json:"owner_id"`
	Amount  string `json:"amount"`
}

func NewPayoutRequestedEvent(p *PayoutRequest) *PayoutRequestedEvent {
	return &PayoutRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPayoutRequested, "PayoutRequest", p.ID),
		OwnerID:         p.OwnerID.String(),
		Amount:          p.Amount.String(),
	}
}

// PayoutCompletedEvent is raised when the disbursement settles
type PayoutCompletedEvent struct {
	shared.BaseDomainEvent
	OwnerID    string `json:"owner_id"`
	Amount     string `json:"amount"`
	PaymentRef string `json:"payment_ref"`
}

func NewPayoutCompletedEvent(p *PayoutRequest) *PayoutCompletedEvent {
	return &PayoutCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPayoutCompleted, "PayoutRequest", p.ID),
		OwnerID:         p.OwnerID.String(),
		Amount:          p.Amount.String(),
		PaymentRef:      p.PaymentRef,
	}
}

// PayoutRejectedEvent is raised when a review declines the withdrawal
type PayoutRejectedEvent struct {
	shared.BaseDomainEvent
	OwnerID string `json:"owner_id"`
	Amount  string `json:"amount"`
	Reason  string `json:"reason"`
}

func NewPayoutRejectedEvent(p *PayoutRequest, reason string) *PayoutRejectedEvent {
	return &PayoutRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPayoutRejected, "PayoutRequest", p.ID),
		OwnerID:         p.OwnerID.String(),
		Amount:          p.Amount.String(),
		Reason:          reason,
	}
}
