package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/marketplace/backend/internal/domain/settlement"
)

// RequestPayoutRequest opens a withdrawal of matured earnings
type RequestPayoutRequest struct {
	OwnerID       uuid.UUID       `json:"-"`
	Role          string          `json:"-"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	AccountDetail string          `json:"account_detail" binding:"required"`
}

// ReviewPayoutRequest decides a pending payout
type ReviewPayoutRequest struct {
	PayoutID   uuid.UUID `json:"-"`
	ReviewerID uuid.UUID `json:"-"`
	Approve    bool      `json:"approve"`
	Reason     string    `json:"reason"`
}

// CompletePayoutRequest records the disbursement result
type CompletePayoutRequest struct {
	PayoutID   uuid.UUID `json:"-"`
	PaymentRef string    `json:"payment_ref" binding:"required"`
}

// BalanceResponse is an owner's settlement position
type BalanceResponse struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	Available string    `json:"available"`
	Pending   string    `json:"pending"`
	Withdrawn string    `json:"withdrawn"`
	Currency  string    `json:"currency"`
}

// EarningResponse is the API shape of an earning record
type EarningResponse struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	Role            string    `json:"role"`
	GrossAmount     string    `json:"gross_amount"`
	CommissionAmount string   `json:"commission_amount"`
	BonusAmount     string    `json:"bonus_amount"`
	NetAmount       string    `json:"net_amount"`
	WithdrawnAmount string    `json:"withdrawn_amount"`
	Status          string    `json:"status"`
	AvailableDate   time.Time `json:"available_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// PayoutResponse is the API shape of a payout request
type PayoutResponse struct {
	ID            uuid.UUID  `json:"id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	Amount        string     `json:"amount"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	RejectReason  string     `json:"reject_reason,omitempty"`
	PaymentRef    string     `json:"payment_ref,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toEarningResponse(e *domain.EarningRecord) *EarningResponse {
	return &EarningResponse{
		ID:               e.ID,
		OrderID:          e.OrderID,
		Role:             string(e.Role),
		GrossAmount:      e.GrossAmount.String(),
		CommissionAmount: e.CommissionAmount.String(),
		BonusAmount:      e.BonusAmount.String(),
		NetAmount:        e.NetAmount.String(),
		WithdrawnAmount:  e.WithdrawnAmount.String(),
		Status:           string(e.Status),
		AvailableDate:    e.AvailableDate,
		CreatedAt:        e.CreatedAt,
	}
}

func toPayoutResponse(p *domain.PayoutRequest) *PayoutResponse {
	return &PayoutResponse{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Amount:        p.Amount.String(),
		Status:        string(p.Status),
		PaymentMethod: p.PaymentMethod,
		RejectReason:  p.RejectReason,
		PaymentRef:    p.PaymentRef,
		CompletedAt:   p.CompletedAt,
		CreatedAt:     p.CreatedAt,
	}
}
