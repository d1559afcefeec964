package delivery

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/marketplace/backend/internal/domain/delivery"
)

// VerifyCodeRequest submits a buyer-spoken handover code
type VerifyCodeRequest struct {
	OrderID    uuid.UUID `json:"-"`
	Code       string    `json:"code" binding:"required"`
	VerifierID uuid.UUID `json:"-"`
}

// VerifyQRRequest submits a scanned QR payload
type VerifyQRRequest struct {
	Payload    string    `json:"payload" binding:"required"`
	VerifierID uuid.UUID `json:"-"`
}

// FailDeliveryRequest abandons a handover that will not complete
type FailDeliveryRequest struct {
	OrderID    uuid.UUID `json:"-"`
	Reason     string    `json:"reason" binding:"required"`
	VerifierID uuid.UUID `json:"-"`
}

// DeliveryResponse is the API shape of a handover record
type DeliveryResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	AgentID       uuid.UUID  `json:"agent_id"`
	Status        string     `json:"status"`
	DistanceKm    string     `json:"distance_km"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	Attempts      int        `json:"attempts"`
}

// HandoverQRResponse carries the encoded QR document the buyer's app
// renders for the agent to scan
type HandoverQRResponse struct {
	OrderID   uuid.UUID `json:"order_id"`
	Payload   string    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toDeliveryResponse(d *domain.Delivery) *DeliveryResponse {
	return &DeliveryResponse{
		ID:            d.ID,
		OrderID:       d.OrderID,
		AgentID:       d.AgentID,
		Status:        string(d.Status),
		DistanceKm:    d.DistanceKm.String(),
		CodeExpiresAt: d.CodeExpiresAt,
		VerifiedAt:    d.VerifiedAt,
		Attempts:      d.Attempts,
	}
}
