package delivery

import (
	"github.com/marketplace/backend/internal/domain/shared"
)

// Delivery domain event types
const (
	EventSecretIssued      = "delivery.secret_issued"
	EventDeliveryVerified  = "delivery.verified"
	EventAttemptsExhausted = "delivery.attempts_exhausted"
)

// SecretIssuedEvent is raised when a handover secret is generated.
// A notification handler delivers the plaintext code to the buyer;
// the event itself never carries it.
type SecretIssuedEvent struct {
	shared.BaseDomainEvent
	OrderID  string `json:"order_id"`
	BuyerID  string `json:"buyer_id"`
	AgentID  string `json:"agent_id"`
	ExpiresAt string `json:"expires_at"`
}

func NewSecretIssuedEvent(d *Delivery) *SecretIssuedEvent {
	evt := &SecretIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventSecretIssued, "Delivery", d.ID),
		OrderID:         d.OrderID.String(),
		BuyerID:         d.BuyerID.String(),
		AgentID:         d.AgentID.String(),
	}
	if d.CodeExpiresAt != nil {
		evt.ExpiresAt = d.CodeExpiresAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return evt
}

// DeliveryVerifiedEvent is raised on a successful handover. Settlement
// and the order lifecycle both subscribe to it.
type DeliveryVerifiedEvent struct {
	shared.BaseDomainEvent
	OrderID    string `json:"order_id"`
	AgentID    string `json:"agent_id"`
	DistanceKm string `json:"distance_km"`
}

func NewDeliveryVerifiedEvent(d *Delivery) *DeliveryVerifiedEvent {
	return &DeliveryVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDeliveryVerified, "Delivery", d.ID),
		OrderID:         d.OrderID.String(),
		AgentID:         d.AgentID.String(),
		DistanceKm:      d.DistanceKm.String(),
	}
}

// AttemptsExhaustedEvent is raised when wrong codes exhaust the attempt
// budget and the secret is invalidated
type AttemptsExhaustedEvent struct {
	shared.BaseDomainEvent
	OrderID string `json:"order_id"`
	AgentID string `json:"agent_id"`
}

func NewAttemptsExhaustedEvent(d *Delivery) *AttemptsExhaustedEvent {
	return &AttemptsExhaustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventAttemptsExhausted, "Delivery", d.ID),
		OrderID:         d.OrderID.String(),
		AgentID:         d.AgentID.String(),
	}
}
