package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appinv "github.com/marketplace/backend/internal/application/inventory"
	"github.com/marketplace/backend/internal/application/notify"
	appsettlement "github.com/marketplace/backend/internal/application/settlement"
	"github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/application/txn"
	domain "github.com/marketplace/backend/internal/domain/delivery"
	orderdomain "github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
)

// VerificationService drives handover verification. A successful
// verification, the order's move to DELIVERED and the earnings it
// produces commit in one transaction; the optimistic version check on
// the delivery row guarantees at most one submission of a secret wins.
type VerificationService struct {
	scope      txn.Scope
	deliveries domain.DeliveryRepository
	tokens     TokenStore
	earnings   *appsettlement.EarningFactory
	settings   settings.Provider
	notifier   notify.Notifier
	eventBus   shared.EventPublisher
	logger     *zap.Logger
}

// NewVerificationService creates the delivery application service
func NewVerificationService(
	scope txn.Scope,
	deliveries domain.DeliveryRepository,
	tokens TokenStore,
	earnings *appsettlement.EarningFactory,
	settingsProvider settings.Provider,
	notifier notify.Notifier,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		scope:      scope,
		deliveries: deliveries,
		tokens:     tokens,
		earnings:   earnings,
		settings:   settingsProvider,
		notifier:   notifier,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// GetDelivery loads the handover record for an order
func (s *VerificationService) GetDelivery(ctx context.Context, orderID uuid.UUID) (*DeliveryResponse, error) {
	dlv, err := s.deliveries.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toDeliveryResponse(dlv), nil
}

// GetHandoverQR returns the encoded QR document for the buyer's app.
// Only the buyer of the order may fetch it.
func (s *VerificationService) GetHandoverQR(ctx context.Context, orderID, requesterID uuid.UUID) (*HandoverQRResponse, error) {
	dlv, err := s.deliveries.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if dlv.BuyerID != requesterID {
		return nil, shared.ErrForbidden
	}
	if !dlv.HasSecret() || dlv.SecretExpired(time.Now()) {
		return nil, shared.ErrCodeExpired
	}

	// The database keeps only a digest; the cache holds the plaintext.
	// A lost cache entry means the payload cannot be rebuilt, so the
	// buyer resends the secret.
	token, ok, err := s.tokens.TokenFor(ctx, dlv.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrCodeExpired
	}

	payload := domain.QRPayload{
		OrderID:  dlv.OrderID,
		Token:    token,
		IssuedAt: *dlv.CodeIssuedAt,
	}
	encoded, err := payload.Encode()
	if err != nil {
		return nil, err
	}
	return &HandoverQRResponse{
		OrderID:   dlv.OrderID,
		Payload:   encoded,
		ExpiresAt: *dlv.CodeExpiresAt,
	}, nil
}

// ResendSecret invalidates the current handover secret and issues a
// fresh one to the buyer. Only the buyer may request it.
func (s *VerificationService) ResendSecret(ctx context.Context, orderID, requesterID uuid.UUID) (*DeliveryResponse, error) {
	var dlv *domain.Delivery
	var plainCode, orderNumber string

	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		dlv, err = repos.Deliveries.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if dlv.BuyerID != requesterID {
			return shared.ErrForbidden
		}
		if ord, err := repos.Orders.FindByID(ctx, orderID); err == nil {
			orderNumber = ord.OrderNumber
		}
		version := dlv.GetVersion()

		code, err := domain.GenerateOTP()
		if err != nil {
			return err
		}
		token, err := domain.GenerateQRToken()
		if err != nil {
			return err
		}
		ttl, err := s.settings.GetDuration(ctx, settings.KeyOTPExpiryMinutes, time.Minute)
		if err != nil {
			return err
		}
		if err := dlv.IssueSecret(code, token, ttl); err != nil {
			return err
		}
		plainCode = code

		if err := repos.Deliveries.SaveWithLock(ctx, dlv, version); err != nil {
			return err
		}
		// Link replaces the prior token under both keys.
		return s.tokens.Link(ctx, dlv.ID, token, ttl)
	})
	if err != nil {
		return nil, err
	}

	s.publishDeliveryEvents(ctx, dlv)
	if err := s.notifier.HandoverCodeIssued(ctx, dlv.BuyerID, orderNumber, plainCode, *dlv.CodeExpiresAt); err != nil {
		s.logger.Warn("failed to notify buyer of reissued code", zap.Error(err))
	}
	return toDeliveryResponse(dlv), nil
}

// VerifyByCode completes a handover with the buyer-spoken code. The
// verifier must be the assigned agent.
func (s *VerificationService) VerifyByCode(ctx context.Context, req VerifyCodeRequest) (*DeliveryResponse, error) {
	load := func(ctx context.Context, repos *txn.Repositories) (*domain.Delivery, error) {
		dlv, err := repos.Deliveries.FindByOrderID(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		if dlv.AgentID != req.VerifierID {
			return nil, shared.ErrForbidden
		}
		return dlv, nil
	}
	return s.verify(ctx, load, func(dlv *domain.Delivery) error {
		return dlv.VerifyCode(req.Code, req.VerifierID)
	})
}

// VerifyByQR completes a handover with a scanned QR payload
func (s *VerificationService) VerifyByQR(ctx context.Context, req VerifyQRRequest) (*DeliveryResponse, error) {
	payload, err := domain.DecodeQRPayload(req.Payload)
	if err != nil {
		return nil, err
	}

	load := func(ctx context.Context, repos *txn.Repositories) (*domain.Delivery, error) {
		dlv, err := s.resolveByToken(ctx, repos, payload)
		if err != nil {
			return nil, err
		}
		if dlv.OrderID != payload.OrderID {
			return nil, shared.ErrInvalidCode
		}
		if dlv.AgentID != req.VerifierID {
			return nil, shared.ErrForbidden
		}
		return dlv, nil
	}
	return s.verify(ctx, load, func(dlv *domain.Delivery) error {
		return dlv.VerifyQRToken(payload.Token, req.VerifierID)
	})
}

// FailDelivery abandons an in-transit handover that will not complete,
// a buyer who never answers or refuses the goods. The order fails with
// a refund, the goods return to stock and the secret dies, all in one
// transaction. Only the assigned agent may report it.
func (s *VerificationService) FailDelivery(ctx context.Context, req FailDeliveryRequest) (*DeliveryResponse, error) {
	var dlv *domain.Delivery
	var ord *orderdomain.Order
	var stockEvents []shared.DomainEvent

	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		dlv, err = repos.Deliveries.FindByOrderID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if dlv.AgentID != req.VerifierID {
			return shared.ErrForbidden
		}
		version := dlv.GetVersion()

		ord, err = repos.Orders.FindByID(ctx, dlv.OrderID)
		if err != nil {
			return err
		}
		orderVersion := ord.GetVersion()

		wasPaid := ord.PaymentStatus == orderdomain.PaymentStatusPaid
		if err := ord.FailDelivery(req.Reason); err != nil {
			return err
		}
		if err := dlv.MarkFailed(req.Reason); err != nil {
			return err
		}

		if wasPaid {
			lines := make([]appinv.ReservationLine, 0, len(ord.Items))
			for _, item := range ord.Items {
				lines = append(lines, appinv.ReservationLine{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
				})
			}
			if stockEvents, err = appinv.RestockLines(ctx, repos, ord.OrderNumber, lines, req.VerifierID); err != nil {
				return err
			}
		}

		if err := repos.Deliveries.SaveWithLock(ctx, dlv, version); err != nil {
			return err
		}
		return repos.Orders.SaveWithLock(ctx, ord, orderVersion)
	})
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Invalidate(ctx, dlv.ID); err != nil {
		s.logger.Debug("failed to drop dead qr token", zap.Error(err))
	}
	s.publishDeliveryEvents(ctx, dlv)
	for _, event := range ord.GetDomainEvents() {
		s.publish(ctx, event)
	}
	ord.ClearDomainEvents()
	for _, event := range stockEvents {
		s.publish(ctx, event)
	}
	s.notifyStatus(ctx, ord)
	return toDeliveryResponse(dlv), nil
}

// verify runs one verification attempt. The attempt counter persists
// even when the code was wrong, so failed guesses are not free; the
// optimistic version check makes a consumed secret lose every race.
func (s *VerificationService) verify(
	ctx context.Context,
	load func(ctx context.Context, repos *txn.Repositories) (*domain.Delivery, error),
	check func(dlv *domain.Delivery) error,
) (*DeliveryResponse, error) {
	var dlv *domain.Delivery
	var ord *orderdomain.Order
	var settleEvents []shared.DomainEvent
	var verifyErr error

	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		dlv, err = load(ctx, repos)
		if err != nil {
			return err
		}
		version := dlv.GetVersion()

		verifyErr = check(dlv)
		if verifyErr != nil {
			// Persist the failed attempt, then surface the error.
			return repos.Deliveries.SaveWithLock(ctx, dlv, version)
		}

		ord, err = repos.Orders.FindByID(ctx, dlv.OrderID)
		if err != nil {
			return err
		}
		orderVersion := ord.GetVersion()
		if err := ord.CompleteDelivery(); err != nil {
			return err
		}

		if err := repos.Deliveries.SaveWithLock(ctx, dlv, version); err != nil {
			return err
		}
		if err := repos.Orders.SaveWithLock(ctx, ord, orderVersion); err != nil {
			return err
		}

		settleEvents, err = s.earnings.CreateForDeliveredOrder(ctx, repos, ord, dlv)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishDeliveryEvents(ctx, dlv)
	if verifyErr != nil {
		return nil, verifyErr
	}

	if err := s.tokens.Invalidate(ctx, dlv.ID); err != nil {
		s.logger.Debug("failed to drop consumed qr token", zap.Error(err))
	}
	if ord != nil {
		for _, event := range ord.GetDomainEvents() {
			s.publish(ctx, event)
		}
		ord.ClearDomainEvents()
		s.notifyStatus(ctx, ord)
	}
	for _, event := range settleEvents {
		s.publish(ctx, event)
	}
	return toDeliveryResponse(dlv), nil
}

func (s *VerificationService) resolveByToken(ctx context.Context, repos *txn.Repositories, payload *domain.QRPayload) (*domain.Delivery, error) {
	if id, ok, err := s.tokens.Resolve(ctx, payload.Token); err == nil && ok {
		if dlv, err := repos.Deliveries.FindByID(ctx, id); err == nil {
			return dlv, nil
		}
	}
	dlv, err := repos.Deliveries.FindByQRTokenHash(ctx, domain.HashQRToken(payload.Token))
	if err != nil {
		return nil, shared.ErrInvalidCode
	}
	return dlv, nil
}

func (s *VerificationService) publishDeliveryEvents(ctx context.Context, dlv *domain.Delivery) {
	if dlv == nil {
		return
	}
	for _, event := range dlv.GetDomainEvents() {
		s.publish(ctx, event)
	}
	dlv.ClearDomainEvents()
}

func (s *VerificationService) publish(ctx context.Context, event shared.DomainEvent) {
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish delivery event",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}

func (s *VerificationService) notifyStatus(ctx context.Context, ord *orderdomain.Order) {
	if err := s.notifier.OrderStatusChanged(ctx, ord.BuyerID, ord.OrderNumber, string(ord.Status)); err != nil {
		s.logger.Debug("delivery notification failed", zap.Error(err))
	}
}
