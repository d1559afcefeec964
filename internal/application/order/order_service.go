package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinv "github.com/marketplace/backend/internal/application/inventory"
	"github.com/marketplace/backend/internal/application/notify"
	"github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/application/txn"
	deliverydomain "github.com/marketplace/backend/internal/domain/delivery"
	domain "github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// OrderService drives the order lifecycle and keeps it synchronized
// with stock and payment. Each transition runs in one transaction with
// whatever stock movement it implies.
type OrderService struct {
	scope    txn.Scope
	orders   domain.OrderRepository
	catalog  ProductCatalog
	distance DistanceCalculator
	agents   AgentFinder
	tokens   TokenLinker
	settings settings.Provider
	notifier notify.Notifier
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewOrderService creates the order application service
func NewOrderService(
	scope txn.Scope,
	orders domain.OrderRepository,
	catalog ProductCatalog,
	distance DistanceCalculator,
	agents AgentFinder,
	tokens TokenLinker,
	settingsProvider settings.Provider,
	notifier notify.Notifier,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		scope:    scope,
		orders:   orders,
		catalog:  catalog,
		distance: distance,
		agents:   agents,
		tokens:   tokens,
		settings: settingsProvider,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
	}
}

// PlaceOrder opens an order and reserves stock for it in one
// transaction. The order lands in PLACED with payment PENDING; nothing
// is deducted until the gateway confirms.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResponse, error) {
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		info, err := s.catalog.Lookup(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if info.SellerID != req.SellerID {
			return nil, shared.NewDomainError("MIXED_SELLERS", "All items must belong to the same seller")
		}
		item, err := domain.NewOrderItem(info.ID, info.SellerID, info.Name, line.Quantity, info.Price, false)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	fee, err := s.deliveryFee(ctx, req.SellerID, req.DeliveryLat, req.DeliveryLng)
	if err != nil {
		return nil, err
	}

	ord, err := domain.NewOrder(generateOrderNumber(), req.BuyerID, req.SellerID, items, fee, req.DeliveryAddress)
	if err != nil {
		return nil, err
	}
	if req.DeliveryLat != nil && req.DeliveryLng != nil {
		ord.SetDeliveryLocation(*req.DeliveryLat, *req.DeliveryLng)
	}
	ord.Notes = req.Notes

	var stockEvents []shared.DomainEvent
	err = s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		stockEvents, err = appinv.ReserveLines(ctx, repos, ord.OrderNumber, reservationLines(ord), req.BuyerID)
		if err != nil {
			return err
		}
		return repos.Orders.Save(ctx, ord)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ord)
	s.publishStockEvents(ctx, stockEvents)
	return toOrderResponse(ord), nil
}

// HandlePaymentCallback applies the gateway's verdict: success deducts
// the reserved stock and approves the order, failure releases the hold
// and terminates it. Duplicate success callbacks are no-ops.
func (s *OrderService) HandlePaymentCallback(ctx context.Context, req PaymentCallbackRequest) (*OrderResponse, error) {
	var ord *domain.Order
	var stockEvents []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		ord, err = repos.Orders.FindByOrderNumber(ctx, req.OrderNumber)
		if err != nil {
			return err
		}
		version := ord.GetVersion()

		if req.Success {
			if ord.PaymentStatus == domain.PaymentStatusPaid {
				return nil
			}
			if err := ord.ConfirmPayment(req.PaymentRef); err != nil {
				return err
			}
			if stockEvents, err = appinv.DeductLines(ctx, repos, ord.OrderNumber, reservationLines(ord), ord.BuyerID); err != nil {
				return err
			}
		} else {
			if err := ord.FailPayment(req.Reason); err != nil {
				return err
			}
			if stockEvents, err = appinv.ReleaseLines(ctx, repos, ord.OrderNumber, reservationLines(ord), ord.BuyerID); err != nil {
				return err
			}
		}
		return repos.Orders.SaveWithLock(ctx, ord, version)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ord)
	s.publishStockEvents(ctx, stockEvents)
	s.notifyStatus(ctx, ord)
	return toOrderResponse(ord), nil
}

// AssignAgent hands an approved order to a delivery agent and creates
// its handover verification record with a fresh secret. The buyer is
// notified of the code out of band. With no explicit agent the nearest
// available one is chosen.
func (s *OrderService) AssignAgent(ctx context.Context, req AssignAgentRequest) (*OrderResponse, error) {
	var ord *domain.Order
	var plainCode string
	var expiresAt time.Time

	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		ord, err = repos.Orders.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		version := ord.GetVersion()

		agentID := req.AgentID
		if agentID == uuid.Nil {
			if agentID, err = s.nearestAgent(ctx, ord.SellerID); err != nil {
				return err
			}
		}

		if err := ord.AssignAgent(agentID); err != nil {
			return err
		}

		distanceKm, err := s.orderDistance(ctx, ord)
		if err != nil {
			return err
		}

		dlv, err := deliverydomain.NewDelivery(ord.ID, ord.BuyerID, agentID, distanceKm)
		if err != nil {
			return err
		}
		plainCode, expiresAt, err = s.issueSecret(ctx, dlv)
		if err != nil {
			return err
		}

		if err := repos.Orders.SaveWithLock(ctx, ord, version); err != nil {
			return err
		}
		return repos.Deliveries.Save(ctx, dlv)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ord)
	if err := s.notifier.HandoverCodeIssued(ctx, ord.BuyerID, ord.OrderNumber, plainCode, expiresAt); err != nil {
		s.logger.Warn("failed to notify buyer of handover code",
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
	}
	return toOrderResponse(ord), nil
}

// StartDelivery marks the order picked up by its agent
func (s *OrderService) StartDelivery(ctx context.Context, orderID, agentID uuid.UUID) (*OrderResponse, error) {
	var ord *domain.Order
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		ord, err = repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if ord.AgentID == nil || *ord.AgentID != agentID {
			return shared.ErrForbidden
		}
		version := ord.GetVersion()
		if err := ord.StartDelivery(); err != nil {
			return err
		}
		return repos.Orders.SaveWithLock(ctx, ord, version)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ord)
	s.notifyStatus(ctx, ord)
	return toOrderResponse(ord), nil
}

// CancelOrder terminates an order before handover. An unpaid order just
// frees its reservation; a paid one restocks the goods and flips its
// payment to refunded.
func (s *OrderService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*OrderResponse, error) {
	var ord *domain.Order
	var stockEvents []shared.DomainEvent
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		ord, err = repos.Orders.FindByID(ctx, req.OrderID)
		if err != nil {
			return err
		}
		version := ord.GetVersion()

		wasPaid := ord.PaymentStatus == domain.PaymentStatusPaid
		if err := ord.Cancel(req.Reason); err != nil {
			return err
		}

		lines := reservationLines(ord)
		if wasPaid {
			if stockEvents, err = appinv.RestockLines(ctx, repos, ord.OrderNumber, lines, req.ActorID); err != nil {
				return err
			}
		} else {
			if stockEvents, err = appinv.ReleaseLines(ctx, repos, ord.OrderNumber, lines, req.ActorID); err != nil {
				return err
			}
		}
		return repos.Orders.SaveWithLock(ctx, ord, version)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ord)
	s.publishStockEvents(ctx, stockEvents)
	s.notifyStatus(ctx, ord)
	return toOrderResponse(ord), nil
}

// GetOrder loads one order
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	ord, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(ord), nil
}

// GetOrderByNumber loads one order by its human-facing number
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderResponse, error) {
	ord, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(ord), nil
}

// ListBuyerOrders pages through a buyer's orders
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*OrderResponse], error) {
	page, err := s.orders.FindByBuyerID(ctx, buyerID, filter)
	if err != nil {
		return nil, err
	}
	return mapPage(page), nil
}

// ListSellerOrders pages through a seller's orders
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*OrderResponse], error) {
	page, err := s.orders.FindBySellerID(ctx, sellerID, filter)
	if err != nil {
		return nil, err
	}
	return mapPage(page), nil
}

// ListAgentOrders pages through an agent's assigned orders
func (s *OrderService) ListAgentOrders(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*OrderResponse], error) {
	page, err := s.orders.FindByAgentID(ctx, agentID, filter)
	if err != nil {
		return nil, err
	}
	return mapPage(page), nil
}

// StatusSummary returns order counts per fulfillment status, optionally
// scoped to one seller
func (s *OrderService) StatusSummary(ctx context.Context, sellerID *uuid.UUID) (*StatusSummaryResponse, error) {
	counts, err := s.orders.StatusSummary(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return &StatusSummaryResponse{Counts: out}, nil
}

func (s *OrderService) deliveryFee(ctx context.Context, sellerID uuid.UUID, lat, lng *float64) (valueobject.Money, error) {
	policy, err := s.agentFeePolicy(ctx)
	if err != nil {
		return valueobject.Money{}, err
	}

	distanceKm, err := s.settings.GetDecimal(ctx, settings.KeyDefaultDistanceKm)
	if err != nil {
		return valueobject.Money{}, err
	}
	if lat != nil && lng != nil {
		if d, err := s.distance.DistanceKm(ctx, sellerID, *lat, *lng); err == nil {
			distanceKm = d
		} else {
			s.logger.Warn("distance lookup failed, using default",
				zap.String("seller_id", sellerID.String()),
				zap.Error(err))
		}
	}
	return policy.DeliveryFeeFor(distanceKm)
}

// nearestAgent ranks the available agents by straight-line distance
// from the seller's pickup point and returns the closest one.
func (s *OrderService) nearestAgent(ctx context.Context, sellerID uuid.UUID) (uuid.UUID, error) {
	candidates, err := s.agents.AvailableAgents(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(candidates) == 0 {
		return uuid.Nil, shared.NewDomainError("NO_AGENT_AVAILABLE", "No delivery agent is currently available")
	}

	best := candidates[0].ID
	bestKm := decimal.Zero
	for i, cand := range candidates {
		km, err := s.distance.DistanceKm(ctx, sellerID, cand.Lat, cand.Lng)
		if err != nil {
			return uuid.Nil, err
		}
		if i == 0 || km.LessThan(bestKm) {
			best = cand.ID
			bestKm = km
		}
	}
	return best, nil
}

func (s *OrderService) orderDistance(ctx context.Context, ord *domain.Order) (decimal.Decimal, error) {
	if ord.DeliveryLat != nil && ord.DeliveryLng != nil {
		if d, err := s.distance.DistanceKm(ctx, ord.SellerID, *ord.DeliveryLat, *ord.DeliveryLng); err == nil {
			return d, nil
		}
	}
	return s.settings.GetDecimal(ctx, settings.KeyDefaultDistanceKm)
}

func (s *OrderService) agentFeePolicy(ctx context.Context) (settlement.AgentFeePolicy, error) {
	base, err := s.settings.GetDecimal(ctx, settings.KeyBaseDeliveryFee)
	if err != nil {
		return settlement.AgentFeePolicy{}, err
	}
	perKm, err := s.settings.GetDecimal(ctx, settings.KeyPerKmRate)
	if err != nil {
		return settlement.AgentFeePolicy{}, err
	}
	min, err := s.settings.GetDecimal(ctx, settings.KeyMinDeliveryFee)
	if err != nil {
		return settlement.AgentFeePolicy{}, err
	}
	return settlement.AgentFeePolicy{
		BaseFee:   valueobject.NewMoneyETB(base),
		PerKmRate: valueobject.NewMoneyETB(perKm),
		MinFee:    valueobject.NewMoneyETB(min),
	}, nil
}

func (s *OrderService) issueSecret(ctx context.Context, dlv *deliverydomain.Delivery) (string, time.Time, error) {
	code, err := deliverydomain.GenerateOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	token, err := deliverydomain.GenerateQRToken()
	if err != nil {
		return "", time.Time{}, err
	}
	ttl, err := s.settings.GetDuration(ctx, settings.KeyOTPExpiryMinutes, time.Minute)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := dlv.IssueSecret(code, token, ttl); err != nil {
		return "", time.Time{}, err
	}
	if err := s.tokens.Link(ctx, dlv.ID, token, ttl); err != nil {
		return "", time.Time{}, err
	}
	return code, *dlv.CodeExpiresAt, nil
}

// publishStockEvents forwards the events the folded-in stock mutations
// raised (low stock, availability flips) once the transaction holding
// them has committed.
func (s *OrderService) publishStockEvents(ctx context.Context, events []shared.DomainEvent) {
	for _, event := range events {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish stock event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}

func (s *OrderService) publishEvents(ctx context.Context, ord *domain.Order) {
	for _, event := range ord.GetDomainEvents() {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish order event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	ord.ClearDomainEvents()
}

func (s *OrderService) notifyStatus(ctx context.Context, ord *domain.Order) {
	if err := s.notifier.OrderStatusChanged(ctx, ord.BuyerID, ord.OrderNumber, string(ord.Status)); err != nil {
		s.logger.Debug("order status notification failed",
			zap.String("order_number", ord.OrderNumber),
			zap.Error(err))
	}
}

func mapPage(page *shared.Paginated[*domain.Order]) *shared.Paginated[*OrderResponse] {
	items := make([]*OrderResponse, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, toOrderResponse(o))
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
}

func generateOrderNumber() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("ORD-%s-%s",
		time.Now().Format("20060102"),
		hex.EncodeToString(buf))
}
