package order_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketplace/backend/internal/application/apptest"
	apporder "github.com/marketplace/backend/internal/application/order"
	"github.com/marketplace/backend/internal/application/txn"
	deliverydomain "github.com/marketplace/backend/internal/domain/delivery"
	invdomain "github.com/marketplace/backend/internal/domain/inventory"
	orderdomain "github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
)

type orderFixture struct {
	svc      *apporder.OrderService
	repos    *txn.Repositories
	catalog  *apptest.Catalog
	notifier *apptest.Notifier
	bus      *apptest.EventRecorder
	agents   *apptest.Agents
	distance *apptest.Distance
	tokens   *apptest.TokenStore

	sellerID  uuid.UUID
	buyerID   uuid.UUID
	productID uuid.UUID
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	scope, repos := apptest.NewScope()
	catalog := apptest.NewCatalog()
	notifier := &apptest.Notifier{}
	bus := &apptest.EventRecorder{}

	f := &orderFixture{
		repos:    repos,
		catalog:  catalog,
		notifier: notifier,
		bus:      bus,
		agents:   &apptest.Agents{},
		distance: &apptest.Distance{Km: decimal.NewFromInt(5)},
		tokens:   apptest.NewTokenStore(),
		sellerID: uuid.New(),
		buyerID:  uuid.New(),
	}
	f.productID = catalog.Add(f.sellerID, "Injera Basket", decimal.NewFromInt(250))
	f.seedStock(t, f.productID, 10)

	f.svc = apporder.NewOrderService(
		scope, repos.Orders, catalog, f.distance,
		f.agents, f.tokens, apptest.NewSettingsProvider(), notifier, bus, zap.NewNop(),
	)
	return f
}

func (f *orderFixture) seedStock(t *testing.T, productID uuid.UUID, qty int64) {
	t.Helper()
	ctx := context.Background()
	record, err := invdomain.NewInventoryRecord(productID, f.sellerID)
	require.NoError(t, err)
	require.NoError(t, record.Restock(decimal.NewFromInt(qty)))
	record.ClearDomainEvents()
	require.NoError(t, f.repos.Inventory.Save(ctx, record))
}

func (f *orderFixture) placeOrder(t *testing.T, qty int64) *apporder.OrderResponse {
	t.Helper()
	resp, err := f.svc.PlaceOrder(context.Background(), apporder.PlaceOrderRequest{
		BuyerID:         f.buyerID,
		SellerID:        f.sellerID,
		Items:           []apporder.PlaceOrderItem{{ProductID: f.productID, Quantity: decimal.NewFromInt(qty)}},
		DeliveryAddress: "Bole, Addis Ababa",
	})
	require.NoError(t, err)
	return resp
}

func (f *orderFixture) stock(t *testing.T) *invdomain.InventoryRecord {
	t.Helper()
	record, err := f.repos.Inventory.FindByProductID(context.Background(), f.productID)
	require.NoError(t, err)
	return record
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newOrderFixture(t)
	resp := f.placeOrder(t, 2)

	assert.Equal(t, string(orderdomain.OrderStatusPlaced), resp.Status)
	assert.Equal(t, string(orderdomain.PaymentStatusPending), resp.PaymentStatus)
	assert.Equal(t, "500.00 ETB", resp.Subtotal)
	// base 50 + 5km * 10 = 100, above the 60 floor
	assert.Equal(t, "100.00 ETB", resp.DeliveryFee)
	assert.Equal(t, "600.00 ETB", resp.TotalAmount)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-[0-9a-f]{8}$`), resp.OrderNumber)

	t.Run("reserves the stock", func(t *testing.T) {
		record := f.stock(t)
		assert.True(t, record.ReservedStock.Equal(decimal.NewFromInt(2)))
		assert.True(t, record.StockQuantity.Equal(decimal.NewFromInt(10)))
	})

	t.Run("rejects a foreign seller's product", func(t *testing.T) {
		otherProduct := f.catalog.Add(uuid.New(), "Someone else's", decimal.NewFromInt(10))
		_, err := f.svc.PlaceOrder(context.Background(), apporder.PlaceOrderRequest{
			BuyerID:         f.buyerID,
			SellerID:        f.sellerID,
			Items:           []apporder.PlaceOrderItem{{ProductID: otherProduct, Quantity: decimal.NewFromInt(1)}},
			DeliveryAddress: "Bole, Addis Ababa",
		})
		require.Error(t, err)
	})

	t.Run("insufficient stock aborts placement", func(t *testing.T) {
		_, err := f.svc.PlaceOrder(context.Background(), apporder.PlaceOrderRequest{
			BuyerID:         f.buyerID,
			SellerID:        f.sellerID,
			Items:           []apporder.PlaceOrderItem{{ProductID: f.productID, Quantity: decimal.NewFromInt(50)}},
			DeliveryAddress: "Bole, Addis Ababa",
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		count, countErr := f.repos.Orders.Count(context.Background(), shared.DefaultFilter())
		require.NoError(t, countErr)
		assert.Equal(t, int64(1), count, "aborted placement must not persist an order")
	})
}

func TestOrderService_HandlePaymentCallback(t *testing.T) {
	t.Run("success deducts stock and approves", func(t *testing.T) {
		f := newOrderFixture(t)
		placed := f.placeOrder(t, 3)

		resp, err := f.svc.HandlePaymentCallback(context.Background(), apporder.PaymentCallbackRequest{
			OrderNumber: placed.OrderNumber,
			PaymentRef:  "TXN-100",
			Success:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, string(orderdomain.OrderStatusApproved), resp.Status)
		assert.Equal(t, string(orderdomain.PaymentStatusPaid), resp.PaymentStatus)
		require.NotNil(t, resp.PaidAt)

		record := f.stock(t)
		assert.True(t, record.StockQuantity.Equal(decimal.NewFromInt(7)))
		assert.True(t, record.ReservedStock.IsZero())
	})

	t.Run("duplicate success callback is a no-op", func(t *testing.T) {
		f := newOrderFixture(t)
		placed := f.placeOrder(t, 3)
		req := apporder.PaymentCallbackRequest{OrderNumber: placed.OrderNumber, PaymentRef: "TXN-101", Success: true}

		_, err := f.svc.HandlePaymentCallback(context.Background(), req)
		require.NoError(t, err)
		_, err = f.svc.HandlePaymentCallback(context.Background(), req)
		require.NoError(t, err)

		record := f.stock(t)
		assert.True(t, record.StockQuantity.Equal(decimal.NewFromInt(7)), "stock must not be deducted twice")
	})

	t.Run("failure releases the hold and fails the order", func(t *testing.T) {
		f := newOrderFixture(t)
		placed := f.placeOrder(t, 3)

		resp, err := f.svc.HandlePaymentCallback(context.Background(), apporder.PaymentCallbackRequest{
			OrderNumber: placed.OrderNumber,
			Success:     false,
			Reason:      "card declined",
		})
		require.NoError(t, err)
		assert.Equal(t, string(orderdomain.OrderStatusFailed), resp.Status)
		assert.Equal(t, string(orderdomain.PaymentStatusFailed), resp.PaymentStatus)

		record := f.stock(t)
		assert.True(t, record.ReservedStock.IsZero())
		assert.True(t, record.StockQuantity.Equal(decimal.NewFromInt(10)))
	})

	t.Run("unknown order number", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.svc.HandlePaymentCallback(context.Background(), apporder.PaymentCallbackRequest{
			OrderNumber: "ORD-00000000-deadbeef",
			Success:     true,
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestOrderService_AssignAgent(t *testing.T) {
	f := newOrderFixture(t)
	placed := f.placeOrder(t, 1)
	_, err := f.svc.HandlePaymentCallback(context.Background(), apporder.PaymentCallbackRequest{
		OrderNumber: placed.OrderNumber, PaymentRef: "TXN-102", Success: true,
	})
	require.NoError(t, err)

	agentID := uuid.New()
	resp, err := f.svc.AssignAgent(context.Background(), apporder.AssignAgentRequest{
		OrderID: placed.ID,
		AgentID: agentID,
	})
	require.NoError(t, err)
	assert.Equal(t, string(orderdomain.OrderStatusAssigned), resp.Status)
	require.NotNil(t, resp.AgentID)
	assert.Equal(t, agentID, *resp.AgentID)

	t.Run("creates the handover record with a live secret", func(t *testing.T) {
		dlv, err := f.repos.Deliveries.FindByOrderID(context.Background(), placed.ID)
		require.NoError(t, err)
		assert.Equal(t, agentID, dlv.AgentID)
		assert.True(t, dlv.HasSecret())
		assert.True(t, dlv.DistanceKm.Equal(decimal.NewFromInt(5)))
	})

	t.Run("parks the plaintext token in the cache, the row keeps a digest", func(t *testing.T) {
		dlv, err := f.repos.Deliveries.FindByOrderID(context.Background(), placed.ID)
		require.NoError(t, err)

		token, ok, err := f.tokens.TokenFor(context.Background(), dlv.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotEqual(t, token, dlv.QRTokenHash)
		assert.Equal(t, deliverydomain.HashQRToken(token), dlv.QRTokenHash)
	})

	t.Run("notifies the buyer with a six digit code", func(t *testing.T) {
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), f.notifier.LastCode())
	})

	t.Run("cannot assign before payment", func(t *testing.T) {
		unpaid := f.placeOrder(t, 1)
		_, err := f.svc.AssignAgent(context.Background(), apporder.AssignAgentRequest{
			OrderID: unpaid.ID,
			AgentID: uuid.New(),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})
}

func TestOrderService_PublishesStockEvents(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	// Reserving the whole shelf flips availability to sold out.
	placed := f.placeOrder(t, 10)
	assert.Contains(t, f.bus.Types(), "inventory.stock_reserved")
	assert.Contains(t, f.bus.Types(), "inventory.availability_changed")

	_, err := f.svc.HandlePaymentCallback(ctx, apporder.PaymentCallbackRequest{
		OrderNumber: placed.OrderNumber, PaymentRef: "TXN-110", Success: true,
	})
	require.NoError(t, err)
	assert.Contains(t, f.bus.Types(), "inventory.stock_deducted")
}

func TestOrderService_AutoAssign(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	placed := f.placeOrder(t, 1)
	_, err := f.svc.HandlePaymentCallback(ctx, apporder.PaymentCallbackRequest{
		OrderNumber: placed.OrderNumber, PaymentRef: "TXN-104", Success: true,
	})
	require.NoError(t, err)

	t.Run("fails when no agent is on duty", func(t *testing.T) {
		_, err := f.svc.AssignAgent(ctx, apporder.AssignAgentRequest{OrderID: placed.ID})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NO_AGENT_AVAILABLE", domainErr.Code)
	})

	t.Run("picks the agent closest to the seller", func(t *testing.T) {
		nearID := uuid.New()
		farID := uuid.New()
		f.agents.Candidates = []apporder.AgentCandidate{
			{ID: farID, Lat: 9.1000, Lng: 38.8000},
			{ID: nearID, Lat: 9.0105, Lng: 38.7613},
		}
		f.distance.Fn = func(_ uuid.UUID, lat, _ float64) decimal.Decimal {
			if lat == 9.0105 {
				return decimal.NewFromInt(2)
			}
			return decimal.NewFromInt(9)
		}

		resp, err := f.svc.AssignAgent(ctx, apporder.AssignAgentRequest{OrderID: placed.ID})
		require.NoError(t, err)
		assert.Equal(t, string(orderdomain.OrderStatusAssigned), resp.Status)
		require.NotNil(t, resp.AgentID)
		assert.Equal(t, nearID, *resp.AgentID)
	})
}

func TestOrderService_StartDelivery(t *testing.T) {
	f := newOrderFixture(t)
	placed := f.placeOrder(t, 1)
	ctx := context.Background()
	_, err := f.svc.HandlePaymentCallback(ctx, apporder.PaymentCallbackRequest{
		OrderNumber: placed.OrderNumber, PaymentRef: "TXN-103", Success: true,
	})
	require.NoError(t, err)
	agentID := uuid.New()
	_, err = f.svc.AssignAgent(ctx, apporder.AssignAgentRequest{OrderID: placed.ID, AgentID: agentID})
	require.NoError(t, err)

	t.Run("only the assigned agent may start", func(t *testing.T) {
		_, err := f.svc.StartDelivery(ctx, placed.ID, uuid.New())
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	resp, err := f.svc.StartDelivery(ctx, placed.ID, agentID)
	require.NoError(t, err)
	assert.Equal(t, string(orderdomain.OrderStatusInTransit), resp.Status)
}

func TestOrderService_CancelOrder(t *testing.T) {
	t.Run("unpaid cancellation frees the reservation", func(t *testing.T) {
		f := newOrderFixture(t)
		placed := f.placeOrder(t, 4)

		resp, err := f.svc.CancelOrder(context.Background(), apporder.CancelOrderRequest{
			OrderID: placed.ID,
			Reason:  "changed my mind",
			ActorID: f.buyerID,
		})
		require.NoError(t, err)
		assert.Equal(t, string(orderdomain.OrderStatusCancelled), resp.Status)
		assert.Equal(t, string(orderdomain.PaymentStatusPending), resp.PaymentStatus)

		record := f.stock(t)
		assert.True(t, record.ReservedStock.IsZero())
		assert.True(t, record.StockQuantity.Equal(decimal.NewFromInt(10)))
	})

	t.Run("paid cancellation restocks and refunds", func(t *testing.T) {
		f := newOrderFixture(t)
		placed := f.placeOrder(t, 4)
		_, err := f.svc.HandlePaymentCallback(context.Background(), apporder.PaymentCallbackRequest{
			OrderNumber: placed.OrderNumber, PaymentRef: "TXN-104", Success: true,
		})
		require.NoError(t, err)

		resp, err := f.svc.CancelOrder(context.Background(), apporder.CancelOrderRequest{
			OrderID: placed.ID,
			Reason:  "seller out of capacity",
			ActorID: f.sellerID,
		})
		require.NoError(t, err)
		assert.Equal(t, string(orderdomain.OrderStatusCancelled), resp.Status)
		assert.Equal(t, string(orderdomain.PaymentStatusRefunded), resp.PaymentStatus)

		record := f.stock(t)
		assert.True(t, record.StockQuantity.Equal(decimal.NewFromInt(10)), "deducted goods return on refund")
	})

	t.Run("delivered orders cannot be cancelled", func(t *testing.T) {
		f := newOrderFixture(t)
		placed := f.placeOrder(t, 1)
		ctx := context.Background()
		_, err := f.svc.HandlePaymentCallback(ctx, apporder.PaymentCallbackRequest{
			OrderNumber: placed.OrderNumber, PaymentRef: "TXN-105", Success: true,
		})
		require.NoError(t, err)
		agentID := uuid.New()
		_, err = f.svc.AssignAgent(ctx, apporder.AssignAgentRequest{OrderID: placed.ID, AgentID: agentID})
		require.NoError(t, err)
		_, err = f.svc.StartDelivery(ctx, placed.ID, agentID)
		require.NoError(t, err)

		ord, err := f.repos.Orders.FindByID(ctx, placed.ID)
		require.NoError(t, err)
		require.NoError(t, ord.CompleteDelivery())
		require.NoError(t, f.repos.Orders.Save(ctx, ord))

		_, err = f.svc.CancelOrder(ctx, apporder.CancelOrderRequest{
			OrderID: placed.ID, Reason: "too late", ActorID: f.buyerID,
		})
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})
}

func TestOrderService_StatusSummary(t *testing.T) {
	f := newOrderFixture(t)
	f.placeOrder(t, 1)
	f.placeOrder(t, 1)

	summary, err := f.svc.StatusSummary(context.Background(), &f.sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Counts[string(orderdomain.OrderStatusPlaced)])
}

func TestExpirationService_ExpireStaleOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	scope := &txn.NoOpScope{Repos: f.repos}
	sweep := apporder.NewExpirationService(scope, f.repos.Orders, apptest.NewSettingsProvider(), f.bus, zap.NewNop())

	stale := f.placeOrder(t, 2)
	fresh := f.placeOrder(t, 1)

	ord, err := f.repos.Orders.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	ord.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, f.repos.Orders.Save(ctx, ord))

	expired, err := sweep.ExpireStaleOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	t.Run("stale order cancelled and hold released", func(t *testing.T) {
		ord, err := f.repos.Orders.FindByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, orderdomain.OrderStatusCancelled, ord.Status)

		record := f.stock(t)
		assert.True(t, record.ReservedStock.Equal(decimal.NewFromInt(1)), "only the fresh order's hold remains")
	})

	t.Run("fresh order untouched", func(t *testing.T) {
		ord, err := f.repos.Orders.FindByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, orderdomain.OrderStatusPlaced, ord.Status)
	})

	t.Run("paid orders never expire", func(t *testing.T) {
		paid := f.placeOrder(t, 1)
		_, err := f.svc.HandlePaymentCallback(ctx, apporder.PaymentCallbackRequest{
			OrderNumber: paid.OrderNumber, PaymentRef: "TXN-106", Success: true,
		})
		require.NoError(t, err)
		ord, err := f.repos.Orders.FindByID(ctx, paid.ID)
		require.NoError(t, err)
		ord.CreatedAt = time.Now().Add(-2 * time.Hour)
		require.NoError(t, f.repos.Orders.Save(ctx, ord))

		expired, err := sweep.ExpireStaleOrders(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, expired)
	})
}
