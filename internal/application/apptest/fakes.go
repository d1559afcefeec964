// Package apptest provides in-memory implementations of the repository
// and port interfaces for application-service tests.
package apptest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appordersvc "github.com/marketplace/backend/internal/application/order"
	"github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/application/txn"
	"github.com/marketplace/backend/internal/domain/delivery"
	"github.com/marketplace/backend/internal/domain/inventory"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// NewScope wires a NoOpScope around a fresh set of in-memory repos
func NewScope() (*txn.NoOpScope, *txn.Repositories) {
	repos := &txn.Repositories{
		Inventory:  NewInventoryRepo(),
		Movements:  NewMovementRepo(),
		Orders:     NewOrderRepo(),
		Deliveries: NewDeliveryRepo(),
		Earnings:   NewEarningRepo(),
		Payouts:    NewPayoutRepo(),
	}
	return &txn.NoOpScope{Repos: repos}, repos
}

// InventoryRepo is an in-memory inventory.InventoryRecordRepository
type InventoryRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*inventory.InventoryRecord
}

func NewInventoryRepo() *InventoryRepo {
	return &InventoryRepo{records: make(map[uuid.UUID]*inventory.InventoryRecord)}
}

func (r *InventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *InventoryRepo) FindAll(ctx context.Context, filter shared.Filter) ([]*inventory.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*inventory.InventoryRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *InventoryRepo) Save(ctx context.Context, record *inventory.InventoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ProductID] = record
	return nil
}

func (r *InventoryRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

func (r *InventoryRepo) FindByProductID(ctx context.Context, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *InventoryRepo) FindByProductIDForUpdate(ctx context.Context, productID uuid.UUID) (*inventory.InventoryRecord, error) {
	return r.FindByProductID(ctx, productID)
}

func (r *InventoryRepo) FindBySellerID(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*inventory.InventoryRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryRecord
	for _, rec := range r.records {
		if rec.SellerID == sellerID {
			out = append(out, rec)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *InventoryRepo) FindLowStock(ctx context.Context, filter shared.Filter) (*shared.Paginated[*inventory.InventoryRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.InventoryRecord
	for _, rec := range r.records {
		if rec.IsLowStock() {
			out = append(out, rec)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *InventoryRepo) SaveWithLock(ctx context.Context, record *inventory.InventoryRecord, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[record.ProductID]
	if ok && current != record && current.GetVersion() != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.records[record.ProductID] = record
	return nil
}

// MovementRepo is an in-memory inventory.StockMovementRepository
type MovementRepo struct {
	mu        sync.Mutex
	movements []*inventory.StockMovement
}

func NewMovementRepo() *MovementRepo {
	return &MovementRepo{}
}

func (r *MovementRepo) Append(ctx context.Context, movement *inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movement)
	return nil
}

func (r *MovementRepo) FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*inventory.StockMovement], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.OrderDir == "asc" {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *MovementRepo) FindByReference(ctx context.Context, reference string) ([]*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.Reference == reference {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MovementRepo) FindByProductIDSince(ctx context.Context, productID uuid.UUID, since time.Time) ([]*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID && !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

// All returns every stored movement
func (r *MovementRepo) All() []*inventory.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*inventory.StockMovement(nil), r.movements...)
}

// OrderRepo is an in-memory order.OrderRepository
type OrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{orders: make(map[uuid.UUID]*order.Order)}
}

func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *OrderRepo) FindAll(ctx context.Context, filter shared.Filter) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *OrderRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.orders)), nil
}

func (r *OrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *OrderRepo) FindByBuyerID(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return r.filtered(func(o *order.Order) bool { return o.BuyerID == buyerID }, filter), nil
}

func (r *OrderRepo) FindBySellerID(ctx context.Context, sellerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return r.filtered(func(o *order.Order) bool { return o.SellerID == sellerID }, filter), nil
}

func (r *OrderRepo) FindByAgentID(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return r.filtered(func(o *order.Order) bool { return o.AgentID != nil && *o.AgentID == agentID }, filter), nil
}

func (r *OrderRepo) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) (*shared.Paginated[*order.Order], error) {
	return r.filtered(func(o *order.Order) bool { return o.Status == status }, filter), nil
}

func (r *OrderRepo) CountDeliveredByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders {
		if o.Status == order.OrderStatusDelivered && o.AgentID != nil && *o.AgentID == agentID {
			n++
		}
	}
	return n, nil
}

func (r *OrderRepo) SaveWithLock(ctx context.Context, o *order.Order, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if ok && current != o && current.GetVersion() != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.orders[o.ID] = o
	return nil
}

func (r *OrderRepo) StatusSummary(ctx context.Context, sellerID *uuid.UUID) (map[order.OrderStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[order.OrderStatus]int64)
	for _, o := range r.orders {
		if sellerID != nil && o.SellerID != *sellerID {
			continue
		}
		out[o.Status]++
	}
	return out, nil
}

func (r *OrderRepo) filtered(keep func(*order.Order) bool, filter shared.Filter) *shared.Paginated[*order.Order] {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.OrderDir == "asc" {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize)
}

// DeliveryRepo is an in-memory delivery.DeliveryRepository
type DeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*delivery.Delivery
}

func NewDeliveryRepo() *DeliveryRepo {
	return &DeliveryRepo{deliveries: make(map[uuid.UUID]*delivery.Delivery)}
}

func (r *DeliveryRepo) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return d, nil
}

func (r *DeliveryRepo) FindAll(ctx context.Context, filter shared.Filter) ([]*delivery.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*delivery.Delivery, 0, len(r.deliveries))
	for _, d := range r.deliveries {
		out = append(out, d)
	}
	return out, nil
}

func (r *DeliveryRepo) Save(ctx context.Context, d *delivery.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[d.ID] = d
	return nil
}

func (r *DeliveryRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.deliveries)), nil
}

func (r *DeliveryRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*delivery.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deliveries {
		if d.OrderID == orderID {
			return d, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *DeliveryRepo) FindByQRTokenHash(ctx context.Context, tokenHash string) (*delivery.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deliveries {
		if d.QRTokenHash != "" && d.QRTokenHash == tokenHash {
			return d, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *DeliveryRepo) FindByAgentID(ctx context.Context, agentID uuid.UUID, filter shared.Filter) (*shared.Paginated[*delivery.Delivery], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*delivery.Delivery
	for _, d := range r.deliveries {
		if d.AgentID == agentID {
			out = append(out, d)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *DeliveryRepo) SaveWithLock(ctx context.Context, d *delivery.Delivery, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.deliveries[d.ID]
	if ok && current != d && current.GetVersion() != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.deliveries[d.ID] = d
	return nil
}

// EarningRepo is an in-memory settlement.EarningRepository
type EarningRepo struct {
	mu       sync.Mutex
	earnings map[uuid.UUID]*settlement.EarningRecord
}

func NewEarningRepo() *EarningRepo {
	return &EarningRepo{earnings: make(map[uuid.UUID]*settlement.EarningRecord)}
}

func (r *EarningRepo) FindByID(ctx context.Context, id uuid.UUID) (*settlement.EarningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.earnings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return e, nil
}

func (r *EarningRepo) FindAll(ctx context.Context, filter shared.Filter) ([]*settlement.EarningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*settlement.EarningRecord, 0, len(r.earnings))
	for _, e := range r.earnings {
		out = append(out, e)
	}
	return out, nil
}

func (r *EarningRepo) Save(ctx context.Context, e *settlement.EarningRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.earnings[e.ID] = e
	return nil
}

func (r *EarningRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.earnings)), nil
}

func (r *EarningRepo) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*settlement.EarningRecord], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*settlement.EarningRecord
	for _, e := range r.earnings {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *EarningRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*settlement.EarningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*settlement.EarningRecord
	for _, e := range r.earnings {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *EarningRepo) FindAvailableByOwner(ctx context.Context, ownerID uuid.UUID) ([]*settlement.EarningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*settlement.EarningRecord
	for _, e := range r.earnings {
		if e.OwnerID == ownerID && e.Status == settlement.EarningStatusAvailable {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvailableDate.Before(out[j].AvailableDate)
	})
	return out, nil
}

func (r *EarningRepo) FindMaturable(ctx context.Context, asOf time.Time, limit int) ([]*settlement.EarningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*settlement.EarningRecord
	for _, e := range r.earnings {
		if e.Status == settlement.EarningStatusPending && !asOf.Before(e.AvailableDate) {
			out = append(out, e)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *EarningRepo) SaveWithLock(ctx context.Context, e *settlement.EarningRecord, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.earnings[e.ID]
	if ok && current != e && current.GetVersion() != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.earnings[e.ID] = e
	return nil
}

// PayoutRepo is an in-memory settlement.PayoutRepository
type PayoutRepo struct {
	mu      sync.Mutex
	payouts map[uuid.UUID]*settlement.PayoutRequest

	// OpenLookupErr makes FindOpenByOwner fail, simulating a storage
	// outage during the duplicate-payout check.
	OpenLookupErr error
}

func NewPayoutRepo() *PayoutRepo {
	return &PayoutRepo{payouts: make(map[uuid.UUID]*settlement.PayoutRequest)}
}

func (r *PayoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*settlement.PayoutRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *PayoutRepo) FindAll(ctx context.Context, filter shared.Filter) ([]*settlement.PayoutRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*settlement.PayoutRequest, 0, len(r.payouts))
	for _, p := range r.payouts {
		out = append(out, p)
	}
	return out, nil
}

func (r *PayoutRepo) Save(ctx context.Context, p *settlement.PayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payouts[p.ID] = p
	return nil
}

func (r *PayoutRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.payouts)), nil
}

func (r *PayoutRepo) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*settlement.PayoutRequest], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*settlement.PayoutRequest
	for _, p := range r.payouts {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *PayoutRepo) FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*settlement.PayoutRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.OpenLookupErr != nil {
		return nil, r.OpenLookupErr
	}
	for _, p := range r.payouts {
		if p.OwnerID == ownerID && !p.Status.IsTerminal() {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *PayoutRepo) FindByStatus(ctx context.Context, status settlement.PayoutStatus, filter shared.Filter) (*shared.Paginated[*settlement.PayoutRequest], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*settlement.PayoutRequest
	for _, p := range r.payouts {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return shared.NewPaginated(out, int64(len(out)), filter.Page, filter.PageSize), nil
}

func (r *PayoutRepo) SaveWithLock(ctx context.Context, p *settlement.PayoutRequest, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.payouts[p.ID]
	if ok && current != p && current.GetVersion() != expectedVersion {
		return shared.ErrConcurrencyConflict
	}
	r.payouts[p.ID] = p
	return nil
}

// SettingsProvider is an in-memory settings.Provider seeded with the
// built-in defaults
type SettingsProvider struct {
	mu     sync.Mutex
	values map[string]string
}

func NewSettingsProvider() *SettingsProvider {
	return &SettingsProvider{values: make(map[string]string)}
}

func (p *SettingsProvider) get(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	return settings.DefaultFor(key)
}

func (p *SettingsProvider) GetDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	return decimal.NewFromString(p.get(key))
}

func (p *SettingsProvider) GetInt(ctx context.Context, key string) (int, error) {
	return strconv.Atoi(p.get(key))
}

func (p *SettingsProvider) GetDuration(ctx context.Context, key string, unit time.Duration) (time.Duration, error) {
	n, err := strconv.Atoi(p.get(key))
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}

func (p *SettingsProvider) Set(ctx context.Context, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

// EventRecorder is a shared.EventPublisher that remembers everything
type EventRecorder struct {
	mu     sync.Mutex
	Events []shared.DomainEvent
}

func (r *EventRecorder) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, events...)
	return nil
}

// Types returns the recorded event types in order
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType())
	}
	return out
}

// Notifier records notifications instead of sending them
type Notifier struct {
	mu    sync.Mutex
	Codes []string
}

func (n *Notifier) HandoverCodeIssued(ctx context.Context, buyerID uuid.UUID, orderNumber, code string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Codes = append(n.Codes, code)
	return nil
}

func (n *Notifier) OrderStatusChanged(ctx context.Context, userID uuid.UUID, orderNumber, status string) error {
	return nil
}

func (n *Notifier) PayoutReviewed(ctx context.Context, ownerID uuid.UUID, amount, status, reason string) error {
	return nil
}

// LastCode returns the most recently issued handover code
func (n *Notifier) LastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Codes) == 0 {
		return ""
	}
	return n.Codes[len(n.Codes)-1]
}

// TokenStore is an in-memory delivery token cache mapped both ways
type TokenStore struct {
	mu         sync.Mutex
	byToken    map[string]uuid.UUID
	byDelivery map[uuid.UUID]string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		byToken:    make(map[string]uuid.UUID),
		byDelivery: make(map[uuid.UUID]string),
	}
}

func (s *TokenStore) Link(ctx context.Context, deliveryID uuid.UUID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prior, ok := s.byDelivery[deliveryID]; ok {
		delete(s.byToken, prior)
	}
	s.byToken[token] = deliveryID
	s.byDelivery[deliveryID] = token
	return nil
}

func (s *TokenStore) Resolve(ctx context.Context, token string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byToken[token]
	return id, ok, nil
}

func (s *TokenStore) TokenFor(ctx context.Context, deliveryID uuid.UUID) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.byDelivery[deliveryID]
	return token, ok, nil
}

func (s *TokenStore) Invalidate(ctx context.Context, deliveryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.byDelivery[deliveryID]; ok {
		delete(s.byToken, token)
		delete(s.byDelivery, deliveryID)
	}
	return nil
}

// PlanChecker reports a fixed commission-plan membership
type PlanChecker struct {
	OffPlan map[uuid.UUID]bool
}

func (c *PlanChecker) OnCommissionPlan(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	if c.OffPlan != nil && c.OffPlan[sellerID] {
		return false, nil
	}
	return true, nil
}

// Catalog is a fixed in-memory product catalog
type Catalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]CatalogProduct
}

// CatalogProduct is one catalog entry
type CatalogProduct struct {
	SellerID uuid.UUID
	Name     string
	Price    decimal.Decimal
}

func NewCatalog() *Catalog {
	return &Catalog{products: make(map[uuid.UUID]CatalogProduct)}
}

// Add registers a product and returns its id
func (c *Catalog) Add(sellerID uuid.UUID, name string, price decimal.Decimal) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.New()
	c.products[id] = CatalogProduct{SellerID: sellerID, Name: name, Price: price}
	return id
}

// Get returns a stored entry
func (c *Catalog) Get(id uuid.UUID) (CatalogProduct, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Lookup(ctx context.Context, productID uuid.UUID) (*appordersvc.ProductInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &appordersvc.ProductInfo{
		ID:       productID,
		SellerID: p.SellerID,
		Name:     p.Name,
		Price:    valueobject.NewMoneyETB(p.Price),
	}, nil
}

// Distance is a fixed-distance calculator. Set Fn to vary the result
// by coordinate.
type Distance struct {
	Km decimal.Decimal
	Fn func(sellerID uuid.UUID, dropLat, dropLng float64) decimal.Decimal
}

func (d *Distance) DistanceKm(ctx context.Context, sellerID uuid.UUID, dropLat, dropLng float64) (decimal.Decimal, error) {
	if d.Fn != nil {
		return d.Fn(sellerID, dropLat, dropLng), nil
	}
	return d.Km, nil
}

// Agents is a fixed roster of available delivery agents
type Agents struct {
	Candidates []appordersvc.AgentCandidate
	Err        error
}

func (a *Agents) AvailableAgents(ctx context.Context) ([]appordersvc.AgentCandidate, error) {
	if a.Err != nil {
		return nil, a.Err
	}
	return a.Candidates, nil
}
