package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/application/txn"
	deliverydomain "github.com/marketplace/backend/internal/domain/delivery"
	orderdomain "github.com/marketplace/backend/internal/domain/order"
	domain "github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// EarningFactory turns a verified handover into earning records inside
// the caller's transaction. Delivery verification calls it so the order
// status flip and the earnings it produces commit or roll back together.
type EarningFactory struct {
	settings settings.Provider
	plans    CommissionPlanChecker
}

// NewEarningFactory creates the factory
func NewEarningFactory(settingsProvider settings.Provider, plans CommissionPlanChecker) *EarningFactory {
	return &EarningFactory{settings: settingsProvider, plans: plans}
}

// CreateForDeliveredOrder writes the seller and agent earnings for one
// delivered order. Idempotent per order: if earnings already exist for
// it, nothing is written. Returns the domain events to publish after
// commit.
func (f *EarningFactory) CreateForDeliveredOrder(
	ctx context.Context,
	repos *txn.Repositories,
	ord *orderdomain.Order,
	dlv *deliverydomain.Delivery,
) ([]shared.DomainEvent, error) {
	existing, err := repos.Earnings.FindByOrderID(ctx, ord.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}

	var events []shared.DomainEvent

	sellerEvents, err := f.createSellerEarning(ctx, repos, ord)
	if err != nil {
		return nil, err
	}
	events = append(events, sellerEvents...)

	agentEvents, err := f.createAgentEarning(ctx, repos, ord, dlv)
	if err != nil {
		return nil, err
	}
	events = append(events, agentEvents...)

	return events, nil
}

func (f *EarningFactory) createSellerEarning(ctx context.Context, repos *txn.Repositories, ord *orderdomain.Order) ([]shared.DomainEvent, error) {
	onPlan, err := f.plans.OnCommissionPlan(ctx, ord.SellerID)
	if err != nil {
		return nil, err
	}
	if !onPlan {
		return nil, nil
	}

	rate, err := f.settings.GetDecimal(ctx, settings.KeySellerCommissionRate)
	if err != nil {
		return nil, err
	}
	maturationDays, err := f.settings.GetInt(ctx, settings.KeySellerMaturationDays)
	if err != nil {
		return nil, err
	}

	policy := domain.SellerCommissionPolicy{Rate: rate, MaturationDays: maturationDays}
	breakdown, err := policy.Apply(ord.Subtotal)
	if err != nil {
		return nil, err
	}

	earning, err := domain.NewEarningRecord(
		ord.SellerID, domain.RoleSeller, ord.ID,
		breakdown.Gross, breakdown.Rate, breakdown.Commission,
		valueZero(breakdown.Gross),
		time.Duration(maturationDays)*24*time.Hour,
	)
	if err != nil {
		return nil, err
	}
	if err := repos.Earnings.Save(ctx, earning); err != nil {
		return nil, err
	}
	return []shared.DomainEvent{domain.NewEarningCreatedEvent(earning)}, nil
}

func (f *EarningFactory) createAgentEarning(ctx context.Context, repos *txn.Repositories, ord *orderdomain.Order, dlv *deliverydomain.Delivery) ([]shared.DomainEvent, error) {
	policy, err := f.agentPolicy(ctx)
	if err != nil {
		return nil, err
	}

	// Count includes the order just delivered, so the Nth delivery
	// itself carries the bonus.
	delivered, err := repos.Orders.CountDeliveredByAgent(ctx, dlv.AgentID)
	if err != nil {
		return nil, err
	}

	breakdown, err := policy.Apply(dlv.DistanceKm, delivered)
	if err != nil {
		return nil, err
	}

	earning, err := domain.NewEarningRecord(
		dlv.AgentID, domain.RoleAgent, ord.ID,
		breakdown.GrossFee, policy.PlatformRate, breakdown.PlatformCommission,
		breakdown.Bonus,
		time.Duration(policy.MaturationDays)*24*time.Hour,
	)
	if err != nil {
		return nil, err
	}
	if err := repos.Earnings.Save(ctx, earning); err != nil {
		return nil, err
	}
	return []shared.DomainEvent{domain.NewEarningCreatedEvent(earning)}, nil
}

func (f *EarningFactory) agentPolicy(ctx context.Context) (domain.AgentFeePolicy, error) {
	base, err := f.settings.GetDecimal(ctx, settings.KeyBaseDeliveryFee)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}
	perKm, err := f.settings.GetDecimal(ctx, settings.KeyPerKmRate)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}
	min, err := f.settings.GetDecimal(ctx, settings.KeyMinDeliveryFee)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}
	platformRate, err := f.settings.GetDecimal(ctx, settings.KeyPlatformCommissionRate)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}
	bonusThreshold, err := f.settings.GetInt(ctx, settings.KeyAgentBonusThreshold)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}
	bonusAmount, err := f.settings.GetDecimal(ctx, settings.KeyAgentBonusAmount)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}
	maturationDays, err := f.settings.GetInt(ctx, settings.KeyAgentMaturationDays)
	if err != nil {
		return domain.AgentFeePolicy{}, err
	}

	return domain.AgentFeePolicy{
		BaseFee:        money(base),
		PerKmRate:      money(perKm),
		MinFee:         money(min),
		PlatformRate:   platformRate,
		BonusThreshold: bonusThreshold,
		BonusAmount:    money(bonusAmount),
		MaturationDays: maturationDays,
	}, nil
}

func money(amount decimal.Decimal) valueobject.Money {
	return valueobject.NewMoneyETB(amount)
}

func valueZero(ref valueobject.Money) valueobject.Money {
	return valueobject.Zero(ref.Currency())
}
