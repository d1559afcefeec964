package settlement

import (
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SellerCommissionPolicy computes the platform's cut of a seller's sale
type SellerCommissionPolicy struct {
	// Rate is a percentage, e.g. 10 means 10%
	Rate decimal.Decimal
	// Maturation in days before the earning becomes withdrawable
	MaturationDays int
}

// SellerEarningBreakdown is the result of applying the commission policy
type SellerEarningBreakdown struct {
	Gross      valueobject.Money
	Rate       decimal.Decimal
	Commission valueobject.Money
	Net        valueobject.Money
}

// Apply computes commission and net for an order subtotal
func (p SellerCommissionPolicy) Apply(subtotal valueobject.Money) (SellerEarningBreakdown, error) {
	if p.Rate.IsNegative() || p.Rate.GreaterThan(decimal.NewFromInt(100)) {
		return SellerEarningBreakdown{}, shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0 and 100")
	}

	commission := subtotal.Percent(p.Rate)
	net, err := subtotal.Sub(commission)
	if err != nil {
		return SellerEarningBreakdown{}, err
	}
	return SellerEarningBreakdown{
		Gross:      subtotal,
		Rate:       p.Rate,
		Commission: commission,
		Net:        net,
	}, nil
}

// AgentFeePolicy computes a delivery agent's take for one handover.
// The gross fee is distance based with a floor; the platform keeps a
// percentage of it; every Nth completed delivery earns a flat bonus.
type AgentFeePolicy struct {
	BaseFee        valueobject.Money
	PerKmRate      valueobject.Money
	MinFee         valueobject.Money
	PlatformRate   decimal.Decimal
	BonusThreshold int
	BonusAmount    valueobject.Money
	MaturationDays int
}

// AgentFeeBreakdown is the result of applying the agent fee policy
type AgentFeeBreakdown struct {
	GrossFee           valueobject.Money
	PlatformCommission valueobject.Money
	Bonus              valueobject.Money
	Net                valueobject.Money
}

// Apply computes the agent's fee for a delivery over the given distance.
// deliveredCount is the agent's completed-delivery total including this
// one; the bonus lands on every multiple of the threshold.
func (p AgentFeePolicy) Apply(distanceKm decimal.Decimal, deliveredCount int64) (AgentFeeBreakdown, error) {
	if distanceKm.IsNegative() {
		return AgentFeeBreakdown{}, shared.NewDomainError("INVALID_DISTANCE", "Distance cannot be negative")
	}
	if p.PlatformRate.IsNegative() || p.PlatformRate.GreaterThan(decimal.NewFromInt(100)) {
		return AgentFeeBreakdown{}, shared.NewDomainError("INVALID_RATE", "Platform rate must be between 0 and 100")
	}

	gross, err := p.BaseFee.Add(p.PerKmRate.Mul(distanceKm))
	if err != nil {
		return AgentFeeBreakdown{}, err
	}
	if gross.LessThan(p.MinFee) {
		gross = p.MinFee
	}

	commission := gross.Percent(p.PlatformRate)

	bonus := valueobject.Zero(gross.Currency())
	if p.BonusThreshold > 0 && deliveredCount > 0 && deliveredCount%int64(p.BonusThreshold) == 0 {
		bonus = p.BonusAmount
	}

	afterCommission, err := gross.Sub(commission)
	if err != nil {
		return AgentFeeBreakdown{}, err
	}
	net, err := afterCommission.Add(bonus)
	if err != nil {
		return AgentFeeBreakdown{}, err
	}

	return AgentFeeBreakdown{
		GrossFee:           gross,
		PlatformCommission: commission,
		Bonus:              bonus,
		Net:                net,
	}, nil
}

// DeliveryFeeFor computes the fee charged to the buyer at order
// placement, using the same distance formula without commission or
// bonus.
func (p AgentFeePolicy) DeliveryFeeFor(distanceKm decimal.Decimal) (valueobject.Money, error) {
	if distanceKm.IsNegative() {
		return valueobject.Money{}, shared.NewDomainError("INVALID_DISTANCE", "Distance cannot be negative")
	}
	fee, err := p.BaseFee.Add(p.PerKmRate.Mul(distanceKm))
	if err != nil {
		return valueobject.Money{}, err
	}
	if fee.LessThan(p.MinFee) {
		fee = p.MinFee
	}
	return fee, nil
}
