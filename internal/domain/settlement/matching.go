package settlement

import (
	"sort"

	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// MatchingService allocates a payout amount across an owner's available
// earnings. Earnings are consumed oldest-first by available date, and
// the last one touched may be consumed partially, so the allocation
// total always equals the requested amount exactly.
type MatchingService struct{}

// NewMatchingService creates the matching domain service
func NewMatchingService() *MatchingService {
	return &MatchingService{}
}

// Match walks the earnings FIFO and applies allocations to them until
// the amount is covered. The passed records are mutated (allocated) on
// success; on insufficient balance nothing is touched and
// ErrInsufficientBalance is returned.
func (s *MatchingService) Match(earnings []*EarningRecord, amount valueobject.Money) (PayoutAllocations, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Match amount must be positive")
	}

	available := make([]*EarningRecord, 0, len(earnings))
	for _, e := range earnings {
		if e.Status == EarningStatusAvailable && e.RemainingAmount().IsPositive() {
			available = append(available, e)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].AvailableDate.Before(available[j].AvailableDate)
	})

	total := valueobject.Zero(amount.Currency())
	for _, e := range available {
		var err error
		total, err = total.Add(e.RemainingAmount())
		if err != nil {
			return nil, err
		}
	}
	if total.LessThan(amount) {
		return nil, shared.ErrInsufficientBalance
	}

	allocations := make(PayoutAllocations, 0, len(available))
	remaining := amount
	for _, e := range available {
		if !remaining.IsPositive() {
			break
		}
		take := e.RemainingAmount()
		if take.GreaterThan(remaining) {
			take = remaining
		}
		if err := e.Allocate(take); err != nil {
			return nil, err
		}
		allocations = append(allocations, PayoutAllocation{
			EarningID: e.ID,
			Amount:    take.Amount(),
		})
		var err error
		remaining, err = remaining.Sub(take)
		if err != nil {
			return nil, err
		}
	}

	return allocations, nil
}

// AvailableBalance sums the remaining amounts of an owner's available
// earnings
func (s *MatchingService) AvailableBalance(earnings []*EarningRecord, currency valueobject.Currency) valueobject.Money {
	total := valueobject.Zero(currency)
	for _, e := range earnings {
		if e.Status != EarningStatusAvailable {
			continue
		}
		sum, err := total.Add(e.RemainingAmount())
		if err != nil {
			continue
		}
		total = sum
	}
	return total
}
