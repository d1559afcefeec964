package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketplace/backend/internal/application/notify"
	"github.com/marketplace/backend/internal/application/settings"
	"github.com/marketplace/backend/internal/application/txn"
	domain "github.com/marketplace/backend/internal/domain/settlement"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/domain/shared/valueobject"
)

// SettlementService exposes balances, earning history and the payout
// lifecycle. Payout matching locks the owner's available earnings and
// allocates them FIFO inside one transaction, so two concurrent
// requests can never spend the same birr twice.
type SettlementService struct {
	scope    txn.Scope
	earnings domain.EarningRepository
	payouts  domain.PayoutRepository
	matcher  *domain.MatchingService
	settings settings.Provider
	notifier notify.Notifier
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewSettlementService creates the settlement application service
func NewSettlementService(
	scope txn.Scope,
	earnings domain.EarningRepository,
	payouts domain.PayoutRepository,
	settingsProvider settings.Provider,
	notifier notify.Notifier,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		scope:    scope,
		earnings: earnings,
		payouts:  payouts,
		matcher:  domain.NewMatchingService(),
		settings: settingsProvider,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
	}
}

// GetBalance sums an owner's earnings by settlement state
func (s *SettlementService) GetBalance(ctx context.Context, ownerID uuid.UUID) (*BalanceResponse, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = 10000
	page, err := s.earnings.FindByOwnerID(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}

	currency := valueobject.DefaultCurrency
	available := valueobject.Zero(currency)
	pending := valueobject.Zero(currency)
	withdrawn := valueobject.Zero(currency)
	for _, e := range page.Items {
		switch e.Status {
		case domain.EarningStatusAvailable:
			available = addOrKeep(available, e.RemainingAmount())
			withdrawn = addOrKeep(withdrawn, e.WithdrawnAmount)
		case domain.EarningStatusPending, domain.EarningStatusOnHold:
			pending = addOrKeep(pending, e.RemainingAmount())
		case domain.EarningStatusWithdrawn:
			withdrawn = addOrKeep(withdrawn, e.WithdrawnAmount)
		}
	}

	return &BalanceResponse{
		OwnerID:   ownerID,
		Available: available.Amount().StringFixed(2),
		Pending:   pending.Amount().StringFixed(2),
		Withdrawn: withdrawn.Amount().StringFixed(2),
		Currency:  string(currency),
	}, nil
}

// ListEarnings pages through an owner's earning records
func (s *SettlementService) ListEarnings(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*EarningResponse], error) {
	page, err := s.earnings.FindByOwnerID(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]*EarningResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, toEarningResponse(e))
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize), nil
}

// RequestPayout opens a withdrawal. It enforces the minimum amount and
// the one-open-payout rule, then matches the amount against available
// earnings FIFO, splitting the last record touched.
func (s *SettlementService) RequestPayout(ctx context.Context, req RequestPayoutRequest) (*PayoutResponse, error) {
	minAmount, err := s.settings.GetDecimal(ctx, settings.KeyMinWithdrawalAmount)
	if err != nil {
		return nil, err
	}
	amount := valueobject.NewMoneyETB(req.Amount)
	if amount.Amount().LessThan(minAmount) {
		return nil, shared.NewDomainError("BELOW_MINIMUM", "Amount is below the minimum withdrawal")
	}

	role := domain.OwnerRole(req.Role)
	if role != domain.RoleSeller && role != domain.RoleAgent {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown owner role")
	}

	var payout *domain.PayoutRequest
	err = s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		open, err := repos.Payouts.FindOpenByOwner(ctx, req.OwnerID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if open != nil {
			return shared.ErrDuplicatePendingPayout
		}

		earnings, err := repos.Earnings.FindAvailableByOwner(ctx, req.OwnerID)
		if err != nil {
			return err
		}

		allocations, err := s.matcher.Match(earnings, amount)
		if err != nil {
			return err
		}
		for _, e := range earnings {
			if err := repos.Earnings.Save(ctx, e); err != nil {
				return err
			}
		}

		payout, err = domain.NewPayoutRequest(req.OwnerID, role, amount, allocations, req.PaymentMethod, req.AccountDetail)
		if err != nil {
			return err
		}
		return repos.Payouts.Save(ctx, payout)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, payout)
	return toPayoutResponse(payout), nil
}

// ReviewPayout approves or rejects a pending payout. Rejection gives
// every allocated amount back to its earning record.
func (s *SettlementService) ReviewPayout(ctx context.Context, req ReviewPayoutRequest) (*PayoutResponse, error) {
	var payout *domain.PayoutRequest
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		payout, err = repos.Payouts.FindByID(ctx, req.PayoutID)
		if err != nil {
			return err
		}
		version := payout.GetVersion()

		if req.Approve {
			if err := payout.Approve(req.ReviewerID); err != nil {
				return err
			}
		} else {
			if err := payout.Reject(req.ReviewerID, req.Reason); err != nil {
				return err
			}
			if err := s.revertAllocations(ctx, repos, payout); err != nil {
				return err
			}
		}
		return repos.Payouts.SaveWithLock(ctx, payout, version)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, payout)
	s.notifyReviewed(ctx, payout)
	return toPayoutResponse(payout), nil
}

// CompletePayout records a successful disbursement
func (s *SettlementService) CompletePayout(ctx context.Context, req CompletePayoutRequest) (*PayoutResponse, error) {
	var payout *domain.PayoutRequest
	err := s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		var err error
		payout, err = repos.Payouts.FindByID(ctx, req.PayoutID)
		if err != nil {
			return err
		}
		version := payout.GetVersion()
		if err := payout.Complete(req.PaymentRef); err != nil {
			return err
		}
		return repos.Payouts.SaveWithLock(ctx, payout, version)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, payout)
	s.notifyReviewed(ctx, payout)
	return toPayoutResponse(payout), nil
}

// ListPayouts pages through an owner's payout history
func (s *SettlementService) ListPayouts(ctx context.Context, ownerID uuid.UUID, filter shared.Filter) (*shared.Paginated[*PayoutResponse], error) {
	page, err := s.payouts.FindByOwnerID(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]*PayoutResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toPayoutResponse(p))
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize), nil
}

// ListPayoutsByStatus lists payouts awaiting a given state, for review
// queues
func (s *SettlementService) ListPayoutsByStatus(ctx context.Context, status string, filter shared.Filter) (*shared.Paginated[*PayoutResponse], error) {
	page, err := s.payouts.FindByStatus(ctx, domain.PayoutStatus(status), filter)
	if err != nil {
		return nil, err
	}
	items := make([]*PayoutResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toPayoutResponse(p))
	}
	return shared.NewPaginated(items, page.Total, page.Page, page.PageSize), nil
}

// HoldEarning freezes one earning out of payout matching
func (s *SettlementService) HoldEarning(ctx context.Context, earningID uuid.UUID, reason string) error {
	return s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		earning, err := repos.Earnings.FindByID(ctx, earningID)
		if err != nil {
			return err
		}
		version := earning.GetVersion()
		if err := earning.Hold(reason); err != nil {
			return err
		}
		return repos.Earnings.SaveWithLock(ctx, earning, version)
	})
}

// ReleaseEarningHold returns a held earning to circulation
func (s *SettlementService) ReleaseEarningHold(ctx context.Context, earningID uuid.UUID) error {
	return s.scope.Execute(ctx, func(ctx context.Context, repos *txn.Repositories) error {
		earning, err := repos.Earnings.FindByID(ctx, earningID)
		if err != nil {
			return err
		}
		version := earning.GetVersion()
		if err := earning.ReleaseHold(); err != nil {
			return err
		}
		return repos.Earnings.SaveWithLock(ctx, earning, version)
	})
}

func (s *SettlementService) revertAllocations(ctx context.Context, repos *txn.Repositories, payout *domain.PayoutRequest) error {
	for _, alloc := range payout.Allocations {
		earning, err := repos.Earnings.FindByID(ctx, alloc.EarningID)
		if err != nil {
			return err
		}
		version := earning.GetVersion()
		if err := earning.RevertAllocation(valueobject.NewMoneyETB(alloc.Amount)); err != nil {
			return err
		}
		if err := repos.Earnings.SaveWithLock(ctx, earning, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *SettlementService) publishEvents(ctx context.Context, payout *domain.PayoutRequest) {
	for _, event := range payout.GetDomainEvents() {
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish settlement event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	payout.ClearDomainEvents()
}

func (s *SettlementService) notifyReviewed(ctx context.Context, payout *domain.PayoutRequest) {
	if err := s.notifier.PayoutReviewed(ctx, payout.OwnerID, payout.Amount.String(), string(payout.Status), payout.RejectReason); err != nil {
		s.logger.Debug("payout notification failed",
			zap.String("payout_id", payout.ID.String()),
			zap.Error(err))
	}
}

func addOrKeep(total, inc valueobject.Money) valueobject.Money {
	sum, err := total.Add(inc)
	if err != nil {
		return total
	}
	return sum
}
