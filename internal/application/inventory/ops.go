package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/marketplace/backend/internal/application/txn"
	domain "github.com/marketplace/backend/internal/domain/inventory"
	"github.com/marketplace/backend/internal/domain/shared"
)

// The functions below are the single implementation of each counter
// mutation. They run against transaction-bound repositories so the
// order lifecycle can fold a stock step into its own transaction, and
// they return the domain events raised so the caller can publish them
// after commit.

// ReserveLines holds stock for every line. Any failure aborts with the
// transaction, so all lines reserve or none do.
func ReserveLines(ctx context.Context, repos *txn.Repositories, orderRef string, lines []ReservationLine, actor uuid.UUID) ([]shared.DomainEvent, error) {
	var events []shared.DomainEvent
	for _, line := range lines {
		record, err := repos.Inventory.FindByProductIDForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		version := record.GetVersion()

		held, err := record.Reserve(line.Quantity)
		if err != nil {
			return nil, err
		}
		if held.IsZero() {
			continue
		}

		movement, err := domain.NewStockMovement(
			line.ProductID, domain.MovementReservation,
			held, record.StockQuantity, record.StockQuantity,
			orderRef, "", actor,
		)
		if err != nil {
			return nil, err
		}
		if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
			return nil, err
		}
		if err := repos.Movements.Append(ctx, movement); err != nil {
			return nil, err
		}
		events = append(events, drainEvents(record)...)
	}
	return events, nil
}

// ReleaseLines frees the holds of a cancelled or payment-failed order
func ReleaseLines(ctx context.Context, repos *txn.Repositories, orderRef string, lines []ReservationLine, actor uuid.UUID) ([]shared.DomainEvent, error) {
	var events []shared.DomainEvent
	for _, line := range lines {
		record, err := repos.Inventory.FindByProductIDForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		version := record.GetVersion()

		if err := record.ReleaseReservation(line.Quantity); err != nil {
			return nil, err
		}
		if !record.StockManaged {
			continue
		}

		movement, err := domain.NewStockMovement(
			line.ProductID, domain.MovementReservationRelease,
			line.Quantity, record.StockQuantity, record.StockQuantity,
			orderRef, "", actor,
		)
		if err != nil {
			return nil, err
		}
		if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
			return nil, err
		}
		if err := repos.Movements.Append(ctx, movement); err != nil {
			return nil, err
		}
		events = append(events, drainEvents(record)...)
	}
	return events, nil
}

// DeductLines removes sold stock on payment confirmation, consuming the
// order's reservation in the same step
func DeductLines(ctx context.Context, repos *txn.Repositories, orderRef string, lines []ReservationLine, actor uuid.UUID) ([]shared.DomainEvent, error) {
	var events []shared.DomainEvent
	for _, line := range lines {
		record, err := repos.Inventory.FindByProductIDForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		version := record.GetVersion()
		before := record.StockQuantity

		if err := record.DeductSale(line.Quantity); err != nil {
			return nil, err
		}
		if !record.StockManaged {
			continue
		}
		if record.StockQuantity.Equal(before) {
			// Backordered line against empty stock; the floor left the
			// counter untouched, so there is nothing to ledger.
			if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
				return nil, err
			}
			events = append(events, drainEvents(record)...)
			continue
		}

		movement, err := domain.NewStockMovement(
			line.ProductID, domain.MovementSale,
			record.StockQuantity.Sub(before), before, record.StockQuantity,
			orderRef, "", actor,
		)
		if err != nil {
			return nil, err
		}
		if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
			return nil, err
		}
		if err := repos.Movements.Append(ctx, movement); err != nil {
			return nil, err
		}
		events = append(events, drainEvents(record)...)
	}
	return events, nil
}

// RestockLines returns a refunded order's goods to stock
func RestockLines(ctx context.Context, repos *txn.Repositories, orderRef string, lines []ReservationLine, actor uuid.UUID) ([]shared.DomainEvent, error) {
	var events []shared.DomainEvent
	for _, line := range lines {
		record, err := repos.Inventory.FindByProductIDForUpdate(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		version := record.GetVersion()
		before := record.StockQuantity

		if err := record.Restock(line.Quantity); err != nil {
			return nil, err
		}

		movement, err := domain.NewStockMovement(
			line.ProductID, domain.MovementReturn,
			line.Quantity, before, record.StockQuantity,
			orderRef, "refund restock", actor,
		)
		if err != nil {
			return nil, err
		}
		if err := repos.Inventory.SaveWithLock(ctx, record, version); err != nil {
			return nil, err
		}
		if err := repos.Movements.Append(ctx, movement); err != nil {
			return nil, err
		}
		events = append(events, drainEvents(record)...)
	}
	return events, nil
}

func drainEvents(record *domain.InventoryRecord) []shared.DomainEvent {
	events := record.GetDomainEvents()
	record.ClearDomainEvents()
	return events
}
