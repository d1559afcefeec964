package settlement

import (
	"context"

	"github.com/google/uuid"
)

// CommissionPlanChecker reports whether a seller settles through the
// platform. Sellers on a subscription plan collect payment directly and
// produce no earning record here.
type CommissionPlanChecker interface {
	OnCommissionPlan(ctx context.Context, sellerID uuid.UUID) (bool, error)
}
