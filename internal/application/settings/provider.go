// Package settings exposes runtime-tunable platform parameters. Values
// live in the database so operators can change fees and rates without a
// deploy; callers always go through the Provider so defaults apply when
// a key was never set.
package settings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known setting keys
const (
	KeyBaseDeliveryFee        = "base_delivery_fee"
	KeyPerKmRate              = "per_km_rate"
	KeyMinDeliveryFee         = "min_delivery_fee"
	KeyPlatformCommissionRate = "platform_commission_rate"
	KeySellerCommissionRate   = "seller_commission_rate"
	KeyAgentBonusThreshold    = "agent_bonus_threshold"
	KeyAgentBonusAmount       = "agent_bonus_amount"
	KeyMinWithdrawalAmount    = "min_withdrawal_amount"
	KeyOTPExpiryMinutes       = "otp_expiry_minutes"
	KeyDefaultDistanceKm      = "default_distance_km"
	KeySellerMaturationDays   = "seller_maturation_days"
	KeyAgentMaturationDays    = "agent_maturation_days"
	KeyReservationTTLMinutes  = "reservation_ttl_minutes"
)

// Defaults applied when a key has no stored value
var defaults = map[string]string{
	KeyBaseDeliveryFee:        "50",
	KeyPerKmRate:              "10",
	KeyMinDeliveryFee:         "60",
	KeyPlatformCommissionRate: "20",
	KeySellerCommissionRate:   "10",
	KeyAgentBonusThreshold:    "10",
	KeyAgentBonusAmount:       "100",
	KeyMinWithdrawalAmount:    "100",
	KeyOTPExpiryMinutes:       "30",
	KeyDefaultDistanceKm:      "3",
	KeySellerMaturationDays:   "7",
	KeyAgentMaturationDays:    "1",
	KeyReservationTTLMinutes:  "60",
}

// DefaultFor returns the built-in default for a key, empty when unknown
func DefaultFor(key string) string {
	return defaults[key]
}

// Provider reads platform settings with defaults applied
type Provider interface {
	GetDecimal(ctx context.Context, key string) (decimal.Decimal, error)
	GetInt(ctx context.Context, key string) (int, error)
	GetDuration(ctx context.Context, key string, unit time.Duration) (time.Duration, error)
	Set(ctx context.Context, key, value string) error
}
