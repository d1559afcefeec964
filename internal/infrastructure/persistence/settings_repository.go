package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketplace/backend/internal/application/settings"
)

// PlatformSetting is a single tunable key-value pair
type PlatformSetting struct {
	Key       string `gorm:"type:varchar(64);primaryKey"`
	Value     string `gorm:"type:varchar(255);not null"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (PlatformSetting) TableName() string {
	return "platform_settings"
}

// GormSettingsProvider implements settings.Provider against the
// platform_settings table, falling back to built-in defaults for keys
// that were never set
type GormSettingsProvider struct {
	db *gorm.DB
}

// NewGormSettingsProvider creates a settings provider backed by the given database
func NewGormSettingsProvider(db *gorm.DB) *GormSettingsProvider {
	return &GormSettingsProvider{db: db}
}

var _ settings.Provider = (*GormSettingsProvider)(nil)

func (p *GormSettingsProvider) get(ctx context.Context, key string) (string, error) {
	var row PlatformSetting
	err := p.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if def := settings.DefaultFor(key); def != "" {
				return def, nil
			}
			return "", fmt.Errorf("unknown setting %q", key)
		}
		return "", err
	}
	return row.Value, nil
}

// GetDecimal reads a setting as a decimal value
func (p *GormSettingsProvider) GetDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, err := p.get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %q is not a decimal: %w", key, err)
	}
	return value, nil
}

// GetInt reads a setting as an integer value
func (p *GormSettingsProvider) GetInt(ctx context.Context, key string) (int, error) {
	raw, err := p.get(ctx, key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("setting %q is not an integer: %w", key, err)
	}
	return value, nil
}

// GetDuration reads an integer setting and scales it by the given unit,
// so otp_expiry_minutes=30 with unit time.Minute yields 30 minutes
func (p *GormSettingsProvider) GetDuration(ctx context.Context, key string, unit time.Duration) (time.Duration, error) {
	value, err := p.GetInt(ctx, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(value) * unit, nil
}

// Set upserts a setting value
func (p *GormSettingsProvider) Set(ctx context.Context, key, value string) error {
	row := PlatformSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
