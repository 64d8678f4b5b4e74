package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("QUICK_PAY_MODE_OF_PAYMENT", "Cash")
	t.Setenv("PAYMENT_REQUEST_TTL_HOURS", "48")
	t.Setenv("AUTO_CREATE_SALES_ORDER", "false")
	t.Setenv("LOYALTY_VALUE_PER_POINT", "0.5")
	t.Setenv("LOYALTY_COLLECTION_FACTOR", "25")
	t.Setenv("MENU_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "Cash", cfg.Shop.QuickPayModeOfPayment)
	assert.Equal(t, 48*time.Hour, cfg.Shop.PaymentRequestTTL)
	assert.False(t, cfg.Shop.AutoCreateSalesOrder)
	assert.Equal(t, 50, cfg.Shop.MenuLimit)
	assert.Equal(t, "0.5", cfg.Loyalty.ValuePerPoint.String())
	assert.Equal(t, "25", cfg.Loyalty.CollectionFactor.String())
	assert.Equal(t, 10*time.Second, cfg.Line.Timeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRejectsBadSettings(t *testing.T) {
	t.Run("production without secret", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.EqualError(t, err, "JWT_SECRET is required in production")
	})

	t.Run("unparsable loyalty factor", func(t *testing.T) {
		t.Setenv("LOYALTY_VALUE_PER_POINT", "one baht")
		_, err := Load()
		assert.ErrorContains(t, err, "LOYALTY_VALUE_PER_POINT")
	})

	t.Run("negative collection factor", func(t *testing.T) {
		t.Setenv("LOYALTY_COLLECTION_FACTOR", "-1")
		_, err := Load()
		assert.EqualError(t, err, "loyalty factors must not be negative")
	})
}
