package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	JWTSecret   string
	CORSOrigin  string
	Database    DatabaseConfig
	Line        LineConfig
	Shop        ShopConfig
	Loyalty     LoyaltyConfig
	Bootstrap   BootstrapConfig
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	// Path is used by the sqlite driver only.
	Path string
}

type LineConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
	LiffChannelID      string
	APIBaseURL         string
	Timeout            time.Duration
}

type ShopConfig struct {
	Currency              string
	AutoCreateSalesOrder  bool
	QuickPayModeOfPayment string
	RequestPaymentMessage string
	RequestPaymentQRURL   string
	PaymentRequestTTL     time.Duration
	MenuLimit             int
	HistoryLimit          int
	Name                  string
	LabelFontPath         string
}

// BootstrapConfig seeds a fresh database.
type BootstrapConfig struct {
	MenuSeedFile  string
	AdminEmail    string
	AdminPassword string
}

type LoyaltyConfig struct {
	ProgramName string
	// ValuePerPoint is the currency value of one redeemed point.
	ValuePerPoint decimal.Decimal
	// CollectionFactor is the amount spent per earned point.
	CollectionFactor decimal.Decimal
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "line_order.db")
	viper.SetDefault("LINE_API_BASE_URL", "https://api.line.me")
	viper.SetDefault("LINE_TIMEOUT_SECONDS", "10")
	viper.SetDefault("SHOP_CURRENCY", "THB")
	viper.SetDefault("AUTO_CREATE_SALES_ORDER", "true")
	viper.SetDefault("PAYMENT_REQUEST_TTL_HOURS", "24")
	viper.SetDefault("MENU_LIMIT", "50")
	viper.SetDefault("HISTORY_LIMIT", "20")
	viper.SetDefault("LOYALTY_VALUE_PER_POINT", "1")
	viper.SetDefault("LOYALTY_COLLECTION_FACTOR", "100")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	valuePerPoint, err := decimal.NewFromString(getEnvOrViper("LOYALTY_VALUE_PER_POINT", "1"))
	if err != nil {
		return nil, fmt.Errorf("LOYALTY_VALUE_PER_POINT: %w", err)
	}
	collectionFactor, err := decimal.NewFromString(getEnvOrViper("LOYALTY_COLLECTION_FACTOR", "100"))
	if err != nil {
		return nil, fmt.Errorf("LOYALTY_COLLECTION_FACTOR: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		JWTSecret:   getEnvOrViper("JWT_SECRET", ""),
		CORSOrigin:  getEnvOrViper("CORS_ORIGIN", "*"),
		Database: DatabaseConfig{
			Driver:   getEnvOrViper("DB_DRIVER", "sqlite"),
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", ""),
			User:     getEnvOrViper("DB_USER", ""),
			Password: getEnvOrViper("DB_PASSWORD", ""),
			Name:     getEnvOrViper("DB_NAME", "line_order"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
			Path:     getEnvOrViper("DB_PATH", "line_order.db"),
		},
		Line: LineConfig{
			ChannelAccessToken: getEnvOrViper("LINE_CHANNEL_ACCESS_TOKEN", ""),
			ChannelSecret:      getEnvOrViper("LINE_CHANNEL_SECRET", ""),
			LiffChannelID:      getEnvOrViper("LINE_LIFF_CHANNEL_ID", ""),
			APIBaseURL:         getEnvOrViper("LINE_API_BASE_URL", "https://api.line.me"),
			Timeout:            time.Duration(getIntOrViper("LINE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Shop: ShopConfig{
			Currency:              getEnvOrViper("SHOP_CURRENCY", "THB"),
			AutoCreateSalesOrder:  getBoolOrViper("AUTO_CREATE_SALES_ORDER", true),
			QuickPayModeOfPayment: getEnvOrViper("QUICK_PAY_MODE_OF_PAYMENT", ""),
			RequestPaymentMessage: getEnvOrViper("REQUEST_PAYMENT_MESSAGE", ""),
			RequestPaymentQRURL:   getEnvOrViper("REQUEST_PAYMENT_QR_URL", ""),
			PaymentRequestTTL:     time.Duration(getIntOrViper("PAYMENT_REQUEST_TTL_HOURS", 24)) * time.Hour,
			MenuLimit:             getIntOrViper("MENU_LIMIT", 50),
			HistoryLimit:          getIntOrViper("HISTORY_LIMIT", 20),
			Name:                  getEnvOrViper("SHOP_NAME", ""),
			LabelFontPath:         getEnvOrViper("LABEL_FONT_PATH", ""),
		},
		Loyalty: LoyaltyConfig{
			ProgramName:      getEnvOrViper("LOYALTY_PROGRAM_NAME", "Wellie Rewards"),
			ValuePerPoint:    valuePerPoint,
			CollectionFactor: collectionFactor,
		},
		Bootstrap: BootstrapConfig{
			MenuSeedFile:  getEnvOrViper("MENU_SEED_FILE", ""),
			AdminEmail:    getEnvOrViper("ADMIN_EMAIL", ""),
			AdminPassword: getEnvOrViper("ADMIN_PASSWORD", ""),
		},
	}

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.Loyalty.ValuePerPoint.IsNegative() || cfg.Loyalty.CollectionFactor.IsNegative() {
		return nil, fmt.Errorf("loyalty factors must not be negative")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getIntOrViper(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnvOrViper(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBoolOrViper(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnvOrViper(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return b
}
