package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates every table of the back-office store.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.LineProfile{},
		&models.MenuItem{},
		&models.SalesOrder{},
		&models.SalesOrderItem{},
		&models.Invoice{},
		&models.PaymentEntry{},
		&models.PaymentRequest{},
		&models.LoyaltyEntry{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedMenu upserts menu items from a JSON file holding a list of items.
// A missing file is not an error.
func SeedMenu(db *gorm.DB, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		utils.InfoLogger.Printf("menu seed file %s not found, skipping", path)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var items []models.MenuItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0, fmt.Errorf("parse menu seed: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_name", "description", "unit_price", "image_url", "show_in_line", "disabled", "updated_at"}),
	}).Create(&items).Error
	if err != nil {
		return 0, fmt.Errorf("seed menu: %w", err)
	}
	utils.InfoLogger.Printf("Seeded %d menu items", len(items))
	return len(items), nil
}

// EnsureAdmin creates the bootstrap admin account when no user exists yet.
func EnsureAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{Name: "Administrator", Email: email, Password: string(hashed), Role: models.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	utils.InfoLogger.Printf("Bootstrap admin %s created", email)
	return nil
}
