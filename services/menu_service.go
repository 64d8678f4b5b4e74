package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

type MenuService struct {
	db    *gorm.DB
	limit int
}

func NewMenuService(db *gorm.DB, limit int) *MenuService {
	if limit <= 0 {
		limit = 50
	}
	return &MenuService{db: db, limit: limit}
}

// MenuEntry is a menu item as shown in the mini app.
type MenuEntry struct {
	ItemCode       string          `json:"item_code"`
	ItemName       string          `json:"item_name"`
	Description    string          `json:"description"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	FormattedPrice string          `json:"formatted_price"`
	ImageURL       string          `json:"image_url"`
}

func (s *MenuService) available(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.MenuItem{}).
		Where("show_in_line = ? AND disabled = ?", true, false)
}

// List returns orderable items sorted by name.
func (s *MenuService) List(ctx context.Context) ([]MenuEntry, error) {
	var items []models.MenuItem
	if err := s.available(ctx).Order("item_name ASC").Limit(s.limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}

	entries := make([]MenuEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, MenuEntry{
			ItemCode:       item.ItemCode,
			ItemName:       item.ItemName,
			Description:    item.Description,
			UnitPrice:      item.UnitPrice,
			FormattedPrice: utils.FormatTHB(item.UnitPrice),
			ImageURL:       item.ImageURL,
		})
	}
	return entries, nil
}

// Lookup loads the orderable items among codes, keyed by item code.
func (s *MenuService) Lookup(ctx context.Context, codes []string) (map[string]models.MenuItem, error) {
	var items []models.MenuItem
	if len(codes) > 0 {
		if err := s.available(ctx).Where("item_code IN ?", codes).Find(&items).Error; err != nil {
			return nil, fmt.Errorf("lookup menu: %w", err)
		}
	}
	byCode := make(map[string]models.MenuItem, len(items))
	for _, item := range items {
		byCode[item.ItemCode] = item
	}
	return byCode, nil
}
