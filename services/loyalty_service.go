package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

// LoyaltyProgram holds the conversion factors of the points program.
type LoyaltyProgram struct {
	Name string
	// ValuePerPoint is the discount one redeemed point is worth.
	ValuePerPoint decimal.Decimal
	// CollectionFactor is the amount spent per earned point.
	CollectionFactor decimal.Decimal
}

// LoyaltyQuote is the redemption headroom of one order at one moment.
type LoyaltyQuote struct {
	SalesOrder          string          `json:"sales_order"`
	ProgramName         string          `json:"loyalty_program"`
	AvailablePoints     int             `json:"available_points"`
	ValuePerPoint       decimal.Decimal `json:"value_per_point"`
	MaxRedeemableAmount decimal.Decimal `json:"max_redeemable_amount"`
	SuggestedPoints     int             `json:"suggested_points"`
	SavedPoints         int             `json:"saved_points"`
}

// Redeemable is false when a redemption prompt would be pointless.
func (q LoyaltyQuote) Redeemable() bool {
	return q.AvailablePoints > 0 && q.ValuePerPoint.IsPositive() && q.MaxRedeemableAmount.IsPositive()
}

// Discount is the money value of points.
func (q LoyaltyQuote) Discount(points int) decimal.Decimal {
	return q.ValuePerPoint.Mul(decimal.NewFromInt(int64(points)))
}

type LoyaltyService struct {
	db      *gorm.DB
	program LoyaltyProgram
}

func NewLoyaltyService(db *gorm.DB, program LoyaltyProgram) *LoyaltyService {
	return &LoyaltyService{db: db, program: program}
}

func (s *LoyaltyService) Program() LoyaltyProgram {
	return s.program
}

// Balance sums the customer's ledger. A negative sum means points were
// over-redeemed and is returned as an error.
func (s *LoyaltyService) Balance(ctx context.Context, customerID uint) (int, error) {
	return balance(s.db.WithContext(ctx), customerID)
}

func balance(db *gorm.DB, customerID uint) (int, error) {
	var total int64
	err := db.Model(&models.LoyaltyEntry{}).
		Select("COALESCE(SUM(points), 0)").
		Where("customer_id = ?", customerID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum loyalty points: %w", err)
	}
	if total < 0 {
		utils.ErrorLogger.WithFields(logrus.Fields{"customer_id": customerID, "points": total}).Error("loyalty ledger is negative")
		return 0, fmt.Errorf("loyalty ledger of customer %d is negative (%d points)", customerID, total)
	}
	return int(total), nil
}

// Quote reads the ledger fresh for the order's customer.
func (s *LoyaltyService) Quote(ctx context.Context, orderName string) (LoyaltyQuote, error) {
	db := s.db.WithContext(ctx)
	order, err := loadOrder(db, orderName)
	if err != nil {
		return LoyaltyQuote{}, err
	}
	return s.quoteFor(db, order)
}

func (s *LoyaltyService) quoteFor(db *gorm.DB, order *models.SalesOrder) (LoyaltyQuote, error) {
	available, err := balance(db, order.CustomerID)
	if err != nil {
		return LoyaltyQuote{}, err
	}

	quote := LoyaltyQuote{
		SalesOrder:          order.Name,
		ProgramName:         s.program.Name,
		AvailablePoints:     available,
		ValuePerPoint:       s.program.ValuePerPoint,
		MaxRedeemableAmount: decimal.Zero,
	}
	if available == 0 || !s.program.ValuePerPoint.IsPositive() {
		return quote, nil
	}

	quote.MaxRedeemableAmount = decimal.Min(order.GrandTotal, quote.Discount(available))
	suggested := quote.MaxRedeemableAmount.Div(s.program.ValuePerPoint).Floor().IntPart()
	if int(suggested) < available {
		quote.SuggestedPoints = int(suggested)
	} else {
		quote.SuggestedPoints = available
	}

	quote.SavedPoints = order.LoyaltyPointsToRedeem
	if quote.SavedPoints > quote.SuggestedPoints {
		quote.SavedPoints = quote.SuggestedPoints
	}
	if quote.SavedPoints < 0 {
		quote.SavedPoints = 0
	}
	return quote, nil
}

// ValidateRedemption is the authoritative check of a requested redemption
// against a fresh quote.
func ValidateRedemption(quote LoyaltyQuote, points int) error {
	if points < 0 {
		return utils.NewValidationError("points to redeem must not be negative")
	}
	if points == 0 {
		return nil
	}
	if points > quote.AvailablePoints {
		return utils.NewBusinessError("cannot redeem %d points, only %d available", points, quote.AvailablePoints)
	}
	if !quote.ValuePerPoint.IsPositive() {
		return utils.NewBusinessError("loyalty points cannot be redeemed for this order")
	}
	if quote.Discount(points).GreaterThan(quote.MaxRedeemableAmount) {
		return utils.NewBusinessError("redemption of %s exceeds the maximum of %s",
			utils.FormatTHB(quote.Discount(points)), utils.FormatTHB(quote.MaxRedeemableAmount))
	}
	return nil
}

// EarnedPoints converts a paid amount into points.
func (p LoyaltyProgram) EarnedPoints(paid decimal.Decimal) int {
	if !p.CollectionFactor.IsPositive() || !paid.IsPositive() {
		return 0
	}
	return int(paid.Div(p.CollectionFactor).Floor().IntPart())
}

func addLedgerEntry(tx *gorm.DB, customerID uint, points int, kind string, orderID, invoiceID *uint) error {
	if points == 0 {
		return nil
	}
	entry := models.LoyaltyEntry{
		CustomerID:   customerID,
		Points:       points,
		Kind:         kind,
		SalesOrderID: orderID,
		InvoiceID:    invoiceID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record %s of %d points: %w", kind, points, err)
	}
	return nil
}

// CustomerPoints is the get_points payload.
type CustomerPoints struct {
	IsRegistered    bool   `json:"is_registered"`
	Points          int    `json:"points"`
	PointsFormatted string `json:"points_formatted"`
	CustomerName    string `json:"customer_name,omitempty"`
	ProgramName     string `json:"loyalty_program,omitempty"`
}

func (s *LoyaltyService) CustomerPoints(ctx context.Context, profile *models.LineProfile) (*CustomerPoints, error) {
	if !profile.IsRegistered() {
		return &CustomerPoints{IsRegistered: false, PointsFormatted: "0"}, nil
	}
	points, err := s.Balance(ctx, *profile.CustomerID)
	if err != nil {
		return nil, err
	}
	result := &CustomerPoints{
		IsRegistered:    true,
		Points:          points,
		PointsFormatted: utils.FormatPoints(points),
		ProgramName:     s.program.Name,
	}
	if profile.Customer != nil {
		result.CustomerName = profile.Customer.CustomerName
	}
	return result, nil
}
