package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settlement outcome states
const (
	OutcomePaid             = "paid"
	OutcomePaymentRequested = "payment_requested"
	OutcomeRejected         = "rejected"
)

const defaultPaymentRequestMessage = "กรุณาชำระเงินตามยอดที่แจ้งและส่งสลิปยืนยันค่ะ"

// RedemptionRequest asks to settle an order while redeeming points.
type RedemptionRequest struct {
	SalesOrder     string `json:"sales_order"`
	PointsToRedeem int    `json:"points_to_redeem"`
}

// SettlementOutcome is the terminal result of one settlement attempt.
type SettlementOutcome struct {
	Status         string          `json:"status"`
	SalesOrder     string          `json:"sales_order"`
	Invoice        string          `json:"invoice,omitempty"`
	PaymentEntry   string          `json:"payment_entry,omitempty"`
	PaymentRequest string          `json:"payment_request,omitempty"`
	PointsRedeemed int             `json:"points_redeemed"`
	LoyaltyAmount  decimal.Decimal `json:"loyalty_amount"`
	Amount         decimal.Decimal `json:"amount"`
	PointsEarned   int             `json:"points_earned,omitempty"`
	Message        string          `json:"message"`
	Reason         string          `json:"reason,omitempty"`
}

func rejected(orderName string, err error) SettlementOutcome {
	return SettlementOutcome{Status: OutcomeRejected, SalesOrder: orderName, Reason: err.Error()}
}

type SettlementSettings struct {
	ModeOfPayment         string
	RequestPaymentMessage string
	RequestPaymentQRURL   string
	PaymentRequestTTL     time.Duration
}

// SettlementService converts submitted orders into invoices and payments.
// Every attempt re-reads the loyalty ledger and locks the order row, so the
// points a client proposes are only advisory.
type SettlementService struct {
	db        *gorm.DB
	loyalty   *LoyaltyService
	messenger Messenger
	events    Broadcaster
	settings  SettlementSettings
	now       func() time.Time
}

func NewSettlementService(db *gorm.DB, loyalty *LoyaltyService, messenger Messenger, events Broadcaster, settings SettlementSettings) *SettlementService {
	if settings.PaymentRequestTTL <= 0 {
		settings.PaymentRequestTTL = 24 * time.Hour
	}
	return &SettlementService{
		db:        db,
		loyalty:   loyalty,
		messenger: messenger,
		events:    broadcasterOrNoop(events),
		settings:  settings,
		now:       time.Now,
	}
}

// lockOrder loads the order and its customer for update and checks the order
// can still be settled.
func lockOrder(tx *gorm.DB, name string) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("sales order %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("lock sales order %s: %w", name, err)
	}

	// The ledger is summed, not stored, so settlements of different orders
	// for the same customer serialize on the customer row.
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Take(&models.Customer{}, order.CustomerID).Error
	if err != nil {
		return nil, fmt.Errorf("lock customer %d of %s: %w", order.CustomerID, name, err)
	}

	if order.DocStatus != models.DocStatusSubmitted {
		return nil, utils.NewBusinessError("Sales Order must be Submitted")
	}
	if !order.CanSettle() {
		return nil, utils.NewBusinessError("Sales Order %s is %s and cannot be settled", order.Name, order.Status)
	}

	var invoice models.Invoice
	if err := tx.Where("sales_order_id = ?", order.ID).Limit(1).Find(&invoice).Error; err != nil {
		return nil, fmt.Errorf("check invoices: %w", err)
	}
	if invoice.ID != 0 {
		return nil, utils.NewBusinessError("Sales Order %s is already settled by %s", order.Name, invoice.Name)
	}
	if order.IsBilled() {
		return nil, utils.NewBusinessError("Sales Order %s is already billed", order.Name)
	}
	return &order, nil
}

// QuickPay creates the invoice and records full payment in one transaction.
// A failure leaves no partial invoice behind.
func (s *SettlementService) QuickPay(ctx context.Context, req RedemptionRequest, actorID uint) (SettlementOutcome, error) {
	if strings.TrimSpace(req.SalesOrder) == "" {
		err := utils.NewValidationError("Sales Order is required")
		return rejected(req.SalesOrder, err), err
	}
	if req.PointsToRedeem < 0 {
		err := utils.NewValidationError("points to redeem must not be negative")
		return rejected(req.SalesOrder, err), err
	}
	if s.settings.ModeOfPayment == "" {
		err := utils.NewBusinessError("Please set Quick Pay Mode of Payment in LINE Settings")
		return rejected(req.SalesOrder, err), err
	}

	outcome := SettlementOutcome{Status: OutcomePaid, SalesOrder: req.SalesOrder}
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, req.SalesOrder)
		if err != nil {
			return err
		}

		quote, err := s.loyalty.quoteFor(tx, order)
		if err != nil {
			return err
		}
		if err := ValidateRedemption(quote, req.PointsToRedeem); err != nil {
			return err
		}

		discount := quote.Discount(req.PointsToRedeem)
		outstanding := order.GrandTotal.Sub(discount)

		invoice := models.Invoice{
			Name:              "tmp-" + uuid.NewString(),
			SalesOrderID:      order.ID,
			CustomerID:        order.CustomerID,
			GrandTotal:        order.GrandTotal,
			LoyaltyPoints:     req.PointsToRedeem,
			LoyaltyAmount:     discount,
			OutstandingAmount: outstanding,
			Status:            models.InvoiceStatusUnpaid,
			CreatedBy:         actorID,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		invoice.Name = models.SeriesName("SINV", now, invoice.ID)

		if err := addLedgerEntry(tx, order.CustomerID, -req.PointsToRedeem, models.LoyaltyRedeem, &order.ID, &invoice.ID); err != nil {
			return err
		}

		payment := models.PaymentEntry{
			Name:          "tmp-" + uuid.NewString(),
			InvoiceID:     invoice.ID,
			ModeOfPayment: s.settings.ModeOfPayment,
			PaidAmount:    outstanding,
			Reference:     uuid.NewString(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("create payment entry: %w", err)
		}
		payment.Name = models.SeriesName("PE", now, payment.ID)
		if err := tx.Model(&payment).Update("name", payment.Name).Error; err != nil {
			return err
		}

		err = tx.Model(&invoice).Updates(map[string]interface{}{
			"name":               invoice.Name,
			"outstanding_amount": decimal.Zero,
			"status":             models.InvoiceStatusPaid,
		}).Error
		if err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}

		earned := s.loyalty.Program().EarnedPoints(outstanding)
		if err := addLedgerEntry(tx, order.CustomerID, earned, models.LoyaltyEarn, &order.ID, &invoice.ID); err != nil {
			return err
		}

		err = tx.Model(order).Updates(map[string]interface{}{
			"status":                   order.Status.AfterBilling(),
			"per_billed":               100,
			"loyalty_points_to_redeem": req.PointsToRedeem,
		}).Error
		if err != nil {
			return fmt.Errorf("update sales order: %w", err)
		}

		err = tx.Model(&models.PaymentRequest{}).
			Where("sales_order_id = ? AND status = ?", order.ID, models.PaymentRequestRequested).
			Update("status", models.PaymentRequestSettled).Error
		if err != nil {
			return fmt.Errorf("settle payment requests: %w", err)
		}

		outcome.Invoice = invoice.Name
		outcome.PaymentEntry = payment.Name
		outcome.PointsRedeemed = req.PointsToRedeem
		outcome.LoyaltyAmount = discount
		outcome.Amount = outstanding
		outcome.PointsEarned = earned
		return nil
	})
	if err != nil {
		err = s.explainConflict(ctx, req.SalesOrder, err)
		utils.ErrorLogger.WithError(err).WithField("sales_order", req.SalesOrder).Error("Quick pay rejected")
		return rejected(req.SalesOrder, err), err
	}

	outcome.Message = fmt.Sprintf("Created Sales Invoice %s and Payment Entry %s", outcome.Invoice, outcome.PaymentEntry)
	utils.InfoLogger.WithFields(logrus.Fields{
		"sales_order":     outcome.SalesOrder,
		"invoice":         outcome.Invoice,
		"points_redeemed": outcome.PointsRedeemed,
		"amount":          outcome.Amount.StringFixed(2),
		"actor_id":        actorID,
	}).Info("Quick pay completed")
	s.events.Broadcast(kds.EventOrderSettled, outcome)
	return outcome, nil
}

// explainConflict turns a lost race on the unique invoice index into the
// same rejection a serialized caller would have seen.
func (s *SettlementService) explainConflict(ctx context.Context, orderName string, err error) error {
	if utils.KindOf(err) != utils.KindInternal {
		return err
	}
	var invoice models.Invoice
	lookup := s.db.WithContext(ctx).
		Joins("JOIN sales_orders ON sales_orders.id = invoices.sales_order_id").
		Where("sales_orders.name = ?", orderName).
		Limit(1).Find(&invoice)
	if lookup.Error == nil && invoice.ID != 0 {
		return utils.NewBusinessError("Sales Order %s is already settled by %s", orderName, invoice.Name)
	}
	return err
}

// RequestPayment records a payment request and sends it to the customer's
// LINE chat. The order's paid state is not touched.
func (s *SettlementService) RequestPayment(ctx context.Context, req RedemptionRequest, actorID uint) (SettlementOutcome, error) {
	if strings.TrimSpace(req.SalesOrder) == "" {
		err := utils.NewValidationError("Sales Order is required")
		return rejected(req.SalesOrder, err), err
	}
	if req.PointsToRedeem < 0 {
		err := utils.NewValidationError("points to redeem must not be negative")
		return rejected(req.SalesOrder, err), err
	}
	if s.settings.RequestPaymentQRURL == "" {
		err := utils.NewBusinessError("Please set a public QR Code image in LINE Settings")
		return rejected(req.SalesOrder, err), err
	}

	message := s.settings.RequestPaymentMessage
	if message == "" {
		message = defaultPaymentRequestMessage
	}

	outcome := SettlementOutcome{Status: OutcomePaymentRequested, SalesOrder: req.SalesOrder}
	var request models.PaymentRequest
	var customerID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, req.SalesOrder)
		if err != nil {
			return err
		}
		customerID = order.CustomerID

		quote, err := s.loyalty.quoteFor(tx, order)
		if err != nil {
			return err
		}
		if err := ValidateRedemption(quote, req.PointsToRedeem); err != nil {
			return err
		}

		discount := quote.Discount(req.PointsToRedeem)
		due := order.GrandTotal.Sub(discount)

		text := fmt.Sprintf("%s\nยอดที่ต้องชำระ: %s", message, utils.FormatTHB(due))
		if req.PointsToRedeem > 0 {
			text += fmt.Sprintf("\nใช้คะแนน %s คะแนน (ส่วนลด %s)", utils.FormatPoints(req.PointsToRedeem), utils.FormatTHB(discount))
		}

		request = models.PaymentRequest{
			Reference:      uuid.NewString(),
			SalesOrderID:   order.ID,
			AmountDue:      due,
			PointsToRedeem: req.PointsToRedeem,
			Message:        text,
			QRURL:          s.settings.RequestPaymentQRURL,
			Status:         models.PaymentRequestRequested,
			RequestedBy:    actorID,
			ExpiresAt:      s.now().Add(s.settings.PaymentRequestTTL),
		}
		if err := tx.Create(&request).Error; err != nil {
			return fmt.Errorf("create payment request: %w", err)
		}

		if err := tx.Model(order).Update("loyalty_points_to_redeem", req.PointsToRedeem).Error; err != nil {
			return fmt.Errorf("save redemption on order: %w", err)
		}

		outcome.PaymentRequest = request.Reference
		outcome.PointsRedeemed = req.PointsToRedeem
		outcome.LoyaltyAmount = discount
		outcome.Amount = due
		return nil
	})
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("sales_order", req.SalesOrder).Error("Payment request rejected")
		return rejected(req.SalesOrder, err), err
	}

	sent, sendErr := s.deliver(ctx, customerID, request)
	switch {
	case sent:
		outcome.Message = fmt.Sprintf("Payment request sent: %s", request.Message)
	case sendErr != nil:
		outcome.Message = fmt.Sprintf("Payment request prepared but not delivered (%v): %s", sendErr, request.Message)
	default:
		outcome.Message = fmt.Sprintf("Payment request prepared: %s", request.Message)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"sales_order":     outcome.SalesOrder,
		"reference":       request.Reference,
		"points_redeemed": outcome.PointsRedeemed,
		"sent_to_line":    sent,
		"actor_id":        actorID,
	}).Info("Payment request recorded")
	s.events.Broadcast(kds.EventPaymentRequested, outcome)
	return outcome, nil
}

// deliver pushes the request to the customer's LINE chat. It reports false
// without error when the customer has no followed LINE profile.
func (s *SettlementService) deliver(ctx context.Context, customerID uint, request models.PaymentRequest) (bool, error) {
	if s.messenger == nil {
		return false, nil
	}
	var profile models.LineProfile
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND followed = ?", customerID, true).
		Limit(1).Find(&profile).Error
	if err != nil {
		return false, err
	}
	if profile.ID == 0 {
		return false, nil
	}

	if err := s.messenger.PushMessage(ctx, profile.LineUserID, TextMessage(request.Message), ImageMessage(request.QRURL)); err != nil {
		utils.ErrorLogger.WithError(err).WithField("reference", request.Reference).Error("Payment request push failed")
		return false, err
	}
	if err := s.db.WithContext(ctx).Model(&request).Update("sent_to_line", true).Error; err != nil {
		return true, err
	}
	return true, nil
}
