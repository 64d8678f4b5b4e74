package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

// OrderSettings are the shop options that shape order creation.
type OrderSettings struct {
	Currency             string
	AutoCreateSalesOrder bool
	HistoryLimit         int
}

type OrderService struct {
	db        *gorm.DB
	menu      *MenuService
	events    Broadcaster
	messenger Messenger
	settings  OrderSettings
	now       func() time.Time
}

// NewOrderService builds the order service. A nil messenger disables the
// order confirmation push.
func NewOrderService(db *gorm.DB, menu *MenuService, events Broadcaster, messenger Messenger, settings OrderSettings) *OrderService {
	if settings.Currency == "" {
		settings.Currency = "THB"
	}
	if settings.HistoryLimit <= 0 {
		settings.HistoryLimit = 20
	}
	return &OrderService{
		db:        db,
		menu:      menu,
		events:    broadcasterOrNoop(events),
		messenger: messenger,
		settings:  settings,
		now:       time.Now,
	}
}

type OrderLineInput struct {
	ItemCode string `json:"item_code"`
	ItemName string `json:"item_name"`
	Qty      int    `json:"qty"`
}

type SubmitOrderInput struct {
	Items []OrderLineInput `json:"items"`
	Note  string           `json:"note"`
}

type SubmitResult struct {
	Success             bool            `json:"success"`
	SalesOrder          string          `json:"sales_order"`
	TotalItems          int             `json:"total_items"`
	TotalQty            int             `json:"total_qty"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
	GrandTotalFormatted string          `json:"grand_total_formatted"`
	Currency            string          `json:"currency"`
}

// NextDeliveryDate returns the coming Saturday, a full week ahead when
// today is already Saturday.
func NextDeliveryDate(now time.Time) time.Time {
	days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, days)
}

// Submit turns a customer cart into a submitted sales order. Prices always
// come from the menu, never from the request.
func (s *OrderService) Submit(ctx context.Context, profile *models.LineProfile, input SubmitOrderInput) (*SubmitResult, error) {
	if !s.settings.AutoCreateSalesOrder {
		return nil, utils.NewBusinessError("ระบบไม่ได้เปิดสร้าง Sales Order อัตโนมัติ")
	}
	if !profile.IsRegistered() {
		return nil, utils.NewUnregisteredError("กรุณาสมัครสมาชิกก่อนสั่งออเดอร์")
	}
	if len(input.Items) == 0 {
		return nil, utils.NewValidationError("กรุณาเลือกสินค้าอย่างน้อย 1 รายการ")
	}

	// Merge repeated codes and drop non-positive quantities, keeping order.
	quantities := make(map[string]int)
	var codes []string
	for _, line := range input.Items {
		if line.Qty <= 0 {
			continue
		}
		if _, seen := quantities[line.ItemCode]; !seen {
			codes = append(codes, line.ItemCode)
		}
		quantities[line.ItemCode] += line.Qty
	}
	if len(codes) == 0 {
		return nil, utils.NewValidationError("ไม่มีรายการสินค้าที่ถูกต้อง")
	}

	menu, err := s.menu.Lookup(ctx, codes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := models.SalesOrder{
		Name:            "tmp-" + uuid.NewString(),
		CustomerID:      *profile.CustomerID,
		TransactionDate: now,
		DeliveryDate:    NextDeliveryDate(now),
		Status:          models.OrderStatusToDeliverAndBill,
		DocStatus:       models.DocStatusSubmitted,
		Currency:        s.settings.Currency,
		Note:            strings.TrimSpace(input.Note),
		Source:          "line",
		GrandTotal:      decimal.Zero,
	}
	for _, code := range codes {
		item, ok := menu[code]
		if !ok {
			return nil, utils.NewValidationError("ไม่พบสินค้า: %s", code)
		}
		qty := quantities[code]
		amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		order.Items = append(order.Items, models.SalesOrderItem{
			ItemCode: item.ItemCode,
			ItemName: item.ItemName,
			Qty:      qty,
			Rate:     item.UnitPrice,
			Amount:   amount,
		})
		order.TotalQty += qty
		order.GrandTotal = order.GrandTotal.Add(amount)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create sales order: %w", err)
		}
		order.Name = models.SeriesName("SO", now, order.ID)
		return tx.Model(&order).Update("name", order.Name).Error
	})
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("LIFF order error")
		return nil, utils.NewBusinessError("ไม่สามารถสร้างออเดอร์ได้ กรุณาลองใหม่อีกครั้ง")
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"sales_order": order.Name,
		"customer_id": order.CustomerID,
		"grand_total": order.GrandTotal.StringFixed(2),
	}).Info("Sales order submitted from LINE")

	s.events.Broadcast(kds.EventOrderSubmitted, orderEvent(order))
	s.confirm(ctx, profile, order)

	return &SubmitResult{
		Success:             true,
		SalesOrder:          order.Name,
		TotalItems:          len(order.Items),
		TotalQty:            order.TotalQty,
		GrandTotal:          order.GrandTotal,
		GrandTotalFormatted: utils.FormatTHB(order.GrandTotal),
		Currency:            order.Currency,
	}, nil
}

// confirm pushes the order summary to the customer's LINE chat. The order
// is already committed, so a failed push is only logged.
func (s *OrderService) confirm(ctx context.Context, profile *models.LineProfile, order models.SalesOrder) {
	if s.messenger == nil || !profile.Followed {
		return
	}
	text := fmt.Sprintf("ได้รับออเดอร์ %s แล้ว %d ชิ้น รวม %s จัดส่งวันที่ %s",
		order.Name, order.TotalQty, utils.FormatTHB(order.GrandTotal), order.DeliveryDate.Format("02/01/2006"))
	if err := s.messenger.PushMessage(ctx, profile.LineUserID, TextMessage(text)); err != nil {
		utils.ErrorLogger.WithError(err).WithField("sales_order", order.Name).Error("Order confirmation push failed")
	}
}

func orderEvent(order models.SalesOrder) map[string]interface{} {
	return map[string]interface{}{
		"sales_order": order.Name,
		"customer_id": order.CustomerID,
		"status":      order.Status,
		"grand_total": order.GrandTotal,
	}
}

// GetByName loads an order with its items and customer.
func (s *OrderService) GetByName(ctx context.Context, name string) (*models.SalesOrder, error) {
	return loadOrder(s.db.WithContext(ctx), name)
}

func loadOrder(db *gorm.DB, name string) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := db.Preload("Items").Preload("Customer").Where("name = ?", name).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("sales order %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("load sales order %s: %w", name, err)
	}
	return &order, nil
}

type OrderItemSummary struct {
	ItemCode        string          `json:"item_code"`
	ItemName        string          `json:"item_name"`
	Qty             int             `json:"qty"`
	Rate            decimal.Decimal `json:"rate"`
	Amount          decimal.Decimal `json:"amount"`
	AmountFormatted string          `json:"amount_formatted"`
}

type OrderSummary struct {
	Name                string             `json:"name"`
	TransactionDate     string             `json:"transaction_date"`
	DeliveryDate        string             `json:"delivery_date"`
	Status              models.OrderStatus `json:"status"`
	StatusLabel         string             `json:"status_label"`
	TotalQty            int                `json:"total_qty"`
	GrandTotal          decimal.Decimal    `json:"grand_total"`
	GrandTotalFormatted string             `json:"grand_total_formatted"`
	Note                string             `json:"note"`
	Items               []OrderItemSummary `json:"items"`
}

// Summarize renders an order for display. It fails when the status has no
// display label.
func Summarize(order models.SalesOrder) (OrderSummary, error) {
	label, err := order.Status.Label()
	if err != nil {
		return OrderSummary{}, err
	}
	summary := OrderSummary{
		Name:                order.Name,
		TransactionDate:     order.TransactionDate.Format("2006-01-02"),
		DeliveryDate:        order.DeliveryDate.Format("2006-01-02"),
		Status:              order.Status,
		StatusLabel:         label,
		TotalQty:            order.TotalQty,
		GrandTotal:          order.GrandTotal,
		GrandTotalFormatted: utils.FormatTHB(order.GrandTotal),
		Note:                order.Note,
		Items:               make([]OrderItemSummary, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		summary.Items = append(summary.Items, OrderItemSummary{
			ItemCode:        item.ItemCode,
			ItemName:        item.ItemName,
			Qty:             item.Qty,
			Rate:            item.Rate,
			Amount:          item.Amount,
			AmountFormatted: utils.FormatTHB(item.Amount),
		})
	}
	return summary, nil
}

// SalesOrderView is the back-office desk's view of one order.
type SalesOrderView struct {
	Order       OrderSummary     `json:"order"`
	DocStatus   models.DocStatus `json:"docstatus"`
	PerBilled   int              `json:"per_billed"`
	CanSettle   bool             `json:"can_settle"`
	Customer    models.Customer  `json:"customer"`
	SavedPoints int              `json:"saved_points"`
}

func (s *OrderService) View(ctx context.Context, name string) (*SalesOrderView, error) {
	order, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(*order)
	if err != nil {
		return nil, err
	}
	return &SalesOrderView{
		Order:       summary,
		DocStatus:   order.DocStatus,
		PerBilled:   order.PerBilled,
		CanSettle:   order.CanSettle() && !order.IsBilled(),
		Customer:    order.Customer,
		SavedPoints: order.LoyaltyPointsToRedeem,
	}, nil
}

// History lists the customer's latest orders, newest first.
func (s *OrderService) History(ctx context.Context, profile *models.LineProfile) ([]OrderSummary, error) {
	if !profile.IsRegistered() {
		return []OrderSummary{}, nil
	}

	var orders []models.SalesOrder
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ? AND doc_status <> ?", *profile.CustomerID, models.DocStatusCancelled).
		Order("transaction_date DESC, id DESC").
		Limit(s.settings.HistoryLimit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}

	history := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summary, err := Summarize(order)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", order.Name, err)
		}
		history = append(history, summary)
	}
	return history, nil
}

// CopyText renders a plain-text order summary for pasting into chat.
func (s *OrderService) CopyText(ctx context.Context, name string) (string, error) {
	order, err := s.GetByName(ctx, name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ออเดอร์ %s\n", order.Name)
	if order.Customer.MobileNo != "" {
		fmt.Fprintf(&b, "ลูกค้า: %s (%s)\n", order.Customer.CustomerName, order.Customer.MobileNo)
	} else {
		fmt.Fprintf(&b, "ลูกค้า: %s\n", order.Customer.CustomerName)
	}
	fmt.Fprintf(&b, "วันส่ง: %s\n", order.DeliveryDate.Format("02/01/2006"))
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%d = %s\n", item.ItemName, item.Qty, utils.FormatTHB(item.Amount))
	}
	fmt.Fprintf(&b, "รวม: %s", utils.FormatTHB(order.GrandTotal))
	if order.Note != "" {
		fmt.Fprintf(&b, "\nหมายเหตุ: %s", order.Note)
	}
	return b.String(), nil
}

// PendingItems totals the quantities still to be delivered across open
// orders. It returns an empty string when nothing is pending.
func (s *OrderService) PendingItems(ctx context.Context) (string, error) {
	type row struct {
		ItemCode string
		ItemName string
		Qty      int
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Table("sales_order_items AS i").
		Select("i.item_code, i.item_name, SUM(i.qty) AS qty").
		Joins("JOIN sales_orders o ON o.id = i.sales_order_id").
		Where("o.doc_status = ? AND o.status IN ?", models.DocStatusSubmitted, []models.OrderStatus{
			models.OrderStatusToDeliverAndBill, models.OrderStatusToDeliver, models.OrderStatusOverdue,
		}).
		Group("i.item_code, i.item_name").
		Scan(&rows).Error
	if err != nil {
		return "", fmt.Errorf("load pending items: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	sort.Slice(rows, func(a, b int) bool { return rows[a].ItemName < rows[b].ItemName })

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "รายการค้างส่ง")
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s x%d", r.ItemName, r.Qty))
	}
	return strings.Join(lines, "\n"), nil
}
