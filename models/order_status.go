package models

import (
	"database/sql/driver"
	"fmt"
)

// OrderStatus is the closed set of sales order statuses the back office
// produces.
type OrderStatus string

const (
	OrderStatusDraft            OrderStatus = "Draft"
	OrderStatusToDeliverAndBill OrderStatus = "To Deliver and Bill"
	OrderStatusToBill           OrderStatus = "To Bill"
	OrderStatusToDeliver        OrderStatus = "To Deliver"
	OrderStatusCompleted        OrderStatus = "Completed"
	OrderStatusCancelled        OrderStatus = "Cancelled"
	OrderStatusOverdue          OrderStatus = "Overdue"
	OrderStatusClosed           OrderStatus = "Closed"
	OrderStatusOnHold           OrderStatus = "On Hold"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusDraft:            "ร่าง",
	OrderStatusToDeliverAndBill: "รอจัดส่ง",
	OrderStatusToBill:           "รอชำระ",
	OrderStatusToDeliver:        "รอจัดส่ง",
	OrderStatusCompleted:        "สำเร็จ",
	OrderStatusCancelled:        "ยกเลิก",
	OrderStatusOverdue:          "เกินกำหนด",
	OrderStatusClosed:           "ปิดแล้ว",
	OrderStatusOnHold:           "พักไว้",
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Label returns the customer-facing label. Unknown statuses are an error,
// never the raw code.
func (s OrderStatus) Label() (string, error) {
	label, ok := orderStatusLabels[s]
	if !ok {
		return "", fmt.Errorf("no display label for order status %q", string(s))
	}
	return label, nil
}

func (s OrderStatus) MustLabel() string {
	label, err := s.Label()
	if err != nil {
		panic(err)
	}
	return label
}

// AfterBilling is the status an order moves to once fully invoiced and paid.
func (s OrderStatus) AfterBilling() OrderStatus {
	switch s {
	case OrderStatusToDeliverAndBill, OrderStatusOverdue:
		return OrderStatusToDeliver
	case OrderStatusToBill:
		return OrderStatusCompleted
	default:
		return s
	}
}

// IsPending reports whether goods for the order still have to be delivered.
func (s OrderStatus) IsPending() bool {
	return s == OrderStatusToDeliverAndBill || s == OrderStatusToDeliver || s == OrderStatusOverdue
}

func (s OrderStatus) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown order status %q", string(s))
	}
	return string(s), nil
}

func (s *OrderStatus) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into OrderStatus", value)
	}
	status, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// DocStatus mirrors the document lifecycle of the back-office record store.
type DocStatus int

const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)
