// Package backoffice is the staff side of order settlement: the actions a
// clerk runs from a sales order screen.
package backoffice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

var (
	// ErrBusy is returned when a settlement for the same order is in flight.
	ErrBusy = errors.New("backoffice: settlement already in progress for this order")

	// ErrCancelled is returned when staff dismiss the points prompt.
	ErrCancelled = errors.New("backoffice: cancelled")
)

// API is the back-office server surface used by the desk.
type API interface {
	GetSalesOrder(ctx context.Context, name string) (*services.SalesOrderView, error)
	GetLoyaltyBalance(ctx context.Context, name string) (services.LoyaltyQuote, error)
	QuickPay(ctx context.Context, req services.RedemptionRequest) (services.SettlementOutcome, error)
	RequestPayment(ctx context.Context, req services.RedemptionRequest) (services.SettlementOutcome, error)
	NotifySalesOrder(ctx context.Context, name string) (string, error)
	OrderCopyText(ctx context.Context, name string) (string, error)
	PendingOrderItems(ctx context.Context) (string, error)
	BagLabel(ctx context.Context, name string) ([]byte, error)
}

// Prompter asks how many points to redeem. ok is false when dismissed.
type Prompter interface {
	PointsToRedeem(ctx context.Context, quote services.LoyaltyQuote, defaultPoints int) (points int, ok bool)
}

type Reporter interface {
	Success(message string)
	Failure(message string)
}

type Clipboard interface {
	Copy(text string) error
}

// Viewer opens a printable document for the clerk.
type Viewer interface {
	Open(filename string, data []byte) error
}

type Desk struct {
	api       API
	prompt    Prompter
	report    Reporter
	clipboard Clipboard
	viewer    Viewer
	log       logrus.FieldLogger

	mu       sync.Mutex
	inFlight map[string]bool
	views    map[string]*services.SalesOrderView
}

func NewDesk(api API, prompt Prompter, report Reporter, clipboard Clipboard, viewer Viewer, log logrus.FieldLogger) *Desk {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Desk{
		api:       api,
		prompt:    prompt,
		report:    report,
		clipboard: clipboard,
		viewer:    viewer,
		log:       log,
		inFlight:  make(map[string]bool),
		views:     make(map[string]*services.SalesOrderView),
	}
}

// Open loads an order into the desk, replacing any displayed copy.
func (d *Desk) Open(ctx context.Context, name string) (*services.SalesOrderView, error) {
	view, err := d.api.GetSalesOrder(ctx, name)
	if err != nil {
		d.fail("Load order", err)
		return nil, err
	}
	d.mu.Lock()
	d.views[name] = view
	d.mu.Unlock()
	return view, nil
}

// Order is the displayed state of name, nil when it was never opened.
func (d *Desk) Order(name string) *services.SalesOrderView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.views[name]
}

// Busy reports whether a settlement on name is in flight.
func (d *Desk) Busy(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight[name]
}

func (d *Desk) acquire(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[name] {
		return false
	}
	d.inFlight[name] = true
	return true
}

func (d *Desk) release(name string) {
	d.mu.Lock()
	delete(d.inFlight, name)
	d.mu.Unlock()
}

// QuickPay invoices the order and records payment in one step.
func (d *Desk) QuickPay(ctx context.Context, name string) (services.SettlementOutcome, error) {
	return d.settle(ctx, name, true)
}

// RequestPayment sends the customer a payment request without touching
// the paid state of the order.
func (d *Desk) RequestPayment(ctx context.Context, name string) (services.SettlementOutcome, error) {
	return d.settle(ctx, name, false)
}

func (d *Desk) settle(ctx context.Context, name string, quickPay bool) (services.SettlementOutcome, error) {
	if !d.acquire(name) {
		return services.SettlementOutcome{}, ErrBusy
	}
	defer d.release(name)

	action := "Request payment"
	if quickPay {
		action = "Quick pay"
	}
	logger := d.log.WithFields(logrus.Fields{"sales_order": name, "action": action})

	view := d.Order(name)
	if view == nil {
		var err error
		if view, err = d.Open(ctx, name); err != nil {
			return services.SettlementOutcome{}, err
		}
	}
	if !view.CanSettle {
		err := utils.NewBusinessError("Sales Order %s cannot be settled", name)
		d.fail(action, err)
		return services.SettlementOutcome{}, err
	}

	quote, err := d.api.GetLoyaltyBalance(ctx, name)
	if err != nil {
		d.fail(action, err)
		return services.SettlementOutcome{}, err
	}

	points := 0
	if quote.Redeemable() {
		defaultPoints := 0
		if quickPay {
			defaultPoints = quote.SavedPoints
		}
		var ok bool
		points, ok = d.prompt.PointsToRedeem(ctx, quote, defaultPoints)
		if !ok {
			return services.SettlementOutcome{}, ErrCancelled
		}
		if points < 0 || points > quote.AvailablePoints {
			err := utils.NewValidationError("Points to redeem must be between 0 and %d", quote.AvailablePoints)
			d.fail(action, err)
			return services.SettlementOutcome{}, err
		}
	}

	req := services.RedemptionRequest{SalesOrder: name, PointsToRedeem: points}
	var outcome services.SettlementOutcome
	if quickPay {
		outcome, err = d.api.QuickPay(ctx, req)
	} else {
		outcome, err = d.api.RequestPayment(ctx, req)
	}
	if err != nil {
		logger.WithError(err).Warn("settlement rejected")
		d.fail(action, err)
		return outcome, err
	}

	logger.WithField("status", outcome.Status).Info("settlement done")
	d.report.Success(outcome.Message)

	if fresh, err := d.api.GetSalesOrder(ctx, name); err == nil {
		d.mu.Lock()
		d.views[name] = fresh
		d.mu.Unlock()
	} else {
		logger.WithError(err).Warn("could not refresh sales order")
	}
	return outcome, nil
}

func (d *Desk) CopyOrderText(ctx context.Context, name string) error {
	text, err := d.api.OrderCopyText(ctx, name)
	if err != nil {
		d.fail("Copy order", err)
		return err
	}
	return d.copy(text, "Order copied")
}

func (d *Desk) CopyPendingItems(ctx context.Context) error {
	text, err := d.api.PendingOrderItems(ctx)
	if err != nil {
		d.fail("Copy pending items", err)
		return err
	}
	if text == "" {
		d.report.Success("No pending items")
		return nil
	}
	return d.copy(text, "Pending items copied")
}

func (d *Desk) copy(text, done string) error {
	if err := d.clipboard.Copy(text); err != nil {
		d.fail("Copy to clipboard", err)
		return err
	}
	d.report.Success(done)
	return nil
}

func (d *Desk) NotifyCustomer(ctx context.Context, name string) error {
	message, err := d.api.NotifySalesOrder(ctx, name)
	if err != nil {
		d.fail("Notify customer", err)
		return err
	}
	d.report.Success(message)
	return nil
}

func (d *Desk) PrintBagLabel(ctx context.Context, name string) error {
	pdf, err := d.api.BagLabel(ctx, name)
	if err != nil {
		d.fail("Print bag label", err)
		return err
	}
	if err := d.viewer.Open(fmt.Sprintf("bag-label-%s.pdf", name), pdf); err != nil {
		d.fail("Open bag label", err)
		return err
	}
	d.report.Success("Bag label ready")
	return nil
}

func (d *Desk) fail(action string, err error) {
	d.report.Failure(action + " failed: " + FailureText(err))
}

// FailureText is the message staff see for err. Server rejections are
// passed through as written.
func FailureText(err error) string {
	switch utils.KindOf(err) {
	case utils.KindNetwork:
		return "could not reach the server, please try again"
	case utils.KindInternal:
		var appErr *utils.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			return appErr.Message
		}
		return "unexpected error"
	default:
		return err.Error()
	}
}
