// Package checkout drives the confirm-then-submit flow that turns the
// customer's cart into a sales order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/line-order/cart"
	"github.com/yeremiapane/line-order/utils"
)

type State int

const (
	Idle State = iota
	Confirming
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Confirming:
		return "confirming"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrBusy is returned while a submission is already being confirmed or sent.
	ErrBusy = errors.New("checkout: submission already in progress")

	// ErrDeclined is returned when the customer cancels the confirmation.
	ErrDeclined = errors.New("checkout: order not confirmed")

	ErrClosed = errors.New("checkout: view closed")
)

const (
	submitLabel = "ยืนยันสั่งซื้อ"
	busyLabel   = "กำลังส่งออเดอร์..."

	genericFailure = "ไม่สามารถสั่งซื้อได้ กรุณาลองใหม่อีกครั้ง"
	networkFailure = "ไม่สามารถเชื่อมต่อเซิร์ฟเวอร์ได้ กรุณาลองใหม่อีกครั้ง"
)

// DraftOrder is the payload sent for one submission attempt.
type DraftOrder struct {
	Items         []cart.Line
	Note          string
	CustomerToken string
}

// Dialog is the modal surface of the current view.
type Dialog interface {
	Show(title, message string)
	Confirm(ctx context.Context, title, message string) bool
	Close()
}

// Submitter creates the sales order and returns its name.
type Submitter interface {
	SubmitOrder(ctx context.Context, order DraftOrder) (string, error)
}

type Navigator interface {
	ToLanding(orderName string)
	ToRegistration()
}

// Session describes the signed-in customer.
type Session interface {
	IsRegistered() bool
	CustomerToken() string
}

type Workflow struct {
	mu        sync.Mutex
	state     State
	closed    bool
	lastOrder string
	lastErr   error

	cart      *cart.Store
	dialog    Dialog
	submitter Submitter
	nav       Navigator
	session   Session
	log       logrus.FieldLogger
}

func NewWorkflow(store *cart.Store, dialog Dialog, submitter Submitter, nav Navigator, session Session, log logrus.FieldLogger) *Workflow {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Workflow{
		state:     Idle,
		cart:      store,
		dialog:    dialog,
		submitter: submitter,
		nav:       nav,
		session:   session,
		log:       log,
	}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) busy() bool {
	return w.state == Confirming || w.state == Submitting
}

// CanSubmit reports whether the submit action should be enabled.
func (w *Workflow) CanSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed && !w.busy() && !w.cart.IsEmpty()
}

func (w *Workflow) SubmitLabel() string {
	if w.State() == Submitting {
		return busyLabel
	}
	return submitLabel
}

// LastOrder is the sales order created by the last successful submission.
func (w *Workflow) LastOrder() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastOrder
}

// LastError is the failure of the last submission attempt, if any.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Submit asks the customer to confirm and then sends the cart. On failure
// the cart is left exactly as it was.
func (w *Workflow) Submit(ctx context.Context, note string) (string, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", ErrClosed
	}
	if w.busy() {
		w.mu.Unlock()
		return "", ErrBusy
	}
	if !w.session.IsRegistered() {
		w.mu.Unlock()
		w.nav.ToRegistration()
		return "", utils.NewUnregisteredError("กรุณาสมัครสมาชิกก่อนสั่งออเดอร์")
	}
	if w.cart.IsEmpty() {
		w.mu.Unlock()
		return "", utils.NewValidationError("กรุณาเลือกสินค้าอย่างน้อย 1 รายการ")
	}
	w.state = Confirming
	w.mu.Unlock()

	totals := w.cart.Totals()
	message := fmt.Sprintf("สั่งซื้อ %d ชิ้น รวม %s", totals.TotalQuantity, utils.FormatTHB(totals.GrandTotal))
	if !w.dialog.Confirm(ctx, "ยืนยันการสั่งซื้อ", message) {
		w.setState(Idle)
		return "", ErrDeclined
	}

	w.mu.Lock()
	if w.closed {
		w.state = Idle
		w.mu.Unlock()
		return "", ErrClosed
	}
	w.state = Submitting
	w.mu.Unlock()

	draft := DraftOrder{
		Items:         w.cart.Snapshot(),
		Note:          strings.TrimSpace(note),
		CustomerToken: w.session.CustomerToken(),
	}
	orderName, err := w.submitter.SubmitOrder(ctx, draft)

	w.mu.Lock()
	closed := w.closed
	if err != nil {
		w.state = Failed
		w.lastErr = err
	} else {
		w.state = Succeeded
		w.lastOrder = orderName
		w.lastErr = nil
	}
	w.mu.Unlock()

	if err != nil {
		w.log.WithError(err).WithField("kind", utils.KindOf(err)).Warn("order submission failed")
		if !closed {
			w.fail(err)
		}
		w.setState(Idle)
		return "", err
	}

	w.log.WithField("sales_order", orderName).Info("order submitted")
	if !closed {
		w.cart.Clear()
		w.dialog.Show("สั่งซื้อสำเร็จ", "หมายเลขออเดอร์: "+orderName)
		w.nav.ToLanding(orderName)
	}
	return orderName, nil
}

func (w *Workflow) fail(err error) {
	if utils.IsKind(err, utils.KindUnregistered) {
		w.nav.ToRegistration()
		return
	}
	w.dialog.Show("ไม่สามารถสั่งซื้อได้", FailureMessage(err))
}

// FailureMessage is the text shown to the customer for a failed call.
// Business and validation rejections are shown as the server wrote them.
func FailureMessage(err error) string {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		return genericFailure
	}
	switch appErr.Kind {
	case utils.KindNetwork:
		return networkFailure
	case utils.KindInternal:
		return genericFailure
	}
	if appErr.Message == "" {
		return genericFailure
	}
	return appErr.Message
}

// Close detaches the workflow from its view. A submission still in flight
// finishes without touching the dialog, navigation or cart.
func (w *Workflow) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.dialog.Close()
}

func (w *Workflow) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
