// Package cart holds the customer's in-progress order inside the mini app.
//
// A Store lives for one ordering session. It is created when the menu view
// mounts and thrown away when the customer navigates off or the order is
// submitted; nothing here is persisted.
package cart

import (
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MenuItem is the catalog entry a cart line is built from.
type MenuItem struct {
	ItemCode       string          `json:"item_code"`
	ItemName       string          `json:"item_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	FormattedPrice *string         `json:"formatted_price"`
	ImageURL       string          `json:"image_url"`
}

// MenuSource resolves item codes against the current menu snapshot.
type MenuSource interface {
	Lookup(itemCode string) (MenuItem, bool)
}

// Menu is an in-memory MenuSource keyed by item code.
type Menu map[string]MenuItem

func NewMenu(items []MenuItem) Menu {
	m := make(Menu, len(items))
	for _, item := range items {
		m[item.ItemCode] = item
	}
	return m
}

func (m Menu) Lookup(itemCode string) (MenuItem, bool) {
	item, ok := m[itemCode]
	return item, ok
}

type Line struct {
	ItemCode       string          `json:"item_code"`
	ItemName       string          `json:"item_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	FormattedPrice *string         `json:"formatted_price"`
	Qty            int             `json:"qty"`
}

// Amount is unit price times quantity.
func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

type Totals struct {
	TotalQuantity int             `json:"total_quantity"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// Store is an ordered list of cart lines with at most one line per item
// code and every quantity at least 1.
type Store struct {
	mu        sync.Mutex
	menu      MenuSource
	lines     []Line
	observers []func(Totals)
	log       logrus.FieldLogger
}

// NewStore creates an empty cart over menu. A nil log uses the logrus
// standard logger.
func NewStore(menu MenuSource, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{menu: menu, log: log}
}

// Add puts qtyDelta of itemCode into the cart. Unknown items and
// non-positive deltas leave the cart untouched; the return value reports
// whether anything changed.
func (s *Store) Add(itemCode string, qtyDelta int) bool {
	if qtyDelta < 1 {
		return false
	}
	item, ok := s.menu.Lookup(itemCode)
	if !ok {
		s.log.WithField("item_code", itemCode).Warn("item not in menu, ignoring add to cart")
		return false
	}

	s.mu.Lock()
	found := false
	for i := range s.lines {
		if s.lines[i].ItemCode == itemCode {
			s.lines[i].Qty += qtyDelta
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, Line{
			ItemCode:       item.ItemCode,
			ItemName:       item.ItemName,
			UnitPrice:      item.UnitPrice,
			FormattedPrice: item.FormattedPrice,
			Qty:            qtyDelta,
		})
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// AdjustLineQty changes the quantity of the line at index by delta,
// never going below 1.
func (s *Store) AdjustLineQty(index, delta int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.lines) {
		s.mu.Unlock()
		return false
	}
	qty := s.lines[index].Qty + delta
	if qty < 1 {
		qty = 1
	}
	s.lines[index].Qty = qty
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Store) Remove(index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.lines) {
		s.mu.Unlock()
		return false
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	s.mu.Unlock()

	s.notify()
	return true
}

// Clear empties the cart. Only called once an order went through.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	s.notify()
}

// Totals sums the current lines.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalsOf(s.lines)
}

func totalsOf(lines []Line) Totals {
	t := Totals{GrandTotal: decimal.Zero}
	for _, l := range lines {
		t.TotalQuantity += l.Qty
		t.GrandTotal = t.GrandTotal.Add(l.Amount())
	}
	return t
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Snapshot is the frozen cart content handed to checkout.
func (s *Store) Snapshot() []Line {
	return s.Lines()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Badge is the cart icon counter: empty for no items, capped at "99+".
func (s *Store) Badge() string {
	qty := s.Totals().TotalQuantity
	switch {
	case qty <= 0:
		return ""
	case qty > 99:
		return "99+"
	default:
		return strconv.Itoa(qty)
	}
}

// Subscribe registers fn to receive fresh totals after every change.
func (s *Store) Subscribe(fn func(Totals)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	totals := totalsOf(s.lines)
	observers := make([]func(Totals), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(totals)
	}
}
