package cart

// Action is a user intent against the cart.
type Action interface {
	apply(s *Store) bool
}

type AddItem struct {
	ItemCode string
	Qty      int
}

type AdjustQty struct {
	Index int
	Delta int
}

type RemoveLine struct {
	Index int
}

type ClearCart struct{}

func (a AddItem) apply(s *Store) bool    { return s.Add(a.ItemCode, a.Qty) }
func (a AdjustQty) apply(s *Store) bool  { return s.AdjustLineQty(a.Index, a.Delta) }
func (a RemoveLine) apply(s *Store) bool { return s.Remove(a.Index) }
func (ClearCart) apply(s *Store) bool {
	s.Clear()
	return true
}

// Dispatch applies action and reports whether the cart changed.
func (s *Store) Dispatch(action Action) bool {
	if action == nil {
		return false
	}
	return action.apply(s)
}
