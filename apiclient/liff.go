package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/yeremiapane/line-order/cart"
	"github.com/yeremiapane/line-order/checkout"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

func (c *Client) Authenticate(ctx context.Context) (*services.AuthResult, error) {
	var result services.AuthResult
	if _, err := c.call(ctx, http.MethodPost, "/api/liff/auth", "", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Menu(ctx context.Context) ([]services.MenuEntry, error) {
	var entries []services.MenuEntry
	if _, err := c.call(ctx, http.MethodPost, "/api/liff/menu", "", struct{}{}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadMenu fetches the menu as a cart.MenuSource.
func (c *Client) LoadMenu(ctx context.Context) (cart.Menu, error) {
	entries, err := c.Menu(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]cart.MenuItem, 0, len(entries))
	for _, e := range entries {
		formatted := e.FormattedPrice
		items = append(items, cart.MenuItem{
			ItemCode:       e.ItemCode,
			ItemName:       e.ItemName,
			UnitPrice:      e.UnitPrice,
			FormattedPrice: &formatted,
			ImageURL:       e.ImageURL,
		})
	}
	return cart.NewMenu(items), nil
}

func (c *Client) Points(ctx context.Context) (*services.CustomerPoints, error) {
	var points services.CustomerPoints
	if _, err := c.call(ctx, http.MethodPost, "/api/liff/points", "", struct{}{}, &points); err != nil {
		return nil, err
	}
	return &points, nil
}

// SubmitOrder sends a checkout draft and returns the sales order name.
func (c *Client) SubmitOrder(ctx context.Context, order checkout.DraftOrder) (string, error) {
	input := services.SubmitOrderInput{Note: order.Note}
	for _, line := range order.Items {
		input.Items = append(input.Items, services.OrderLineInput{
			ItemCode: line.ItemCode,
			ItemName: line.ItemName,
			Qty:      line.Qty,
		})
	}

	var result services.SubmitResult
	if _, err := c.call(ctx, http.MethodPost, "/api/liff/orders", order.CustomerToken, input, &result); err != nil {
		return "", err
	}
	return result.SalesOrder, nil
}

// Register links the LINE user to a customer by phone. The phone number is
// checked locally first, so a malformed number never reaches the server.
func (c *Client) Register(ctx context.Context, phone string) (*services.RegisterResult, error) {
	phone = strings.TrimSpace(phone)
	if err := utils.ValidatePhone(phone); err != nil {
		return nil, err
	}
	var result services.RegisterResult
	if _, err := c.call(ctx, http.MethodPost, "/api/liff/register", "", map[string]string{"phone": phone}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) History(ctx context.Context) ([]services.OrderSummary, error) {
	var history []services.OrderSummary
	if _, err := c.call(ctx, http.MethodPost, "/api/liff/history", "", struct{}{}, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Session is the signed-in mini app user.
type Session struct {
	Token string
	Auth  *services.AuthResult
}

func (s *Session) IsRegistered() bool {
	return s.Auth != nil && s.Auth.IsRegistered
}

func (s *Session) CustomerToken() string {
	return s.Token
}

// StartSession authenticates the current token. An authentication failure
// still yields a session: the user can browse, but ordering stays disabled.
func (c *Client) StartSession(ctx context.Context) (*Session, error) {
	session := &Session{Token: c.Token()}
	auth, err := c.Authenticate(ctx)
	if err != nil {
		if utils.IsKind(err, utils.KindAuthentication) {
			return session, err
		}
		return nil, err
	}
	session.Auth = auth
	return session, nil
}
