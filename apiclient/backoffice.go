package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/yeremiapane/line-order/backoffice"
	"github.com/yeremiapane/line-order/checkout"
	"github.com/yeremiapane/line-order/services"
)

var (
	_ backoffice.API     = (*Client)(nil)
	_ checkout.Submitter = (*Client)(nil)
	_ checkout.Session   = (*Session)(nil)
)

// Login signs a staff member in and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var result struct {
		Token    string `json:"token"`
		UserRole string `json:"user_role"`
	}
	body := map[string]string{"email": email, "password": password}
	if _, err := c.call(ctx, http.MethodPost, "/api/login", "", body, &result); err != nil {
		return "", err
	}
	c.SetToken(result.Token)
	return result.UserRole, nil
}

func orderPath(name, action string) string {
	p := "/api/admin/sales-orders/" + url.PathEscape(name)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) GetSalesOrder(ctx context.Context, name string) (*services.SalesOrderView, error) {
	var view services.SalesOrderView
	if _, err := c.call(ctx, http.MethodGet, orderPath(name, ""), "", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) GetLoyaltyBalance(ctx context.Context, name string) (services.LoyaltyQuote, error) {
	var quote services.LoyaltyQuote
	_, err := c.call(ctx, http.MethodGet, orderPath(name, "loyalty"), "", nil, &quote)
	return quote, err
}

func (c *Client) QuickPay(ctx context.Context, req services.RedemptionRequest) (services.SettlementOutcome, error) {
	return c.settle(ctx, "quick-pay", req)
}

func (c *Client) RequestPayment(ctx context.Context, req services.RedemptionRequest) (services.SettlementOutcome, error) {
	return c.settle(ctx, "request-payment", req)
}

func (c *Client) settle(ctx context.Context, action string, req services.RedemptionRequest) (services.SettlementOutcome, error) {
	var outcome services.SettlementOutcome
	body := map[string]int{"points_to_redeem": req.PointsToRedeem}
	_, err := c.call(ctx, http.MethodPost, orderPath(req.SalesOrder, action), "", body, &outcome)
	return outcome, err
}

func (c *Client) NotifySalesOrder(ctx context.Context, name string) (string, error) {
	return c.call(ctx, http.MethodPost, orderPath(name, "notify"), "", struct{}{}, nil)
}

func (c *Client) OrderCopyText(ctx context.Context, name string) (string, error) {
	resp, err := c.raw(ctx, http.MethodGet, orderPath(name, "copy-text"))
	if err != nil {
		return "", err
	}
	return string(resp.body), nil
}

// PendingOrderItems returns "" when nothing is waiting for delivery.
func (c *Client) PendingOrderItems(ctx context.Context) (string, error) {
	resp, err := c.raw(ctx, http.MethodGet, "/api/admin/sales-orders/pending-items")
	if err != nil {
		return "", err
	}
	if resp.status == http.StatusNoContent {
		return "", nil
	}
	return string(resp.body), nil
}

func (c *Client) BagLabel(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.raw(ctx, http.MethodGet, orderPath(name, "bag-label"))
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}
