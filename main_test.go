package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/line-order/apiclient"
	"github.com/yeremiapane/line-order/backoffice"
	"github.com/yeremiapane/line-order/cart"
	"github.com/yeremiapane/line-order/checkout"
	"github.com/yeremiapane/line-order/config"
	"github.com/yeremiapane/line-order/database"
	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/router"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	utils.InitLogger("warn", false)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const menuSeed = `[
	{"item_code": "A", "item_name": "Pad Thai", "unit_price": "50", "show_in_line": true},
	{"item_code": "B", "item_name": "Green Curry", "unit_price": "30", "show_in_line": true}
]`

type fakeLine struct {
	mu     sync.Mutex
	pushed map[string]int
}

func (f *fakeLine) VerifyAccessToken(_ context.Context, accessToken string) (*services.LineUser, error) {
	if accessToken != "token-somchai" {
		return nil, utils.NewAuthError("invalid or expired LIFF access token")
	}
	return &services.LineUser{UserID: "U100", DisplayName: "Somchai"}, nil
}

func (f *fakeLine) PushMessage(_ context.Context, to string, _ ...services.LineMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed[to]++
	return nil
}

func (f *fakeLine) count(to string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushed[to]
}

func (f *fakeLine) ReplyMessage(context.Context, string, ...services.LineMessage) error {
	return nil
}

type confirmingDialog struct{ shown []string }

func (d *confirmingDialog) Show(_, message string)                       { d.shown = append(d.shown, message) }
func (d *confirmingDialog) Confirm(context.Context, string, string) bool { return true }
func (d *confirmingDialog) Close()                                       {}

type navigator struct{ landing string }

func (n *navigator) ToLanding(orderName string) { n.landing = orderName }
func (n *navigator) ToRegistration()            {}

type fixedPrompt struct{ points int }

func (p fixedPrompt) PointsToRedeem(context.Context, services.LoyaltyQuote, int) (int, bool) {
	return p.points, true
}

type deskOutput struct {
	successes []string
	failures  []string
	copied    []string
	files     map[string][]byte
}

func (o *deskOutput) Success(message string) { o.successes = append(o.successes, message) }
func (o *deskOutput) Failure(message string) { o.failures = append(o.failures, message) }
func (o *deskOutput) Copy(text string) error { o.copied = append(o.copied, text); return nil }
func (o *deskOutput) Open(filename string, data []byte) error {
	o.files[filename] = data
	return nil
}

func setupServer(t *testing.T) (*httptest.Server, *gorm.DB, *fakeLine) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	seedFile := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(menuSeed), 0o600))
	seeded, err := database.SeedMenu(db, seedFile)
	require.NoError(t, err)
	require.Equal(t, 2, seeded)
	require.NoError(t, database.EnsureAdmin(db, "owner@example.com", "owner-secret"))

	cfg := &config.Config{
		CORSOrigin: "*",
		Shop: config.ShopConfig{
			Currency:              "THB",
			AutoCreateSalesOrder:  true,
			QuickPayModeOfPayment: "Cash",
			RequestPaymentQRURL:   "https://shop.example/qr.png",
			MenuLimit:             50,
			HistoryLimit:          20,
			Name:                  "Baan Kanom",
		},
		Loyalty: config.LoyaltyConfig{
			ProgramName:      "Member Points",
			ValuePerPoint:    decimal.NewFromInt(1),
			CollectionFactor: decimal.NewFromInt(10),
		},
	}
	line := &fakeLine{pushed: map[string]int{}}
	server := httptest.NewServer(router.SetupRouter(router.NewHandlers(db, cfg, line, kds.NewHub())))
	t.Cleanup(server.Close)
	return server, db, line
}

// TestOrderToSettlement walks one order from the mini app cart to a paid
// invoice settled from the back-office desk.
func TestOrderToSettlement(t *testing.T) {
	server, db, line := setupServer(t)
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	// Customer signs in, registers and fills the cart.
	customer := apiclient.New(server.URL, apiclient.WithToken("token-somchai"))
	session, err := customer.StartSession(ctx)
	require.NoError(t, err)
	assert.False(t, session.IsRegistered())

	registered, err := customer.Register(ctx, "0812345678")
	require.NoError(t, err)
	assert.Equal(t, services.RegisterRegistered, registered.Status)
	session, err = customer.StartSession(ctx)
	require.NoError(t, err)
	require.True(t, session.IsRegistered())

	menu, err := customer.LoadMenu(ctx)
	require.NoError(t, err)
	store := cart.NewStore(menu, log)
	require.True(t, store.Add("A", 2))
	require.True(t, store.Add("B", 1))
	assert.Equal(t, "130", store.Totals().GrandTotal.String())

	dialog := &confirmingDialog{}
	nav := &navigator{}
	workflow := checkout.NewWorkflow(store, dialog, customer, nav, session, log)
	orderName, err := workflow.Submit(ctx, "no chili")
	require.NoError(t, err)
	assert.Equal(t, orderName, nav.landing)
	assert.True(t, store.IsEmpty())
	assert.Equal(t, checkout.Succeeded, workflow.State())
	assert.Equal(t, 1, line.count("U100"))

	require.NoError(t, db.Create(&models.LoyaltyEntry{
		CustomerID: registered.CustomerID,
		Points:     50,
		Kind:       models.LoyaltyEarn,
	}).Error)

	// Staff settles the order with 20 points.
	staff := apiclient.New(server.URL)
	role, err := staff.Login(ctx, "owner@example.com", "owner-secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	out := &deskOutput{files: map[string][]byte{}}
	desk := backoffice.NewDesk(staff, fixedPrompt{points: 20}, out, out, out, log)

	view, err := desk.Open(ctx, orderName)
	require.NoError(t, err)
	assert.True(t, view.CanSettle)

	outcome, err := desk.QuickPay(ctx, orderName)
	require.NoError(t, err)
	assert.Equal(t, services.OutcomePaid, outcome.Status)
	assert.Equal(t, "110", outcome.Amount.String())
	assert.False(t, desk.Order(orderName).CanSettle)
	require.Len(t, out.successes, 1)

	_, err = desk.QuickPay(ctx, orderName)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindBusiness))
	require.Len(t, out.failures, 1)

	var invoices int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)

	// Follow-up desk actions.
	require.NoError(t, desk.NotifyCustomer(ctx, orderName))
	assert.Equal(t, 2, line.count("U100"))

	require.NoError(t, desk.CopyOrderText(ctx, orderName))
	require.Len(t, out.copied, 1)
	assert.Contains(t, out.copied[0], "Pad Thai x2")

	require.NoError(t, desk.PrintBagLabel(ctx, orderName))
	assert.Equal(t, "%PDF", string(out.files["bag-label-"+orderName+".pdf"][:4]))

	// The customer sees the points balance after redemption and accrual.
	points, err := customer.Points(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50-20+11, points.Points)

	history, err := customer.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, orderName, history[0].Name)
	assert.Equal(t, models.OrderStatusToDeliver, history[0].Status)
}

func TestCheckoutRequiresRegistration(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	customer := apiclient.New(server.URL, apiclient.WithToken("token-somchai"))
	session, err := customer.StartSession(ctx)
	require.NoError(t, err)

	menu, err := customer.LoadMenu(ctx)
	require.NoError(t, err)
	store := cart.NewStore(menu, log)
	store.Add("A", 1)

	workflow := checkout.NewWorkflow(store, &confirmingDialog{}, customer, &navigator{}, session, log)
	_, err = workflow.Submit(ctx, "")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindUnregistered))
	assert.Equal(t, 1, store.Len())

	var orders int64
	require.NoError(t, db.Model(&models.SalesOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestAdminRoutesNeedToken(t *testing.T) {
	server, _, _ := setupServer(t)

	staff := apiclient.New(server.URL)
	_, err := staff.PendingOrderItems(context.Background())
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthentication))

	stranger := apiclient.New(server.URL, apiclient.WithToken("someone-else"))
	_, err = stranger.StartSession(context.Background())
	assert.True(t, utils.IsKind(err, utils.KindAuthentication))
}

func TestGuestBrowsesAfterLoginFails(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	guest := apiclient.New(server.URL, apiclient.WithToken("expired-token"))
	session, err := guest.StartSession(ctx)
	require.True(t, utils.IsKind(err, utils.KindAuthentication))
	require.NotNil(t, session)

	menu, err := guest.LoadMenu(ctx)
	require.NoError(t, err)
	store := cart.NewStore(menu, log)
	require.True(t, store.Add("B", 2))

	nav := &navigator{}
	workflow := checkout.NewWorkflow(store, &confirmingDialog{}, guest, nav, session, log)
	_, err = workflow.Submit(ctx, "")
	assert.True(t, utils.IsKind(err, utils.KindUnregistered))
	assert.Equal(t, 1, store.Len())

	var orders int64
	require.NoError(t, db.Model(&models.SalesOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
}
