package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/line-order/database"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB, name, phone string) models.Customer {
	t.Helper()
	customer := models.Customer{CustomerName: name, MobileNo: phone}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

func seedProfile(t *testing.T, db *gorm.DB, lineUserID string, customer *models.Customer) models.LineProfile {
	t.Helper()
	profile := models.LineProfile{LineUserID: lineUserID, DisplayName: "LINE " + lineUserID, Followed: true}
	if customer != nil {
		profile.CustomerID = &customer.ID
	}
	require.NoError(t, db.Create(&profile).Error)
	if customer != nil {
		profile.Customer = customer
	}
	return profile
}

func seedPoints(t *testing.T, db *gorm.DB, customerID uint, points int) {
	t.Helper()
	require.NoError(t, db.Create(&models.LoyaltyEntry{
		CustomerID: customerID,
		Points:     points,
		Kind:       models.LoyaltyEarn,
	}).Error)
}

func seedMenu(t *testing.T, db *gorm.DB) {
	t.Helper()
	items := []models.MenuItem{
		{ItemCode: "A", ItemName: "Pad Thai", UnitPrice: decimal.NewFromInt(50), ShowInLine: true},
		{ItemCode: "B", ItemName: "Green Curry", UnitPrice: decimal.NewFromInt(30), ShowInLine: true},
		{ItemCode: "C", ItemName: "Mango Sticky Rice", UnitPrice: decimal.NewFromInt(80), ShowInLine: true},
	}
	require.NoError(t, db.Create(&items).Error)
	require.NoError(t, db.Create(&models.MenuItem{
		ItemCode:  "X",
		ItemName:  "Hidden Special",
		UnitPrice: decimal.NewFromInt(99),
	}).Error)
	require.NoError(t, db.Model(&models.MenuItem{}).Where("item_code = ?", "X").Update("show_in_line", false).Error)
}

func seedOrder(t *testing.T, db *gorm.DB, name string, customerID uint, total int64) models.SalesOrder {
	t.Helper()
	order := models.SalesOrder{
		Name:            name,
		CustomerID:      customerID,
		TransactionDate: testNow,
		DeliveryDate:    NextDeliveryDate(testNow),
		Status:          models.OrderStatusToDeliverAndBill,
		DocStatus:       models.DocStatusSubmitted,
		Currency:        "THB",
		TotalQty:        1,
		GrandTotal:      decimal.NewFromInt(total),
		Source:          "line",
		Items: []models.SalesOrderItem{{
			ItemCode: "A",
			ItemName: "Pad Thai",
			Qty:      1,
			Rate:     decimal.NewFromInt(total),
			Amount:   decimal.NewFromInt(total),
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

type sentMessage struct {
	To       string
	Messages []LineMessage
}

type fakeMessenger struct {
	mu      sync.Mutex
	pushed  []sentMessage
	replies []sentMessage
	err     error
}

func (f *fakeMessenger) PushMessage(_ context.Context, to string, messages ...LineMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, sentMessage{To: to, Messages: messages})
	return nil
}

func (f *fakeMessenger) ReplyMessage(_ context.Context, replyToken string, messages ...LineMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, sentMessage{To: replyToken, Messages: messages})
	return nil
}

func (f *fakeMessenger) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	msgs := f.replies[len(f.replies)-1].Messages
	return msgs[len(msgs)-1]["text"]
}

type fakeVerifier struct {
	users map[string]*LineUser
}

func (f *fakeVerifier) VerifyAccessToken(_ context.Context, accessToken string) (*LineUser, error) {
	user, ok := f.users[accessToken]
	if !ok {
		return nil, utils.NewAuthError("invalid or expired LIFF access token")
	}
	return user, nil
}

type recordedEvent struct {
	Name string
	Data interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) Broadcast(event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Name: event, Data: data})
}

func (f *fakeBroadcaster) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.Name)
	}
	return names
}
