package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/line-order/database"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

// fakeLine stands in for the LINE platform.
type fakeLine struct {
	mu     sync.Mutex
	users  map[string]*services.LineUser
	pushed []string
}

func newFakeLine() *fakeLine {
	return &fakeLine{users: map[string]*services.LineUser{
		"token-somchai": {UserID: "U100", DisplayName: "Somchai"},
		"token-malee":   {UserID: "U200", DisplayName: "Malee"},
	}}
}

func (f *fakeLine) VerifyAccessToken(_ context.Context, accessToken string) (*services.LineUser, error) {
	user, ok := f.users[accessToken]
	if !ok {
		return nil, utils.NewAuthError("invalid or expired LIFF access token")
	}
	return user, nil
}

func (f *fakeLine) PushMessage(_ context.Context, to string, _ ...services.LineMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, to)
	return nil
}

func (f *fakeLine) ReplyMessage(context.Context, string, ...services.LineMessage) error {
	return nil
}

func seedMenu(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.MenuItem{
		{ItemCode: "A", ItemName: "Pad Thai", UnitPrice: decimal.NewFromInt(50), ShowInLine: true},
		{ItemCode: "B", ItemName: "Green Curry", UnitPrice: decimal.NewFromInt(30), ShowInLine: true},
	}).Error)
}

func seedOrder(t *testing.T, db *gorm.DB, name string, customerID uint, total int64) {
	t.Helper()
	now := time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.SalesOrder{
		Name:            name,
		CustomerID:      customerID,
		TransactionDate: now,
		DeliveryDate:    services.NextDeliveryDate(now),
		Status:          models.OrderStatusToDeliverAndBill,
		DocStatus:       models.DocStatusSubmitted,
		Currency:        "THB",
		TotalQty:        1,
		GrandTotal:      decimal.NewFromInt(total),
		Items: []models.SalesOrderItem{{
			ItemCode: "A",
			ItemName: "Pad Thai",
			Qty:      1,
			Rate:     decimal.NewFromInt(total),
			Amount:   decimal.NewFromInt(total),
		}},
	}).Error)
}

// asStaff fakes what AuthMiddleware stores for a logged in user.
func asStaff(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}
