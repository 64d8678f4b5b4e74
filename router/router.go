package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/config"
	"github.com/yeremiapane/line-order/controllers"
	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/middlewares"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/services"
	"gorm.io/gorm"
)

// LineAPI is everything the server needs from the LINE platform.
type LineAPI interface {
	services.TokenVerifier
	services.Messenger
}

// Handlers bundles the controllers mounted by SetupRouter.
type Handlers struct {
	Liff        *controllers.LiffController
	SalesOrders *controllers.SalesOrderController
	Users       *controllers.UserController
	KDS         *controllers.KDSController
	Webhook     *controllers.LineWebhookController
	Customers   *services.CustomerService
	CORSOrigin  string
}

// NewHandlers wires services and controllers over one database.
func NewHandlers(db *gorm.DB, cfg *config.Config, line LineAPI, hub *kds.Hub) Handlers {
	menu := services.NewMenuService(db, cfg.Shop.MenuLimit)
	customers := services.NewCustomerService(db, line)
	loyalty := services.NewLoyaltyService(db, services.LoyaltyProgram{
		Name:             cfg.Loyalty.ProgramName,
		ValuePerPoint:    cfg.Loyalty.ValuePerPoint,
		CollectionFactor: cfg.Loyalty.CollectionFactor,
	})
	orders := services.NewOrderService(db, menu, hub, line, services.OrderSettings{
		Currency:             cfg.Shop.Currency,
		AutoCreateSalesOrder: cfg.Shop.AutoCreateSalesOrder,
		HistoryLimit:         cfg.Shop.HistoryLimit,
	})
	settlement := services.NewSettlementService(db, loyalty, line, hub, services.SettlementSettings{
		ModeOfPayment:         cfg.Shop.QuickPayModeOfPayment,
		RequestPaymentMessage: cfg.Shop.RequestPaymentMessage,
		RequestPaymentQRURL:   cfg.Shop.RequestPaymentQRURL,
		PaymentRequestTTL:     cfg.Shop.PaymentRequestTTL,
	})

	return Handlers{
		Liff: controllers.NewLiffController(customers, menu, orders, loyalty),
		SalesOrders: &controllers.SalesOrderController{
			Orders:        orders,
			Loyalty:       loyalty,
			Settlement:    settlement,
			Notifications: services.NewNotificationService(db, line, hub),
			Labels:        services.NewLabelService(db, cfg.Shop.LabelFontPath, cfg.Shop.Name),
		},
		Users: controllers.NewUserController(db),
		KDS:   controllers.NewKDSController(hub, cfg.CORSOrigin),
		Webhook: &controllers.LineWebhookController{
			Webhook:       services.NewWebhookService(db, customers, line, hub),
			ChannelSecret: cfg.Line.ChannelSecret,
		},
		Customers:  customers,
		CORSOrigin: cfg.CORSOrigin,
	}
}

func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(h.CORSOrigin))
	r.Use(middlewares.NewRateLimiter(50, time.Second).RateLimit())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")

	// LINE platform callbacks
	api.POST("/line/webhook", h.Webhook.Handle)

	// Mini app. Guests can browse the menu without a LINE login.
	api.POST("/liff/menu", h.Liff.GetMenu)

	liff := api.Group("/liff")
	liff.Use(middlewares.LiffAuth(h.Customers))
	{
		liff.POST("/auth", h.Liff.Auth)
		liff.POST("/points", h.Liff.GetPoints)
		liff.POST("/orders", h.Liff.SubmitOrder)
		liff.POST("/register", middlewares.NewStrictRateLimiter(time.Minute, 5), h.Liff.Register)
		liff.POST("/history", h.Liff.GetHistory)
	}

	// Back office
	api.POST("/login", middlewares.NewStrictRateLimiter(time.Minute, 5), h.Users.Login)
	api.GET("/admin/ws", middlewares.WebSocketAuthMiddleware(), middlewares.RequireRole(models.RoleStaff), h.KDS.Handle)

	admin := api.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleStaff))
	{
		admin.GET("/profile", h.Users.GetProfile)
		admin.GET("/users", middlewares.RequireRole(models.RoleAdmin), h.Users.GetAllUsers)
		admin.POST("/users", middlewares.RequireRole(models.RoleAdmin), h.Users.Register)

		admin.GET("/notifications", h.SalesOrders.ListNotifications)
		admin.GET("/sales-orders/pending-items", h.SalesOrders.PendingItems)

		orders := admin.Group("/sales-orders/:name")
		orders.GET("", h.SalesOrders.GetOrder)
		orders.GET("/loyalty", h.SalesOrders.GetLoyaltyBalance)
		orders.GET("/copy-text", h.SalesOrders.CopyText)
		orders.GET("/bag-label", h.SalesOrders.BagLabel)
		orders.POST("/notify", h.SalesOrders.Notify)

		settle := orders.Group("")
		settle.Use(middlewares.SettlementAudit(), middlewares.SingleFlightPerOrder())
		settle.POST("/quick-pay", h.SalesOrders.QuickPay)
		settle.POST("/request-payment", h.SalesOrders.RequestPayment)
	}

	return r
}
