package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/middlewares"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

// LiffController serves the LINE mini app. Every route except GetMenu runs
// behind middlewares.LiffAuth.
type LiffController struct {
	Customers *services.CustomerService
	Menu      *services.MenuService
	Orders    *services.OrderService
	Loyalty   *services.LoyaltyService
}

func NewLiffController(customers *services.CustomerService, menu *services.MenuService, orders *services.OrderService, loyalty *services.LoyaltyService) *LiffController {
	return &LiffController{Customers: customers, Menu: menu, Orders: orders, Loyalty: loyalty}
}

func (lc *LiffController) Auth(c *gin.Context) {
	profile, user := middlewares.LineProfileFrom(c)
	utils.RespondJSON(c, http.StatusOK, "Authenticated", services.NewAuthResult(profile, user))
}

// GetMenu is public so the mini app can still browse after a failed login.
func (lc *LiffController) GetMenu(c *gin.Context) {
	items, err := lc.Menu.List(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu items", items)
}

func (lc *LiffController) GetPoints(c *gin.Context) {
	profile, _ := middlewares.LineProfileFrom(c)
	points, err := lc.Loyalty.CustomerPoints(c.Request.Context(), profile)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Loyalty points", points)
}

func (lc *LiffController) SubmitOrder(c *gin.Context) {
	var input services.SubmitOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	profile, _ := middlewares.LineProfileFrom(c)
	result, err := lc.Orders.Submit(c.Request.Context(), profile, input)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order submitted", result)
}

func (lc *LiffController) Register(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	profile, user := middlewares.LineProfileFrom(c)
	result, err := lc.Customers.LinkByPhone(c.Request.Context(), profile, user.DisplayName, req.Phone)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	code := http.StatusOK
	if result.Status == services.RegisterRegistered {
		code = http.StatusCreated
	}
	utils.RespondJSON(c, code, "Registration "+result.Status, result)
}

func (lc *LiffController) GetHistory(c *gin.Context) {
	profile, _ := middlewares.LineProfileFrom(c)
	history, err := lc.Orders.History(c.Request.Context(), profile)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order history", history)
}
