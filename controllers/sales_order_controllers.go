package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/middlewares"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

// SalesOrderController exposes the back-office actions on a sales order.
type SalesOrderController struct {
	Orders        *services.OrderService
	Loyalty       *services.LoyaltyService
	Settlement    *services.SettlementService
	Notifications *services.NotificationService
	Labels        *services.LabelService
}

func (sc *SalesOrderController) GetOrder(c *gin.Context) {
	view, err := sc.Orders.View(c.Request.Context(), c.Param("name"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sales order", view)
}

func (sc *SalesOrderController) GetLoyaltyBalance(c *gin.Context) {
	quote, err := sc.Loyalty.Quote(c.Request.Context(), c.Param("name"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Loyalty balance", quote)
}

type settlementRequest struct {
	PointsToRedeem int `json:"points_to_redeem"`
}

func bindSettlement(c *gin.Context) (services.RedemptionRequest, bool) {
	var body settlementRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(c, http.StatusBadRequest, err)
		return services.RedemptionRequest{}, false
	}
	return services.RedemptionRequest{SalesOrder: c.Param("name"), PointsToRedeem: body.PointsToRedeem}, true
}

func (sc *SalesOrderController) respondOutcome(c *gin.Context, outcome services.SettlementOutcome, err error) {
	if err != nil {
		kind := utils.KindOf(err)
		if kind == utils.KindInternal {
			utils.RespondAppError(c, err)
			return
		}
		c.JSON(utils.HTTPStatus(kind), utils.JSONResponse{
			Status:  false,
			Message: err.Error(),
			Data:    outcome,
			Error:   kind,
		})
		return
	}
	utils.RespondJSON(c, http.StatusOK, outcome.Message, outcome)
}

func (sc *SalesOrderController) QuickPay(c *gin.Context) {
	req, ok := bindSettlement(c)
	if !ok {
		return
	}
	outcome, err := sc.Settlement.QuickPay(c.Request.Context(), req, middlewares.CurrentUserID(c))
	sc.respondOutcome(c, outcome, err)
}

func (sc *SalesOrderController) RequestPayment(c *gin.Context) {
	req, ok := bindSettlement(c)
	if !ok {
		return
	}
	outcome, err := sc.Settlement.RequestPayment(c.Request.Context(), req, middlewares.CurrentUserID(c))
	sc.respondOutcome(c, outcome, err)
}

func (sc *SalesOrderController) Notify(c *gin.Context) {
	actor := middlewares.CurrentUserID(c)
	message, err := sc.Notifications.NotifySalesOrder(c.Request.Context(), c.Param("name"), &actor)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, nil)
}

func (sc *SalesOrderController) CopyText(c *gin.Context) {
	text, err := sc.Orders.CopyText(c.Request.Context(), c.Param("name"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

// PendingItems answers 204 when no order has items left to deliver.
func (sc *SalesOrderController) PendingItems(c *gin.Context) {
	text, err := sc.Orders.PendingItems(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if text == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.String(http.StatusOK, text)
}

func (sc *SalesOrderController) BagLabel(c *gin.Context) {
	name := c.Param("name")
	pdf, err := sc.Labels.BagLabel(c.Request.Context(), name)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\"bag-label-"+name+".pdf\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (sc *SalesOrderController) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifications, err := sc.Notifications.List(c.Request.Context(), limit)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notifications", notifications)
}
