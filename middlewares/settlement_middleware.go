package middlewares

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/utils"
)

// SettlementAudit logs who tried to settle which order and how it ended.
func SettlementAudit() gin.HandlerFunc {
	return func(c *gin.Context) {
		order := c.Param("name")
		utils.InfoLogger.Printf("Settlement %s requested for %s by user %d", c.FullPath(), order, CurrentUserID(c))

		c.Next()

		if c.Writer.Status() < 300 {
			utils.InfoLogger.Printf("Settlement %s for %s succeeded", c.FullPath(), order)
		} else {
			utils.ErrorLogger.Printf("Settlement %s for %s failed with status %d", c.FullPath(), order, c.Writer.Status())
		}
	}
}

// SingleFlightPerOrder rejects a second settlement call for an order while
// the first is still being processed by this instance.
func SingleFlightPerOrder() gin.HandlerFunc {
	var mu sync.Mutex
	inFlight := make(map[string]bool)

	return func(c *gin.Context) {
		order := c.Param("name")

		mu.Lock()
		if inFlight[order] {
			mu.Unlock()
			utils.RespondAppError(c, utils.NewBusinessError("a settlement for %s is already in progress", order))
			c.Abort()
			return
		}
		inFlight[order] = true
		mu.Unlock()

		defer func() {
			mu.Lock()
			delete(inFlight, order)
			mu.Unlock()
		}()

		c.Next()
	}
}
