package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/domain"
)

type statusRequest struct {
	OrderStatus string `json:"orderStatus" binding:"required,oneof=Pending Processing Shipped Delivered Cancelled"`
}

type adminHandlers struct {
	svc orderService
	now func() time.Time
}

// list serves the checkout ledger, or the backend's full order list with
// ?source=backend.
func (h *adminHandlers) list(c *gin.Context) {
	if c.Query("source") == "backend" {
		orders, err := h.svc.BackendOrders(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	orders, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders), "offset": offset})
}

func (h *adminHandlers) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, &req)
		return
	}
	o, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.OrderStatus))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *adminHandlers) exportCSV(c *gin.Context) {
	name := "orders-" + h.now().UTC().Format("20060102") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)
	if err := h.svc.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		_ = c.Error(err)
	}
}
