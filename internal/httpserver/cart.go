package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/currency"
	cartsvc "storefront-checkout/internal/service/cart"
)

func langOf(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return "en"
}

func cartSummaryHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, err := svc.Summary(c.Request.Context(), c.Param("userId"), langOf(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

// quantityRequest sets a line either to an absolute quantity or by a relative
// change, as the cart page's plus and minus buttons send.
type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required_without=Change"`
	Change   *int `json:"change" binding:"required_without=Quantity,excluded_with=Quantity"`
}

func updateCartItemHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req quantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err, &req)
			return
		}
		ctx := c.Request.Context()
		userID, productID, lang := c.Param("userId"), c.Param("productId"), langOf(c)

		var (
			sum *cartsvc.Summary
			err error
		)
		if req.Quantity != nil {
			sum, err = svc.UpdateQuantity(ctx, userID, productID, *req.Quantity, lang)
		} else {
			sum, err = svc.AdjustQuantity(ctx, userID, productID, *req.Change, lang)
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

func removeCartItemHandler(svc cartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, err := svc.RemoveItem(c.Request.Context(), c.Param("userId"), c.Param("productId"), langOf(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

// ratesHandler reports the display currency for lang. Lookup failures fall
// back to a multiplier of 1 rather than failing the request.
func ratesHandler(rates rateSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := langOf(c)
		code := currency.CurrencyForLanguage(lang)
		resp := gin.H{
			"base":     currency.Base,
			"currency": code,
			"symbol":   currency.Symbol(lang),
			"rate":     rates.Rate(c.Request.Context(), code),
		}
		if table, err := rates.Rates(c.Request.Context()); err == nil {
			resp["rates"] = table
		}
		c.JSON(http.StatusOK, resp)
	}
}
