package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
	cartsvc "storefront-checkout/internal/service/cart"
	checkoutsvc "storefront-checkout/internal/service/checkout"
	"storefront-checkout/internal/storefront"
)

type checkoutService interface {
	Open(ctx context.Context, in checkoutsvc.OpenInput) (*checkout.Session, error)
	Get(ctx context.Context, id string) (*checkout.Session, error)
	Close(ctx context.Context, id string) error
	SetField(ctx context.Context, id, field, value string) (*checkout.Session, error)
	Blur(ctx context.Context, id, field string) (*checkout.Session, error)
	SelectPaymentMethod(ctx context.Context, id string, m checkout.PaymentMethod) (*checkout.Session, error)
	SelectCardType(ctx context.Context, id string, t checkout.CardType) (*checkout.Session, error)
	Advance(ctx context.Context, id string, creds checkoutsvc.Credentials) (*checkoutsvc.Result, error)
	Retreat(ctx context.Context, id string) (*checkout.Session, error)
	Validate(values map[string]string, cardType checkout.CardType) (map[checkout.Field]string, error)
}

type cartService interface {
	Summary(ctx context.Context, userID, lang string) (*cartsvc.Summary, error)
	RemoveItem(ctx context.Context, userID, productID, lang string) (*cartsvc.Summary, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int, lang string) (*cartsvc.Summary, error)
	AdjustQuantity(ctx context.Context, userID, productID string, delta int, lang string) (*cartsvc.Summary, error)
}

type rateSource interface {
	Rates(ctx context.Context) (map[string]decimal.Decimal, error)
	Rate(ctx context.Context, code string) decimal.Decimal
}

type orderService interface {
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
	BackendOrders(ctx context.Context) ([]storefront.AdminOrder, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

// Deps are the services behind the HTTP routes.
type Deps struct {
	CheckoutSvc checkoutService
	CartSvc     cartService
	Rates       rateSource
	OrderSvc    orderService

	CORSOrigins  []string
	RateLimitRPS float64
	Now          func() time.Time
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.CheckoutSvc == nil || deps.CartSvc == nil || deps.Rates == nil || deps.OrderSvc == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(corsMiddleware(deps.CORSOrigins))
	if deps.RateLimitRPS > 0 {
		router.Use(rateLimit(deps.RateLimitRPS, logger))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &checkoutHandlers{svc: deps.CheckoutSvc}
	sessions := router.Group("/checkout/sessions")
	{
		sessions.POST("", h.open)
		sessions.GET("/:id", h.get)
		sessions.DELETE("/:id", h.close)
		sessions.PUT("/:id/fields/:field", h.setField)
		sessions.POST("/:id/fields/:field/blur", h.blur)
		sessions.PUT("/:id/payment-method", h.selectPaymentMethod)
		sessions.PUT("/:id/card-type", h.selectCardType)
		sessions.POST("/:id/advance", h.advance)
		sessions.POST("/:id/retreat", h.retreat)
	}
	router.POST("/checkout/validate", h.validate)
	router.GET("/checkout/card-types", cardTypesHandler)

	carts := router.Group("/cart/:userId")
	{
		carts.GET("/summary", cartSummaryHandler(deps.CartSvc))
		carts.PATCH("/items/:productId", updateCartItemHandler(deps.CartSvc))
		carts.DELETE("/items/:productId", removeCartItemHandler(deps.CartSvc))
	}
	router.GET("/rates", ratesHandler(deps.Rates))

	admin := &adminHandlers{svc: deps.OrderSvc, now: deps.Now}
	orders := router.Group("/admin/orders")
	{
		orders.GET("", admin.list)
		orders.GET("/export.csv", admin.exportCSV)
		orders.PATCH("/:id", admin.updateStatus)
	}

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
