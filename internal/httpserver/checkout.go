package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-checkout/internal/checkout"
	checkoutsvc "storefront-checkout/internal/service/checkout"
)

// sessionView adds the derived step information a client renders from.
type sessionView struct {
	*checkout.Session
	Panel     checkout.Panel `json:"panel"`
	StepCount int            `json:"stepCount"`
}

func viewOf(s *checkout.Session) *sessionView {
	if s == nil {
		return nil
	}
	return &sessionView{Session: s, Panel: s.Panel(), StepCount: checkout.StepCount(s.PaymentMethod)}
}

type fieldRequest struct {
	Value *string `json:"value" binding:"required"`
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

type cardTypeRequest struct {
	CardType string `json:"cardType" binding:"required"`
}

type validateRequest struct {
	Values   map[string]string `json:"values" binding:"required"`
	CardType string            `json:"cardType"`
}

type advanceResponse struct {
	Outcome checkout.Outcome `json:"outcome"`
	OrderID string           `json:"orderId,omitempty"`
	Session *sessionView     `json:"session,omitempty"`
}

type checkoutHandlers struct {
	svc checkoutService
}

func (h *checkoutHandlers) open(c *gin.Context) {
	var req checkoutsvc.OpenInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, &req)
		return
	}
	sess, err := h.svc.Open(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(sess))
}

func (h *checkoutHandlers) get(c *gin.Context) {
	sess, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *checkoutHandlers) close(c *gin.Context) {
	if err := h.svc.Close(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *checkoutHandlers) setField(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, &req)
		return
	}
	sess, err := h.svc.SetField(c.Request.Context(), c.Param("id"), c.Param("field"), *req.Value)
	h.respond(c, sess, err)
}

func (h *checkoutHandlers) blur(c *gin.Context) {
	sess, err := h.svc.Blur(c.Request.Context(), c.Param("id"), c.Param("field"))
	h.respond(c, sess, err)
}

func (h *checkoutHandlers) selectPaymentMethod(c *gin.Context) {
	var req paymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, &req)
		return
	}
	sess, err := h.svc.SelectPaymentMethod(c.Request.Context(), c.Param("id"), checkout.PaymentMethod(req.PaymentMethod))
	h.respond(c, sess, err)
}

func (h *checkoutHandlers) selectCardType(c *gin.Context) {
	var req cardTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, &req)
		return
	}
	sess, err := h.svc.SelectCardType(c.Request.Context(), c.Param("id"), checkout.CardType(req.CardType))
	h.respond(c, sess, err)
}

func (h *checkoutHandlers) retreat(c *gin.Context) {
	sess, err := h.svc.Retreat(c.Request.Context(), c.Param("id"))
	h.respond(c, sess, err)
}

// advance answers 422 with the step's field errors when validation blocks the
// move, and carries the session alongside submission failures so the client
// can stay on the confirmation step.
func (h *checkoutHandlers) advance(c *gin.Context) {
	res, err := h.svc.Advance(c.Request.Context(), c.Param("id"), checkoutsvc.Credentials{Token: bearerToken(c)})
	if err != nil {
		var view *sessionView
		if res != nil {
			view = viewOf(res.Session)
		}
		writeErrorWithSession(c, err, view)
		return
	}
	if res.Outcome == checkout.Blocked {
		writeErrorWithSession(c, &checkout.ValidationError{Fields: res.Session.ErrorsFor(res.Session.StepFields())}, viewOf(res.Session))
		return
	}
	status := http.StatusOK
	if res.OrderID != "" {
		status = http.StatusCreated
	}
	c.JSON(status, advanceResponse{Outcome: res.Outcome, OrderID: res.OrderID, Session: viewOf(res.Session)})
}

func (h *checkoutHandlers) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, &req)
		return
	}
	errs, err := h.svc.Validate(req.Values, checkout.CardType(req.CardType))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make(map[string]string, len(errs))
	for f, msg := range errs {
		out[string(f)] = msg
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(out) == 0, "fieldErrors": out})
}

func (h *checkoutHandlers) respond(c *gin.Context, sess *checkout.Session, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func cardTypesHandler(c *gin.Context) {
	type cardTypeView struct {
		Name      checkout.CardType `json:"name"`
		CVCLength int               `json:"cvcLength"`
	}
	types := checkout.CardTypes()
	out := make([]cardTypeView, 0, len(types))
	for _, t := range types {
		out = append(out, cardTypeView{Name: t, CVCLength: t.CVCLength()})
	}
	c.JSON(http.StatusOK, out)
}
