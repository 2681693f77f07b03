package handler

import (
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// PaymentHandler 付款处理器
type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Create 登记付款
// POST /api/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	payment, err := h.svc.Record(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, payment)
}

// List 付款列表
// GET /api/payments
func (h *PaymentHandler) List(c *gin.Context) {
	payments, err := h.svc.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, payments)
}

// Get 付款详情
// GET /api/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	payment, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, payment)
}
