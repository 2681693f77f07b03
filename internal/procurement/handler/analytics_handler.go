package handler

import (
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler 统计处理器
type AnalyticsHandler struct {
	svc *service.AnalyticsService
}

func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// VendorOutstanding 供应商应付余额
// GET /api/analytics/vendor-outstanding
func (h *AnalyticsHandler) VendorOutstanding(c *gin.Context) {
	rows, err := h.svc.VendorOutstanding(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, rows)
}

// PaymentAging 账龄分布
// GET /api/analytics/payment-aging
func (h *AnalyticsHandler) PaymentAging(c *gin.Context) {
	buckets, err := h.svc.PaymentAging(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, buckets)
}
