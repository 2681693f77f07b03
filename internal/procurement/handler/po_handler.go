package handler

import (
	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/bitfantasy/procurement/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// POHandler 采购订单处理器
type POHandler struct {
	svc *service.PurchaseOrderService
}

func NewPOHandler(svc *service.PurchaseOrderService) *POHandler {
	return &POHandler{svc: svc}
}

// POListQuery 订单查询参数
type POListQuery struct {
	VendorID string `form:"vendorId" json:"vendorId" binding:"omitempty,uuid"`
	Status   string `form:"status" json:"status" binding:"omitempty,oneof=DRAFT APPROVED PARTIALLY_PAID FULLY_PAID"`
}

func (q POListQuery) filter() repository.POFilter {
	return repository.POFilter{
		VendorID: q.VendorID,
		Status:   entity.POStatus(q.Status),
	}
}

// Create 创建采购订单
// POST /api/purchase-orders
func (h *POHandler) Create(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	po, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, po)
}

// List 采购订单列表
// GET /api/purchase-orders?vendorId=xxx&status=xxx
func (h *POHandler) List(c *gin.Context) {
	var q POListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ValidationFailed(c, err)
		return
	}

	orders, err := h.svc.List(c.Request.Context(), q.filter())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, orders)
}

// Get 采购订单详情
// GET /api/purchase-orders/:id
func (h *POHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	po, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, po)
}

// UpdateStatus 变更订单状态
// PATCH /api/purchase-orders/:id/status
func (h *POHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.UpdatePOStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ValidationFailed(c, err)
		return
	}

	po, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, po)
}

// Outstanding 订单未付余额
// GET /api/purchase-orders/:id/outstanding
func (h *POHandler) Outstanding(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	balance, err := h.svc.Outstanding(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, balance)
}

// Export 导出采购订单
// GET /api/purchase-orders/export?vendorId=xxx&status=xxx
func (h *POHandler) Export(c *gin.Context) {
	var q POListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ValidationFailed(c, err)
		return
	}

	f, filename, err := h.svc.Export(c.Request.Context(), q.filter())
	if err != nil {
		HandleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}
