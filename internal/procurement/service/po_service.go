package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitfantasy/procurement/internal/metrics"
	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Invalidator 写操作后清理派生数据缓存
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// PurchaseOrderService 采购订单服务
type PurchaseOrderService struct {
	db          *gorm.DB
	poRepo      *repository.PORepository
	paymentRepo *repository.PaymentRepository
	vendorSvc   *VendorService
	metrics     *metrics.Metrics
	logger      *zap.Logger
	invalidator Invalidator
	now         func() time.Time
}

func NewPurchaseOrderService(
	db *gorm.DB,
	poRepo *repository.PORepository,
	paymentRepo *repository.PaymentRepository,
	vendorSvc *VendorService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		db:          db,
		poRepo:      poRepo,
		paymentRepo: paymentRepo,
		vendorSvc:   vendorSvc,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// SetInvalidator 设置缓存失效回调
func (s *PurchaseOrderService) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// SetClock 替换时钟
func (s *PurchaseOrderService) SetClock(now func() time.Time) {
	s.now = now
}

// WithTx 返回绑定事务的副本
func (s *PurchaseOrderService) WithTx(tx *gorm.DB) *PurchaseOrderService {
	cp := *s
	cp.db = tx
	cp.poRepo = s.poRepo.WithTx(tx)
	cp.paymentRepo = s.paymentRepo.WithTx(tx)
	return &cp
}

func (s *PurchaseOrderService) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
}

// CreatePOItemRequest 采购订单行项
type CreatePOItemRequest struct {
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unitPrice" binding:"required,gt=0"`
}

// CreatePORequest 创建采购订单请求
type CreatePORequest struct {
	VendorID string                `json:"vendorId" binding:"required,uuid"`
	Items    []CreatePOItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdatePOStatusRequest 更新订单状态请求
type UpdatePOStatusRequest struct {
	Status entity.POStatus `json:"status" binding:"required,oneof=DRAFT APPROVED PARTIALLY_PAID FULLY_PAID"`
}

// OrderBalance 订单余额
type OrderBalance struct {
	PurchaseOrderID string          `json:"purchaseOrderId"`
	PONumber        string          `json:"poNumber"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TotalPaid       decimal.Decimal `json:"totalPaid"`
	Outstanding     decimal.Decimal `json:"outstanding"`
}

func (r *CreatePORequest) validate() error {
	if r.VendorID == "" {
		return validationError("vendorId is required")
	}
	if _, err := uuid.Parse(r.VendorID); err != nil {
		return validationError("vendorId must be a UUID")
	}
	if len(r.Items) == 0 {
		return validationError("items must contain at least 1 element")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Description) == "" {
			return validationError("items[%d].description is required", i)
		}
		if !decimal.NewFromFloat(item.Quantity).Round(3).IsPositive() {
			return validationError("items[%d].quantity must be a positive number", i)
		}
		if !decimal.NewFromFloat(item.UnitPrice).Round(2).IsPositive() {
			return validationError("items[%d].unitPrice must be a positive number", i)
		}
	}
	return nil
}

// buildItems 计算行金额，数量保留三位小数，单价保留两位小数
func buildItems(reqs []CreatePOItemRequest) []entity.PurchaseOrderItem {
	items := make([]entity.PurchaseOrderItem, 0, len(reqs))
	for _, r := range reqs {
		qty := decimal.NewFromFloat(r.Quantity).Round(3)
		price := decimal.NewFromFloat(r.UnitPrice).Round(2)
		items = append(items, entity.PurchaseOrderItem{
			ID:          uuid.New().String(),
			Description: r.Description,
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   entity.ComputeLineTotal(qty, price),
		})
	}
	return items
}

// Create 创建采购订单，订单与行项在同一事务中写入
func (s *PurchaseOrderService) Create(ctx context.Context, req *CreatePORequest) (*entity.PurchaseOrder, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	vendor, err := s.vendorSvc.AssertActive(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	poDate := entity.NewDate(now)
	items := buildItems(req.Items)

	po := &entity.PurchaseOrder{
		ID:          uuid.New().String(),
		VendorID:    vendor.ID,
		PODate:      poDate,
		DueDate:     poDate.AddDays(vendor.PaymentTerms.Days()),
		TotalAmount: entity.SumLineTotals(items),
		Status:      entity.POStatusDraft,
		Items:       items,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.poRepo.WithTx(tx)
		number, err := repo.GenerateNumber(ctx, now)
		if err != nil {
			return err
		}
		po.PONumber = number
		return repo.Create(ctx, po)
	})
	if err != nil {
		return nil, conflictFrom(err, "Purchase order number already allocated, please retry")
	}

	s.metrics.OrderCreated()
	s.logger.Info("purchase order created",
		zap.String("po_id", po.ID),
		zap.String("po_number", po.PONumber),
		zap.String("vendor_id", po.VendorID),
		zap.String("total_amount", po.TotalAmount.StringFixed(2)),
	)
	s.invalidate(ctx)

	return s.Get(ctx, po.ID)
}

// List 采购订单列表
func (s *PurchaseOrderService) List(ctx context.Context, filter repository.POFilter) ([]entity.PurchaseOrder, error) {
	return s.poRepo.FindAll(ctx, filter)
}

// Get 采购订单详情
func (s *PurchaseOrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Purchase order", id)
	}
	return po, err
}

// UpdateStatus 人工变更状态，按状态机校验
func (s *PurchaseOrderService) UpdateStatus(ctx context.Context, id string, status entity.POStatus) (*entity.PurchaseOrder, error) {
	if !status.Valid() {
		return nil, validationError("status must be one of DRAFT, APPROVED, PARTIALLY_PAID, FULLY_PAID")
	}

	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransitionTo(status) {
		return nil, &TransitionError{From: po.Status, To: status}
	}

	if err := s.poRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.metrics.StatusChanged(string(po.Status), string(status))
	s.logger.Info("purchase order status updated",
		zap.String("po_id", id),
		zap.String("from", string(po.Status)),
		zap.String("to", string(status)),
	)
	s.invalidate(ctx)

	return s.Get(ctx, id)
}

// RecomputeStatus 按已付金额推导订单状态
func RecomputeStatus(current entity.POStatus, total, paid decimal.Decimal) entity.POStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return entity.POStatusFullyPaid
	case paid.IsPositive():
		return entity.POStatusPartiallyPaid
	}
	return current
}

// AutoRecompute 付款后自动更新状态，不经过人工状态机校验
func (s *PurchaseOrderService) AutoRecompute(ctx context.Context, id string, newTotalPaid decimal.Decimal) error {
	po, err := s.poRepo.FindForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("Purchase order", id)
	}
	if err != nil {
		return err
	}

	next := RecomputeStatus(po.Status, po.TotalAmount, newTotalPaid)
	if next == po.Status {
		return nil
	}
	if err := s.poRepo.UpdateStatus(ctx, id, next); err != nil {
		return err
	}

	s.metrics.StatusChanged(string(po.Status), string(next))
	s.logger.Info("purchase order status recomputed",
		zap.String("po_id", id),
		zap.String("from", string(po.Status)),
		zap.String("to", string(next)),
		zap.String("total_paid", newTotalPaid.StringFixed(2)),
	)
	return nil
}

// Outstanding 订单未付余额
func (s *PurchaseOrderService) Outstanding(ctx context.Context, id string) (*OrderBalance, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	paid, err := s.paymentRepo.SumByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &OrderBalance{
		PurchaseOrderID: po.ID,
		PONumber:        po.PONumber,
		TotalAmount:     po.TotalAmount,
		TotalPaid:       paid,
		Outstanding:     po.TotalAmount.Sub(paid),
	}, nil
}
