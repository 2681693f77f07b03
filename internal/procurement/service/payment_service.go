package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/procurement/internal/metrics"
	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService 付款服务
type PaymentService struct {
	db          *gorm.DB
	paymentRepo *repository.PaymentRepository
	poRepo      *repository.PORepository
	poSvc       *PurchaseOrderService
	metrics     *metrics.Metrics
	logger      *zap.Logger
	invalidator Invalidator
	now         func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	paymentRepo *repository.PaymentRepository,
	poRepo *repository.PORepository,
	poSvc *PurchaseOrderService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		poRepo:      poRepo,
		poSvc:       poSvc,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// SetInvalidator 设置缓存失效回调
func (s *PaymentService) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// SetClock 替换时钟
func (s *PaymentService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordPaymentRequest 登记付款请求
type RecordPaymentRequest struct {
	PurchaseOrderID string               `json:"purchaseOrderId" binding:"required,uuid"`
	PaymentDate     string               `json:"paymentDate" binding:"required,isodate"`
	AmountPaid      float64              `json:"amountPaid" binding:"required,gt=0"`
	PaymentMethod   entity.PaymentMethod `json:"paymentMethod" binding:"required,oneof=NEFT UPI RTGS CHEQUE CASH"`
	Notes           *string              `json:"notes"`
}

// Record 登记付款。锁定订单行后校验余额、写入付款并重算订单状态，全部在同一事务中完成
func (s *PaymentService) Record(ctx context.Context, req *RecordPaymentRequest) (*entity.Payment, error) {
	if _, err := uuid.Parse(req.PurchaseOrderID); err != nil {
		return nil, validationError("purchaseOrderId must be a UUID")
	}
	amount := decimal.NewFromFloat(req.AmountPaid).Round(2)
	if !amount.IsPositive() {
		return nil, validationError("amountPaid must be a positive number")
	}
	if !req.PaymentMethod.Valid() {
		return nil, validationError("paymentMethod must be one of NEFT, UPI, RTGS, CHEQUE, CASH")
	}
	paymentDate, err := entity.ParseDate(req.PaymentDate)
	if err != nil {
		return nil, validationError("paymentDate must be a valid ISO 8601 date string")
	}

	payment := &entity.Payment{
		ID:              uuid.New().String(),
		PurchaseOrderID: req.PurchaseOrderID,
		PaymentDate:     paymentDate,
		AmountPaid:      amount,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		poRepo := s.poRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		po, err := poRepo.FindForUpdate(ctx, req.PurchaseOrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Purchase order", req.PurchaseOrderID)
		}
		if err != nil {
			return err
		}

		paidSoFar, err := paymentRepo.SumByOrder(ctx, po.ID)
		if err != nil {
			return err
		}
		outstanding := po.TotalAmount.Sub(paidSoFar)
		if amount.GreaterThan(outstanding) {
			return &OverpaymentError{Outstanding: outstanding, Amount: amount}
		}

		ref, err := paymentRepo.GenerateReference(ctx, s.now())
		if err != nil {
			return err
		}
		payment.PaymentReference = ref
		if err := paymentRepo.Create(ctx, payment); err != nil {
			return err
		}

		return s.poSvc.WithTx(tx).AutoRecompute(ctx, po.ID, paidSoFar.Add(amount))
	})
	if err != nil {
		var over *OverpaymentError
		if errors.As(err, &over) {
			s.metrics.OverpaymentRejected()
			s.logger.Warn("overpayment rejected",
				zap.String("po_id", req.PurchaseOrderID),
				zap.String("amount", over.Amount.StringFixed(2)),
				zap.String("outstanding", over.Outstanding.StringFixed(2)),
			)
		}
		return nil, conflictFrom(err, "Payment reference already allocated, please retry")
	}

	s.metrics.PaymentRecorded(string(payment.PaymentMethod), amount.InexactFloat64())
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("payment_reference", payment.PaymentReference),
		zap.String("po_id", payment.PurchaseOrderID),
		zap.String("amount", amount.StringFixed(2)),
	)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	return s.Get(ctx, payment.ID)
}

// List 付款列表
func (s *PaymentService) List(ctx context.Context) ([]entity.Payment, error) {
	return s.paymentRepo.FindAll(ctx)
}

// Get 付款详情
func (s *PaymentService) Get(ctx context.Context, id string) (*entity.Payment, error) {
	p, err := s.paymentRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Payment", id)
	}
	return p, err
}

// SumPaid 订单已付总额
func (s *PaymentService) SumPaid(ctx context.Context, purchaseOrderID string) (decimal.Decimal, error) {
	return s.paymentRepo.SumByOrder(ctx, purchaseOrderID)
}
