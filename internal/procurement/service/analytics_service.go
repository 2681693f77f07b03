package service

import (
	"context"
	"math"
	"time"

	"github.com/bitfantasy/procurement/internal/cache"
	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheKeyVendorOutstanding = "analytics:vendor-outstanding"
	cacheKeyPaymentAging      = "analytics:payment-aging:"
)

// AnalyticsService 统计服务，只读
type AnalyticsService struct {
	db     *gorm.DB
	poRepo *repository.PORepository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyticsService(db *gorm.DB, poRepo *repository.PORepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		db:     db,
		poRepo: poRepo,
		cache:  cache.Noop{},
		logger: logger,
		now:    time.Now,
	}
}

// SetCache 启用结果缓存
func (s *AnalyticsService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.ttl = ttl
}

// SetClock 替换时钟
func (s *AnalyticsService) SetClock(now func() time.Time) {
	s.now = now
}

// VendorOutstanding 供应商应付余额
type VendorOutstanding struct {
	VendorID    string  `json:"vendorId"`
	VendorName  string  `json:"vendorName"`
	TotalAmount float64 `json:"totalAmount"`
	TotalPaid   float64 `json:"totalPaid"`
	Outstanding float64 `json:"outstanding"`
}

// AgingBuckets 按逾期天数分组的未付金额
type AgingBuckets struct {
	Days0To30  float64 `json:"0-30"`
	Days31To60 float64 `json:"31-60"`
	Days61To90 float64 `json:"61-90"`
	Over90     float64 `json:"90+"`
}

type vendorOutstandingRow struct {
	VendorID    string          `gorm:"column:vendor_id"`
	VendorName  string          `gorm:"column:vendor_name"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount"`
	TotalPaid   decimal.Decimal `gorm:"column:total_paid"`
	Outstanding decimal.Decimal `gorm:"column:outstanding"`
}

// 付款先按订单聚合再与订单关联，避免一单多笔付款时订单金额被重复累加
const vendorOutstandingSQL = `
	SELECT
		v.id AS vendor_id,
		v.vendor_name AS vendor_name,
		SUM(po.total_amount) AS total_amount,
		COALESCE(SUM(p.paid), 0) AS total_paid,
		SUM(po.total_amount) - COALESCE(SUM(p.paid), 0) AS outstanding
	FROM vendors v
	JOIN purchase_orders po ON po.vendor_id = v.id
	LEFT JOIN (
		SELECT purchase_order_id, SUM(amount_paid) AS paid
		FROM payments
		GROUP BY purchase_order_id
	) p ON p.purchase_order_id = po.id
	GROUP BY v.id, v.vendor_name
	ORDER BY v.vendor_name
`

// VendorOutstanding 有订单的供应商的应付汇总
func (s *AnalyticsService) VendorOutstanding(ctx context.Context) ([]VendorOutstanding, error) {
	var cached []VendorOutstanding
	if s.fromCache(ctx, cacheKeyVendorOutstanding, &cached) {
		return cached, nil
	}

	var rows []vendorOutstandingRow
	if err := s.db.WithContext(ctx).Raw(vendorOutstandingSQL).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]VendorOutstanding, 0, len(rows))
	for _, r := range rows {
		result = append(result, VendorOutstanding{
			VendorID:    r.VendorID,
			VendorName:  r.VendorName,
			TotalAmount: r.TotalAmount.InexactFloat64(),
			TotalPaid:   r.TotalPaid.InexactFloat64(),
			Outstanding: r.Outstanding.InexactFloat64(),
		})
	}

	s.toCache(ctx, cacheKeyVendorOutstanding, result)
	return result, nil
}

// PaymentAging 已审批订单的未付金额账龄分布
func (s *AnalyticsService) PaymentAging(ctx context.Context) (*AgingBuckets, error) {
	now := s.now()
	key := cacheKeyPaymentAging + entity.NewDate(now).String()

	var cached AgingBuckets
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	// 仅统计 APPROVED 状态，部分付款的逾期订单不计入
	orders, err := s.poRepo.FindByStatus(ctx, entity.POStatusApproved)
	if err != nil {
		return nil, err
	}

	buckets := ComputeAging(orders, now)
	s.toCache(ctx, key, buckets)
	return buckets, nil
}

// Invalidate 清理当日统计缓存
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	key := cacheKeyPaymentAging + entity.NewDate(s.now()).String()
	if err := s.cache.Delete(ctx, cacheKeyVendorOutstanding, key); err != nil {
		s.logger.Warn("analytics cache invalidation failed", zap.Error(err))
	}
}

func (s *AnalyticsService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *AnalyticsService) toCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// DaysPastDue 当前时间距到期日的整天数，未到期为负
func DaysPastDue(now time.Time, due entity.Date) int {
	return int(math.Floor(now.Sub(due.Time).Hours() / 24))
}

// AgingBucket 逾期天数对应的账龄区间
func AgingBucket(days int) string {
	switch {
	case days <= 30:
		return "0-30"
	case days <= 60:
		return "31-60"
	case days <= 90:
		return "61-90"
	}
	return "90+"
}

// ComputeAging 汇总各订单未付金额到账龄区间，未付金额不大于0的订单跳过
func ComputeAging(orders []entity.PurchaseOrder, now time.Time) *AgingBuckets {
	sums := map[string]decimal.Decimal{}
	for _, po := range orders {
		outstanding := po.TotalAmount.Sub(entity.SumPayments(po.Payments))
		if !outstanding.IsPositive() {
			continue
		}
		bucket := AgingBucket(DaysPastDue(now, po.DueDate))
		sums[bucket] = sums[bucket].Add(outstanding)
	}

	return &AgingBuckets{
		Days0To30:  sums["0-30"].InexactFloat64(),
		Days31To60: sums["31-60"].InexactFloat64(),
		Days61To90: sums["61-90"].InexactFloat64(),
		Over90:     sums["90+"].InexactFloat64(),
	}
}
