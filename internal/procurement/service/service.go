package service

import (
	"time"

	"github.com/bitfantasy/procurement/internal/cache"
	"github.com/bitfantasy/procurement/internal/metrics"
	"github.com/bitfantasy/procurement/internal/procurement/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 采购服务集合
type Services struct {
	Vendor    *VendorService
	PO        *PurchaseOrderService
	Payment   *PaymentService
	Analytics *AnalyticsService
}

// NewServices 创建服务集合。c 为 nil 时不缓存统计结果
func NewServices(db *gorm.DB, repos *repository.Repositories, c cache.Cache, cacheTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *Services {
	vendorSvc := NewVendorService(repos.Vendor, logger.Named("vendor"))
	poSvc := NewPurchaseOrderService(db, repos.PO, repos.Payment, vendorSvc, m, logger.Named("purchase_order"))
	paymentSvc := NewPaymentService(db, repos.Payment, repos.PO, poSvc, m, logger.Named("payment"))
	analyticsSvc := NewAnalyticsService(db, repos.PO, logger.Named("analytics"))

	if c != nil {
		analyticsSvc.SetCache(c, cacheTTL)
	}
	vendorSvc.SetInvalidator(analyticsSvc)
	poSvc.SetInvalidator(analyticsSvc)
	paymentSvc.SetInvalidator(analyticsSvc)

	return &Services{
		Vendor:    vendorSvc,
		PO:        poSvc,
		Payment:   paymentSvc,
		Analytics: analyticsSvc,
	}
}

// SetClock 统一替换各服务时钟
func (s *Services) SetClock(now func() time.Time) {
	s.PO.SetClock(now)
	s.Payment.SetClock(now)
	s.Analytics.SetClock(now)
}
