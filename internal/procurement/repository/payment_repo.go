package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRepository 付款仓库
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx 返回绑定事务的仓库
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// FindAll 全部付款，按创建时间倒序
func (r *PaymentRepository) FindAll(ctx context.Context) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := r.db.WithContext(ctx).
		Preload("PurchaseOrder").
		Preload("PurchaseOrder.Vendor").
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// FindByID 根据ID查找付款
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*entity.Payment, error) {
	var p entity.Payment
	err := r.db.WithContext(ctx).
		Preload("PurchaseOrder").
		Preload("PurchaseOrder.Vendor").
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// SumByOrder 订单已付总额，无付款时为0
func (r *PaymentRepository) SumByOrder(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Raw(
		"SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE purchase_order_id = ?", orderID,
	).Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Create 创建付款
func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	return translate(r.db.WithContext(ctx).Omit("PurchaseOrder").Create(p).Error)
}

// GenerateReference 生成付款编号 PAY-YYYYMMDD-NNN
func (r *PaymentRepository) GenerateReference(ctx context.Context, now time.Time) (string, error) {
	prefix := referencePrefix("PAY", now)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Payment{}).
		Where("payment_reference LIKE ?", prefix+"-%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return formatReference(prefix, count), nil
}
