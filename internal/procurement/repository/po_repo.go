package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/procurement/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// POFilter 采购订单查询条件
type POFilter struct {
	VendorID string
	Status   entity.POStatus
}

// PORepository 采购订单仓库
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// WithTx 返回绑定事务的仓库
func (r *PORepository) WithTx(tx *gorm.DB) *PORepository {
	return &PORepository{db: tx}
}

// hydrate 预加载供应商、行项与付款
func hydrate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Vendor").
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

// FindAll 查询采购订单列表，按创建时间倒序
func (r *PORepository) FindAll(ctx context.Context, filter POFilter) ([]entity.PurchaseOrder, error) {
	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})

	if filter.VendorID != "" {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var orders []entity.PurchaseOrder
	err := hydrate(query).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// FindByID 根据ID查找采购订单（含关联）
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := hydrate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// FindForUpdate 加行锁读取采购订单，需在事务中调用
func (r *PORepository) FindForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// FindByStatus 按状态查询（不含行项）
func (r *PORepository) FindByStatus(ctx context.Context, status entity.POStatus) ([]entity.PurchaseOrder, error) {
	var orders []entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Preload("Payments").
		Where("status = ?", status).
		Order("due_date ASC").
		Find(&orders).Error
	return orders, err
}

// Create 创建采购订单及行项
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return translate(r.db.WithContext(ctx).Omit("Vendor", "Payments").Create(po).Error)
}

// UpdateStatus 仅更新状态
func (r *PORepository) UpdateStatus(ctx context.Context, id string, status entity.POStatus) error {
	result := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateNumber 生成订单号 PO-YYYYMMDD-NNN
func (r *PORepository) GenerateNumber(ctx context.Context, now time.Time) (string, error) {
	prefix := referencePrefix("PO", now)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("po_number LIKE ?", prefix+"-%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return formatReference(prefix, count), nil
}
